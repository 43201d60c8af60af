package resistance

import (
	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/priority"
)

// ViolationKind says which side of a variable's allowed range is violated.
type ViolationKind uint8

const (
	MinViolation ViolationKind = iota
	MaxViolation
)

func (k ViolationKind) String() string {
	if k == MinViolation {
		return "min"
	}
	return "max"
}

// Violation records that a variable's current value lies outside a standing
// constraint. Target is the nearest boundary of the governing constraint.
type Violation struct {
	Kind     ViolationKind
	Priority priority.Priority
	Target   float64
}

// SatGroup is the shared satisfied-or-group resistance of a variable that
// satisfies one or more groups together with other satisfiers. It is kept
// apart from own resistance and only consulted when looking for profitable
// variable exchanges.
type SatGroup struct {
	Up, Down priority.Priority
}

// Entry is the per-variable resistance record. Up/Down fold in every
// contribution including or-group violations; UpNoGroups/DownNoGroups
// exclude the or-group-violation overlay (they still include a tight
// or-group the variable is the only satisfier of, which behaves like an
// ordinary tight constraint). Invariant: Up >= UpNoGroups and
// Down >= DownNoGroups.
type Entry struct {
	Min, Max       float64
	HasMin, HasMax bool
	MinPriority    priority.Priority
	MaxPriority    priority.Priority
	Stability      priority.Priority
	StableValue    float64
	HasStable      bool
	Violation      *Violation
	Up, Down       priority.Priority
	UpNoGroups     priority.Priority
	DownNoGroups   priority.Priority
	Sat            *SatGroup
}

func newEntry() *Entry {
	return &Entry{
		MinPriority:  priority.None,
		MaxPriority:  priority.None,
		Stability:    priority.None,
		Up:           priority.None,
		Down:         priority.None,
		UpNoGroups:   priority.None,
		DownNoGroups: priority.None,
	}
}

// Resistance returns the entry's resistance in direction d; Both yields
// the larger of the two.
func (e *Entry) Resistance(d core.Direction) priority.Priority {
	switch d {
	case core.Up:
		return e.Up
	case core.Down:
		return e.Down
	default:
		return priority.Max(e.Up, e.Down)
	}
}

// NoGroupResistance returns the resistance excluding the
// or-group-violation overlay.
func (e *Entry) NoGroupResistance(d core.Direction) priority.Priority {
	switch d {
	case core.Up:
		return e.UpNoGroups
	case core.Down:
		return e.DownNoGroups
	default:
		return priority.Max(e.UpNoGroups, e.DownNoGroups)
	}
}

// SatResistance returns the shared satisfied-group resistance in direction
// d, priority.None when the variable has none.
func (e *Entry) SatResistance(d core.Direction) priority.Priority {
	if e.Sat == nil {
		return priority.None
	}
	if d == core.Up {
		return e.Sat.Up
	}
	return e.Sat.Down
}

// Equal compares two entries field by field.
func (e *Entry) Equal(o *Entry) bool {
	if e.Min != o.Min || e.Max != o.Max || e.HasMin != o.HasMin || e.HasMax != o.HasMax {
		return false
	}
	if e.MinPriority != o.MinPriority || e.MaxPriority != o.MaxPriority || e.Stability != o.Stability {
		return false
	}
	if e.HasStable != o.HasStable || (e.HasStable && e.StableValue != o.StableValue) {
		return false
	}
	if (e.Violation == nil) != (o.Violation == nil) {
		return false
	}
	if e.Violation != nil && *e.Violation != *o.Violation {
		return false
	}
	if e.Up != o.Up || e.Down != o.Down || e.UpNoGroups != o.UpNoGroups || e.DownNoGroups != o.DownNoGroups {
		return false
	}
	if (e.Sat == nil) != (o.Sat == nil) {
		return false
	}
	if e.Sat != nil && *e.Sat != *o.Sat {
		return false
	}
	return true
}

func (e *Entry) clone() Entry {
	c := *e
	if e.Violation != nil {
		v := *e.Violation
		c.Violation = &v
	}
	if e.Sat != nil {
		s := *e.Sat
		c.Sat = &s
	}
	return c
}

// TotalEntry is the cached total resistance of a variable in one
// direction, with a witness naming the bound variable or or-group that
// supplied the maximum (absent when the variable's own resistance wins).
type TotalEntry struct {
	Direction          core.Direction
	Resistance         priority.Priority
	WitnessVariable    core.VariableID
	HasWitnessVariable bool
	WitnessGroup       core.GroupID
	HasWitnessGroup    bool
}

// TightEntry records that a satisfied or-group resists movement of a
// variable. Direction is the resisted movement direction. Satisfies says
// the variable itself satisfies the group; OnlySatisfier means it is the
// group's sole satisfier, in which case the group behaves like an ordinary
// tight constraint on it. Representative is a witness satisfier.
type TightEntry struct {
	Direction      core.Direction
	Satisfies      bool
	OnlySatisfier  bool
	Representative core.VariableID
}

// ViolatedEntry is the per-(variable, violated group) record. For a group
// member it carries the member's violation target and increase direction,
// and, when the member is bound in an exact equation, the free variables
// forced to co-move with it (keyed by the free variable's movement
// direction that increases the member's violation). For a free variable it
// counts how many reachable members have their violation increased or
// decreased by movement in each direction; a free member counts itself.
type ViolatedEntry struct {
	Priority priority.Priority

	HasTarget bool
	Target    float64
	Increase  core.Direction

	FreeVars map[core.VariableID]core.Direction

	IncUp, DecUp     int
	IncDown, DecDown int
}

func (ve *ViolatedEntry) inc(d core.Direction) int {
	if d == core.Up {
		return ve.IncUp
	}
	return ve.IncDown
}

func (ve *ViolatedEntry) dec(d core.Direction) int {
	if d == core.Up {
		return ve.DecUp
	}
	return ve.DecDown
}

func (ve *ViolatedEntry) addComovement(d core.Direction) {
	if d == core.Up {
		ve.IncUp++
		ve.DecDown++
	} else {
		ve.IncDown++
		ve.DecUp++
	}
}

func (ve *ViolatedEntry) dropComovement(d core.Direction) {
	if d == core.Up {
		ve.IncUp--
		ve.DecDown--
	} else {
		ve.IncDown--
		ve.DecUp--
	}
}

func (ve *ViolatedEntry) empty() bool {
	return !ve.HasTarget && len(ve.FreeVars) == 0 &&
		ve.IncUp == 0 && ve.DecUp == 0 && ve.IncDown == 0 && ve.DecDown == 0
}
