package resistance

import (
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/groups"
	"github.com/cdl-lang/posit/logger"
	"github.com/cdl-lang/posit/priority"
)

// EquationSystem is the read contract the engine requires from the
// elimination/solving engine.
type EquationSystem interface {
	HasVariable(core.VariableID) bool
	Value(core.VariableID) float64
	IsExact(core.EquationID) bool
	BoundVariable(core.EquationID) (core.VariableID, bool)
	BoundEquation(core.VariableID) (core.EquationID, bool)
	EquationsOf(core.VariableID) []core.EquationID
	Coeff(core.EquationID, core.VariableID) float64
	Terms(core.EquationID) []core.Term
	MovementSign(core.EquationID, core.VariableID) float64
}

// ConstraintStore is the read contract for per-variable constraint and
// or-group queries.
type ConstraintStore interface {
	GetMin(core.VariableID) (float64, priority.Priority, bool)
	GetMax(core.VariableID) (float64, priority.Priority, bool)
	GetStability(core.VariableID) priority.Priority
	VariableHasOrGroups(core.VariableID) bool
	VariableOrGroups(core.VariableID) []core.GroupID
	OrGroupPriority(core.GroupID) priority.Priority
}

// GroupTracker is the read contract for or-group satisfaction state. Its
// change list is drained (consumed and cleared) by the engine's scheduler,
// never mutated otherwise.
type GroupTracker interface {
	GroupStatus(core.GroupID) groups.Status
	IsSatisfiedOn(core.GroupID, core.VariableID) bool
	SatisfiedVariables(core.GroupID) []core.VariableID
	GroupVariables(core.GroupID) []core.VariableID
	MemberState(core.GroupID, core.VariableID) (groups.MemberState, bool)
	ConsumeChanges() []groups.Change
}

type resistPair struct {
	free, bound core.VariableID
}

// Engine computes, caches and incrementally maintains the resistance of
// every variable touched by the live equation set. It is single-threaded:
// exactly one mutator per cycle, and re-entrant calls during Drain are
// disallowed by contract.
type Engine struct {
	eqs     EquationSystem
	store   ConstraintStore
	tracker GroupTracker

	entries map[core.VariableID]*Entry
	stable  map[core.VariableID]float64

	totals    map[core.VariableID]*totalState
	boundDeps map[core.VariableID]map[core.VariableID]struct{}
	groupDeps map[core.GroupID]map[core.VariableID]struct{}

	tight      map[core.GroupID]map[core.VariableID]TightEntry
	tightByVar map[core.VariableID]map[core.GroupID]struct{}

	violated      map[core.GroupID]map[core.VariableID]*ViolatedEntry
	violatedByVar map[core.VariableID]map[core.GroupID]struct{}

	// suspension-ledger registrations, keyed by (free, bound) pair
	resistTags map[resistPair]map[string]struct{}

	sched   scheduler
	changes changeSets
	log     zerolog.Logger
}

// New creates an engine over the given collaborators.
func New(eqs EquationSystem, store ConstraintStore, tracker GroupTracker) *Engine {
	return &Engine{
		eqs:           eqs,
		store:         store,
		tracker:       tracker,
		entries:       make(map[core.VariableID]*Entry),
		stable:        make(map[core.VariableID]float64),
		totals:        make(map[core.VariableID]*totalState),
		boundDeps:     make(map[core.VariableID]map[core.VariableID]struct{}),
		groupDeps:     make(map[core.GroupID]map[core.VariableID]struct{}),
		tight:         make(map[core.GroupID]map[core.VariableID]TightEntry),
		tightByVar:    make(map[core.VariableID]map[core.GroupID]struct{}),
		violated:      make(map[core.GroupID]map[core.VariableID]*ViolatedEntry),
		violatedByVar: make(map[core.VariableID]map[core.GroupID]struct{}),
		resistTags:    make(map[resistPair]map[string]struct{}),
		sched:         newScheduler(),
		changes:       newChangeSets(),
		log:           logger.Logger().With().Str("component", "resistance").Logger(),
	}
}

// Entry returns the resistance entry of a variable, nil if none has been
// computed yet. The returned entry is owned by the engine.
func (e *Engine) Entry(v core.VariableID) *Entry {
	return e.entries[v]
}

// RefreshEntry recomputes the entry of a variable from its current value
// in the equation system.
func (e *Engine) RefreshEntry(v core.VariableID) {
	e.CalcResistance(v, e.eqs.Value(v))
}

// UpResistance returns the variable's resistance to moving up,
// priority.None if not yet computed.
func (e *Engine) UpResistance(v core.VariableID) priority.Priority {
	if ent, ok := e.entries[v]; ok {
		return ent.Up
	}
	return priority.None
}

// DownResistance returns the variable's resistance to moving down.
func (e *Engine) DownResistance(v core.VariableID) priority.Priority {
	if ent, ok := e.entries[v]; ok {
		return ent.Down
	}
	return priority.None
}

// Resistance returns the resistance in the given direction; Both yields
// the larger of the two.
func (e *Engine) Resistance(v core.VariableID, d core.Direction) priority.Priority {
	if ent, ok := e.entries[v]; ok {
		return ent.Resistance(d)
	}
	return priority.None
}

// MaxResistance returns the larger of the two directional resistances.
func (e *Engine) MaxResistance(v core.VariableID) priority.Priority {
	return e.Resistance(v, core.Both)
}

// MinResistance returns the smaller of the two directional resistances.
func (e *Engine) MinResistance(v core.VariableID) priority.Priority {
	if ent, ok := e.entries[v]; ok {
		return priority.Min(ent.Up, ent.Down)
	}
	return priority.None
}

// SatGroupResistance returns the shared satisfied-or-group resistance in
// the given direction.
func (e *Engine) SatGroupResistance(v core.VariableID, d core.Direction) priority.Priority {
	if ent, ok := e.entries[v]; ok {
		return ent.SatResistance(d)
	}
	return priority.None
}

// ResistanceWithSatGroups returns the resistance folded with the shared
// satisfied-group value.
func (e *Engine) ResistanceWithSatGroups(v core.VariableID, d core.Direction) priority.Priority {
	if ent, ok := e.entries[v]; ok {
		return priority.Max(ent.Resistance(d), ent.SatResistance(d))
	}
	return priority.None
}

// Violation returns the variable's current violation, nil if none.
func (e *Engine) Violation(v core.VariableID) *Violation {
	if ent, ok := e.entries[v]; ok {
		return ent.Violation
	}
	return nil
}

// TightEntryFor returns the tight row of a satisfied or-group on a
// variable, if the group currently resists its movement.
func (e *Engine) TightEntryFor(v core.VariableID, g core.GroupID) (TightEntry, bool) {
	te, ok := e.tight[g][v]
	return te, ok
}

// ViolatedEntryFor returns a copy of the violated-group row of a variable.
func (e *Engine) ViolatedEntryFor(v core.VariableID, g core.GroupID) (ViolatedEntry, bool) {
	ve, ok := e.violated[g][v]
	if !ok {
		return ViolatedEntry{}, false
	}
	cp := *ve
	if ve.FreeVars != nil {
		cp.FreeVars = make(map[core.VariableID]core.Direction, len(ve.FreeVars))
		for f, d := range ve.FreeVars {
			cp.FreeVars[f] = d
		}
	}
	return cp, true
}

// SetStableValue captures the variable's current value as its stable
// value. Resistance is recomputed at the next drain.
func (e *Engine) SetStableValue(v core.VariableID) {
	e.stable[v] = e.eqs.Value(v)
	e.sched.full.Set(uint(v))
}

// StableValue returns the captured stable value of a variable.
func (e *Engine) StableValue(v core.VariableID) (float64, bool) {
	x, ok := e.stable[v]
	return x, ok
}

// Remove deletes all bookkeeping for a variable that left the equation
// system: its entry, total-resistance record, tight and violated group
// rows, reverse-index references and suspension-ledger registrations.
func (e *Engine) Remove(v core.VariableID) {
	delete(e.entries, v)
	delete(e.stable, v)

	e.releaseTotal(v)
	// dependents whose cached total witnessed v
	for f := range e.boundDeps[v] {
		if ts, ok := e.totals[f]; ok {
			delete(ts.boundRefs, v)
		}
		e.invalidateTotal(f)
	}
	delete(e.boundDeps, v)

	for g := range e.tightByVar[v] {
		delete(e.tight[g], v)
		if len(e.tight[g]) == 0 {
			delete(e.tight, g)
		}
		e.sched.enqueueSatGroup(g)
	}
	delete(e.tightByVar, v)

	e.removeViolatedVariable(v)

	for pair := range e.resistTags {
		if pair.free == v || pair.bound == v {
			delete(e.resistTags, pair)
		}
	}

	e.sched.forget(v)
	// pending group transitions may still name v; the drain must not
	// recompute an entry for it
	e.sched.markRemoved(v)
	e.changes.forget(v)
}

func sortedGroupKeys[T any](m map[core.GroupID]T) []core.GroupID {
	ids := maps.Keys(m)
	slices.Sort(ids)
	return ids
}

func sortedVarKeys[T any](m map[core.VariableID]T) []core.VariableID {
	ids := maps.Keys(m)
	slices.Sort(ids)
	return ids
}
