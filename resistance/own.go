package resistance

import (
	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/debug"
	"github.com/cdl-lang/posit/priority"
)

// candidate bound used while recomputing an entry
type cbound struct {
	value float64
	prio  priority.Priority
}

// CalcResistance recomputes the variable's entry from scratch at the given
// value and returns whether resistance or violation changed. A full
// recompute is O(1) collaborator queries, so it is preferred over
// incremental tracking of the underlying constraint structure.
//
// Violated constraints resist in the direction that increases the
// violation; non-violated constraints resist only when the value sits
// exactly on their boundary. Stability acts as a virtual min = max =
// stableValue constraint at the stability priority. Or-group
// contributions are folded on top: a tight group the variable is the only
// satisfier of counts like an ordinary tight constraint, shared satisfied
// groups feed the separate Sat value, and violated groups overlay the
// Up/Down values above the NoGroups pair.
func (e *Engine) CalcResistance(v core.VariableID, value float64) bool {
	next := e.calcEntry(v, value)
	ent, ok := e.entries[v]
	if !ok {
		ent = newEntry()
		e.entries[v] = ent
	}
	changed := !next.Equal(ent)
	if changed {
		e.changes.resistance.add(v)
		if !violationEqual(ent.Violation, next.Violation) {
			e.changes.violation.add(v)
		}
		if !satEqual(ent.Sat, next.Sat) {
			e.changes.sharedSat.add(v)
		}
		*ent = *next
		e.invalidateTotal(v)
		for f := range e.boundDeps[v] {
			e.invalidateTotal(f)
		}
	}
	return changed
}

// calcEntry computes a fresh entry from the collaborators without touching
// any engine table. The auditor relies on it being side-effect free.
func (e *Engine) calcEntry(v core.VariableID, value float64) *Entry {
	ent := newEntry()

	minV, minP, hasMin := e.store.GetMin(v)
	maxV, maxP, hasMax := e.store.GetMax(v)
	stabP := e.store.GetStability(v)
	stabV, hasStab := e.stable[v]

	ent.Min, ent.MinPriority, ent.HasMin = minV, minP, hasMin
	ent.Max, ent.MaxPriority, ent.HasMax = maxV, maxP, hasMax
	ent.Stability = stabP
	ent.StableValue, ent.HasStable = stabV, hasStab

	var lowers, uppers []cbound
	if hasMin {
		lowers = append(lowers, cbound{minV, minP})
	}
	if hasMax {
		uppers = append(uppers, cbound{maxV, maxP})
	}
	if hasStab && !stabP.IsNone() {
		lowers = append(lowers, cbound{stabV, stabP})
		uppers = append(uppers, cbound{stabV, stabP})
	}

	ent.Violation = governingViolation(value, lowers, uppers)

	// a bound resists the movement that violates it further, or that would
	// violate it when the value sits exactly on it
	upNo, downNo := priority.None, priority.None
	for _, b := range uppers {
		if value >= b.value {
			upNo = priority.Max(upNo, b.prio)
		}
	}
	for _, b := range lowers {
		if value <= b.value {
			downNo = priority.Max(downNo, b.prio)
		}
	}

	tightUp, tightDown, sat := e.foldTightOwn(v)
	upNo = priority.Max(upNo, tightUp)
	downNo = priority.Max(downNo, tightDown)

	up, down := upNo, downNo
	e.foldViolatedOwn(v, &up, &down)

	ent.UpNoGroups, ent.DownNoGroups = upNo, downNo
	ent.Up, ent.Down = up, down
	ent.Sat = sat
	return ent
}

// AddToResistance raises the variable's resistance in the given direction
// to candidate. Restricted incremental path: the caller must know the
// candidate is monotonically non-decreasing relative to the stored value.
func (e *Engine) AddToResistance(v core.VariableID, candidate priority.Priority, d core.Direction) bool {
	ent, ok := e.entries[v]
	if !ok {
		e.RefreshEntry(v)
		ent = e.entries[v]
	}
	changed := false
	for _, dd := range d.Split() {
		switch dd {
		case core.Up:
			if candidate > ent.Up {
				ent.Up = candidate
				changed = true
			}
		case core.Down:
			if candidate > ent.Down {
				ent.Down = candidate
				changed = true
			}
		}
	}
	if changed {
		e.changes.resistance.add(v)
		e.invalidateTotal(v)
		for f := range e.boundDeps[v] {
			e.invalidateTotal(f)
		}
	}
	return changed
}

// governingViolation picks the violation record from the candidate bounds:
// the highest-priority violated bound wins, nearest boundary on ties. The
// constraint store guarantees no variable is pushed in both directions at
// once.
func governingViolation(value float64, lowers, uppers []cbound) *Violation {
	var vio *Violation
	for _, b := range uppers {
		if value <= b.value {
			continue
		}
		if vio == nil || b.prio > vio.Priority || (b.prio == vio.Priority && b.value > vio.Target) {
			vio = &Violation{Kind: MaxViolation, Priority: b.prio, Target: b.value}
		}
	}
	var lvio *Violation
	for _, b := range lowers {
		if value >= b.value {
			continue
		}
		if lvio == nil || b.prio > lvio.Priority || (b.prio == lvio.Priority && b.value < lvio.Target) {
			lvio = &Violation{Kind: MinViolation, Priority: b.prio, Target: b.value}
		}
	}
	if vio != nil && lvio != nil {
		debug.Assert(false, "variable violates both a min and a max constraint")
		// inconsistent store: degrade by keeping the higher-priority side
		if lvio.Priority > vio.Priority {
			return lvio
		}
		return vio
	}
	if lvio != nil {
		return lvio
	}
	return vio
}

func (e *Engine) foldTightOwn(v core.VariableID) (up, down priority.Priority, sat *SatGroup) {
	up, down = priority.None, priority.None
	satUp, satDown := priority.None, priority.None
	for _, g := range sortedGroupKeys(e.tightByVar[v]) {
		te, ok := e.tight[g][v]
		if !ok || !te.Satisfies {
			continue
		}
		p := e.store.OrGroupPriority(g)
		for _, d := range te.Direction.Split() {
			if te.OnlySatisfier {
				if d == core.Up {
					up = priority.Max(up, p)
				} else {
					down = priority.Max(down, p)
				}
			} else {
				if d == core.Up {
					satUp = priority.Max(satUp, p)
				} else {
					satDown = priority.Max(satDown, p)
				}
			}
		}
	}
	if !satUp.IsNone() || !satDown.IsNone() {
		sat = &SatGroup{Up: satUp, Down: satDown}
	}
	return up, down, sat
}

// foldViolatedOwn overlays violated-group resistance onto up/down. A bound
// group member is resisted directly in its violation-increasing direction.
// A free variable is resisted only if its movement increases the violation
// of every reachable member (no decrease counts in that direction).
func (e *Engine) foldViolatedOwn(v core.VariableID, up, down *priority.Priority) {
	_, isBound := e.eqs.BoundEquation(v)
	for _, g := range sortedGroupKeys(e.violatedByVar[v]) {
		ve, ok := e.violated[g][v]
		if !ok {
			continue
		}
		if isBound && ve.HasTarget {
			if ve.Increase == core.Up {
				*up = priority.Max(*up, ve.Priority)
			} else {
				*down = priority.Max(*down, ve.Priority)
			}
		}
		if ve.IncUp > 0 && ve.DecUp == 0 {
			*up = priority.Max(*up, ve.Priority)
		}
		if ve.IncDown > 0 && ve.DecDown == 0 {
			*down = priority.Max(*down, ve.Priority)
		}
	}
}

func violationEqual(a, b *Violation) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func satEqual(a, b *SatGroup) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
