package resistance

import (
	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/priority"
)

// totalState is the per-variable total-resistance record: the cached
// directional entries plus the reverse-index registrations they hold, so
// releasing the variable can unhook exactly what it registered.
type totalState struct {
	entries   map[core.Direction]TotalEntry
	boundRefs map[core.VariableID]struct{}
	groupRefs map[core.GroupID]struct{}
	dirty     bool
}

// TotalResistance returns the total resistance of the variable in the
// given direction: the maximum resistance among itself and every bound
// variable forced to co-move with it through exact equations, plus
// or-group contributions, with a witness naming the source of the
// maximum. The value is computed lazily on first request and cached;
// requesting it registers the variable until released. d must be Up or
// Down.
func (e *Engine) TotalResistance(v core.VariableID, d core.Direction) TotalEntry {
	if d == core.Both {
		// caller-contract violation on a hot path: not applicable
		return TotalEntry{Direction: d, Resistance: priority.None}
	}
	ts, ok := e.totals[v]
	if !ok {
		ts = &totalState{
			entries:   make(map[core.Direction]TotalEntry),
			boundRefs: make(map[core.VariableID]struct{}),
			groupRefs: make(map[core.GroupID]struct{}),
		}
		e.totals[v] = ts
	}
	if ts.dirty {
		e.recomputeTotal(v)
	}
	if te, ok := ts.entries[d]; ok {
		return te
	}
	te := e.computeTotal(v, d, ts)
	ts.entries[d] = te
	return te
}

// ReleaseTotalResistance drops the total-resistance record of a variable
// no longer required by any consumer, removing all its reverse-index
// bookkeeping.
func (e *Engine) ReleaseTotalResistance(v core.VariableID) {
	e.releaseTotal(v)
}

// RetainTotalResistance releases every registered total-resistance
// variable not present in keep.
func (e *Engine) RetainTotalResistance(keep map[core.VariableID]struct{}) {
	for _, v := range sortedVarKeys(e.totals) {
		if _, ok := keep[v]; !ok {
			e.releaseTotal(v)
		}
	}
}

// TotalResistanceVariables returns the variables currently registered for
// total resistance, ascending.
func (e *Engine) TotalResistanceVariables() []core.VariableID {
	return sortedVarKeys(e.totals)
}

func (e *Engine) releaseTotal(v core.VariableID) {
	ts, ok := e.totals[v]
	if !ok {
		return
	}
	for b := range ts.boundRefs {
		delete(e.boundDeps[b], v)
		if len(e.boundDeps[b]) == 0 {
			delete(e.boundDeps, b)
		}
	}
	for g := range ts.groupRefs {
		delete(e.groupDeps[g], v)
		if len(e.groupDeps[g]) == 0 {
			delete(e.groupDeps, g)
		}
	}
	delete(e.totals, v)
}

// invalidateTotal marks a registered variable's cached total entries
// stale. They are refreshed on the next read or at end-of-cycle drain.
func (e *Engine) invalidateTotal(v core.VariableID) {
	ts, ok := e.totals[v]
	if !ok {
		return
	}
	ts.dirty = true
	e.sched.totalDirty.Set(uint(v))
}

// recomputeTotal refreshes the cached directions of a registered variable
// and records a change when any entry moved.
func (e *Engine) recomputeTotal(v core.VariableID) {
	ts, ok := e.totals[v]
	if !ok {
		return
	}
	ts.dirty = false
	// drop old registrations; computeTotal re-registers what it reads
	for b := range ts.boundRefs {
		delete(e.boundDeps[b], v)
		if len(e.boundDeps[b]) == 0 {
			delete(e.boundDeps, b)
		}
	}
	for g := range ts.groupRefs {
		delete(e.groupDeps[g], v)
		if len(e.groupDeps[g]) == 0 {
			delete(e.groupDeps, g)
		}
	}
	ts.boundRefs = make(map[core.VariableID]struct{})
	ts.groupRefs = make(map[core.GroupID]struct{})
	for d, old := range ts.entries {
		te := e.computeTotal(v, d, ts)
		ts.entries[d] = te
		if te != old {
			e.changes.totalResistance.add(v)
		}
	}
}

// computeTotal walks the variable's exact equations and folds bound
// co-mover resistance and or-group contributions, keeping the maximum and
// its witness. For a bound variable the total equals its own resistance.
func (e *Engine) computeTotal(v core.VariableID, d core.Direction, ts *totalState) TotalEntry {
	ent, ok := e.entries[v]
	if !ok {
		e.RefreshEntry(v)
		ent = e.entries[v]
	}
	te := TotalEntry{Direction: d, Resistance: ent.Resistance(d)}

	if _, isBound := e.eqs.BoundEquation(v); isBound {
		return te
	}

	for _, eq := range e.eqs.EquationsOf(v) {
		if !e.eqs.IsExact(eq) {
			continue
		}
		b, ok := e.eqs.BoundVariable(eq)
		if !ok || b == v {
			continue
		}
		sign := e.eqs.MovementSign(eq, v)
		if sign == 0 {
			continue
		}
		bent, ok := e.entries[b]
		if !ok {
			e.RefreshEntry(b)
			bent = e.entries[b]
		}
		db := d.Signed(sign)
		if r := bent.NoGroupResistance(db); r > te.Resistance {
			te.Resistance = r
			te.WitnessVariable, te.HasWitnessVariable = b, true
			te.WitnessGroup, te.HasWitnessGroup = 0, false
		}
		ts.boundRefs[b] = struct{}{}
		if e.boundDeps[b] == nil {
			e.boundDeps[b] = make(map[core.VariableID]struct{})
		}
		e.boundDeps[b][v] = struct{}{}
	}

	// satisfied groups that resist v only through co-movement
	for _, g := range sortedGroupKeys(e.tightByVar[v]) {
		tight, ok := e.tight[g][v]
		if !ok || tight.Satisfies || !tight.Direction.Resists(d) {
			continue
		}
		if p := e.store.OrGroupPriority(g); p > te.Resistance {
			te.Resistance = p
			te.WitnessGroup, te.HasWitnessGroup = g, true
			te.WitnessVariable, te.HasWitnessVariable = 0, false
		}
		ts.groupRefs[g] = struct{}{}
		if e.groupDeps[g] == nil {
			e.groupDeps[g] = make(map[core.VariableID]struct{})
		}
		e.groupDeps[g][v] = struct{}{}
	}

	// violated groups whose contribution is total-only (some reachable
	// member's violation would decrease)
	for _, g := range sortedGroupKeys(e.violatedByVar[v]) {
		ve, ok := e.violated[g][v]
		if !ok || ve.inc(d) == 0 || ve.dec(d) == 0 {
			continue
		}
		if ve.Priority > te.Resistance {
			te.Resistance = ve.Priority
			te.WitnessGroup, te.HasWitnessGroup = g, true
			te.WitnessVariable, te.HasWitnessVariable = 0, false
		}
		ts.groupRefs[g] = struct{}{}
		if e.groupDeps[g] == nil {
			e.groupDeps[g] = make(map[core.VariableID]struct{})
		}
		e.groupDeps[g][v] = struct{}{}
	}

	return te
}
