package resistance

import (
	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/groups"
)

// A violated or-group resists at its priority, in the violation-increasing
// direction, on each bound member directly. For a free variable co-moving
// with bound members through exact equations the contribution is tracked
// via per-(variable, group) movement counters: the group feeds own
// resistance only if movement increases the violation of every reachable
// member, otherwise total resistance only.

func (e *Engine) ensureViolated(v core.VariableID, g core.GroupID) *ViolatedEntry {
	if e.violated[g] == nil {
		e.violated[g] = make(map[core.VariableID]*ViolatedEntry)
	}
	ve, ok := e.violated[g][v]
	if !ok {
		ve = &ViolatedEntry{}
		e.violated[g][v] = ve
		if e.violatedByVar[v] == nil {
			e.violatedByVar[v] = make(map[core.GroupID]struct{})
		}
		e.violatedByVar[v][g] = struct{}{}
	}
	return ve
}

// rebuildViolatedGroup rebuilds the violated rows of one group from
// scratch. The old rows are always cleared first, so it doubles as the
// removal path when the group is no longer violated.
func (e *Engine) rebuildViolatedGroup(g core.GroupID) {
	e.clearViolatedGroup(g)
	if e.tracker.GroupStatus(g) != groups.Violated {
		return
	}
	prio := e.store.OrGroupPriority(g)
	for _, m := range e.tracker.GroupVariables(g) {
		st, ok := e.tracker.MemberState(g, m)
		if !ok || st.Satisfied {
			continue
		}
		ve := e.ensureViolated(m, g)
		ve.Priority = prio
		ve.HasTarget = true
		ve.Target = st.Target
		ve.Increase = st.Increase
		e.sched.enqueueOverlay(m)

		eq, isBound := e.eqs.BoundEquation(m)
		switch {
		case isBound && e.eqs.IsExact(eq):
			for _, t := range e.eqs.Terms(eq) {
				if t.Variable == m {
					continue
				}
				sign := e.eqs.MovementSign(eq, t.Variable)
				if sign == 0 {
					continue
				}
				// direction of the free variable that increases m's violation
				df := st.Increase.Signed(sign)
				if ve.FreeVars == nil {
					ve.FreeVars = make(map[core.VariableID]core.Direction)
				}
				ve.FreeVars[t.Variable] = df
				fe := e.ensureViolated(t.Variable, g)
				fe.Priority = prio
				fe.addComovement(df)
				e.sched.enqueueOverlay(t.Variable)
			}
		case !isBound && e.eqs.HasVariable(m):
			// free member: its own movement reaches itself
			ve.addComovement(st.Increase)
		}
	}
	for f := range e.groupDeps[g] {
		e.invalidateTotal(f)
	}
	for v := range e.violated[g] {
		e.invalidateTotal(v)
	}
}

func (e *Engine) clearViolatedGroup(g core.GroupID) {
	rows := e.violated[g]
	if len(rows) == 0 {
		return
	}
	for _, v := range sortedVarKeys(rows) {
		delete(e.violatedByVar[v], g)
		if len(e.violatedByVar[v]) == 0 {
			delete(e.violatedByVar, v)
		}
		e.sched.enqueueOverlay(v)
		e.invalidateTotal(v)
	}
	delete(e.violated, g)
	for f := range e.groupDeps[g] {
		e.invalidateTotal(f)
	}
}

// removeViolatedVariable detaches a removed variable from every violated
// table: its own rows, and the co-movement counters and free-variable
// lists of linked rows.
func (e *Engine) removeViolatedVariable(v core.VariableID) {
	for _, g := range sortedGroupKeys(e.violatedByVar[v]) {
		ve := e.violated[g][v]
		// undo the counters this row induced on co-moving free variables
		for f, df := range ve.FreeVars {
			fe, ok := e.violated[g][f]
			if !ok {
				continue
			}
			fe.dropComovement(df)
			if fe.empty() {
				delete(e.violated[g], f)
				delete(e.violatedByVar[f], g)
				if len(e.violatedByVar[f]) == 0 {
					delete(e.violatedByVar, f)
				}
			}
			e.sched.enqueueOverlay(f)
			e.invalidateTotal(f)
		}
		delete(e.violated[g], v)
		if len(e.violated[g]) == 0 {
			delete(e.violated, g)
		}
		// other members' FreeVars lists may still reference v
		for m, me := range e.violated[g] {
			if _, ok := me.FreeVars[v]; ok {
				delete(me.FreeVars, v)
				e.sched.enqueueOverlay(m)
			}
		}
		for f := range e.groupDeps[g] {
			e.invalidateTotal(f)
		}
	}
	delete(e.violatedByVar, v)
}

// ViolatedBoundResistsFree reports whether the violation of the bound
// variable genuinely resists movement of the free variable: the pair must
// co-move through an exact equation in a direction that increases the
// bound variable's or-group or direct violation. The consumer tag
// registers the caller (the optimization suspension ledger) so the
// linkage can be dropped wholesale when either variable is removed.
// Unknown variables yield false, never an error.
func (e *Engine) ViolatedBoundResistsFree(free, bound core.VariableID, tag string) bool {
	if free == bound {
		return false
	}
	resists := false
	for _, g := range sortedGroupKeys(e.violatedByVar[bound]) {
		ve, ok := e.violated[g][bound]
		if !ok || !ve.HasTarget {
			continue
		}
		if _, ok := ve.FreeVars[free]; ok {
			resists = true
			break
		}
	}
	if !resists {
		// direct (non-group) violation of the bound variable
		if ent, ok := e.entries[bound]; ok && ent.Violation != nil {
			if eq, isBound := e.eqs.BoundEquation(bound); isBound && e.eqs.IsExact(eq) && e.eqs.Coeff(eq, free) != 0 {
				resists = true
			}
		}
	}
	if resists {
		key := resistPair{free: free, bound: bound}
		if e.resistTags[key] == nil {
			e.resistTags[key] = make(map[string]struct{})
		}
		e.resistTags[key][tag] = struct{}{}
	}
	return resists
}
