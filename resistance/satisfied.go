package resistance

import (
	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/groups"
)

// A satisfied or-group resists movement of a variable under one of three
// regimes:
//
//  1. the variable is the group's only satisfier: the group behaves like
//     an ordinary tight constraint and feeds own resistance;
//  2. the variable satisfies the group together with other satisfiers that
//     are all bound in exact equations: the group feeds the separate
//     shared satisfied resistance;
//  3. the variable does not belong to the group but every bound variable
//     co-moving with it belongs and is tight in a consistent direction:
//     the group feeds total resistance only.
//
// May-be-tight test: every satisfier must be in the equation system and
// tight in at least one direction, and at most one satisfier may not be a
// bound variable in an exact equation.

type tightCandidate struct {
	dirs [2]bool // indexed by core.Down, core.Up
}

func (c *tightCandidate) set(d core.Direction) {
	c.dirs[d] = true
}

func (c *tightCandidate) intersect(o tightCandidate) {
	c.dirs[core.Down] = c.dirs[core.Down] && o.dirs[core.Down]
	c.dirs[core.Up] = c.dirs[core.Up] && o.dirs[core.Up]
}

func (c *tightCandidate) direction() (core.Direction, bool) {
	switch {
	case c.dirs[core.Down] && c.dirs[core.Up]:
		return core.Both, true
	case c.dirs[core.Down]:
		return core.Down, true
	case c.dirs[core.Up]:
		return core.Up, true
	default:
		return 0, false
	}
}

// recomputeTightGroup rebuilds the tight rows of one satisfied or-group
// from scratch. It always clears the old rows first, so it doubles as the
// removal path when the group is no longer satisfied.
func (e *Engine) recomputeTightGroup(g core.GroupID) {
	e.clearTightGroup(g)
	if e.tracker.GroupStatus(g) != groups.Satisfied {
		return
	}
	sats := e.tracker.SatisfiedVariables(g)
	if len(sats) == 0 {
		return
	}

	type satInfo struct {
		v          core.VariableID
		tight      core.Direction
		eq         core.EquationID
		boundExact bool
	}
	infos := make([]satInfo, 0, len(sats))
	var nonBound []core.VariableID
	for _, s := range sats {
		if !e.eqs.HasVariable(s) {
			return
		}
		st, ok := e.tracker.MemberState(g, s)
		if !ok || !st.IsTight {
			// satisfied openly: any small move keeps the group satisfied
			return
		}
		info := satInfo{v: s, tight: st.Tight}
		if eq, ok := e.eqs.BoundEquation(s); ok && e.eqs.IsExact(eq) {
			info.eq = eq
			info.boundExact = true
		} else {
			nonBound = append(nonBound, s)
		}
		infos = append(infos, info)
	}
	if len(nonBound) > 1 {
		return
	}

	if len(infos) == 1 {
		s := infos[0]
		e.setTight(s.v, g, TightEntry{
			Direction:      s.tight,
			Satisfies:      true,
			OnlySatisfier:  true,
			Representative: s.v,
		})
		if s.boundExact {
			for f, cand := range e.equationCandidates(s.eq, s.v, s.tight) {
				if d, ok := cand.direction(); ok {
					e.setTight(f, g, TightEntry{
						Direction:      d,
						Satisfies:      false,
						Representative: s.v,
					})
				}
			}
		}
		return
	}

	// candidate free variables: intersection across every bound-in-exact
	// satisfier's equation of the free variables with a consistent
	// relative movement sign
	var candidates map[core.VariableID]*tightCandidate
	var rep core.VariableID
	first := true
	for _, s := range infos {
		if !s.boundExact {
			continue
		}
		if first {
			rep = s.v
		}
		cur := e.equationCandidates(s.eq, s.v, s.tight)
		if first {
			candidates = cur
			first = false
			continue
		}
		for f, cand := range candidates {
			o, ok := cur[f]
			if !ok {
				delete(candidates, f)
				continue
			}
			cand.intersect(*o)
			if _, ok := cand.direction(); !ok {
				delete(candidates, f)
			}
		}
	}

	if len(nonBound) == 1 {
		// only the non-bound satisfier itself can be resisted, and only if
		// its own movement both unsatisfies it and co-moves every bound
		// satisfier toward unsatisfaction
		s0 := nonBound[0]
		cand, ok := candidates[s0]
		if !ok {
			return
		}
		var s0Tight core.Direction
		for _, s := range infos {
			if s.v == s0 {
				s0Tight = s.tight
			}
		}
		restricted := tightCandidate{}
		for _, d := range s0Tight.Split() {
			if cand.dirs[d] {
				restricted.set(d)
			}
		}
		if d, ok := restricted.direction(); ok {
			e.setTight(s0, g, TightEntry{
				Direction:      d,
				Satisfies:      true,
				Representative: rep,
			})
		}
		return
	}

	// every satisfier bound in an exact equation: the satisfiers carry the
	// shared satisfied resistance, candidate free variables the total-only
	// contribution
	satisfierSet := make(map[core.VariableID]struct{}, len(infos))
	for _, s := range infos {
		satisfierSet[s.v] = struct{}{}
		e.setTight(s.v, g, TightEntry{
			Direction:      s.tight,
			Satisfies:      true,
			Representative: s.v,
		})
	}
	for f, cand := range candidates {
		if _, isSat := satisfierSet[f]; isSat {
			continue
		}
		if d, ok := cand.direction(); ok {
			e.setTight(f, g, TightEntry{
				Direction:      d,
				Satisfies:      false,
				Representative: rep,
			})
		}
	}
}

// equationCandidates maps each free variable of the satisfier's equation
// to the movement directions that push the bound satisfier toward
// unsatisfaction.
func (e *Engine) equationCandidates(eq core.EquationID, bound core.VariableID, tight core.Direction) map[core.VariableID]*tightCandidate {
	out := make(map[core.VariableID]*tightCandidate)
	for _, t := range e.eqs.Terms(eq) {
		if t.Variable == bound {
			continue
		}
		sign := e.eqs.MovementSign(eq, t.Variable)
		if sign == 0 {
			continue
		}
		cand := &tightCandidate{}
		for _, d := range tight.Split() {
			cand.set(d.Signed(sign))
		}
		out[t.Variable] = cand
	}
	return out
}

func (e *Engine) setTight(v core.VariableID, g core.GroupID, te TightEntry) {
	if e.tight[g] == nil {
		e.tight[g] = make(map[core.VariableID]TightEntry)
	}
	if old, ok := e.tight[g][v]; ok && old == te {
		return
	}
	e.tight[g][v] = te
	if e.tightByVar[v] == nil {
		e.tightByVar[v] = make(map[core.GroupID]struct{})
	}
	e.tightByVar[v][g] = struct{}{}
	e.noteTightChanged(v, g)
}

func (e *Engine) clearTight(v core.VariableID, g core.GroupID) {
	if _, ok := e.tight[g][v]; !ok {
		return
	}
	delete(e.tight[g], v)
	if len(e.tight[g]) == 0 {
		delete(e.tight, g)
	}
	delete(e.tightByVar[v], g)
	if len(e.tightByVar[v]) == 0 {
		delete(e.tightByVar, v)
	}
	e.noteTightChanged(v, g)
}

func (e *Engine) clearTightGroup(g core.GroupID) {
	for _, v := range sortedVarKeys(e.tight[g]) {
		e.clearTight(v, g)
	}
}

func (e *Engine) noteTightChanged(v core.VariableID, g core.GroupID) {
	e.changes.tightGroup.add(g)
	e.sched.enqueueOverlay(v)
	e.invalidateTotal(v)
	for f := range e.groupDeps[g] {
		e.invalidateTotal(f)
	}
}
