// Package groups tracks the satisfaction state of or-groups: which
// variables currently satisfy or violate each group's alternative range,
// how tight each satisfier is, and a per-cycle change list consumed by the
// resistance engine's scheduler.
package groups

import (
	"sort"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/cstore"
	"github.com/cdl-lang/posit/priority"
)

// Status is the three-state machine of a group.
type Status uint8

const (
	Unconstrained Status = iota
	Satisfied
	Violated
)

func (s Status) String() string {
	switch s {
	case Unconstrained:
		return "unconstrained"
	case Satisfied:
		return "satisfied"
	case Violated:
		return "violated"
	default:
		return "status(?)"
	}
}

// MemberState is the per-(group, variable) satisfaction record.
type MemberState struct {
	Satisfied bool

	// valid when satisfied: movement in Tight unsatisfies the member.
	// IsTight is false when the value lies strictly inside the range.
	IsTight bool
	Tight   core.Direction

	// valid when violated: Target is the nearest satisfying bound and
	// movement in Increase grows the violation.
	Target   float64
	Increase core.Direction
}

// Change records one group's transition during a cycle.
type Change struct {
	Group        core.GroupID
	PrevStatus   Status
	PrevPriority priority.Priority
	// members whose state changed during the cycle
	Vars []core.VariableID
}

// ValueSource provides current solution values, normally the equation
// system.
type ValueSource interface {
	Value(core.VariableID) float64
}

// Tracker recomputes group satisfaction from the constraint store and
// current values. The owning solver calls Refresh* after edits; the engine
// only reads and drains the change list.
type Tracker struct {
	store  *cstore.Store
	values ValueSource

	status  map[core.GroupID]Status
	members map[core.GroupID]map[core.VariableID]MemberState
	prios   map[core.GroupID]priority.Priority

	changes map[core.GroupID]*Change
}

func NewTracker(store *cstore.Store, values ValueSource) *Tracker {
	return &Tracker{
		store:   store,
		values:  values,
		status:  make(map[core.GroupID]Status),
		members: make(map[core.GroupID]map[core.VariableID]MemberState),
		prios:   make(map[core.GroupID]priority.Priority),
		changes: make(map[core.GroupID]*Change),
	}
}

func memberState(r cstore.Range, x float64) MemberState {
	if r.Contains(x) {
		st := MemberState{Satisfied: true}
		tightDown := r.HasMin && x == r.Min
		tightUp := r.HasMax && x == r.Max
		switch {
		case tightDown && tightUp:
			st.IsTight, st.Tight = true, core.Both
		case tightDown:
			st.IsTight, st.Tight = true, core.Down
		case tightUp:
			st.IsTight, st.Tight = true, core.Up
		}
		return st
	}
	if r.HasMin && x < r.Min {
		return MemberState{Target: r.Min, Increase: core.Down}
	}
	return MemberState{Target: r.Max, Increase: core.Up}
}

// Refresh recomputes one group's status and member states, recording a
// change entry when anything differs from the last refresh.
func (t *Tracker) Refresh(g core.GroupID) {
	vars := t.store.GroupMembers(g)
	prevStatus := t.status[g]
	prevMembers := t.members[g]

	var status Status
	next := make(map[core.VariableID]MemberState, len(vars))
	if len(vars) == 0 {
		status = Unconstrained
	} else {
		status = Violated
		for _, v := range vars {
			r, ok := t.store.MemberRange(g, v)
			if !ok {
				continue
			}
			st := memberState(r, t.values.Value(v))
			next[v] = st
			if st.Satisfied {
				status = Satisfied
			}
		}
	}

	var changed []core.VariableID
	for v, st := range next {
		if prev, ok := prevMembers[v]; !ok || prev != st {
			changed = append(changed, v)
		}
	}
	for v := range prevMembers {
		if _, ok := next[v]; !ok {
			changed = append(changed, v)
		}
	}

	curPrio := t.store.OrGroupPriority(g)
	prevPrio, seen := t.prios[g]

	if status == Unconstrained && len(next) == 0 {
		delete(t.status, g)
		delete(t.members, g)
		delete(t.prios, g)
		if !seen {
			return
		}
	} else {
		t.status[g] = status
		t.members[g] = next
		t.prios[g] = curPrio
	}

	if status == prevStatus && len(changed) == 0 && seen && prevPrio == curPrio {
		return
	}
	if !seen {
		prevPrio = priority.None
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	if c, ok := t.changes[g]; ok {
		// fold into the pending change, keeping the oldest previous state
		c.Vars = mergeVars(c.Vars, changed)
		return
	}
	t.changes[g] = &Change{
		Group:        g,
		PrevStatus:   prevStatus,
		PrevPriority: prevPrio,
		Vars:         changed,
	}
}

// RefreshVariable refreshes every group the variable belongs to.
func (t *Tracker) RefreshVariable(v core.VariableID) {
	for _, g := range t.store.VariableOrGroups(v) {
		t.Refresh(g)
	}
}

// GroupStatus returns the last computed status of a group.
func (t *Tracker) GroupStatus(g core.GroupID) Status {
	return t.status[g]
}

// IsSatisfiedOn reports whether the variable currently satisfies the
// group's alternative.
func (t *Tracker) IsSatisfiedOn(g core.GroupID, v core.VariableID) bool {
	st, ok := t.members[g][v]
	return ok && st.Satisfied
}

// SatisfiedVariables returns the satisfiers of a group, ascending.
func (t *Tracker) SatisfiedVariables(g core.GroupID) []core.VariableID {
	var vars []core.VariableID
	for v, st := range t.members[g] {
		if st.Satisfied {
			vars = append(vars, v)
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	return vars
}

// GroupVariables returns all tracked members of a group, ascending.
func (t *Tracker) GroupVariables(g core.GroupID) []core.VariableID {
	vars := make([]core.VariableID, 0, len(t.members[g]))
	for v := range t.members[g] {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	return vars
}

// MemberState returns the per-variable record of a group member.
func (t *Tracker) MemberState(g core.GroupID, v core.VariableID) (MemberState, bool) {
	st, ok := t.members[g][v]
	return st, ok
}

// ConsumeChanges returns the per-cycle change list sorted by group and
// clears it. A second call within the same cycle returns nil.
func (t *Tracker) ConsumeChanges() []Change {
	if len(t.changes) == 0 {
		return nil
	}
	out := make([]Change, 0, len(t.changes))
	for _, c := range t.changes {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	t.changes = make(map[core.GroupID]*Change)
	return out
}

func mergeVars(a, b []core.VariableID) []core.VariableID {
	seen := make(map[core.VariableID]struct{}, len(a)+len(b))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		seen[v] = struct{}{}
	}
	out := make([]core.VariableID, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
