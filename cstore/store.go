// Package cstore implements the constraint store consulted by the
// resistance engine: aggregated per-variable min/max bounds with
// priorities, stability priorities, and the or-group registry (alternative
// range constraints sharing one priority).
package cstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/priority"
)

var ErrUnknownGroup = errors.New("cstore: unknown or-group")

type bound struct {
	value float64
	prio  priority.Priority
}

// Range is one or-group member: the interval a variable must lie in for
// this alternative to be satisfied. HasMin/HasMax distinguish half-open
// alternatives.
type Range struct {
	Min, Max       float64
	HasMin, HasMax bool
}

// Contains reports whether x satisfies the range.
func (r Range) Contains(x float64) bool {
	if r.HasMin && x < r.Min {
		return false
	}
	if r.HasMax && x > r.Max {
		return false
	}
	return true
}

type group struct {
	prio    priority.Priority
	members map[core.VariableID]Range
}

// Store holds the standing constraints. The owning solver mutates it; the
// engine and group tracker only read.
type Store struct {
	mins      map[core.VariableID]bound
	maxs      map[core.VariableID]bound
	stability map[core.VariableID]priority.Priority

	groups     map[core.GroupID]*group
	byVariable map[core.VariableID]map[core.GroupID]struct{}

	nextGroup core.GroupID
}

func New() *Store {
	return &Store{
		mins:       make(map[core.VariableID]bound),
		maxs:       make(map[core.VariableID]bound),
		stability:  make(map[core.VariableID]priority.Priority),
		groups:     make(map[core.GroupID]*group),
		byVariable: make(map[core.VariableID]map[core.GroupID]struct{}),
	}
}

// SetMin installs the aggregated min constraint of a variable. The store
// keeps one effective bound per side; the caller resolves overlapping
// constraints before installing.
func (s *Store) SetMin(v core.VariableID, value float64, p priority.Priority) {
	s.mins[v] = bound{value: value, prio: p}
}

func (s *Store) ClearMin(v core.VariableID) { delete(s.mins, v) }

// SetMax installs the aggregated max constraint of a variable.
func (s *Store) SetMax(v core.VariableID, value float64, p priority.Priority) {
	s.maxs[v] = bound{value: value, prio: p}
}

func (s *Store) ClearMax(v core.VariableID) { delete(s.maxs, v) }

// SetStability installs the stability priority of a variable. The stable
// value itself is owned by the resistance engine.
func (s *Store) SetStability(v core.VariableID, p priority.Priority) {
	s.stability[v] = p
}

func (s *Store) ClearStability(v core.VariableID) { delete(s.stability, v) }

// GetMin returns the effective min bound and its priority.
func (s *Store) GetMin(v core.VariableID) (float64, priority.Priority, bool) {
	b, ok := s.mins[v]
	if !ok {
		return 0, priority.None, false
	}
	return b.value, b.prio, true
}

// GetMax returns the effective max bound and its priority.
func (s *Store) GetMax(v core.VariableID) (float64, priority.Priority, bool) {
	b, ok := s.maxs[v]
	if !ok {
		return 0, priority.None, false
	}
	return b.value, b.prio, true
}

// GetStability returns the stability priority, priority.None if the
// variable has no stability constraint.
func (s *Store) GetStability(v core.VariableID) priority.Priority {
	p, ok := s.stability[v]
	if !ok {
		return priority.None
	}
	return p
}

// NewOrGroup registers an or-group at the given priority.
func (s *Store) NewOrGroup(p priority.Priority) core.GroupID {
	id := s.nextGroup
	s.nextGroup++
	s.groups[id] = &group{prio: p, members: make(map[core.VariableID]Range)}
	return id
}

// SetOrGroupPriority changes a group's priority.
func (s *Store) SetOrGroupPriority(g core.GroupID, p priority.Priority) error {
	grp, ok := s.groups[g]
	if !ok {
		return ErrUnknownGroup
	}
	grp.prio = p
	return nil
}

// AddMember adds an alternative range on a variable to a group. A variable
// carries at most one alternative per group.
func (s *Store) AddMember(g core.GroupID, v core.VariableID, r Range) error {
	grp, ok := s.groups[g]
	if !ok {
		return ErrUnknownGroup
	}
	if !r.HasMin && !r.HasMax {
		return fmt.Errorf("cstore: unbounded member range on variable %d", v)
	}
	grp.members[v] = r
	if s.byVariable[v] == nil {
		s.byVariable[v] = make(map[core.GroupID]struct{})
	}
	s.byVariable[v][g] = struct{}{}
	return nil
}

// RemoveMember removes a variable's alternative from a group.
func (s *Store) RemoveMember(g core.GroupID, v core.VariableID) {
	grp, ok := s.groups[g]
	if !ok {
		return
	}
	delete(grp.members, v)
	delete(s.byVariable[v], g)
	if len(s.byVariable[v]) == 0 {
		delete(s.byVariable, v)
	}
}

// RemoveOrGroup deletes a group and all its memberships.
func (s *Store) RemoveOrGroup(g core.GroupID) {
	grp, ok := s.groups[g]
	if !ok {
		return
	}
	for v := range grp.members {
		delete(s.byVariable[v], g)
		if len(s.byVariable[v]) == 0 {
			delete(s.byVariable, v)
		}
	}
	delete(s.groups, g)
}

// RemoveVariable drops every constraint and group membership of a
// variable.
func (s *Store) RemoveVariable(v core.VariableID) {
	delete(s.mins, v)
	delete(s.maxs, v)
	delete(s.stability, v)
	for g := range s.byVariable[v] {
		delete(s.groups[g].members, v)
	}
	delete(s.byVariable, v)
}

// VariableHasOrGroups reports whether the variable belongs to any group.
func (s *Store) VariableHasOrGroups(v core.VariableID) bool {
	return len(s.byVariable[v]) > 0
}

// VariableOrGroups returns the groups a variable belongs to, ascending.
func (s *Store) VariableOrGroups(v core.VariableID) []core.GroupID {
	m := s.byVariable[v]
	if len(m) == 0 {
		return nil
	}
	ids := make([]core.GroupID, 0, len(m))
	for g := range m {
		ids = append(ids, g)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OrGroupPriority returns a group's priority, priority.None if unknown.
func (s *Store) OrGroupPriority(g core.GroupID) priority.Priority {
	grp, ok := s.groups[g]
	if !ok {
		return priority.None
	}
	return grp.prio
}

// GroupMembers returns the member variables of a group, ascending.
func (s *Store) GroupMembers(g core.GroupID) []core.VariableID {
	grp, ok := s.groups[g]
	if !ok {
		return nil
	}
	vars := make([]core.VariableID, 0, len(grp.members))
	for v := range grp.members {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	return vars
}

// MemberRange returns the alternative range of a variable in a group.
func (s *Store) MemberRange(g core.GroupID, v core.VariableID) (Range, bool) {
	grp, ok := s.groups[g]
	if !ok {
		return Range{}, false
	}
	r, ok := grp.members[v]
	return r, ok
}
