// Package eqsystem implements the live sparse equation system the
// resistance engine reads: per-equation sparse coefficient vectors, one
// bound (basic) variable per equation, current solution values, and a set
// of equations that currently carry a solving error ("non-exact").
//
// Tableau invariant: a variable bound in an equation appears in no other
// equation. Co-movement through exact equations is therefore single-hop,
// which the resistance propagator relies on.
package eqsystem

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/cdl-lang/posit/core"
)

var (
	ErrUnknownEquation = errors.New("eqsystem: unknown equation")
	ErrEmptyEquation   = errors.New("eqsystem: equation has no terms")
)

type equation struct {
	coeffs   map[core.VariableID]float64
	bound    core.VariableID
	hasBound bool
}

// System owns the sparse equation tables. It is mutated only by the owning
// solver; the resistance engine accesses it through read queries.
type System struct {
	equations  map[core.EquationID]*equation
	byVariable map[core.VariableID]map[core.EquationID]struct{}
	boundIn    map[core.VariableID]core.EquationID
	values     map[core.VariableID]float64

	// indexed by EquationID; a set bit means the equation has a non-zero
	// solving error
	nonExact *bitset.BitSet

	nextEquation core.EquationID
}

func New() *System {
	return &System{
		equations:  make(map[core.EquationID]*equation),
		byVariable: make(map[core.VariableID]map[core.EquationID]struct{}),
		boundIn:    make(map[core.VariableID]core.EquationID),
		values:     make(map[core.VariableID]float64),
		nonExact:   bitset.New(64),
	}
}

// AddEquation registers a new equation from its sparse terms. Zero
// coefficients are rejected. The equation starts non-exact and unbound.
func (s *System) AddEquation(terms []core.Term) (core.EquationID, error) {
	if len(terms) == 0 {
		return 0, ErrEmptyEquation
	}
	eq := &equation{coeffs: make(map[core.VariableID]float64, len(terms))}
	for _, t := range terms {
		if t.Coeff == 0 {
			return 0, fmt.Errorf("eqsystem: zero coefficient for variable %d", t.Variable)
		}
		if _, ok := eq.coeffs[t.Variable]; ok {
			return 0, fmt.Errorf("eqsystem: duplicate variable %d", t.Variable)
		}
		eq.coeffs[t.Variable] = t.Coeff
	}
	id := s.nextEquation
	s.nextEquation++
	s.equations[id] = eq
	for v := range eq.coeffs {
		if s.byVariable[v] == nil {
			s.byVariable[v] = make(map[core.EquationID]struct{})
		}
		s.byVariable[v][id] = struct{}{}
	}
	s.nonExact.Set(uint(id))
	return id, nil
}

// RemoveEquation deletes an equation and its variable links. Variables that
// no longer appear in any equation leave the system.
func (s *System) RemoveEquation(id core.EquationID) error {
	eq, ok := s.equations[id]
	if !ok {
		return ErrUnknownEquation
	}
	for v := range eq.coeffs {
		delete(s.byVariable[v], id)
		if len(s.byVariable[v]) == 0 {
			delete(s.byVariable, v)
		}
	}
	if eq.hasBound {
		delete(s.boundIn, eq.bound)
	}
	delete(s.equations, id)
	s.nonExact.Clear(uint(id))
	return nil
}

// SetBound assigns the bound (basic) variable of an equation. The variable
// must appear in the equation and, per the tableau invariant, in no other
// equation.
func (s *System) SetBound(id core.EquationID, v core.VariableID) error {
	eq, ok := s.equations[id]
	if !ok {
		return ErrUnknownEquation
	}
	if _, ok := eq.coeffs[v]; !ok {
		return fmt.Errorf("eqsystem: variable %d not in equation %d", v, id)
	}
	if len(s.byVariable[v]) > 1 {
		return fmt.Errorf("eqsystem: variable %d appears in %d equations, cannot be bound", v, len(s.byVariable[v]))
	}
	if prev, ok := s.boundIn[v]; ok && prev != id {
		return fmt.Errorf("eqsystem: variable %d already bound in equation %d", v, prev)
	}
	if eq.hasBound && eq.bound != v {
		delete(s.boundIn, eq.bound)
	}
	eq.bound = v
	eq.hasBound = true
	s.boundIn[v] = id
	return nil
}

// ClearBound removes the bound-variable assignment of an equation.
func (s *System) ClearBound(id core.EquationID) {
	eq, ok := s.equations[id]
	if !ok || !eq.hasBound {
		return
	}
	delete(s.boundIn, eq.bound)
	eq.hasBound = false
}

// SetValue records the current solution value of a variable.
func (s *System) SetValue(v core.VariableID, x float64) {
	s.values[v] = x
}

// SetExact marks an equation as exactly satisfied (zero solving error) or
// not.
func (s *System) SetExact(id core.EquationID, exact bool) {
	if _, ok := s.equations[id]; !ok {
		return
	}
	if exact {
		s.nonExact.Clear(uint(id))
	} else {
		s.nonExact.Set(uint(id))
	}
}

// HasVariable reports whether the variable appears in at least one
// equation.
func (s *System) HasVariable(v core.VariableID) bool {
	return len(s.byVariable[v]) > 0
}

// Value returns the current solution value of a variable (0 if never set).
func (s *System) Value(v core.VariableID) float64 {
	return s.values[v]
}

// IsExact reports whether the equation currently has zero solving error.
func (s *System) IsExact(id core.EquationID) bool {
	if _, ok := s.equations[id]; !ok {
		return false
	}
	return !s.nonExact.Test(uint(id))
}

// BoundVariable returns the bound variable of an equation.
func (s *System) BoundVariable(id core.EquationID) (core.VariableID, bool) {
	eq, ok := s.equations[id]
	if !ok || !eq.hasBound {
		return 0, false
	}
	return eq.bound, true
}

// BoundEquation returns the equation a variable is bound in, if any.
func (s *System) BoundEquation(v core.VariableID) (core.EquationID, bool) {
	id, ok := s.boundIn[v]
	return id, ok
}

// EquationsOf returns the equations a variable appears in, in ascending
// order.
func (s *System) EquationsOf(v core.VariableID) []core.EquationID {
	m := s.byVariable[v]
	if len(m) == 0 {
		return nil
	}
	ids := make([]core.EquationID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Coeff returns the coefficient of a variable in an equation, 0 if absent.
func (s *System) Coeff(id core.EquationID, v core.VariableID) float64 {
	eq, ok := s.equations[id]
	if !ok {
		return 0
	}
	return eq.coeffs[v]
}

// Terms returns the sparse terms of an equation, sorted by variable id.
func (s *System) Terms(id core.EquationID) []core.Term {
	eq, ok := s.equations[id]
	if !ok {
		return nil
	}
	terms := make([]core.Term, 0, len(eq.coeffs))
	for v, c := range eq.coeffs {
		terms = append(terms, core.Term{Variable: v, Coeff: c})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Variable < terms[j].Variable })
	return terms
}

// MovementSign returns the relative movement sign of the bound variable of
// an exact equation when the given free variable moves up: +1 if it moves
// up with it, -1 if it moves down. Returns 0 when the pair is not linked
// through the equation.
func (s *System) MovementSign(id core.EquationID, free core.VariableID) float64 {
	eq, ok := s.equations[id]
	if !ok || !eq.hasBound {
		return 0
	}
	cf := eq.coeffs[free]
	cb := eq.coeffs[eq.bound]
	if cf == 0 || cb == 0 || free == eq.bound {
		return 0
	}
	// sum(c_i * x_i) = const: moving free by d moves bound by -cf/cb*d
	if (cf > 0) == (cb > 0) {
		return -1
	}
	return 1
}

// NonExactEquations returns the equations that currently carry a solving
// error, in ascending order.
func (s *System) NonExactEquations() []core.EquationID {
	var ids []core.EquationID
	for i, ok := s.nonExact.NextSet(0); ok; i, ok = s.nonExact.NextSet(i + 1) {
		if _, exists := s.equations[core.EquationID(i)]; exists {
			ids = append(ids, core.EquationID(i))
		}
	}
	return ids
}
