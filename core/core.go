// Package core defines the identifier and direction types shared by the
// positioning solver packages.
package core

import "strconv"

// VariableID identifies a layout variable. IDs are allocated by the owning
// solver and are expected to be dense, so they can back bitset-based
// bookkeeping.
type VariableID uint32

// EquationID identifies an equation in the equation system.
type EquationID uint32

// GroupID identifies an or-group in the constraint store.
type GroupID uint32

// Term represents coeff * variable in a sparse equation.
type Term struct {
	Variable VariableID
	Coeff    float64
}

// Direction is a movement direction of a variable. Both is only meaningful
// where a single record covers both directions (e.g. tightness of a
// min == max constraint).
type Direction uint8

const (
	Down Direction = iota
	Up
	Both
)

// Resists returns true if a record tagged with direction d opposes
// movement in direction q. q must be Up or Down.
func (d Direction) Resists(q Direction) bool {
	return d == Both || d == q
}

// Opposite returns the reversed direction. Both is its own opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Down:
		return Up
	case Up:
		return Down
	default:
		return Both
	}
}

// Signed returns d if sign is positive, the opposite direction otherwise.
// It maps "variable a moves in direction d" to the co-movement direction of
// a variable linked to a with relative movement sign.
func (d Direction) Signed(sign float64) Direction {
	if sign < 0 {
		return d.Opposite()
	}
	return d
}

// Sign returns +1 for Up and -1 for Down.
func (d Direction) Sign() float64 {
	if d == Up {
		return 1
	}
	return -1
}

// Split returns the concrete directions covered by d.
func (d Direction) Split() []Direction {
	if d == Both {
		return []Direction{Down, Up}
	}
	return []Direction{d}
}

// Union combines two direction tags.
func Union(a, b Direction) Direction {
	if a == b {
		return a
	}
	return Both
}

func (d Direction) String() string {
	switch d {
	case Down:
		return "down"
	case Up:
		return "up"
	case Both:
		return "both"
	default:
		return "direction(" + strconv.Itoa(int(d)) + ")"
	}
}
