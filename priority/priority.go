// Package priority defines the totally ordered scalar used to rank
// constraints, violations and or-groups. Higher values dominate; the None
// sentinel (negative infinity) marks "no priority" and loses every
// comparison. NaN is excluded by contract.
package priority

import (
	"math"
	"strconv"
)

// Priority ranks constraints, violations and groups. Conflict resolution
// always favors the higher value.
type Priority float64

// None is the "no priority" sentinel. It compares below every level.
var None = Priority(math.Inf(-1))

// Level wraps a finite value as a Priority.
func Level(v float64) Priority {
	return Priority(v)
}

// IsNone returns true if p is the absence sentinel.
func (p Priority) IsNone() bool {
	return math.IsInf(float64(p), -1)
}

// Max returns the larger of p and q.
func Max(p, q Priority) Priority {
	if p >= q {
		return p
	}
	return q
}

// Min returns the smaller of p and q.
func Min(p, q Priority) Priority {
	if p <= q {
		return p
	}
	return q
}

func (p Priority) String() string {
	if p.IsNone() {
		return "none"
	}
	return strconv.FormatFloat(float64(p), 'g', -1, 64)
}
