// Package posit implements the resistance/priority conflict-resolution
// engine of an incremental linear-constraint positioning solver.
//
// Given a live sparse system of linear equations over layout variables, a
// higher-level optimizer repeatedly wants to relax the variable offering
// the least opposition ("resistance") to reducing a constraint violation,
// with ties broken by a strict priority order. The resistance package
// computes, caches and incrementally maintains that resistance; eqsystem,
// cstore and groups provide the collaborating equation system, constraint
// store and or-group tracker.
package posit

import (
	"github.com/blang/semver/v4"
)

var Version = semver.MustParse("0.1.0")
