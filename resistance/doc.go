// Package resistance computes and incrementally maintains the resistance
// of layout variables: the priority level opposing movement of a variable
// in a given direction.
//
// A variable's own resistance comes from its direct constraints and
// stability; or-groups (sets of alternative constraints sharing one
// priority) add resistance when they are tight or violated; the total
// resistance of a free variable additionally accounts for every bound
// variable forced to co-move with it through exactly satisfied equations.
//
// The engine is single-threaded and epoch-bounded: edits enqueue work on
// a scheduler, and Drain processes it in a fixed one-directional order to
// a fixpoint at the end of each cycle.
package resistance
