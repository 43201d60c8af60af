package resistance

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/groups"
)

// scheduler batches invalidations so repeated edits within one cycle cause
// at most one recomputation pass per affected variable or group. The drain
// order is fixed and one-directional: or-group status transitions, then
// or-group-induced resistance deltas, then full own-resistance
// recomputation, then total-resistance recomputation. Each stage may only
// enqueue work for a later stage, so a single pass reaches the fixpoint.
type scheduler struct {
	// per-group recompute queues; rebuilds are always whole-group, since
	// the clear-first rebuild doubles as the removal path
	satGroups      map[core.GroupID]struct{}
	violatedGroups map[core.GroupID]struct{}

	// per-variable queues, indexed by VariableID
	overlay    *bitset.BitSet // or-group overlay refresh only
	full       *bitset.BitSet // full own-resistance recompute
	totalDirty *bitset.BitSet

	// variables removed this cycle; pending group transitions may still
	// name them, and a recompute would resurrect their entries
	removed *bitset.BitSet
}

func newScheduler() scheduler {
	return scheduler{
		satGroups:      make(map[core.GroupID]struct{}),
		violatedGroups: make(map[core.GroupID]struct{}),
		overlay:        bitset.New(64),
		full:           bitset.New(64),
		totalDirty:     bitset.New(64),
		removed:        bitset.New(64),
	}
}

func (s *scheduler) enqueueSatGroup(g core.GroupID) {
	s.satGroups[g] = struct{}{}
}

func (s *scheduler) enqueueViolatedGroup(g core.GroupID) {
	s.violatedGroups[g] = struct{}{}
}

func (s *scheduler) enqueueOverlay(v core.VariableID) {
	s.overlay.Set(uint(v))
}

func (s *scheduler) enqueueFull(v core.VariableID) {
	s.full.Set(uint(v))
}

func (s *scheduler) forget(v core.VariableID) {
	s.overlay.Clear(uint(v))
	s.full.Clear(uint(v))
	s.totalDirty.Clear(uint(v))
}

func (s *scheduler) markRemoved(v core.VariableID) {
	s.removed.Set(uint(v))
}

func (s *scheduler) unmarkRemoved(v core.VariableID) {
	s.removed.Clear(uint(v))
}

func (s *scheduler) empty() bool {
	return len(s.satGroups) == 0 && len(s.violatedGroups) == 0 &&
		s.overlay.None() && s.full.None() && s.totalDirty.None()
}

// NoteValueChanged schedules a full own-resistance recompute after a
// variable's solution value moved. The owner refreshes the group tracker
// itself; its transitions are picked up at the next drain.
func (e *Engine) NoteValueChanged(v core.VariableID) {
	e.sched.unmarkRemoved(v)
	e.sched.enqueueFull(v)
	e.noteStructureTouched(v)
}

// NoteConstraintChanged schedules a full recompute after the variable's
// direct constraints changed in the store.
func (e *Engine) NoteConstraintChanged(v core.VariableID) {
	e.sched.unmarkRemoved(v)
	e.sched.enqueueFull(v)
}

// NoteEquationChanged schedules recomputation for every variable of an
// equation whose coefficients changed. For a removed equation pass the
// former member variables explicitly.
func (e *Engine) NoteEquationChanged(eq core.EquationID, removedVars ...core.VariableID) {
	for _, t := range e.eqs.Terms(eq) {
		e.sched.unmarkRemoved(t.Variable)
		e.sched.enqueueFull(t.Variable)
		e.noteStructureTouched(t.Variable)
	}
	for _, v := range removedVars {
		e.sched.enqueueFull(v)
		e.noteStructureTouched(v)
	}
}

// NoteBindingChanged schedules recomputation after the equation's bound
// variable assignment changed.
func (e *Engine) NoteBindingChanged(eq core.EquationID) {
	e.NoteEquationChanged(eq)
}

// NoteExactnessChanged schedules recomputation after the equation flipped
// between exact and non-exact.
func (e *Engine) NoteExactnessChanged(eq core.EquationID) {
	e.NoteEquationChanged(eq)
}

// noteStructureTouched re-schedules the or-group rows and cached totals
// that depend on a variable's structural context.
func (e *Engine) noteStructureTouched(v core.VariableID) {
	for g := range e.tightByVar[v] {
		e.sched.enqueueSatGroup(g)
	}
	for g := range e.violatedByVar[v] {
		e.sched.enqueueViolatedGroup(g)
	}
	// groups the variable satisfies but does not resist yet
	for _, g := range e.store.VariableOrGroups(v) {
		switch e.tracker.GroupStatus(g) {
		case groups.Satisfied:
			e.sched.enqueueSatGroup(g)
		case groups.Violated:
			e.sched.enqueueViolatedGroup(g)
		}
	}
	e.invalidateTotal(v)
	for f := range e.boundDeps[v] {
		e.invalidateTotal(f)
	}
}

// Drain processes all pending work to a fixpoint. After it returns, every
// value read reflects every edit applied during the cycle exactly once.
// Draining with empty queues is a no-op. Re-entrant calls are disallowed
// by contract.
func (e *Engine) Drain() {
	transitions := e.tracker.ConsumeChanges()
	if len(transitions) == 0 && e.sched.empty() {
		return
	}

	// stage 1: or-group status transitions. Both rebuild paths clear the
	// old contribution type before installing the new one.
	for _, c := range transitions {
		e.sched.enqueueSatGroup(c.Group)
		e.sched.enqueueViolatedGroup(c.Group)
		for _, v := range c.Vars {
			e.sched.enqueueOverlay(v)
		}
		// a priority change leaves the rows intact but every folded value
		// stale
		if c.PrevPriority != e.store.OrGroupPriority(c.Group) {
			for v := range e.tight[c.Group] {
				e.sched.enqueueOverlay(v)
			}
			for v := range e.violated[c.Group] {
				e.sched.enqueueOverlay(v)
			}
			for f := range e.groupDeps[c.Group] {
				e.invalidateTotal(f)
			}
		}
	}

	// stage 2: satisfied-group tightness
	satQueue := e.sched.satGroups
	e.sched.satGroups = make(map[core.GroupID]struct{})
	for _, g := range sortedGroupKeys(satQueue) {
		e.recomputeTightGroup(g)
	}

	// stage 3: violated-group propagation
	vioQueue := e.sched.violatedGroups
	e.sched.violatedGroups = make(map[core.GroupID]struct{})
	for _, g := range sortedGroupKeys(vioQueue) {
		e.rebuildViolatedGroup(g)
	}

	// stage 4: own-resistance recomputation. The overlay queue shares the
	// full path: a recompute is O(1) collaborator queries, and the split
	// queues only exist so earlier stages can dedup their enqueues.
	// Variables removed this cycle are skipped even when a stage-1
	// transition still named them; recomputing would resurrect the entry.
	recompute := e.sched.full.Union(e.sched.overlay)
	e.sched.full.ClearAll()
	e.sched.overlay.ClearAll()
	nbOwn := 0
	for i, ok := recompute.NextSet(0); ok; i, ok = recompute.NextSet(i + 1) {
		if e.sched.removed.Test(i) {
			continue
		}
		v := core.VariableID(i)
		e.CalcResistance(v, e.eqs.Value(v))
		nbOwn++
	}

	// stage 5: total-resistance recomputation for registered variables
	dirty := e.sched.totalDirty
	e.sched.totalDirty = bitset.New(64)
	nbTotal := 0
	for i, ok := dirty.NextSet(0); ok; i, ok = dirty.NextSet(i + 1) {
		v := core.VariableID(i)
		if ts, ok := e.totals[v]; ok && ts.dirty {
			e.recomputeTotal(v)
			nbTotal++
		}
	}

	e.sched.removed.ClearAll()

	e.log.Debug().
		Int("groupTransitions", len(transitions)).
		Int("satGroups", len(satQueue)).
		Int("violatedGroups", len(vioQueue)).
		Int("ownRecomputes", nbOwn).
		Int("totalRecomputes", nbTotal).
		Msg("drained resistance work queues")
}
