package resistance

import (
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/cdl-lang/posit/debug"
	"github.com/cdl-lang/posit/groups"
)

// Audit cross-checks the engine's tables: entry invariants, staleness
// against a fresh recompute, the reverse witness indexes, and the linkage
// between or-group rows and the group tracker. It is a pure observer:
// staleness is detected on a scratch entry and never written back, and no
// change-set notification is pushed. In debug builds the first
// inconsistency panics; in release builds each is logged and the stale
// linkage skipped, since continuing a live layout pass is preferred to
// crashing it. The collected findings are returned for the debug
// tooling.
func (e *Engine) Audit() error {
	var errs []error
	report := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		debug.Assert(false, "resistance audit: "+msg)
		e.log.Warn().Msg("audit: " + msg)
		errs = append(errs, errors.New(msg))
	}

	for _, v := range sortedVarKeys(e.entries) {
		ent := e.entries[v]
		if ent.Up < ent.UpNoGroups || ent.Down < ent.DownNoGroups {
			report("variable %d: or-group overlay below base resistance", v)
		}
		fresh := e.calcEntry(v, e.eqs.Value(v))
		if !fresh.Equal(ent) {
			report("variable %d: stale entry, diff: %s", v, cmp.Diff(ent.clone(), *fresh))
		}
	}

	for b, deps := range e.boundDeps {
		for f := range deps {
			ts, ok := e.totals[f]
			if !ok {
				report("bound variable %d lists unregistered dependent %d", b, f)
				continue
			}
			if _, ok := ts.boundRefs[b]; !ok {
				report("reverse index mismatch between bound variable %d and dependent %d", b, f)
			}
		}
	}
	for g, deps := range e.groupDeps {
		for f := range deps {
			ts, ok := e.totals[f]
			if !ok {
				report("group %d lists unregistered dependent %d", g, f)
				continue
			}
			if _, ok := ts.groupRefs[g]; !ok {
				report("reverse index mismatch between group %d and dependent %d", g, f)
			}
		}
	}
	for _, f := range sortedVarKeys(e.totals) {
		ts := e.totals[f]
		for b := range ts.boundRefs {
			if _, ok := e.boundDeps[b][f]; !ok {
				report("dependent %d holds a witness ref on bound variable %d missing from the reverse index", f, b)
			}
		}
		for g := range ts.groupRefs {
			if _, ok := e.groupDeps[g][f]; !ok {
				report("dependent %d holds a witness ref on group %d missing from the reverse index", f, g)
			}
		}
	}

	for _, g := range sortedGroupKeys(e.tight) {
		if e.tracker.GroupStatus(g) != groups.Satisfied {
			report("tight rows recorded for non-satisfied group %d", g)
		}
	}
	for _, g := range sortedGroupKeys(e.violated) {
		if e.tracker.GroupStatus(g) != groups.Violated {
			report("violated rows recorded for non-violated group %d", g)
			continue
		}
		for m, ve := range e.violated[g] {
			if !ve.HasTarget || len(ve.FreeVars) == 0 {
				continue
			}
			eq, ok := e.eqs.BoundEquation(m)
			if !ok || !e.eqs.IsExact(eq) {
				report("group %d member %d: recorded blocking equation no longer exists", g, m)
				continue
			}
			for f := range ve.FreeVars {
				if e.eqs.Coeff(eq, f) == 0 {
					report("group %d member %d: stale co-mover %d", g, m, f)
				}
			}
		}
	}

	return errors.Join(errs...)
}
