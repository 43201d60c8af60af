package resistance_test

import (
	"testing"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/cstore"
	"github.com/cdl-lang/posit/eqsystem"
	"github.com/cdl-lang/posit/groups"
	"github.com/cdl-lang/posit/resistance"
)

// harness wires the engine to real collaborators the way the owning
// solver does.
type harness struct {
	eqs     *eqsystem.System
	store   *cstore.Store
	tracker *groups.Tracker
	eng     *resistance.Engine
}

func newHarness() *harness {
	eqs := eqsystem.New()
	store := cstore.New()
	tracker := groups.NewTracker(store, eqs)
	return &harness{
		eqs:     eqs,
		store:   store,
		tracker: tracker,
		eng:     resistance.New(eqs, store, tracker),
	}
}

// addExact adds an equation, binds it to bound and marks it exact.
func (h *harness) addExact(t *testing.T, bound core.VariableID, terms ...core.Term) core.EquationID {
	t.Helper()
	eq, err := h.eqs.AddEquation(terms)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.eqs.SetBound(eq, bound); err != nil {
		t.Fatal(err)
	}
	h.eqs.SetExact(eq, true)
	return eq
}
