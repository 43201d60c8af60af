package resistance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/cstore"
	"github.com/cdl-lang/posit/priority"
)

func TestOnlySatisfierFeedsOwnResistance(t *testing.T) {
	h := newHarness()
	b := core.VariableID(0)
	z := core.VariableID(1)
	if _, err := h.eqs.AddEquation([]core.Term{{Variable: b, Coeff: 1}, {Variable: z, Coeff: 1}}); err != nil {
		t.Fatal(err)
	}
	h.eqs.SetValue(b, 5)

	g := h.store.NewOrGroup(priority.Level(4))
	require.NoError(t, h.store.AddMember(g, b, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()

	te, ok := h.eng.TightEntryFor(b, g)
	require.True(t, ok)
	require.True(t, te.Satisfies)
	require.True(t, te.OnlySatisfier)
	require.Equal(t, core.Up, te.Direction)

	// the group counts like an ordinary tight constraint
	require.Equal(t, priority.Level(4), h.eng.UpResistance(b))
	require.True(t, h.eng.DownResistance(b).IsNone())
	require.Nil(t, h.eng.Entry(b).Sat)
}

func TestOpenSatisfierContributesNothing(t *testing.T) {
	h := newHarness()
	b := core.VariableID(0)
	z := core.VariableID(1)
	if _, err := h.eqs.AddEquation([]core.Term{{Variable: b, Coeff: 1}, {Variable: z, Coeff: 1}}); err != nil {
		t.Fatal(err)
	}
	h.eqs.SetValue(b, 3) // strictly inside the member range

	g := h.store.NewOrGroup(priority.Level(4))
	require.NoError(t, h.store.AddMember(g, b, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()

	_, ok := h.eng.TightEntryFor(b, g)
	require.False(t, ok)
	require.True(t, h.eng.UpResistance(b).IsNone())
}

// Two satisfiers, both bound in exact equations sharing a free variable.
// The satisfiers carry the shared satisfied value, the free variable a
// total-only contribution.
func TestSharedSatisfiersAndFreeCandidate(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b1 := core.VariableID(1)
	b2 := core.VariableID(2)

	h.addExact(t, b1, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b1, Coeff: 1})
	h.addExact(t, b2, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b2, Coeff: 1})
	h.eqs.SetValue(f, 0)
	h.eqs.SetValue(b1, 5)
	h.eqs.SetValue(b2, 5)

	g := h.store.NewOrGroup(priority.Level(6))
	require.NoError(t, h.store.AddMember(g, b1, cstore.Range{Max: 5, HasMax: true}))
	require.NoError(t, h.store.AddMember(g, b2, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()

	// satisfiers: shared value, no own resistance
	for _, b := range []core.VariableID{b1, b2} {
		te, ok := h.eng.TightEntryFor(b, g)
		require.True(t, ok)
		require.True(t, te.Satisfies)
		require.False(t, te.OnlySatisfier)
		require.True(t, h.eng.UpResistance(b).IsNone())
		require.Equal(t, priority.Level(6), h.eng.SatGroupResistance(b, core.Up))
		require.Equal(t, priority.Level(6), h.eng.ResistanceWithSatGroups(b, core.Up))
	}

	// moving f down raises both satisfiers through the exact equations
	te, ok := h.eng.TightEntryFor(f, g)
	require.True(t, ok)
	require.False(t, te.Satisfies)
	require.Equal(t, core.Down, te.Direction)

	// own resistance of f is untouched; only the total carries the group
	require.True(t, h.eng.DownResistance(f).IsNone())
	tot := h.eng.TotalResistance(f, core.Down)
	require.Equal(t, priority.Level(6), tot.Resistance)
	require.True(t, tot.HasWitnessGroup)
	require.Equal(t, g, tot.WitnessGroup)
	require.True(t, h.eng.TotalResistance(f, core.Up).Resistance.IsNone())
}

// A free variable whose movement affects the satisfiers in opposite
// directions never becomes a candidate.
func TestFreeCandidateDropsOnInconsistentSigns(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b1 := core.VariableID(1)
	b2 := core.VariableID(2)

	h.addExact(t, b1, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b1, Coeff: 1})
	// opposite coefficient signs: moving f down lowers b2
	h.addExact(t, b2, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b2, Coeff: -1})
	h.eqs.SetValue(b1, 5)
	h.eqs.SetValue(b2, 5)

	g := h.store.NewOrGroup(priority.Level(6))
	require.NoError(t, h.store.AddMember(g, b1, cstore.Range{Max: 5, HasMax: true}))
	require.NoError(t, h.store.AddMember(g, b2, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()

	_, ok := h.eng.TightEntryFor(f, g)
	require.False(t, ok)
	require.True(t, h.eng.TotalResistance(f, core.Down).Resistance.IsNone())
}

func TestGroupPriorityChangeRefoldsResistance(t *testing.T) {
	h := newHarness()
	b := core.VariableID(0)
	z := core.VariableID(1)
	if _, err := h.eqs.AddEquation([]core.Term{{Variable: b, Coeff: 1}, {Variable: z, Coeff: 1}}); err != nil {
		t.Fatal(err)
	}
	h.eqs.SetValue(b, 5)

	g := h.store.NewOrGroup(priority.Level(4))
	require.NoError(t, h.store.AddMember(g, b, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()
	require.Equal(t, priority.Level(4), h.eng.UpResistance(b))
	h.eng.DrainResistanceChanged()

	require.NoError(t, h.store.SetOrGroupPriority(g, priority.Level(9)))
	h.tracker.Refresh(g)
	h.eng.Drain()
	require.Equal(t, priority.Level(9), h.eng.UpResistance(b))
	require.Contains(t, h.eng.DrainResistanceChanged(), b)
}

func TestGroupUnsatisfiedClearsTightRows(t *testing.T) {
	h := newHarness()
	b := core.VariableID(0)
	z := core.VariableID(1)
	if _, err := h.eqs.AddEquation([]core.Term{{Variable: b, Coeff: 1}, {Variable: z, Coeff: 1}}); err != nil {
		t.Fatal(err)
	}
	h.eqs.SetValue(b, 5)

	g := h.store.NewOrGroup(priority.Level(4))
	require.NoError(t, h.store.AddMember(g, b, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()
	require.Equal(t, priority.Level(4), h.eng.UpResistance(b))

	// value moves above the range: the group is violated now
	h.eqs.SetValue(b, 7)
	h.tracker.RefreshVariable(b)
	h.eng.NoteValueChanged(b)
	h.eng.Drain()

	_, ok := h.eng.TightEntryFor(b, g)
	require.False(t, ok)
	require.Contains(t, h.eng.DrainTightGroupChanged(), g)
}
