package resistance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/cstore"
	"github.com/cdl-lang/posit/priority"
)

func TestTotalResistanceBoundEqualsOwn(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b := core.VariableID(1)

	h.addExact(t, b, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b, Coeff: 1})
	h.eqs.SetValue(b, 5)
	h.store.SetMax(b, 5, priority.Level(6))
	h.eng.NoteConstraintChanged(b)
	h.eng.Drain()

	// a bound variable moves alone: nothing co-moves with it
	tot := h.eng.TotalResistance(b, core.Up)
	require.Equal(t, h.eng.UpResistance(b), tot.Resistance)
	require.False(t, tot.HasWitnessVariable)
	require.False(t, tot.HasWitnessGroup)
}

func TestTotalResistanceWitnessesBoundCoMover(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b := core.VariableID(1)

	// f + b exact: moving f down pushes b up against its tight max
	h.addExact(t, b, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b, Coeff: 1})
	h.eqs.SetValue(b, 5)
	h.store.SetMax(b, 5, priority.Level(6))
	h.eng.NoteConstraintChanged(b)
	h.eng.Drain()

	tot := h.eng.TotalResistance(f, core.Down)
	require.Equal(t, priority.Level(6), tot.Resistance)
	require.True(t, tot.HasWitnessVariable)
	require.Equal(t, b, tot.WitnessVariable)
	require.False(t, tot.HasWitnessGroup)

	// the other direction moves b away from its max
	require.True(t, h.eng.TotalResistance(f, core.Up).Resistance.IsNone())
}

func TestTotalResistanceInvalidatedByConstraintChange(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b := core.VariableID(1)

	h.addExact(t, b, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b, Coeff: 1})
	h.eqs.SetValue(b, 5)
	h.store.SetMax(b, 5, priority.Level(6))
	h.eng.NoteConstraintChanged(b)
	h.eng.Drain()

	require.Equal(t, priority.Level(6), h.eng.TotalResistance(f, core.Down).Resistance)
	h.eng.DrainTotalResistanceChanged()

	// raising the priority of b's max must flow into f's cached total
	h.store.SetMax(b, 5, priority.Level(8))
	h.eng.NoteConstraintChanged(b)
	h.eng.Drain()

	require.Equal(t, priority.Level(8), h.eng.TotalResistance(f, core.Down).Resistance)
	require.Contains(t, h.eng.DrainTotalResistanceChanged(), f)
}

func TestTotalResistanceLazyRecomputeWithoutDrain(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b := core.VariableID(1)

	h.addExact(t, b, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b, Coeff: 1})
	h.eqs.SetValue(b, 5)
	h.store.SetMax(b, 5, priority.Level(6))
	h.eng.NoteConstraintChanged(b)
	h.eng.Drain()
	require.Equal(t, priority.Level(6), h.eng.TotalResistance(f, core.Down).Resistance)

	// a direct recompute of b marks f's total dirty; reading it before the
	// next drain already sees the fresh value
	h.store.SetMax(b, 5, priority.Level(9))
	h.eng.CalcResistance(b, 5)
	require.Equal(t, priority.Level(9), h.eng.TotalResistance(f, core.Down).Resistance)
}

// Raising a satisfied group's priority must flow into an already-cached
// total that witnesses the group.
func TestGroupPriorityRaiseRefreshesCachedTotal(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b1 := core.VariableID(1)
	b2 := core.VariableID(2)

	h.addExact(t, b1, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b1, Coeff: 1})
	h.addExact(t, b2, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b2, Coeff: 1})
	h.eqs.SetValue(b1, 5)
	h.eqs.SetValue(b2, 5)

	g := h.store.NewOrGroup(priority.Level(6))
	require.NoError(t, h.store.AddMember(g, b1, cstore.Range{Max: 5, HasMax: true}))
	require.NoError(t, h.store.AddMember(g, b2, cstore.Range{Max: 5, HasMax: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()

	require.Equal(t, priority.Level(6), h.eng.TotalResistance(f, core.Down).Resistance)
	h.eng.DrainTotalResistanceChanged()

	require.NoError(t, h.store.SetOrGroupPriority(g, priority.Level(9)))
	h.tracker.Refresh(g)
	h.eng.Drain()

	tot := h.eng.TotalResistance(f, core.Down)
	require.Equal(t, priority.Level(9), tot.Resistance)
	require.True(t, tot.HasWitnessGroup)
	require.Equal(t, g, tot.WitnessGroup)
	require.Contains(t, h.eng.DrainTotalResistanceChanged(), f)
}

// Same for a violated group whose contribution is total-only.
func TestViolatedPriorityRaiseRefreshesCachedTotal(t *testing.T) {
	h := newHarness()
	f := core.VariableID(0)
	b1 := core.VariableID(1)
	b2 := core.VariableID(2)

	h.addExact(t, b1, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b1, Coeff: 1})
	h.addExact(t, b2, core.Term{Variable: f, Coeff: 1}, core.Term{Variable: b2, Coeff: -1})
	h.eqs.SetValue(b1, 2)
	h.eqs.SetValue(b2, 2)

	g := h.store.NewOrGroup(priority.Level(7))
	require.NoError(t, h.store.AddMember(g, b1, cstore.Range{Min: 5, HasMin: true}))
	require.NoError(t, h.store.AddMember(g, b2, cstore.Range{Min: 5, HasMin: true}))
	h.tracker.Refresh(g)
	h.eng.Drain()

	require.Equal(t, priority.Level(7), h.eng.TotalResistance(f, core.Up).Resistance)
	h.eng.DrainTotalResistanceChanged()

	require.NoError(t, h.store.SetOrGroupPriority(g, priority.Level(9)))
	h.tracker.Refresh(g)
	h.eng.Drain()

	tot := h.eng.TotalResistance(f, core.Up)
	require.Equal(t, priority.Level(9), tot.Resistance)
	require.True(t, tot.HasWitnessGroup)
	require.Equal(t, g, tot.WitnessGroup)
	require.True(t, h.eng.UpResistance(f).IsNone())
	require.Contains(t, h.eng.DrainTotalResistanceChanged(), f)
}

func TestReleaseAndRetainTotalResistance(t *testing.T) {
	h := newHarness()
	f1 := core.VariableID(0)
	f2 := core.VariableID(1)
	b := core.VariableID(2)

	h.addExact(t, b,
		core.Term{Variable: f1, Coeff: 1},
		core.Term{Variable: f2, Coeff: 1},
		core.Term{Variable: b, Coeff: 1})
	h.eqs.SetValue(b, 5)
	h.store.SetMax(b, 5, priority.Level(6))
	h.eng.NoteConstraintChanged(b)
	h.eng.Drain()

	h.eng.TotalResistance(f1, core.Down)
	h.eng.TotalResistance(f2, core.Down)
	require.Equal(t, []core.VariableID{f1, f2}, h.eng.TotalResistanceVariables())

	h.eng.ReleaseTotalResistance(f1)
	require.Equal(t, []core.VariableID{f2}, h.eng.TotalResistanceVariables())

	h.eng.RetainTotalResistance(map[core.VariableID]struct{}{})
	require.Empty(t, h.eng.TotalResistanceVariables())

	// released variables are still answerable, just re-registered
	require.Equal(t, priority.Level(6), h.eng.TotalResistance(f1, core.Down).Resistance)
	require.NoError(t, h.eng.Audit())
}
