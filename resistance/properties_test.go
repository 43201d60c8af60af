package resistance_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cdl-lang/posit/core"
	"github.com/cdl-lang/posit/priority"
)

func TestResistanceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	genBound := gen.Float64Range(-100, 100)
	genPrio := gen.Float64Range(0, 10)
	genValue := gen.Float64Range(-150, 150)

	properties.Property("overlay never drops below base resistance", prop.ForAll(
		func(minV, maxV, minP, maxP, value float64) bool {
			h := newHarness()
			x := core.VariableID(0)
			if minV <= maxV {
				h.store.SetMin(x, minV, priority.Priority(minP))
				h.store.SetMax(x, maxV, priority.Priority(maxP))
			}
			h.eng.CalcResistance(x, value)
			ent := h.eng.Entry(x)
			return ent.Up >= ent.UpNoGroups && ent.Down >= ent.DownNoGroups
		},
		genBound, genBound, genPrio, genPrio, genValue,
	))

	properties.Property("at most one violation side", prop.ForAll(
		func(minV, maxV, minP, maxP, value float64) bool {
			h := newHarness()
			x := core.VariableID(0)
			if minV > maxV {
				minV, maxV = maxV, minV
			}
			h.store.SetMin(x, minV, priority.Priority(minP))
			h.store.SetMax(x, maxV, priority.Priority(maxP))
			h.eng.CalcResistance(x, value)
			vio := h.eng.Violation(x)
			if vio == nil {
				return minV <= value && value <= maxV
			}
			return value < minV || value > maxV
		},
		genBound, genBound, genPrio, genPrio, genValue,
	))

	properties.Property("recompute at the same value is a fixpoint", prop.ForAll(
		func(minV, maxV, minP, maxP, value float64) bool {
			h := newHarness()
			x := core.VariableID(0)
			if minV > maxV {
				minV, maxV = maxV, minV
			}
			h.store.SetMin(x, minV, priority.Priority(minP))
			h.store.SetMax(x, maxV, priority.Priority(maxP))
			h.eng.CalcResistance(x, value)
			return !h.eng.CalcResistance(x, value)
		},
		genBound, genBound, genPrio, genPrio, genValue,
	))

	properties.Property("violated bound resists movement toward the violation", prop.ForAll(
		func(maxV, maxP, delta float64) bool {
			h := newHarness()
			x := core.VariableID(0)
			h.store.SetMax(x, maxV, priority.Priority(maxP))
			h.eng.CalcResistance(x, maxV+1+delta)
			return h.eng.UpResistance(x) == priority.Priority(maxP) &&
				h.eng.DownResistance(x).IsNone()
		},
		genBound, genPrio, gen.Float64Range(0, 50),
	))

	properties.TestingRun(t)
}
