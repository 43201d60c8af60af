package resistance

import (
	"github.com/cdl-lang/posit/core"
)

type varSet map[core.VariableID]struct{}

func (s varSet) add(v core.VariableID) { s[v] = struct{}{} }

type groupSet map[core.GroupID]struct{}

func (s groupSet) add(g core.GroupID) { s[g] = struct{}{} }

// changeSets accumulate which variables and groups changed during a
// cycle. Consumers drain them; draining clears.
type changeSets struct {
	resistance      varSet
	totalResistance varSet
	violation       varSet
	sharedSat       varSet
	tightGroup      groupSet
}

func newChangeSets() changeSets {
	return changeSets{
		resistance:      make(varSet),
		totalResistance: make(varSet),
		violation:       make(varSet),
		sharedSat:       make(varSet),
		tightGroup:      make(groupSet),
	}
}

func (c *changeSets) forget(v core.VariableID) {
	delete(c.resistance, v)
	delete(c.totalResistance, v)
	delete(c.violation, v)
	delete(c.sharedSat, v)
}

// DrainResistanceChanged returns the variables whose own resistance
// changed since the last drain, ascending, and clears the set.
func (e *Engine) DrainResistanceChanged() []core.VariableID {
	out := sortedVarKeys(e.changes.resistance)
	e.changes.resistance = make(varSet)
	return out
}

// DrainTotalResistanceChanged returns the variables whose cached total
// resistance changed, ascending, and clears the set.
func (e *Engine) DrainTotalResistanceChanged() []core.VariableID {
	out := sortedVarKeys(e.changes.totalResistance)
	e.changes.totalResistance = make(varSet)
	return out
}

// DrainViolationChanged returns the variables whose violation state
// changed, ascending, and clears the set.
func (e *Engine) DrainViolationChanged() []core.VariableID {
	out := sortedVarKeys(e.changes.violation)
	e.changes.violation = make(varSet)
	return out
}

// DrainSharedSatChanged returns the variables whose shared
// satisfied-group resistance changed, ascending, and clears the set.
func (e *Engine) DrainSharedSatChanged() []core.VariableID {
	out := sortedVarKeys(e.changes.sharedSat)
	e.changes.sharedSat = make(varSet)
	return out
}

// DrainTightGroupChanged returns the groups whose tight rows changed,
// ascending, and clears the set.
func (e *Engine) DrainTightGroupChanged() []core.GroupID {
	out := sortedGroupKeys(e.changes.tightGroup)
	e.changes.tightGroup = make(groupSet)
	return out
}
