package resistance

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cdl-lang/posit/core"
)

// Snapshot is the explicit typed serialization of the engine's tables,
// used by debug tooling. Each entry kind is encoded as-is; there is no
// generic recursive clone.
type Snapshot struct {
	Entries  map[core.VariableID]Entry
	Stable   map[core.VariableID]float64
	Totals   map[core.VariableID]map[core.Direction]TotalEntry
	Tight    map[core.GroupID]map[core.VariableID]TightEntry
	Violated map[core.GroupID]map[core.VariableID]ViolatedEntry
}

// Snapshot serializes the engine state with CBOR.
func (e *Engine) Snapshot() ([]byte, error) {
	s := Snapshot{
		Entries:  make(map[core.VariableID]Entry, len(e.entries)),
		Stable:   make(map[core.VariableID]float64, len(e.stable)),
		Totals:   make(map[core.VariableID]map[core.Direction]TotalEntry, len(e.totals)),
		Tight:    make(map[core.GroupID]map[core.VariableID]TightEntry, len(e.tight)),
		Violated: make(map[core.GroupID]map[core.VariableID]ViolatedEntry, len(e.violated)),
	}
	for v, ent := range e.entries {
		s.Entries[v] = ent.clone()
	}
	for v, x := range e.stable {
		s.Stable[v] = x
	}
	for v, ts := range e.totals {
		dirs := make(map[core.Direction]TotalEntry, len(ts.entries))
		for d, te := range ts.entries {
			dirs[d] = te
		}
		s.Totals[v] = dirs
	}
	for g, rows := range e.tight {
		m := make(map[core.VariableID]TightEntry, len(rows))
		for v, te := range rows {
			m[v] = te
		}
		s.Tight[g] = m
	}
	for g, rows := range e.violated {
		m := make(map[core.VariableID]ViolatedEntry, len(rows))
		for v, ve := range rows {
			cp := *ve
			if ve.FreeVars != nil {
				cp.FreeVars = make(map[core.VariableID]core.Direction, len(ve.FreeVars))
				for f, d := range ve.FreeVars {
					cp.FreeVars[f] = d
				}
			}
			m[v] = cp
		}
		s.Violated[g] = m
	}
	return cbor.Marshal(s)
}

// DecodeSnapshot decodes a snapshot produced by Snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
