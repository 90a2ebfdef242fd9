// Copyright 2026 spikegen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"

	"github.com/goki/ki/ints"

	"github.com/spikegen/spikegen/transpiler"
)

// Network is the complete description of one model: populations, projections,
// current sources and custom updates, together with the simulation timestep
// and numeric precision. The code generator borrows it read-only.
type Network struct {
	Name string

	DT            float64
	Precision     Precision
	TimePrecision Precision
	BatchSize     int
	Seed          int

	NeuronGroups    []*NeuronGroup
	SynapseGroups   []*SynapseGroup
	CurrentSources  []*CurrentSource
	CustomUpdates   []*CustomUpdate
	CustomUpdateWUs []*CustomUpdateWU

	finalized bool
}

// ScalarType returns the numeric type bound to "scalar".
func (n *Network) ScalarType() *transpiler.Numeric {
	if n.Precision == Double {
		return transpiler.Double
	}
	return transpiler.Float
}

// ScalarName returns the C spelling of the scalar type.
func (n *Network) ScalarName() string { return n.ScalarType().Name() }

// TimeType returns the numeric type used for simulation time.
func (n *Network) TimeType() *transpiler.Numeric {
	if n.TimePrecision == Double {
		return transpiler.Double
	}
	return transpiler.Float
}

// TypeContext returns the typedef bindings handed to the snippet scanner.
func (n *Network) TypeContext() transpiler.TypeContext {
	return transpiler.TypeContext{
		"scalar":  n.ScalarType(),
		"timepoint": n.TimeType(),
	}
}

// Finalize wires cross references (in/out synapse lists, current source
// attachment), computes delay slot counts and validates the description.
// It must be called once before code generation.
func (n *Network) Finalize() error {
	if n.finalized {
		return nil
	}
	if n.DT <= 0 {
		return fmt.Errorf("model '%s': DT must be positive", n.Name)
	}
	if n.BatchSize < 1 {
		n.BatchSize = 1
	}

	groups := make(map[string]*NeuronGroup, len(n.NeuronGroups))
	for _, ng := range n.NeuronGroups {
		if ng.NumNeurons <= 0 {
			return fmt.Errorf("neuron group '%s': population size must be positive", ng.Name)
		}
		if _, dup := groups[ng.Name]; dup {
			return fmt.Errorf("duplicate neuron group name '%s'", ng.Name)
		}
		groups[ng.Name] = ng
		ng.InSyn = nil
		ng.OutSyn = nil
		ng.CurrentSources = nil
		ng.numDelaySlots = 1
		defaultLoc(&ng.SpikeLocation)
		defaultLoc(&ng.VarLocation)
		defaultLoc(&ng.SpikeTimeLocation)
	}

	for _, sg := range n.SynapseGroups {
		if sg.Src == nil || sg.Trg == nil {
			return fmt.Errorf("synapse group '%s': source and target must be set", sg.Name)
		}
		sg.Src.OutSyn = append(sg.Src.OutSyn, sg)
		sg.Trg.InSyn = append(sg.Trg.InSyn, sg)
		defaultLoc(&sg.InSynLocation)
		defaultLoc(&sg.WUVarLocation)
		defaultLoc(&sg.SparseConnLocation)
		if sg.DendriticDelayLocation == 0 {
			sg.DendriticDelayLocation = LocDeviceOnly()
		}

		if sg.MaxDendriticDelayTimesteps < 1 {
			sg.MaxDendriticDelayTimesteps = 1
		}
		if sg.NumThreadsPerSpike < 1 {
			sg.NumThreadsPerSpike = 1
		}

		// Default sparse bounds to the dense extents
		if sg.MaxConnections < 1 {
			sg.MaxConnections = sg.Trg.NumNeurons
		}
		if sg.MaxSourceConnections < 1 {
			sg.MaxSourceConnections = sg.Src.NumNeurons
		}

		sparse := sg.MatrixType.Has(SparseConnectivity) || sg.MatrixType.Has(BitmaskConnectivity)
		if sparse && sg.ConnectivityInit.Snippet != nil &&
			sg.ConnectivityInit.HasRowBuild() && sg.ConnectivityInit.HasColBuild() {
			return fmt.Errorf("synapse group '%s': connectivity snippet has both row and column building code", sg.Name)
		}
	}

	// Delay slots: the spike queue must cover the maximum axonal delay of
	// outgoing projections and the maximum back propagation delay of
	// incoming ones
	for _, sg := range n.SynapseGroups {
		sg.Src.numDelaySlots = ints.MaxInt(sg.Src.numDelaySlots, sg.DelaySteps+1)
		sg.Trg.numDelaySlots = ints.MaxInt(sg.Trg.numDelaySlots, sg.BackPropDelaySteps+1)
	}

	for _, cs := range n.CurrentSources {
		if cs.Target == nil {
			return fmt.Errorf("current source '%s': target must be set", cs.Name)
		}
		cs.Target.CurrentSources = append(cs.Target.CurrentSources, cs)
		defaultLoc(&cs.VarLocation)
	}

	for _, cu := range n.CustomUpdates {
		if cu.Size <= 0 {
			for _, ref := range cu.VarRefs {
				cu.Size = ints.MaxInt(cu.Size, ref.Group.NumNeurons)
			}
		}
		if cu.Size <= 0 {
			return fmt.Errorf("custom update '%s': size could not be determined", cu.Name)
		}
	}
	for _, cu := range n.CustomUpdateWUs {
		if cu.SynapseGroup == nil {
			return fmt.Errorf("custom update '%s': synapse group must be set", cu.Name)
		}
	}

	n.finalized = true
	return nil
}

// defaultLoc fills an unset location with the host+device default.
func defaultLoc(loc *VarLocation) {
	if *loc == 0 {
		*loc = LocHostDevice()
	}
}

// CustomUpdateGroupNames returns the distinct update group names in first
// use order, across both neuron and synapse sized custom updates.
func (n *Network) CustomUpdateGroupNames() []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, cu := range n.CustomUpdates {
		add(cu.UpdateGroupName)
	}
	for _, cu := range n.CustomUpdateWUs {
		add(cu.UpdateGroupName)
	}
	return names
}
