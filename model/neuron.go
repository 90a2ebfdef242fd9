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

import "strings"

// NeuronModel describes the dynamics shared by every neuron group built
// from it: simulation code run each timestep, a threshold condition that
// emits a spike, and reset code run after a spike.
type NeuronModel struct {
	Name string

	ParamNames        []string
	DerivedParamNames []string
	Vars              []Var
	EGPs              []EGP

	SimCode                string
	ThresholdConditionCode string
	ResetCode              string

	// AdditionalInputVars are extra per-neuron inputs (name, type, initial
	// value expression) accumulated by incoming synapse groups.
	AdditionalInputVars []Var
}

// IsRNGRequired reports whether any simulation snippet draws random numbers.
func (m *NeuronModel) IsRNGRequired() bool {
	return isRNGRequired(m.SimCode) || isRNGRequired(m.ThresholdConditionCode) || isRNGRequired(m.ResetCode)
}

// NeuronGroup is one population of identical neurons.
type NeuronGroup struct {
	Name       string
	NumNeurons int

	Model         *NeuronModel
	Params        ParamValues
	DerivedParams ParamValues
	VarInit       map[string]VarInit

	// SpikeRecordingEnabled turns on the bitmask spike recording path.
	SpikeRecordingEnabled bool
	// SpikeEventRecordingEnabled records spike-like events instead.
	SpikeEventRecordingEnabled bool

	SpikeLocation    VarLocation
	VarLocation      VarLocation
	SpikeTimeLocation VarLocation

	// Wired up by Network.Finalize:

	// InSyn are synapse groups targeting this population.
	InSyn []*SynapseGroup
	// OutSyn are synapse groups sourced from this population.
	OutSyn []*SynapseGroup
	// CurrentSources inject current into this population.
	CurrentSources []*CurrentSource

	numDelaySlots int
}

// DelayRequired reports whether spikes from this group are consumed with
// axonal delay, so spike arrays need one slot per delay step.
func (ng *NeuronGroup) DelayRequired() bool { return ng.numDelaySlots > 1 }

// NumDelaySlots returns the circular spike queue length (1 when undelayed).
func (ng *NeuronGroup) NumDelaySlots() int {
	if ng.numDelaySlots < 1 {
		return 1
	}
	return ng.numDelaySlots
}

// SimRNGRequired reports whether neuron simulation code needs a per-neuron
// RNG stream.
func (ng *NeuronGroup) SimRNGRequired() bool {
	return ng.Model.IsRNGRequired()
}

// InitRNGRequired reports whether any variable initialiser draws random
// numbers.
func (ng *NeuronGroup) InitRNGRequired() bool {
	for _, vi := range ng.VarInit {
		if vi.Snippet != nil && isRNGRequired(vi.Snippet.Code) {
			return true
		}
	}
	for _, cs := range ng.CurrentSources {
		for _, vi := range cs.VarInit {
			if vi.Snippet != nil && isRNGRequired(vi.Snippet.Code) {
				return true
			}
		}
	}
	return false
}

// SpikeEventRequired reports whether any outgoing synapse group processes
// spike-like events.
func (ng *NeuronGroup) SpikeEventRequired() bool {
	for _, sg := range ng.OutSyn {
		if sg.WUModel.EventCode != "" {
			return true
		}
	}
	return false
}

// TrueSpikeRequired reports whether any outgoing synapse group consumes true
// spikes, or any incoming one runs postsynaptic learning.
func (ng *NeuronGroup) TrueSpikeRequired() bool {
	for _, sg := range ng.OutSyn {
		if sg.WUModel.SimCode != "" {
			return true
		}
	}
	for _, sg := range ng.InSyn {
		if sg.WUModel.LearnPostCode != "" {
			return true
		}
	}
	return false
}

// SpikeTimeRequired reports whether any attached weight update model reads
// the last spike time of this population.
func (ng *NeuronGroup) SpikeTimeRequired() bool {
	for _, sg := range ng.OutSyn {
		if sg.WUModel.referencesToken("sT_pre") {
			return true
		}
	}
	for _, sg := range ng.InSyn {
		if sg.WUModel.referencesToken("sT_post") {
			return true
		}
	}
	return false
}

// PrevSpikeTimeRequired reports whether any attached weight update model
// reads the previous spike time of this population.
func (ng *NeuronGroup) PrevSpikeTimeRequired() bool {
	for _, sg := range ng.OutSyn {
		if sg.WUModel.referencesToken("prev_sT_pre") {
			return true
		}
	}
	for _, sg := range ng.InSyn {
		if sg.WUModel.referencesToken("prev_sT_post") {
			return true
		}
	}
	return false
}

// SpikeEventTimeRequired reports whether spike-like-event times are read.
func (ng *NeuronGroup) SpikeEventTimeRequired() bool {
	for _, sg := range ng.OutSyn {
		if sg.WUModel.referencesToken("seT_pre") {
			return true
		}
	}
	return false
}

// PrevSpikeEventTimeRequired reports whether previous spike-like-event
// times are read.
func (ng *NeuronGroup) PrevSpikeEventTimeRequired() bool {
	for _, sg := range ng.OutSyn {
		if sg.WUModel.referencesToken("prev_seT_pre") {
			return true
		}
	}
	return false
}

// isRNGRequired reports whether a snippet calls one of the RNG functions.
func isRNGRequired(code string) bool {
	for _, fn := range []string{
		"$(gennrand_uniform", "$(gennrand_normal", "$(gennrand_exponential",
		"$(gennrand_log_normal", "$(gennrand_gamma", "$(gennrand_binomial",
	} {
		if strings.Contains(code, fn) {
			return true
		}
	}
	return false
}
