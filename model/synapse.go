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

// WeightUpdateModel describes what happens at a synapse when spikes cross
// it: sim code for true spikes, event code for spike-like events, learn-post
// code for backpropagated learning and dynamics code run every timestep.
type WeightUpdateModel struct {
	Name string

	ParamNames        []string
	DerivedParamNames []string
	Vars              []Var
	PreVars           []Var
	PostVars          []Var
	EGPs              []EGP

	SimCode                     string
	EventCode                   string
	EventThresholdConditionCode string
	LearnPostCode               string
	SynapseDynamicsCode         string

	PreSpikeCode    string
	PostSpikeCode   string
	PreDynamicsCode string
	PostDynamicsCode string
}

// referencesToken reports whether any snippet of the model references the
// given $(token).
func (m *WeightUpdateModel) referencesToken(token string) bool {
	needle := "$(" + token + ")"
	for _, code := range []string{
		m.SimCode, m.EventCode, m.EventThresholdConditionCode,
		m.LearnPostCode, m.SynapseDynamicsCode,
		m.PreSpikeCode, m.PostSpikeCode, m.PreDynamicsCode, m.PostDynamicsCode,
	} {
		if strings.Contains(code, needle) {
			return true
		}
	}
	return false
}

// PostsynapticModel shapes how accumulated synaptic input becomes neuron
// input current.
type PostsynapticModel struct {
	Name string

	ParamNames        []string
	DerivedParamNames []string
	Vars              []Var

	ApplyInputCode string
	DecayCode      string
}

// SynapseGroup is one projection between two neuron populations.
type SynapseGroup struct {
	Name string

	Src *NeuronGroup
	Trg *NeuronGroup

	MatrixType SynapseMatrixType
	SpanType   SpanType

	// DelaySteps delays spike delivery on the axonal side.
	DelaySteps int
	// BackPropDelaySteps delays postsynaptic spikes seen by learn-post code.
	BackPropDelaySteps int

	// MaxConnections bounds the length of one sparse row.
	MaxConnections int
	// MaxSourceConnections bounds the length of one sparse column.
	MaxSourceConnections int

	// MaxDendriticDelayTimesteps sizes the per-target dendritic delay buffer.
	MaxDendriticDelayTimesteps int

	// NumThreadsPerSpike spreads one presynaptic spike's row over several
	// threads in the pre-span strategies (stored and procedural).
	NumThreadsPerSpike int

	// KernelSize is the shape of shared kernel weights, empty otherwise.
	KernelSize []int

	WUModel         *WeightUpdateModel
	WUParams        ParamValues
	WUDerivedParams ParamValues
	WUVarInit       map[string]VarInit
	WUPreVarInit    map[string]VarInit
	WUPostVarInit   map[string]VarInit

	PSModel         *PostsynapticModel
	PSParams        ParamValues
	PSDerivedParams ParamValues
	PSVarInit       map[string]VarInit

	ConnectivityInit ConnectivityInit

	// PSTarget names the postsynaptic accumulator; groups sharing a name
	// share inSyn arrays. Defaults to the group name.
	PSTarget string

	InSynLocation         VarLocation
	WUVarLocation         VarLocation
	SparseConnLocation    VarLocation
	DendriticDelayLocation VarLocation
}

// PSModelTargetName returns the name of the postsynaptic target this group
// accumulates into.
func (sg *SynapseGroup) PSModelTargetName() string {
	if sg.PSTarget != "" {
		return sg.PSTarget
	}
	return sg.Name
}

// DendriticDelayRequired reports whether sim or dynamics code routes input
// through the per-synapse dendritic delay buffer.
func (sg *SynapseGroup) DendriticDelayRequired() bool {
	return strings.Contains(sg.WUModel.SimCode, "$(addToInSynDelay") ||
		strings.Contains(sg.WUModel.EventCode, "$(addToInSynDelay") ||
		strings.Contains(sg.WUModel.SynapseDynamicsCode, "$(addToInSynDelay")
}

// TrueSpikeRequired reports whether the group processes true spikes.
func (sg *SynapseGroup) TrueSpikeRequired() bool {
	return sg.WUModel.SimCode != ""
}

// SpikeEventRequired reports whether the group processes spike-like events.
func (sg *SynapseGroup) SpikeEventRequired() bool {
	return sg.WUModel.EventCode != ""
}

// RowStride returns the padded width of one row of the backing matrix.
func (sg *SynapseGroup) RowStride() int {
	if sg.MatrixType.Has(SparseConnectivity) || sg.MatrixType.Has(BitmaskConnectivity) || sg.MatrixType.Has(ProceduralConnectivity) {
		return sg.MaxConnections
	}
	return sg.Trg.NumNeurons
}

// ColStride returns the padded width of one column of the remap structure.
func (sg *SynapseGroup) ColStride() int {
	return sg.MaxSourceConnections
}

// WUInitRNGRequired reports whether weight update variable initialisation
// draws random numbers.
func (sg *SynapseGroup) WUInitRNGRequired() bool {
	for _, vi := range sg.WUVarInit {
		if vi.Snippet != nil && isRNGRequired(vi.Snippet.Code) {
			return true
		}
	}
	return false
}

// ConnectivityInitRNGRequired reports whether connectivity building draws
// random numbers.
func (sg *SynapseGroup) ConnectivityInitRNGRequired() bool {
	if sg.ConnectivityInit.Snippet == nil {
		return false
	}
	return isRNGRequired(sg.ConnectivityInit.Snippet.RowBuildCode) ||
		isRNGRequired(sg.ConnectivityInit.Snippet.ColBuildCode)
}

// ProceduralConnectivityRNGRequired reports whether on-the-fly connectivity
// generation draws random numbers.
func (sg *SynapseGroup) ProceduralConnectivityRNGRequired() bool {
	return sg.MatrixType.Has(ProceduralConnectivity) && sg.ConnectivityInitRNGRequired()
}

// WUVarInitRequired reports whether any per-synapse variable needs device
// initialisation.
func (sg *SynapseGroup) WUVarInitRequired() bool {
	return sg.MatrixType.IndividualWeights() && len(sg.WUVarInit) > 0
}
