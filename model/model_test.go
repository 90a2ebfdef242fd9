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

import "testing"

// lifModel returns a leaky integrate and fire model for tests.
func lifModel() *NeuronModel {
	return &NeuronModel{
		Name:       "LIF",
		ParamNames: []string{"C", "TauM", "Vrest", "Vreset", "Vthresh"},
		Vars: []Var{
			{Name: "V", Type: "scalar", Access: ReadWrite},
			{Name: "RefracTime", Type: "scalar", Access: ReadWrite},
		},
		SimCode:                "$(V) += ($(Isyn) - ($(V) - $(Vrest))) * (DT / $(TauM));",
		ThresholdConditionCode: "$(V) >= $(Vthresh)",
		ResetCode:              "$(V) = $(Vreset);",
	}
}

func stdpModel() *WeightUpdateModel {
	return &WeightUpdateModel{
		Name:       "STDP",
		ParamNames: []string{"tauPlus", "tauMinus"},
		Vars:       []Var{{Name: "g", Type: "scalar", Access: ReadWrite}},
		SimCode:    "$(addToInSyn, $(g));\nscalar dt = $(t) - $(sT_post);",
		LearnPostCode: "scalar dt = $(t) - $(sT_pre);",
	}
}

func twoGroupNetwork(t *testing.T) (*Network, *NeuronGroup, *NeuronGroup, *SynapseGroup) {
	t.Helper()
	pre := &NeuronGroup{Name: "Pre", NumNeurons: 100, Model: lifModel()}
	post := &NeuronGroup{Name: "Post", NumNeurons: 250, Model: lifModel()}
	sg := &SynapseGroup{
		Name:       "PreToPost",
		Src:        pre,
		Trg:        post,
		MatrixType: SparseIndividual,
		DelaySteps: 4,
		WUModel:    stdpModel(),
	}
	net := &Network{
		Name:          "test",
		DT:            0.1,
		Precision:     Float,
		NeuronGroups:  []*NeuronGroup{pre, post},
		SynapseGroups: []*SynapseGroup{sg},
	}
	if err := net.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	return net, pre, post, sg
}

func TestFinalizeWiring(t *testing.T) {
	_, pre, post, sg := twoGroupNetwork(t)

	if len(pre.OutSyn) != 1 || pre.OutSyn[0] != sg {
		t.Errorf("pre.OutSyn = %v, want [PreToPost]", pre.OutSyn)
	}
	if len(post.InSyn) != 1 || post.InSyn[0] != sg {
		t.Errorf("post.InSyn = %v, want [PreToPost]", post.InSyn)
	}
}

func TestDelaySlots(t *testing.T) {
	_, pre, post, _ := twoGroupNetwork(t)

	if !pre.DelayRequired() {
		t.Error("pre.DelayRequired() = false, want true")
	}
	if got := pre.NumDelaySlots(); got != 5 {
		t.Errorf("pre.NumDelaySlots() = %d, want 5", got)
	}
	if post.DelayRequired() {
		t.Error("post.DelayRequired() = true, want false")
	}
}

func TestSpikeTimeFlags(t *testing.T) {
	_, pre, post, _ := twoGroupNetwork(t)

	// STDP sim code reads sT_post, learn post code reads sT_pre
	if !post.SpikeTimeRequired() {
		t.Error("post.SpikeTimeRequired() = false, want true")
	}
	if !pre.SpikeTimeRequired() {
		t.Error("pre.SpikeTimeRequired() = false, want true")
	}
	if pre.PrevSpikeTimeRequired() {
		t.Error("pre.PrevSpikeTimeRequired() = true, want false")
	}
	if !pre.TrueSpikeRequired() {
		t.Error("pre.TrueSpikeRequired() = false, want true")
	}
	if pre.SpikeEventRequired() {
		t.Error("pre.SpikeEventRequired() = true, want false")
	}
}

func TestDendriticDelayRequired(t *testing.T) {
	wum := &WeightUpdateModel{
		Name:    "delayed",
		SimCode: "$(addToInSynDelay, $(g), $(d));",
		Vars: []Var{
			{Name: "g", Type: "scalar"},
			{Name: "d", Type: "uint8_t", Access: ReadOnly},
		},
	}
	sg := &SynapseGroup{WUModel: wum}
	if !sg.DendriticDelayRequired() {
		t.Error("DendriticDelayRequired() = false, want true")
	}
}

func TestRowStride(t *testing.T) {
	_, _, post, sg := twoGroupNetwork(t)

	// MaxConnections defaulted to the dense row width
	if got := sg.RowStride(); got != post.NumNeurons {
		t.Errorf("RowStride() = %d, want %d", got, post.NumNeurons)
	}

	sg.MaxConnections = 32
	if got := sg.RowStride(); got != 32 {
		t.Errorf("RowStride() = %d, want 32", got)
	}
}

func TestRNGDetection(t *testing.T) {
	m := &NeuronModel{SimCode: "$(V) += $(gennrand_normal) * 0.1f;"}
	if !m.IsRNGRequired() {
		t.Error("IsRNGRequired() = false, want true")
	}
	if lifModel().IsRNGRequired() {
		t.Error("LIF IsRNGRequired() = true, want false")
	}
}

func TestMatrixTypeBits(t *testing.T) {
	tests := []struct {
		mt         SynapseMatrixType
		sparse     bool
		individual bool
	}{
		{SparseIndividual, true, true},
		{DenseIndividual, false, true},
		{DenseGlobal, false, false},
		{BitmaskGlobal, false, false},
		{SparseGlobal, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.mt.String(), func(t *testing.T) {
			if got := tt.mt.Has(SparseConnectivity); got != tt.sparse {
				t.Errorf("Has(Sparse) = %v, want %v", got, tt.sparse)
			}
			if got := tt.mt.IndividualWeights(); got != tt.individual {
				t.Errorf("IndividualWeights() = %v, want %v", got, tt.individual)
			}
		})
	}
}

func TestVarLocation(t *testing.T) {
	loc := LocHostDevice()
	if !loc.OnHost() || !loc.OnDevice() || loc.ZeroCopy() {
		t.Errorf("LocHostDevice() bits wrong: host=%v device=%v zeroCopy=%v",
			loc.OnHost(), loc.OnDevice(), loc.ZeroCopy())
	}
	dev := LocDeviceOnly()
	if dev.OnHost() || !dev.OnDevice() {
		t.Errorf("LocDeviceOnly() bits wrong: host=%v device=%v", dev.OnHost(), dev.OnDevice())
	}
}
