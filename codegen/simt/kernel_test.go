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

package simt

import (
	"strings"
	"testing"

	"github.com/spikegen/spikegen/codegen"
	"github.com/spikegen/spikegen/model"
)

func buildBackend() *Backend {
	return New(testRuntime{}, Preferences{})
}

func mergeNetwork(t *testing.T, b *Backend, net *model.Network) *codegen.MergedModel {
	t.Helper()
	m, err := codegen.NewMergedModel(net, b.MergedOptions())
	if err != nil {
		t.Fatalf("NewMergedModel failed: %v", err)
	}
	return m
}

// Two populations of 100 and 250 neurons share a merged group; the kernel
// is sized pad(100,32)+pad(250,32) = 384 and the member search table holds
// both start ids.
func TestNeuronUpdateKernelWidth(t *testing.T) {
	b := buildBackend()
	lif := &model.NeuronModel{
		Name:                   "LIF",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn);",
		ThresholdConditionCode: "$(V) >= 1.0f",
		ResetCode:              "$(V) = 0.0f;",
	}
	net := &model.Network{
		Name: "two", DT: 0.1,
		NeuronGroups: []*model.NeuronGroup{
			{Name: "A", NumNeurons: 100, Model: lif},
			{Name: "B", NumNeurons: 250, Model: lif},
		},
	}
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateNeuronUpdate(m)
	if err != nil {
		t.Fatalf("GenerateNeuronUpdate failed: %v", err)
	}
	if got := src.TotalThreads[KernelNames[KernelNeuronUpdate]]; got != 384 {
		t.Errorf("neuron update width = %d, want 384", got)
	}
	if !strings.Contains(src.Source, "if(id < 384)") {
		t.Error("missing merged group range test")
	}
	if !strings.Contains(src.Source, "d_mergedNeuronUpdateGroupStartID0[2] = {0, 128}") {
		t.Errorf("missing member start id table:\n%s", src.Source)
	}
}

// A population without a threshold condition emits no spike staging or
// compaction phase.
func TestNeuronUpdateKernelNoThreshold(t *testing.T) {
	b := buildBackend()
	passive := &model.NeuronModel{
		Name:    "Passive",
		Vars:    []model.Var{{Name: "V", Type: "scalar"}},
		SimCode: "$(V) += $(Isyn);",
	}
	net := &model.Network{
		Name: "passive", DT: 0.1,
		NeuronGroups: []*model.NeuronGroup{{Name: "A", NumNeurons: 100, Model: passive}},
	}
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateNeuronUpdate(m)
	if err != nil {
		t.Fatalf("GenerateNeuronUpdate failed: %v", err)
	}
	if strings.Contains(src.Source, "shSpk") {
		t.Error("kernel stages spikes for a thresholdless population")
	}
	if strings.Contains(src.Source, "shPosSpk") {
		t.Error("kernel compacts spikes for a thresholdless population")
	}
}

// The spiking path stages through shared memory atomics and copies out
// under the compacted base index.
func TestNeuronUpdateKernelSpikePath(t *testing.T) {
	b := buildBackend()
	lif := &model.NeuronModel{
		Name:                   "LIF",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn);",
		ThresholdConditionCode: "$(V) >= 1.0f",
		ResetCode:              "$(V) = 0.0f;",
	}
	net := &model.Network{
		Name: "one", DT: 0.1,
		NeuronGroups: []*model.NeuronGroup{{Name: "A", NumNeurons: 100, Model: lif}},
	}
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateNeuronUpdate(m)
	if err != nil {
		t.Fatalf("GenerateNeuronUpdate failed: %v", err)
	}
	wants := []string{
		"__shared__ unsigned int shSpk[32];",
		"const unsigned int spkIdx = atomicAdd(&shSpkCount, 1);",
		"shSpk[spkIdx] = lid;",
		"shPosSpk = atomicAdd(&group->spkCnt[0], shSpkCount);",
		"group->spk[shPosSpk + threadIdx.x] = n;",
		"// spike reset code",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("neuron update kernel missing %q", want)
		}
	}
}

// Spike recording writes one word per 32 lanes at the documented global
// offset.
func TestNeuronUpdateKernelRecording(t *testing.T) {
	b := buildBackend()
	lif := &model.NeuronModel{
		Name:                   "LIF",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn);",
		ThresholdConditionCode: "$(V) >= 1.0f",
	}
	net := &model.Network{
		Name: "rec", DT: 0.1,
		NeuronGroups: []*model.NeuronGroup{
			{Name: "A", NumNeurons: 100, Model: lif, SpikeRecordingEnabled: true},
		},
	}
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateNeuronUpdate(m)
	if err != nil {
		t.Fatalf("GenerateNeuronUpdate failed: %v", err)
	}
	wants := []string{
		"__shared__ uint32_t shSpkRecord;",
		"atomicOr(&shSpkRecord, 1 << threadIdx.x);",
		"const unsigned int numRecordingWords = (group->numNeurons + 31) / 32;",
		"group->recordSpk[(recordingTimestep * numRecordingWords * 1) + (lid / 32) + threadIdx.x] = shSpkRecord;",
		"unsigned int recordingTimestep",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("recording kernel missing %q", want)
		}
	}
}

func delayedSparseNetwork(t *testing.T, learnPost, dynamics bool) *model.Network {
	t.Helper()
	lif := &model.NeuronModel{
		Name:                   "LIF",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn);",
		ThresholdConditionCode: "$(V) >= 1.0f",
		ResetCode:              "$(V) = 0.0f;",
	}
	pre := &model.NeuronGroup{Name: "Pre", NumNeurons: 100, Model: lif}
	post := &model.NeuronGroup{Name: "Post", NumNeurons: 50, Model: lif}
	wum := &model.WeightUpdateModel{
		Name:    "STDP",
		Vars:    []model.Var{{Name: "g", Type: "scalar", Access: model.ReadWrite}},
		SimCode: "$(addToInSyn, $(g));",
	}
	if learnPost {
		wum.LearnPostCode = "$(g) += 0.01f;"
	}
	if dynamics {
		wum.SynapseDynamicsCode = "$(g) *= 0.999f;"
	}
	sg := &model.SynapseGroup{
		Name:                 "S",
		Src:                  pre,
		Trg:                  post,
		MatrixType:           model.SparseIndividual,
		DelaySteps:           4,
		MaxConnections:       32,
		MaxSourceConnections: 48,
		WUModel:              wum,
		WUVarInit:            map[string]model.VarInit{"g": {Constant: 0.1}},
		ConnectivityInit: model.ConnectivityInit{
			Snippet: &model.ConnectivitySnippet{
				Name:         "oneToOne",
				RowBuildCode: "$(addSynapse, $(id_pre));\n$(endRow);",
			},
		},
	}
	return &model.Network{
		Name: "net", DT: 0.1,
		NeuronGroups:  []*model.NeuronGroup{pre, post},
		SynapseGroups: []*model.SynapseGroup{sg},
	}
}

// The pre neuron reset kernel advances delayed groups' queue pointers and
// zeroes this slot's spike count.
func TestPreNeuronResetKernel(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, false, false)
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateNeuronUpdate(m)
	if err != nil {
		t.Fatalf("GenerateNeuronUpdate failed: %v", err)
	}
	if !strings.Contains(src.Source, "*group->spkQuePtr = (*group->spkQuePtr + 1) % 5;") {
		t.Error("queue pointer not advanced modulo numDelaySlots")
	}
	if !strings.Contains(src.Source, "group->spkCnt[*group->spkQuePtr] = 0;") {
		t.Error("spike count of the write slot not reset")
	}
}

// Postsynaptic learning walks the column-major remap from target-side
// spikes.
func TestPostsynapticUpdateKernel(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, true, false)
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateSynapseUpdate(m)
	if err != nil {
		t.Fatalf("GenerateSynapseUpdate failed: %v", err)
	}
	wants := []string{
		"__shared__ unsigned int shColLength[32];",
		"shColLength[threadIdx.x] = group->colLength[spk];",
		"const unsigned int synAddress = group->remap[(shSpk[j] * group->colStride) + lid];",
		"const unsigned int ipre = synAddress / group->rowStride;",
		"// loop through all incoming spikes for learning",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("postsynaptic kernel missing %q", want)
		}
	}
}

// Synapse dynamics walks live synapses through synRemap with the count in
// its first slot.
func TestSynapseDynamicsKernel(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, false, true)
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateSynapseUpdate(m)
	if err != nil {
		t.Fatalf("GenerateSynapseUpdate failed: %v", err)
	}
	wants := []string{
		"if (lid < group->synRemap[0])",
		"const unsigned int s = group->synRemap[1 + lid];",
		"(s / group->rowStride)",
		"group->ind[s]",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("synapse dynamics kernel missing %q", want)
		}
	}
}

// The presynaptic update tiles source spikes through shared memory and
// accumulates with global atomics.
func TestPresynapticUpdateKernelPostSpan(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, false, false)
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateSynapseUpdate(m)
	if err != nil {
		t.Fatalf("GenerateSynapseUpdate failed: %v", err)
	}
	wants := []string{
		"__shared__ unsigned int shRowLength[32];",
		"__shared__ unsigned int shSpk[32];",
		"shRowLength[threadIdx.x] = group->rowLength[spk];",
		"atomicAdd(&group->inSyn[ipost], group->g[synAddress]);",
		"const unsigned int preReadDelaySlot = (*group->srcSpkQuePtr + 1) % 5;",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("presynaptic kernel missing %q", want)
		}
	}
}

// initializeSparse builds the remap structures: prefix sums for the
// dynamics walk, atomic column claims for learning.
func TestInitializeSparseKernel(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, true, true)
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateInit(m)
	if err != nil {
		t.Fatalf("GenerateInit failed: %v", err)
	}
	wants := []string{
		"__shared__ unsigned int shRowLength[32];",
		"__shared__ unsigned int shRowStart[33];",
		"group->synRemap[0] = shRowStart[numRowsInBlock];",
		"const unsigned int colLocation = atomicAdd(&group->colLength[postIndex], 1);",
		"const unsigned int colMajorIndex = (postIndex * group->colStride) + colLocation;",
		"group->remap[colMajorIndex] = idx;",
		"idx += group->rowStride;",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("initializeSparse kernel missing %q", want)
		}
	}
}

// Row building connectivity wraps addSynapse in the do-while(false) form
// and increments row lengths without atomics.
func TestConnectivityInitRowBuild(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, false, false)
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateInit(m)
	if err != nil {
		t.Fatalf("GenerateInit failed: %v", err)
	}
	wants := []string{
		"group->rowLength[lid] = 0;",
		"do\n",
		"} while(false);",
		"group->ind[idx] = lid;",
		"group->rowLength[lid]++;",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("connectivity init missing %q", want)
		}
	}
}

// Custom updates pull read-write state into locals, leave reductions
// undeclared-with-no-initialiser and write results back.
func TestCustomUpdateKernel(t *testing.T) {
	b := buildBackend()
	lif := &model.NeuronModel{
		Name:    "LIF",
		Vars:    []model.Var{{Name: "V", Type: "scalar"}},
		SimCode: "$(V) += $(Isyn);",
	}
	ng := &model.NeuronGroup{Name: "A", NumNeurons: 64, Model: lif}
	cum := &model.CustomUpdateModel{
		Name: "reduceMax",
		Vars: []model.Var{{Name: "MaxV", Type: "scalar", Access: model.ReduceMax}},
		VarRefNames: []model.VarRefDecl{
			{Name: "V", Type: "scalar", Access: model.ReadWrite},
		},
		UpdateCode: "$(MaxV) = fmax($(MaxV), $(V));\n$(V) = 0.0f;",
	}
	net := &model.Network{
		Name: "cu", DT: 0.1,
		NeuronGroups: []*model.NeuronGroup{ng},
		CustomUpdates: []*model.CustomUpdate{{
			Name:            "Reduce",
			UpdateGroupName: "Softmax",
			Model:           cum,
			VarRefs:         map[string]model.VarRef{"V": {Group: ng, Var: "V"}},
		}},
	}
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateCustomUpdate(m)
	if err != nil {
		t.Fatalf("GenerateCustomUpdate failed: %v", err)
	}
	wants := []string{
		// A reduction comes in uninitialised so missed assignments warn
		"scalar lMaxV;",
		"scalar lV = group->V[lid];",
		"group->MaxV[lid] = lMaxV;",
		"group->V[lid] = lV;",
		"extern \"C\" void updateSoftmax()",
	}
	for _, want := range wants {
		if !strings.Contains(src.Source, want) {
			t.Errorf("custom update kernel missing %q", want)
		}
	}
	if strings.Contains(src.Source, "scalar lMaxV = ") {
		t.Error("reduction variable must not be initialised from memory")
	}
}

// Every thread of the launch width lands in exactly one range test.
func TestRangeCoverage(t *testing.T) {
	b := buildBackend()
	lifA := &model.NeuronModel{
		Name:                   "LIF",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn);",
		ThresholdConditionCode: "$(V) >= 1.0f",
	}
	// A structurally different second model forces a second merged group
	lifB := &model.NeuronModel{
		Name:                   "LIF2",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}, {Name: "U", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn) + $(U);",
		ThresholdConditionCode: "$(V) >= 1.0f",
	}
	net := &model.Network{
		Name: "cover", DT: 0.1,
		NeuronGroups: []*model.NeuronGroup{
			{Name: "A", NumNeurons: 100, Model: lifA},
			{Name: "B", NumNeurons: 40, Model: lifB},
		},
	}
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateNeuronUpdate(m)
	if err != nil {
		t.Fatalf("GenerateNeuronUpdate failed: %v", err)
	}
	total := src.TotalThreads[KernelNames[KernelNeuronUpdate]]
	if total != 128+64 {
		t.Fatalf("total = %d, want 192", total)
	}
	if !strings.Contains(src.Source, "if(id < 128)") {
		t.Error("first group range test missing")
	}
	if !strings.Contains(src.Source, "if(id >= 128 && id < 192)") {
		t.Error("second group range test missing")
	}
}

// The dendritic delay reset kernel advances one pointer per member.
func TestPreSynapseResetKernel(t *testing.T) {
	b := buildBackend()
	net := delayedSparseNetwork(t, false, false)
	net.SynapseGroups[0].WUModel.SimCode = "$(addToInSynDelay, $(g), 3);"
	net.SynapseGroups[0].MaxDendriticDelayTimesteps = 8
	m := mergeNetwork(t, b, net)

	src, err := b.GenerateSynapseUpdate(m)
	if err != nil {
		t.Fatalf("GenerateSynapseUpdate failed: %v", err)
	}
	if !strings.Contains(src.Source, "*group->denDelayPtr = (*group->denDelayPtr + 1) % 8;") {
		t.Error("dendritic delay pointer not advanced")
	}
	if !strings.Contains(src.Source, "atomicAdd(&group->denDelay[") {
		t.Error("dendritic delay contribution not atomic")
	}
}
