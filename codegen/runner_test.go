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

package codegen

import (
	"strings"
	"testing"

	"github.com/spikegen/spikegen/model"
)

// stdpNetwork builds a delayed sparse projection with postsynaptic learning
// and synapse dynamics, exercising most runner paths.
func stdpNetwork(t *testing.T) *model.Network {
	t.Helper()
	lif := testLIF()
	pre := &model.NeuronGroup{Name: "Pre", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	post := &model.NeuronGroup{Name: "Post", NumNeurons: 50, Model: lif, Params: lifParams(20)}
	wum := &model.WeightUpdateModel{
		Name:                "STDP",
		ParamNames:          []string{"tauPlus"},
		Vars:                []model.Var{{Name: "g", Type: "scalar", Access: model.ReadWrite}},
		SimCode:             "$(addToInSyn, $(g));",
		LearnPostCode:       "$(g) += 0.01f;",
		SynapseDynamicsCode: "$(g) *= 0.999f;",
	}
	sg := &model.SynapseGroup{
		Name:                 "PreToPost",
		Src:                  pre,
		Trg:                  post,
		MatrixType:           model.SparseIndividual,
		DelaySteps:           4,
		MaxConnections:       32,
		MaxSourceConnections: 48,
		WUModel:              wum,
		WUParams:             model.ParamValues{"tauPlus": 20},
		WUVarInit:            map[string]model.VarInit{"g": {Constant: 0.1}},
		InSynLocation:        model.LocHostDevice(),
		WUVarLocation:        model.LocHostDevice(),
		SparseConnLocation:   model.LocHostDevice(),
	}
	net := &model.Network{
		Name:          "stdp",
		DT:            0.1,
		Precision:     model.Float,
		NeuronGroups:  []*model.NeuronGroup{pre, post},
		SynapseGroups: []*model.SynapseGroup{sg},
	}
	for _, ng := range net.NeuronGroups {
		ng.SpikeLocation = model.LocHostDevice()
		ng.VarLocation = model.LocHostDevice()
		ng.SpikeTimeLocation = model.LocHostDevice()
	}
	return net
}

func generateTestRunner(t *testing.T, net *model.Network) *RunnerOutput {
	t.Helper()
	m, err := NewMergedModel(net, testOptions())
	if err != nil {
		t.Fatalf("NewMergedModel failed: %v", err)
	}
	out, err := GenerateRunner(m, testRuntime{})
	if err != nil {
		t.Fatalf("GenerateRunner failed: %v", err)
	}
	return out
}

// stepTime's statement order carries the delay semantics: synapses consume
// last-step spikes before queue pointers advance and neurons fire.
func TestStepTimeOrdering(t *testing.T) {
	out := generateTestRunner(t, stdpNetwork(t))

	runner := out.Runner
	idxSynapses := strings.Index(runner, "updateSynapses(t);")
	idxQueue := strings.Index(runner, "spkQuePtrPre = (spkQuePtrPre + 1) % 5;")
	idxNeurons := strings.Index(runner, "updateNeurons(t);")
	idxIT := strings.Index(runner, "iT++;")
	idxT := strings.Index(runner, "t = iT*DT;")

	if idxSynapses == -1 || idxQueue == -1 || idxNeurons == -1 || idxIT == -1 || idxT == -1 {
		t.Fatalf("stepTime missing statements: synapses=%d queue=%d neurons=%d iT=%d t=%d",
			idxSynapses, idxQueue, idxNeurons, idxIT, idxT)
	}
	if !(idxSynapses < idxQueue && idxQueue < idxNeurons && idxNeurons < idxIT && idxIT < idxT) {
		t.Errorf("stepTime statement order wrong: synapses=%d queue=%d neurons=%d iT=%d t=%d",
			idxSynapses, idxQueue, idxNeurons, idxIT, idxT)
	}
}

// A delayed population gets a spike queue pointer advanced modulo its slot
// count.
func TestDelayedGroupQueuePointer(t *testing.T) {
	out := generateTestRunner(t, stdpNetwork(t))

	if !strings.Contains(out.Runner, "unsigned int spkQuePtrPre;") {
		t.Error("runner does not declare spkQuePtrPre")
	}
	// Undelayed group must not get one
	if strings.Contains(out.Runner, "spkQuePtrPost") {
		t.Error("undelayed group got a spike queue pointer")
	}
}

// Sparse groups with postsynaptic learning get the column-major remap
// structures sized numTrgNeurons x maxSourceConnections.
func TestLearnPostRemapArrays(t *testing.T) {
	out := generateTestRunner(t, stdpNetwork(t))

	if !strings.Contains(out.Runner, "deviceAlloc(&d_colLengthPreToPost, 50 * sizeof(unsigned int));") {
		t.Errorf("missing colLength allocation:\n%s", out.Runner)
	}
	// remap is numTrgNeurons * maxSourceConnections = 50 * 48
	if !strings.Contains(out.Runner, "deviceAlloc(&d_remapPreToPost, 2400 * sizeof(unsigned int));") {
		t.Error("missing or mis-sized remap allocation")
	}
	// synapse dynamics needs the dense-walk remap with its length prefix
	if !strings.Contains(out.Runner, "deviceAlloc(&d_synRemapPreToPost, 3201 * sizeof(unsigned int));") {
		t.Error("missing or mis-sized synRemap allocation")
	}
}

// Without learn-post or dynamics code a sparse group gets none of the remap
// structures.
func TestNoRemapWithoutLearnPost(t *testing.T) {
	net := stdpNetwork(t)
	net.SynapseGroups[0].WUModel.LearnPostCode = ""
	net.SynapseGroups[0].WUModel.SynapseDynamicsCode = ""
	out := generateTestRunner(t, net)

	for _, name := range []string{"colLengthPreToPost", "remapPreToPost", "synRemapPreToPost"} {
		if strings.Contains(out.Runner, name) {
			t.Errorf("runner emits %s without learn-post or dynamics code", name)
		}
	}
}

func TestDefinitionsPreamble(t *testing.T) {
	out := generateTestRunner(t, stdpNetwork(t))

	wants := []string{
		"#define DT 0.100000f",
		"typedef float scalar;",
		"#define SCALAR_MIN 1.1754944e-38f",
		"#define SCALAR_MAX 3.4028235e+38f",
		"#define B(x,i) ((x) & (0x80000000 >> (i)))",
		"#define setB(x,i) x= ((x) | (0x80000000 >> (i)))",
		"#define delB(x,i) x= ((x) & (~(0x80000000 >> (i))))",
		"EXPORT_FUNC void stepTime();",
		"EXPORT_FUNC void initialize();",
		"EXPORT_FUNC void initializeSparse();",
		"EXPORT_FUNC void copyStateToDevice(bool uninitialisedOnly = false);",
	}
	for _, want := range wants {
		if !strings.Contains(out.Definitions, want) {
			t.Errorf("definitions.h missing %q", want)
		}
	}
}

func TestSpikeMacros(t *testing.T) {
	out := generateTestRunner(t, stdpNetwork(t))

	// Delayed source population indexes through its queue pointer
	if !strings.Contains(out.Definitions, "#define spikeCount_Pre glbSpkCntPre[spkQuePtrPre]") {
		t.Error("missing delayed spike count macro")
	}
	if !strings.Contains(out.Definitions, "#define spike_Pre (glbSpkPre + (spkQuePtrPre * 100))") {
		t.Error("missing delayed spike macro")
	}
	// Undelayed target population uses slot zero
	if !strings.Contains(out.Definitions, "#define spikeCount_Post glbSpkCntPost[0]") {
		t.Error("missing undelayed spike count macro")
	}
}

// Scenario: one population with no threshold still declares spike push
// functions, with one count slot and one id slot per neuron.
func TestNoThresholdSpikeArrays(t *testing.T) {
	lif := testLIF()
	lif.ThresholdConditionCode = ""
	ng := &model.NeuronGroup{Name: "A", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	net := &model.Network{Name: "m", DT: 0.1, NeuronGroups: []*model.NeuronGroup{ng}}
	out := generateTestRunner(t, net)

	if !strings.Contains(out.Runner, "hostAlloc(&glbSpkCntA, 1 * sizeof(unsigned int));") {
		t.Error("spike count array not sized 1")
	}
	if !strings.Contains(out.Runner, "hostAlloc(&glbSpkA, 100 * sizeof(unsigned int));") {
		t.Error("spike array not sized to population")
	}
	if !strings.Contains(out.Definitions, "EXPORT_FUNC void pushASpikesToDevice(bool uninitialisedOnly = false);") {
		t.Error("spike push function not declared")
	}
}

func TestStatePushPullComposites(t *testing.T) {
	out := generateTestRunner(t, stdpNetwork(t))

	if !strings.Contains(out.Runner, "void pushPreStateToDevice(bool uninitialisedOnly)") {
		t.Error("missing pushPreStateToDevice")
	}
	if !strings.Contains(out.Runner, "pushVPreToDevice(uninitialisedOnly);") {
		t.Error("state composite does not push V")
	}
	if !strings.Contains(out.Runner, "void pullPreToPostConnectivityFromDevice()") {
		t.Error("missing connectivity pull")
	}
	if !strings.Contains(out.Runner, "pushPreToPostConnectivityToDevice(uninitialisedOnly);") {
		t.Error("copyConnectivityToDevice does not push sparse connectivity")
	}
}

func TestWritePreciseStringRoundTrip(t *testing.T) {
	// Shortest representation that still round-trips exactly
	if got := WritePreciseString(0.1, model.Double); got != "0.1" {
		t.Errorf("WritePreciseString(0.1) = %q", got)
	}
	if got := WritePreciseString(1.0/3.0, model.Double); got != "0.3333333333333333" {
		t.Errorf("WritePreciseString(1/3) = %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		prec model.Precision
		want string
	}{
		{1.5, model.Float, "1.5f"},
		{1.5, model.Double, "1.5"},
		{-65, model.Float, "-65.0f"},
		{2e10, model.Float, "2e+10f"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v, tt.prec); got != tt.want {
			t.Errorf("FormatValue(%v, %v) = %q, want %q", tt.v, tt.prec, got, tt.want)
		}
	}
}
