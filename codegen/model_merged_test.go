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

func testLIF() *model.NeuronModel {
	return &model.NeuronModel{
		Name:       "LIF",
		ParamNames: []string{"TauM", "Vrest", "Vreset", "Vthresh"},
		Vars:       []model.Var{{Name: "V", Type: "scalar", Access: model.ReadWrite}},
		SimCode:                "$(V) += ($(Isyn) - ($(V) - $(Vrest))) * (DT / $(TauM));",
		ThresholdConditionCode: "$(V) >= $(Vthresh)",
		ResetCode:              "$(V) = $(Vreset);",
	}
}

func testStaticPulse() *model.WeightUpdateModel {
	return &model.WeightUpdateModel{
		Name:    "StaticPulse",
		Vars:    []model.Var{{Name: "g", Type: "scalar", Access: model.ReadOnly}},
		SimCode: "$(addToInSyn, $(g));",
	}
}

func lifParams(tau float64) model.ParamValues {
	return model.ParamValues{"TauM": tau, "Vrest": -65, "Vreset": -70, "Vthresh": -50}
}

func testOptions() Options {
	return Options{VarPrefix: "d_", ScalarAddressPrefix: "&d_"}
}

func buildMerged(t *testing.T, net *model.Network) *MergedModel {
	t.Helper()
	m, err := NewMergedModel(net, testOptions())
	if err != nil {
		t.Fatalf("NewMergedModel failed: %v", err)
	}
	return m
}

// Two populations with the same model and different sizes share one merged
// group; their sizes resolve through the field table.
func TestNeuronGroupsMerge(t *testing.T) {
	lif := testLIF()
	a := &model.NeuronGroup{Name: "A", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	c := &model.NeuronGroup{Name: "C", NumNeurons: 250, Model: lif, Params: lifParams(20)}
	net := &model.Network{Name: "m", DT: 0.1, NeuronGroups: []*model.NeuronGroup{a, c}}

	m := buildMerged(t, net)
	if len(m.NeuronUpdateGroups) != 1 {
		t.Fatalf("got %d neuron update groups, want 1", len(m.NeuronUpdateGroups))
	}
	g := m.NeuronUpdateGroups[0]
	if g.Archetype() != a {
		t.Error("archetype is not the first member")
	}

	var numNeurons *Field
	for i, f := range g.Fields() {
		if f.Name == "numNeurons" {
			numNeurons = &g.Fields()[i]
		}
	}
	if numNeurons == nil {
		t.Fatal("no numNeurons field")
	}
	if got := numNeurons.Value(0); got != "100" {
		t.Errorf("numNeurons[0] = %q, want 100", got)
	}
	if got := numNeurons.Value(1); got != "250" {
		t.Errorf("numNeurons[1] = %q, want 250", got)
	}
}

// A parameter differing across members becomes a struct field; homogeneous
// parameters inline as literals.
func TestHeterogeneousParams(t *testing.T) {
	lif := testLIF()
	a := &model.NeuronGroup{Name: "A", NumNeurons: 10, Model: lif, Params: lifParams(20)}
	c := &model.NeuronGroup{Name: "C", NumNeurons: 10, Model: lif, Params: lifParams(10)}
	net := &model.Network{Name: "m", DT: 0.1, NeuronGroups: []*model.NeuronGroup{a, c}}

	m := buildMerged(t, net)
	if len(m.NeuronUpdateGroups) != 1 {
		t.Fatalf("got %d neuron update groups, want 1", len(m.NeuronUpdateGroups))
	}
	g := m.NeuronUpdateGroups[0]
	if !g.HasField("TauM") {
		t.Error("heterogeneous TauM did not become a field")
	}
	if g.HasField("Vrest") {
		t.Error("homogeneous Vrest became a field")
	}
	for _, f := range g.Fields() {
		if f.Name == "TauM" {
			if got := f.Value(1); got != "10.0f" {
				t.Errorf("TauM[1] = %q, want 10.0f", got)
			}
		}
	}
}

// Merged group members emit a single body, so the body generated for the
// group is identical no matter which member drives generation order.
func TestMergedBodyIdentical(t *testing.T) {
	gen := func(first, second float64) string {
		lif := testLIF()
		a := &model.NeuronGroup{Name: "A", NumNeurons: 100, Model: lif, Params: lifParams(first)}
		c := &model.NeuronGroup{Name: "C", NumNeurons: 250, Model: lif, Params: lifParams(second)}
		net := &model.Network{Name: "m", DT: 0.1, NeuronGroups: []*model.NeuronGroup{a, c}}
		m := buildMerged(t, net)

		cs := NewCodeStream()
		subs := NewSubstitutions(nil)
		subs.MustVar("id", "lid")
		subs.MustVar("t", "t")
		if err := m.NeuronUpdateGroups[0].GenSim(cs, subs,
			func(cs *CodeStream, subs *Substitutions) { cs.Line("emitSpike();") },
			func(cs *CodeStream, subs *Substitutions) { cs.Line("emitSpikeEvent();") }); err != nil {
			t.Fatalf("GenSim failed: %v", err)
		}
		return cs.String()
	}

	// Swapping which member carries which heterogeneous value must not
	// change the emitted body text
	if gen(20, 10) != gen(10, 20) {
		t.Error("merged body depends on member parameter values")
	}
}

// Three synapse groups differing only in delay configuration stay in three
// distinct merged update groups.
func TestDelayConfigurationSplitsGroups(t *testing.T) {
	lif := testLIF()
	pre := &model.NeuronGroup{Name: "Pre", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	post := &model.NeuronGroup{Name: "Post", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	wum := testStaticPulse()
	var sgs []*model.SynapseGroup
	for i, delay := range []int{0, 1, 2} {
		sgs = append(sgs, &model.SynapseGroup{
			Name:       "S" + string(rune('0'+i)),
			Src:        pre,
			Trg:        post,
			MatrixType: model.SparseIndividual,
			DelaySteps: delay,
			WUModel:    wum,
			WUVarInit:  map[string]model.VarInit{"g": {Constant: 0.1}},
		})
	}
	net := &model.Network{
		Name: "m", DT: 0.1,
		NeuronGroups:  []*model.NeuronGroup{pre, post},
		SynapseGroups: sgs,
	}

	m := buildMerged(t, net)
	if len(m.PresynapticUpdateGroups) != 3 {
		t.Fatalf("got %d presynaptic update groups, want 3 (delay is part of the fingerprint)", len(m.PresynapticUpdateGroups))
	}
}

// Identical synapse groups merge.
func TestIdenticalSynapseGroupsMerge(t *testing.T) {
	lif := testLIF()
	pre := &model.NeuronGroup{Name: "Pre", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	post := &model.NeuronGroup{Name: "Post", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	wum := testStaticPulse()
	var sgs []*model.SynapseGroup
	for _, name := range []string{"S0", "S1"} {
		sgs = append(sgs, &model.SynapseGroup{
			Name:       name,
			Src:        pre,
			Trg:        post,
			MatrixType: model.SparseIndividual,
			WUModel:    wum,
			WUVarInit:  map[string]model.VarInit{"g": {Constant: 0.1}},
		})
	}
	net := &model.Network{
		Name: "m", DT: 0.1,
		NeuronGroups:  []*model.NeuronGroup{pre, post},
		SynapseGroups: sgs,
	}

	m := buildMerged(t, net)
	if len(m.PresynapticUpdateGroups) != 1 {
		t.Fatalf("got %d presynaptic update groups, want 1", len(m.PresynapticUpdateGroups))
	}
	if got := len(m.PresynapticUpdateGroups[0].Groups); got != 2 {
		t.Errorf("merged group has %d members, want 2", got)
	}
}

func TestMergedStructEmission(t *testing.T) {
	lif := testLIF()
	a := &model.NeuronGroup{Name: "A", NumNeurons: 100, Model: lif, Params: lifParams(20)}
	c := &model.NeuronGroup{Name: "C", NumNeurons: 250, Model: lif, Params: lifParams(10)}
	net := &model.Network{Name: "m", DT: 0.1, NeuronGroups: []*model.NeuronGroup{a, c}}
	m := buildMerged(t, net)

	defs, defsFunc, decl, alloc := NewCodeStream(), NewCodeStream(), NewCodeStream(), NewCodeStream()
	m.GenMergedStructs(defs, defsFunc, decl, alloc)

	if !strings.Contains(defs.String(), "struct MergedNeuronUpdateGroup0") {
		t.Error("missing merged struct definition")
	}
	if !strings.Contains(defsFunc.String(), "pushMergedNeuronUpdateGroup0ToDevice") {
		t.Error("missing push trampoline declaration")
	}
	if !strings.Contains(decl.String(), "mergedNeuronUpdateGroup0[2]") {
		t.Error("missing host instance array")
	}
	allocStr := alloc.String()
	if !strings.Contains(allocStr, "mergedNeuronUpdateGroup0[0] = {") ||
		!strings.Contains(allocStr, "mergedNeuronUpdateGroup0[1] = {") {
		t.Error("missing member initialisation")
	}
	if !strings.Contains(allocStr, "d_VA") || !strings.Contains(allocStr, "d_VC") {
		t.Errorf("member field values not resolved:\n%s", allocStr)
	}
}

// Every structural flag must influence the update digest: flipping one must
// split otherwise identical groups.
func TestDigestSensitivity(t *testing.T) {
	base := func() *model.NeuronGroup {
		return &model.NeuronGroup{Name: "A", NumNeurons: 100, Model: testLIF(), Params: lifParams(20)}
	}

	tests := []struct {
		name   string
		mutate func(ng *model.NeuronGroup)
	}{
		{"Recording", func(ng *model.NeuronGroup) { ng.SpikeRecordingEnabled = true }},
		{"Model", func(ng *model.NeuronGroup) { ng.Model.SimCode += "\n$(V) *= 0.5f;" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := base(), base()
			tt.mutate(b)
			if digestNeuronUpdate(a) == digestNeuronUpdate(b) {
				t.Errorf("digest ignores %s", tt.name)
			}
		})
	}
}
