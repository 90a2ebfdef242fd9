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

	"github.com/spikegen/spikegen/model"
)

func TestPadSize(t *testing.T) {
	tests := []struct {
		n, blockSize, want int
	}{
		{0, 32, 0},
		{1, 32, 32},
		{32, 32, 32},
		{33, 32, 64},
		{100, 32, 128},
		{250, 32, 256},
		{100, 64, 128},
	}
	for _, tt := range tests {
		if got := PadSize(tt.n, tt.blockSize); got != tt.want {
			t.Errorf("PadSize(%d, %d) = %d, want %d", tt.n, tt.blockSize, got, tt.want)
		}
	}
}

func TestPadMembers(t *testing.T) {
	mt := padMembers([]int{100, 250}, 32)
	if mt.padded != 384 {
		t.Errorf("padded = %d, want 384", mt.padded)
	}
	if mt.starts[0] != 0 || mt.starts[1] != 128 {
		t.Errorf("starts = %v, want [0 128]", mt.starts)
	}
}

func simpleNeurons(n int) (*model.NeuronGroup, *model.NeuronGroup) {
	lif := &model.NeuronModel{
		Name:                   "LIF",
		Vars:                   []model.Var{{Name: "V", Type: "scalar"}},
		SimCode:                "$(V) += $(Isyn);",
		ThresholdConditionCode: "$(V) >= 1.0f",
		ResetCode:              "$(V) = 0.0f;",
	}
	pre := &model.NeuronGroup{Name: "Pre", NumNeurons: n, Model: lif}
	post := &model.NeuronGroup{Name: "Post", NumNeurons: n, Model: lif}
	return pre, post
}

func staticSynapse(pre, post *model.NeuronGroup, mt model.SynapseMatrixType) *model.SynapseGroup {
	return &model.SynapseGroup{
		Name:       "Syn",
		Src:        pre,
		Trg:        post,
		MatrixType: mt,
		WUModel: &model.WeightUpdateModel{
			Name:    "StaticPulse",
			Vars:    []model.Var{{Name: "g", Type: "scalar", Access: model.ReadOnly}},
			SimCode: "$(addToInSyn, $(g));",
		},
		WUVarInit: map[string]model.VarInit{"g": {Constant: 0.5}},
	}
}

func TestStrategySelection(t *testing.T) {
	b := New(testRuntime{}, Preferences{})
	pre, post := simpleNeurons(100)

	tests := []struct {
		name   string
		mutate func(sg *model.SynapseGroup)
		want   string
	}{
		{"DenseDefault", func(sg *model.SynapseGroup) { sg.MatrixType = model.DenseIndividual }, "postSpan"},
		{"SparseDefault", func(sg *model.SynapseGroup) { sg.MatrixType = model.SparseIndividual }, "postSpan"},
		{"SparsePreSpan", func(sg *model.SynapseGroup) {
			sg.MatrixType = model.SparseIndividual
			sg.SpanType = model.PresynapticSpan
		}, "preSpan"},
		{"Procedural", func(sg *model.SynapseGroup) {
			sg.MatrixType = model.ProceduralGlobal
			sg.SpanType = model.PresynapticSpan
		}, "preSpanProcedural"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sg := staticSynapse(pre, post, model.DenseIndividual)
			tt.mutate(sg)
			s, err := b.PresynapticUpdateStrategyFor(sg)
			if err != nil {
				t.Fatalf("no strategy: %v", err)
			}
			got := strategyName(s)
			if got != tt.want {
				t.Errorf("strategy = %s, want %s", got, tt.want)
			}
		})
	}
}

func strategyName(s PresynapticUpdateStrategy) string {
	switch s.(type) {
	case preSpan:
		return "preSpan"
	case postSpan:
		return "postSpan"
	case preSpanProcedural:
		return "preSpanProcedural"
	case postSpanBitmask:
		return "postSpanBitmask"
	default:
		return "custom"
	}
}

// The bitmask strategy needs the preference enabled; otherwise the generic
// post span serves bitmask groups.
func TestBitmaskStrategyPreference(t *testing.T) {
	pre, post := simpleNeurons(100)
	sg := staticSynapse(pre, post, model.BitmaskGlobal)

	plain := New(testRuntime{}, Preferences{})
	s, err := plain.PresynapticUpdateStrategyFor(sg)
	if err != nil {
		t.Fatalf("no strategy: %v", err)
	}
	if strategyName(s) != "postSpan" {
		t.Errorf("strategy without preference = %s, want postSpan", strategyName(s))
	}

	opt := New(testRuntime{}, Preferences{EnableBitmaskOptimisations: true})
	s, err = opt.PresynapticUpdateStrategyFor(sg)
	if err != nil {
		t.Fatalf("no strategy: %v", err)
	}
	if strategyName(s) != "postSpanBitmask" {
		t.Errorf("strategy with preference = %s, want postSpanBitmask", strategyName(s))
	}
}

// overrideStrategy is compatible with everything; registered last it must
// win over every built-in.
type overrideStrategy struct{ postSpan }

func (overrideStrategy) IsCompatible(*model.SynapseGroup, Preferences) bool { return true }

func TestUserStrategyWins(t *testing.T) {
	b := New(testRuntime{}, Preferences{})
	b.AddPresynapticUpdateStrategy(overrideStrategy{})

	pre, post := simpleNeurons(10)
	sg := staticSynapse(pre, post, model.DenseIndividual)
	s, err := b.PresynapticUpdateStrategyFor(sg)
	if err != nil {
		t.Fatalf("no strategy: %v", err)
	}
	if _, ok := s.(overrideStrategy); !ok {
		t.Errorf("selected %T, want overrideStrategy", s)
	}
}

func TestNoCompatibleStrategyError(t *testing.T) {
	b := New(testRuntime{}, Preferences{})
	pre, post := simpleNeurons(10)
	// A procedural matrix with postsynaptic span matches no built-in
	sg := staticSynapse(pre, post, model.ProceduralGlobal)
	sg.Name = "Broken"

	_, err := b.PresynapticUpdateStrategyFor(sg)
	if err == nil {
		t.Fatal("expected error for incompatible group")
	}
	if !strings.Contains(err.Error(), "Broken") {
		t.Errorf("error %q does not name the synapse group", err)
	}
}

// Scenario: SPARSE group with no learn-post code still uses the column
// extent for postsynaptic thread counts.
func TestThreadCounts(t *testing.T) {
	pre, post := simpleNeurons(100)
	sg := staticSynapse(pre, post, model.SparseIndividual)
	sg.MaxConnections = 32
	sg.MaxSourceConnections = 48

	if got := NumPostsynapticUpdateThreads(sg); got != 48 {
		t.Errorf("NumPostsynapticUpdateThreads = %d, want maxSourceConnections 48", got)
	}
	// Conservative upper bound: the live count is unknown before
	// initializeSparse runs
	if got := NumSynapseDynamicsThreads(sg); got != 100*32 {
		t.Errorf("NumSynapseDynamicsThreads = %d, want %d", got, 100*32)
	}

	dense := staticSynapse(pre, post, model.DenseIndividual)
	if got := NumPostsynapticUpdateThreads(dense); got != 100 {
		t.Errorf("dense NumPostsynapticUpdateThreads = %d, want 100", got)
	}
	if got := NumSynapseDynamicsThreads(dense); got != 100*100 {
		t.Errorf("dense NumSynapseDynamicsThreads = %d, want %d", got, 100*100)
	}
}

func TestNumConnectivityInitThreads(t *testing.T) {
	pre, post := simpleNeurons(100)
	sg := staticSynapse(pre, post, model.SparseIndividual)

	if _, err := NumConnectivityInitThreads(sg); err == nil {
		t.Error("expected error without connectivity building code")
	}

	sg.ConnectivityInit = model.ConnectivityInit{
		Snippet: &model.ConnectivitySnippet{Name: "fixedProb", RowBuildCode: "$(endRow);"},
	}
	n, err := NumConnectivityInitThreads(sg)
	if err != nil {
		t.Fatalf("NumConnectivityInitThreads: %v", err)
	}
	if n != 100 {
		t.Errorf("row build threads = %d, want numSrcNeurons", n)
	}
}
