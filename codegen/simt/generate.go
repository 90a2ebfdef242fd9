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
	"fmt"

	"github.com/spikegen/spikegen/codegen"
)

// KernelSource is one generated device source file plus the launch widths
// of the kernels it contains.
type KernelSource struct {
	Name   string
	Source string

	// TotalThreads maps each contained kernel to its launch width.
	TotalThreads map[string]int
}

// newKernelSubs builds the root substitution environment every kernel body
// extends: the flat thread id and simulation time.
func newKernelSubs() *codegen.Substitutions {
	subs := codegen.NewSubstitutions(nil)
	subs.MustVar("id", "id")
	subs.MustVar("t", "t")
	subs.MustVar("dt", "DT")
	return subs
}

// declareMergedArrays emits the device instance array declarations for the
// purposes a kernel file touches.
func (b *Backend) declareMergedArrays(cs *codegen.CodeStream, m *codegen.MergedModel, purposes map[string]bool) {
	m.EachMergedStruct(func(ms codegen.MergedStruct) {
		if purposes[ms.Purpose] {
			b.rt.GenMergedStructArrayDecl(cs, ms.StructName(), ms.DeviceArrayName(), ms.NumMembers)
		}
	})
	cs.Blank()
}

// GenerateNeuronUpdate emits neuronUpdate.cc: the pre-reset and neuron
// update kernels plus the updateNeurons entry point.
func (b *Backend) GenerateNeuronUpdate(m *codegen.MergedModel) (*KernelSource, error) {
	rt := b.rt
	net := m.Network
	cs := codegen.NewCodeStream()
	totals := map[string]int{}

	rt.GenKernelFilePreamble(cs, net)
	b.declareMergedArrays(cs, m, map[string]bool{"NeuronSpikeQueueUpdate": true, "NeuronUpdate": true})

	recording := false
	for _, ng := range net.NeuronGroups {
		if ng.SpikeRecordingEnabled || ng.SpikeEventRecordingEnabled {
			recording = true
		}
	}
	timeType := net.TimeType().Name()

	// Pre neuron reset kernel
	{
		body := codegen.NewCodeStream()
		decls := codegen.NewCodeStream()
		subs := newKernelSubs()
		total, err := b.GenPreNeuronResetKernel(body, decls, subs, m)
		if err != nil {
			return nil, err
		}
		totals[KernelNames[KernelPreNeuronReset]] = total
		if total > 0 {
			cs.Code(decls.String())
			rt.GenKernelDecl(cs, KernelNames[KernelPreNeuronReset], fmt.Sprintf("%s t", timeType))
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(KernelPreNeuronReset)))
				cs.Code(body.String())
			})
			cs.Blank()
		}
	}

	// Neuron update kernel
	{
		body := codegen.NewCodeStream()
		decls := codegen.NewCodeStream()
		subs := newKernelSubs()
		total, err := b.GenNeuronUpdateKernel(body, decls, subs, m)
		if err != nil {
			return nil, err
		}
		totals[KernelNames[KernelNeuronUpdate]] = total
		if total > 0 {
			params := fmt.Sprintf("%s t", timeType)
			if recording {
				params += ", unsigned int recordingTimestep"
			}
			cs.Code(decls.String())
			rt.GenKernelDecl(cs, KernelNames[KernelNeuronUpdate], params)
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(KernelNeuronUpdate)))
				cs.Code(body.String())
			})
			cs.Blank()
		}
	}

	// Entry point
	params := fmt.Sprintf("%s t", timeType)
	args := "t"
	if recording {
		params += ", unsigned int recordingTimestep"
	}
	cs.Line("extern \"C\" void updateNeurons(%s)", params)
	cs.Scope(func() {
		if totals[KernelNames[KernelPreNeuronReset]] > 0 {
			rt.GenKernelLaunch(cs, KernelNames[KernelPreNeuronReset], totals[KernelNames[KernelPreNeuronReset]],
				b.KernelBlockSize(KernelPreNeuronReset), 1, "t")
		}
		if totals[KernelNames[KernelNeuronUpdate]] > 0 {
			launchArgs := args
			if recording {
				launchArgs += ", recordingTimestep"
			}
			rt.GenKernelLaunch(cs, KernelNames[KernelNeuronUpdate], totals[KernelNames[KernelNeuronUpdate]],
				b.KernelBlockSize(KernelNeuronUpdate), net.BatchSize, launchArgs)
		}
	})

	return &KernelSource{Name: "neuronUpdate.cc", Source: cs.String(), TotalThreads: totals}, nil
}

// GenerateSynapseUpdate emits synapseUpdate.cc: dendritic delay reset,
// synapse dynamics, presynaptic and postsynaptic update kernels plus the
// updateSynapses entry point.
func (b *Backend) GenerateSynapseUpdate(m *codegen.MergedModel) (*KernelSource, error) {
	rt := b.rt
	net := m.Network
	cs := codegen.NewCodeStream()
	totals := map[string]int{}
	timeType := net.TimeType().Name()

	rt.GenKernelFilePreamble(cs, net)
	b.declareMergedArrays(cs, m, map[string]bool{
		"SynapseDendriticDelayUpdate": true,
		"PresynapticUpdate":           true,
		"PostsynapticUpdate":          true,
		"SynapseDynamics":             true,
	})

	type kernelGen struct {
		kernel Kernel
		gen    func(body, decls *codegen.CodeStream, subs *codegen.Substitutions) (int, error)
	}
	kernels := []kernelGen{
		{KernelPreSynapseReset, func(body, decls *codegen.CodeStream, subs *codegen.Substitutions) (int, error) {
			return b.GenPreSynapseResetKernel(body, decls, m)
		}},
		{KernelSynapseDynamicsUpdate, func(body, decls *codegen.CodeStream, subs *codegen.Substitutions) (int, error) {
			return b.GenSynapseDynamicsKernel(body, decls, subs, m)
		}},
		{KernelPresynapticUpdate, func(body, decls *codegen.CodeStream, subs *codegen.Substitutions) (int, error) {
			return b.GenPresynapticUpdateKernel(body, decls, subs, m)
		}},
		{KernelPostsynapticUpdate, func(body, decls *codegen.CodeStream, subs *codegen.Substitutions) (int, error) {
			return b.GenPostsynapticUpdateKernel(body, decls, subs, m)
		}},
	}

	for _, k := range kernels {
		body := codegen.NewCodeStream()
		decls := codegen.NewCodeStream()
		subs := newKernelSubs()
		total, err := k.gen(body, decls, subs)
		if err != nil {
			return nil, err
		}
		totals[KernelNames[k.kernel]] = total
		if total > 0 {
			cs.Code(decls.String())
			rt.GenKernelDecl(cs, KernelNames[k.kernel], fmt.Sprintf("%s t", timeType))
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(k.kernel)))
				cs.Code(body.String())
			})
			cs.Blank()
		}
	}

	// Entry point: dendritic delay pointers advance before dynamics and
	// spike delivery consume them
	cs.Line("extern \"C\" void updateSynapses(%s t)", timeType)
	cs.Scope(func() {
		order := []Kernel{KernelPreSynapseReset, KernelSynapseDynamicsUpdate, KernelPresynapticUpdate, KernelPostsynapticUpdate}
		for _, k := range order {
			if totals[KernelNames[k]] > 0 {
				rt.GenKernelLaunch(cs, KernelNames[k], totals[KernelNames[k]], b.KernelBlockSize(k), net.BatchSize, "t")
			}
		}
	})

	return &KernelSource{Name: "synapseUpdate.cc", Source: cs.String(), TotalThreads: totals}, nil
}

// GenerateInit emits init.cc: the fused initialize kernel, the sparse
// phase and the initialize / initializeSparse entry points.
func (b *Backend) GenerateInit(m *codegen.MergedModel) (*KernelSource, error) {
	rt := b.rt
	net := m.Network
	cs := codegen.NewCodeStream()
	totals := map[string]int{}

	rt.GenKernelFilePreamble(cs, net)
	b.declareMergedArrays(cs, m, map[string]bool{
		"NeuronInit":              true,
		"SynapseDenseInit":        true,
		"SynapseConnectivityInit": true,
		"SynapseSparseInit":       true,
	})

	numInitThreads := 0
	{
		body := codegen.NewCodeStream()
		decls := codegen.NewCodeStream()
		subs := newKernelSubs()
		total, err := b.GenInitializeKernel(body, decls, subs, m)
		if err != nil {
			return nil, err
		}
		totals[KernelNames[KernelInitialize]] = total
		numInitThreads = total
		if total > 0 {
			cs.Code(decls.String())
			rt.GenKernelDecl(cs, KernelNames[KernelInitialize], "unsigned long long deviceRNGSeed")
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(KernelInitialize)))
				cs.Code(body.String())
			})
			cs.Blank()
		}
	}
	{
		body := codegen.NewCodeStream()
		decls := codegen.NewCodeStream()
		subs := newKernelSubs()
		total, err := b.GenInitializeSparseKernel(body, decls, subs, m, numInitThreads)
		if err != nil {
			return nil, err
		}
		totals[KernelNames[KernelInitializeSparse]] = total
		if total > 0 {
			cs.Code(decls.String())
			rt.GenKernelDecl(cs, KernelNames[KernelInitializeSparse], "")
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(KernelInitializeSparse)))
				cs.Code(body.String())
			})
			cs.Blank()
		}
	}

	cs.Line("extern \"C\" void initialize()")
	cs.Scope(func() {
		cs.Line("unsigned long long deviceRNGSeed = %d;", net.Seed)
		if totals[KernelNames[KernelInitialize]] > 0 {
			rt.GenKernelLaunch(cs, KernelNames[KernelInitialize], totals[KernelNames[KernelInitialize]],
				b.KernelBlockSize(KernelInitialize), 1, "deviceRNGSeed")
		}
	})
	cs.Blank()
	cs.Line("extern \"C\" void initializeSparse()")
	cs.Scope(func() {
		if totals[KernelNames[KernelInitializeSparse]] > 0 {
			rt.GenKernelLaunch(cs, KernelNames[KernelInitializeSparse], totals[KernelNames[KernelInitializeSparse]],
				b.KernelBlockSize(KernelInitializeSparse), 1, "")
		}
	})

	return &KernelSource{Name: "init.cc", Source: cs.String(), TotalThreads: totals}, nil
}

// GenerateCustomUpdate emits customUpdate.cc: one kernel pair and entry
// point per custom update group name.
func (b *Backend) GenerateCustomUpdate(m *codegen.MergedModel) (*KernelSource, error) {
	rt := b.rt
	net := m.Network
	cs := codegen.NewCodeStream()
	totals := map[string]int{}

	rt.GenKernelFilePreamble(cs, net)
	b.declareMergedArrays(cs, m, map[string]bool{"CustomUpdate": true, "CustomUpdateWU": true})

	for _, group := range net.CustomUpdateGroupNames() {
		kernelName := KernelNames[KernelCustomUpdate] + group + "Kernel"
		wuKernelName := KernelNames[KernelCustomUpdate] + group + "WUKernel"

		body := codegen.NewCodeStream()
		decls := codegen.NewCodeStream()
		subs := newKernelSubs()
		total, err := b.GenCustomUpdateKernel(body, decls, subs, m, group)
		if err != nil {
			return nil, err
		}
		totals[kernelName] = total
		if total > 0 {
			cs.Code(decls.String())
			rt.GenKernelDecl(cs, kernelName, "")
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(KernelCustomUpdate)))
				cs.Code(body.String())
			})
			cs.Blank()
		}

		wuBody := codegen.NewCodeStream()
		wuDecls := codegen.NewCodeStream()
		wuSubs := newKernelSubs()
		wuTotal, err := b.GenCustomUpdateWUKernel(wuBody, wuDecls, wuSubs, m, group)
		if err != nil {
			return nil, err
		}
		totals[wuKernelName] = wuTotal
		if wuTotal > 0 {
			cs.Code(wuDecls.String())
			rt.GenKernelDecl(cs, wuKernelName, "")
			cs.Scope(func() {
				cs.Line("const unsigned int id = %s;", rt.GetGlobalThreadID(b.KernelBlockSize(KernelCustomUpdate)))
				cs.Code(wuBody.String())
			})
			cs.Blank()
		}

		cs.Line("extern \"C\" void update%s()", group)
		cs.Scope(func() {
			if total > 0 {
				rt.GenKernelLaunch(cs, kernelName, total, b.KernelBlockSize(KernelCustomUpdate), net.BatchSize, "")
			}
			if wuTotal > 0 {
				rt.GenKernelLaunch(cs, wuKernelName, wuTotal, b.KernelBlockSize(KernelCustomUpdate), net.BatchSize, "")
			}
		})
		cs.Blank()
	}

	return &KernelSource{Name: "customUpdate.cc", Source: cs.String(), TotalThreads: totals}, nil
}

// GenerateAll runs every kernel emitter and the host runner, returning the
// complete set of generated sources.
func (b *Backend) GenerateAll(m *codegen.MergedModel) (*codegen.RunnerOutput, []*KernelSource, error) {
	runner, err := codegen.GenerateRunner(m, b.rt)
	if err != nil {
		return nil, nil, err
	}
	var sources []*KernelSource
	for _, gen := range []func(*codegen.MergedModel) (*KernelSource, error){
		b.GenerateNeuronUpdate, b.GenerateSynapseUpdate, b.GenerateInit, b.GenerateCustomUpdate,
	} {
		src, err := gen(m)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	return runner, sources, nil
}
