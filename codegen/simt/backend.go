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

// Package simt emits device kernels for SIMT accelerators: cooperative
// lanes grouped into fixed-size blocks, a flat thread id partitioned among
// merged groups, and explicit block barriers. Everything dialect-specific
// (atomic spelling, barrier intrinsic, RNG state) comes through
// codegen.Runtime hooks.
package simt

import (
	"fmt"

	"github.com/spikegen/spikegen/codegen"
	"github.com/spikegen/spikegen/model"
)

// Kernel identifies one of the generated device kernels.
type Kernel int

const (
	KernelNeuronUpdate Kernel = iota
	KernelPresynapticUpdate
	KernelPostsynapticUpdate
	KernelSynapseDynamicsUpdate
	KernelInitialize
	KernelInitializeSparse
	KernelPreNeuronReset
	KernelPreSynapseReset
	KernelCustomUpdate
	KernelMax
)

// KernelNames spell the generated kernel function names.
var KernelNames = [KernelMax]string{
	"updateNeuronsKernel",
	"updatePresynapticKernel",
	"updatePostsynapticKernel",
	"updateSynapseDynamicsKernel",
	"initializeKernel",
	"initializeSparseKernel",
	"preNeuronResetKernel",
	"preSynapseResetKernel",
	"customUpdate",
}

// Preferences hold tunables the strategies consult during selection.
type Preferences struct {
	// EnableBitmaskOptimisations allows the warp-packed bitmask strategy.
	EnableBitmaskOptimisations bool
}

// Backend owns the per-kernel block size table, the presynaptic update
// strategy registry and the kernel emitters.
type Backend struct {
	rt    codegen.Runtime
	prefs Preferences

	blockSizes [KernelMax]int
	strategies []PresynapticUpdateStrategy
}

// New returns a backend with default block sizes and the built-in
// presynaptic update strategies registered.
func New(rt codegen.Runtime, prefs Preferences) *Backend {
	b := &Backend{rt: rt, prefs: prefs}
	for k := Kernel(0); k < KernelMax; k++ {
		b.blockSizes[k] = 32
	}
	b.strategies = []PresynapticUpdateStrategy{
		preSpan{},
		postSpan{},
		preSpanProcedural{},
		postSpanBitmask{},
	}
	return b
}

// Runtime returns the device dialect hooks.
func (b *Backend) Runtime() codegen.Runtime { return b.rt }

// Preferences returns the backend tunables.
func (b *Backend) Preferences() Preferences { return b.prefs }

// KernelBlockSize returns the cooperative lane group size of a kernel.
func (b *Backend) KernelBlockSize(k Kernel) int { return b.blockSizes[k] }

// SetKernelBlockSize overrides one kernel's block size; it must be a
// multiple of 32.
func (b *Backend) SetKernelBlockSize(k Kernel, size int) {
	b.blockSizes[k] = size
}

// PadSize rounds a thread count up to a whole number of blocks.
func PadSize(n, blockSize int) int {
	if n == 0 {
		return 0
	}
	return ((n + blockSize - 1) / blockSize) * blockSize
}

// AddPresynapticUpdateStrategy registers a strategy; selection walks the
// registry in reverse insertion order so later registrations win over the
// built-ins.
func (b *Backend) AddPresynapticUpdateStrategy(s PresynapticUpdateStrategy) {
	b.strategies = append(b.strategies, s)
}

// PresynapticUpdateStrategyFor picks the strategy used for one synapse
// group; exactly one choice is made and it is stable across emission.
func (b *Backend) PresynapticUpdateStrategyFor(sg *model.SynapseGroup) (PresynapticUpdateStrategy, error) {
	for i := len(b.strategies) - 1; i >= 0; i-- {
		if b.strategies[i].IsCompatible(sg, b.prefs) {
			return b.strategies[i], nil
		}
	}
	return nil, fmt.Errorf("unable to find a suitable presynaptic update strategy for synapse group '%s'", sg.Name)
}

// SynapticMatrixRowStride returns the padded row width the selected
// strategy addresses the matrix with.
func (b *Backend) SynapticMatrixRowStride(sg *model.SynapseGroup) int {
	if s, err := b.PresynapticUpdateStrategyFor(sg); err == nil {
		return s.SynapticMatrixRowStride(sg)
	}
	return sg.RowStride()
}

// MergedOptions returns the field resolution options merged groups are
// built with for this backend.
func (b *Backend) MergedOptions() codegen.Options {
	return codegen.Options{
		VarPrefix:           b.rt.GetVarPrefix(),
		ScalarAddressPrefix: b.rt.GetScalarAddressPrefix(),
		RowStride:           b.SynapticMatrixRowStride,
	}
}

// NumPresynapticUpdateThreads asks the selected strategy for the group's
// thread requirement.
func (b *Backend) NumPresynapticUpdateThreads(sg *model.SynapseGroup) (int, error) {
	s, err := b.PresynapticUpdateStrategyFor(sg)
	if err != nil {
		return 0, err
	}
	return s.NumThreads(sg), nil
}

// NumPostsynapticUpdateThreads is the column extent for sparse matrices
// and the source population size otherwise.
func NumPostsynapticUpdateThreads(sg *model.SynapseGroup) int {
	if sg.MatrixType.Has(model.SparseConnectivity) {
		return sg.MaxSourceConnections
	}
	return sg.Src.NumNeurons
}

// NumSynapseDynamicsThreads bounds the number of live synapses. For sparse
// matrices the true count only exists after initializeSparse runs, so the
// conservative row-bound product is used.
func NumSynapseDynamicsThreads(sg *model.SynapseGroup) int {
	if sg.MatrixType.Has(model.SparseConnectivity) {
		return sg.Src.NumNeurons * sg.MaxConnections
	}
	return sg.Src.NumNeurons * sg.Trg.NumNeurons
}

// NumCustomUpdateWUThreads bounds per-synapse custom update work the same
// way synapse dynamics is bounded.
func NumCustomUpdateWUThreads(cu *model.CustomUpdateWU) int {
	return NumSynapseDynamicsThreads(cu.SynapseGroup)
}

// NumConnectivityInitThreads is rows for row-building snippets and columns
// for column-building ones.
func NumConnectivityInitThreads(sg *model.SynapseGroup) (int, error) {
	switch {
	case sg.ConnectivityInit.HasRowBuild():
		return sg.Src.NumNeurons, nil
	case sg.ConnectivityInit.HasColBuild():
		return sg.Trg.NumNeurons, nil
	default:
		return 0, fmt.Errorf("cannot calculate number of connectivity init threads for synapse group '%s' without connectivity building code", sg.Name)
	}
}

// memberThreads is the padded per-member thread requirement of one merged
// group, plus the emitted member search metadata.
type memberThreads struct {
	starts []int
	padded int
}

// padMembers computes each member's start offset within the merged group
// and the group's padded total.
func padMembers(counts []int, blockSize int) memberThreads {
	mt := memberThreads{starts: make([]int, len(counts))}
	for i, n := range counts {
		mt.starts[i] = mt.padded
		mt.padded += PadSize(n, blockSize)
	}
	return mt
}

// genGroupMergedSearch emits the binary search locating the member a
// thread serves and rebinds $(id) to the within-member lane.
func (b *Backend) genGroupMergedSearch(cs *codegen.CodeStream, subs *codegen.Substitutions,
	purpose string, index int, numMembers int, idStart int) {

	structName := fmt.Sprintf("Merged%sGroup%d", purpose, index)
	startArray := fmt.Sprintf("d_merged%sGroupStartID%d", purpose, index)
	if numMembers == 1 {
		cs.Line("%sstruct %s *group = &d_merged%sGroup%d[0];", b.rt.GetPointerPrefix(), structName, purpose, index)
		if idStart == 0 {
			cs.Line("const unsigned int lid = id;")
		} else {
			cs.Line("const unsigned int lid = id - %d;", idStart)
		}
	} else {
		cs.Line("unsigned int lo = 0;")
		cs.Line("unsigned int hi = %d;", numMembers)
		cs.Line("while(lo < hi)")
		cs.Scope(func() {
			cs.Line("const unsigned int mid = (lo + hi) / 2;")
			cs.Line("if(id < %s[mid])", startArray)
			cs.Scope(func() {
				cs.Line("hi = mid;")
			})
			cs.Line("else")
			cs.Scope(func() {
				cs.Line("lo = mid + 1;")
			})
		})
		cs.Line("%sstruct %s *group = &d_merged%sGroup%d[lo - 1];", b.rt.GetPointerPrefix(), structName, purpose, index)
		cs.Line("const unsigned int groupStartID = %s[lo - 1];", startArray)
		cs.Line("const unsigned int lid = id - groupStartID;")
	}
	subs.MustVar("id", "lid", true)
}

// rngDists are the distributions snippets may draw from.
var rngDists = []string{
	"uniform", "normal", "exponential", "log_normal", "gamma", "binomial",
}

// bindRNGSubs binds the $(gennrand_*) draws to the dialect's spelling; a
// local stream named "rng" must be in scope.
func (b *Backend) bindRNGSubs(subs *codegen.Substitutions) {
	for _, dist := range rngDists {
		template, numArgs := b.rt.GetRNGTemplate(dist)
		if template == "" {
			continue
		}
		if numArgs == 0 {
			subs.MustVar("gennrand_"+dist, template)
		} else {
			subs.MustFunc("gennrand_"+dist, numArgs, template)
		}
	}
}

// genRangeTest emits the half-open range test selecting one merged group's
// slice of the flat thread id.
func genRangeTest(cs *codegen.CodeStream, idStart, paddedSize int) {
	if idStart == 0 {
		cs.Line("if(id < %d)", paddedSize)
	} else {
		cs.Line("if(id >= %d && id < %d)", idStart, idStart+paddedSize)
	}
}

// genStartIDArrays emits the per-merged-group member start id tables the
// group search reads. Start ids are absolute within the kernel.
func (b *Backend) genStartIDArrays(cs *codegen.CodeStream, purpose string, index int, starts []int, idStart int) {
	if len(starts) <= 1 {
		return
	}
	abs := make([]int, len(starts))
	for i, s := range starts {
		abs[i] = idStart + s
	}
	b.rt.GenMergedGroupStartIDs(cs, fmt.Sprintf("d_merged%sGroupStartID%d", purpose, index), abs)
}
