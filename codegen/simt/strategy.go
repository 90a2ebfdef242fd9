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
	"github.com/spikegen/spikegen/model"
)

// PresynapticUpdateStrategy is the capability record one parallelisation of
// the presynaptic update implements. Strategies are selected per synapse
// group in reverse registration order, so user strategies can displace the
// built-ins.
type PresynapticUpdateStrategy interface {
	// IsCompatible reports whether the strategy can serve the group.
	IsCompatible(sg *model.SynapseGroup, prefs Preferences) bool
	// NumThreads is the group's unpadded thread requirement.
	NumThreads(sg *model.SynapseGroup) int
	// SynapticMatrixRowStride is the padded row width the strategy
	// addresses the matrix with.
	SynapticMatrixRowStride(sg *model.SynapseGroup) int
	// SharedMemoryPerThread is the per-thread element count the strategy
	// wants in the shared accumulation array.
	SharedMemoryPerThread(g *codegen.PresynapticUpdateGroupMerged, b *Backend) int

	GenPreamble(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend) error
	GenUpdate(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend, trueSpike bool) error
	GenPostamble(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend) error
}

// spikeSuffix returns the spike array suffix for true spikes or events.
func spikeSuffix(trueSpike bool) string {
	if trueSpike {
		return ""
	}
	return "Evnt"
}

// preSpikeSlot builds the index selecting this timestep's deliverable
// presynaptic spike count.
func preSpikeSlot(sg *model.SynapseGroup, batchSize int) string {
	if sg.Src.DelayRequired() {
		return "preReadDelaySlot"
	}
	if batchSize > 1 {
		return "batch"
	}
	return "0"
}

// preSpikeOffset builds the prefix locating this timestep's presynaptic
// spike block.
func preSpikeOffset(sg *model.SynapseGroup, batchSize int) string {
	if sg.Src.DelayRequired() {
		return "preReadDelayOffset + "
	}
	if batchSize > 1 {
		return "preBatchOffset + "
	}
	return ""
}

// postISynIndex builds the inSyn accumulator index for one target.
func postISynIndex(batchSize int, ipost string) string {
	if batchSize > 1 {
		return "postBatchOffset + " + ipost
	}
	return ipost
}

// addInputFuncs binds the input accumulation function substitutions for
// one target index expression.
func addInputFuncs(subs *codegen.Substitutions, g *codegen.PresynapticUpdateGroupMerged, b *Backend, ipost string) {
	arch := g.Archetype()
	batchSize := g.BatchSize()
	scalar := b.rt.GetAtomic("scalar", codegen.AtomicAdd, codegen.GlobalMem)
	if arch.DendriticDelayRequired() {
		subs.MustFunc("addToInSynDelay", 2,
			scalar+"(&group->denDelay["+postDenDelayIndex(arch, ipost, "$(1)")+"], $(0))")
	} else {
		subs.MustFunc("addToInSyn", 1, scalar+"(&group->inSyn["+postISynIndex(batchSize, ipost)+"], $(0))")
	}
}

// postDenDelayIndex builds the dendritic delay buffer index for a write
// offset by $(1) timesteps.
func postDenDelayIndex(sg *model.SynapseGroup, ipost, offset string) string {
	return fmt.Sprintf("(((*group->denDelayPtr + (%s)) %% %d) * group->numTrgNeurons) + %s",
		offset, sg.MaxDendriticDelayTimesteps, ipost)
}

//----------------------------------------------------------------------------
// preSpan
//----------------------------------------------------------------------------

// preSpan runs one thread (or a few) per presynaptic spike and walks its
// sparse row; right when presynaptic activity is sparse.
type preSpan struct{}

func (preSpan) IsCompatible(sg *model.SynapseGroup, _ Preferences) bool {
	return sg.SpanType == model.PresynapticSpan && sg.MatrixType.Has(model.SparseConnectivity)
}

func (preSpan) NumThreads(sg *model.SynapseGroup) int {
	return sg.Src.NumNeurons * sg.NumThreadsPerSpike
}

func (preSpan) SynapticMatrixRowStride(sg *model.SynapseGroup) int {
	return sg.MaxConnections
}

func (preSpan) SharedMemoryPerThread(*codegen.PresynapticUpdateGroupMerged, *Backend) int { return 0 }

func (preSpan) GenPreamble(*codegen.CodeStream, *codegen.PresynapticUpdateGroupMerged, *codegen.Substitutions, *Backend) error {
	return nil
}

func (preSpan) GenUpdate(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend, trueSpike bool) error {
	arch := g.Archetype()
	suffix := spikeSuffix(trueSpike)
	numThreadsPerSpike := arch.NumThreadsPerSpike
	id := subs.Get("id")

	if numThreadsPerSpike > 1 {
		cs.Line("const unsigned int spike = %s / %d;", id, numThreadsPerSpike)
		cs.Line("const unsigned int thread = %s %% %d;", id, numThreadsPerSpike)
	} else {
		cs.Line("const unsigned int spike = %s;", id)
	}
	cs.Line("if (spike < group->srcSpkCnt%s[%s])", suffix, preSpikeSlot(arch, g.BatchSize()))
	var genErr error
	cs.Scope(func() {
		offset := preSpikeOffset(arch, g.BatchSize())
		cs.Line("const unsigned int preInd = group->srcSpk%s[%sspike];", suffix, offset)
		cs.Line("const unsigned int npost = group->rowLength[preInd];")
		if numThreadsPerSpike > 1 {
			cs.Line("for (unsigned int i = thread; i < npost; i += %d)", numThreadsPerSpike)
		} else {
			cs.Line("for (unsigned int i = 0; i < npost; i++)")
		}
		cs.Scope(func() {
			cs.Line("const unsigned int synAddress = (preInd * group->rowStride) + i;")
			cs.Line("const unsigned int ipost = group->ind[synAddress];")

			synSubs := codegen.NewSubstitutions(subs)
			synSubs.MustVar("id_pre", "preInd")
			synSubs.MustVar("id_post", "ipost")
			synSubs.MustVar("id_syn", "synAddress")
			addInputFuncs(synSubs, g, b, "ipost")

			if !trueSpike && arch.WUModel.EventThresholdConditionCode != "" {
				cond, err := g.GenEventThreshold(synSubs)
				if err != nil {
					genErr = err
					return
				}
				cs.Line("if(%s)", cond)
				cs.Scope(func() {
					genErr = g.GenSpikeUpdate(cs, synSubs, trueSpike)
				})
			} else {
				genErr = g.GenSpikeUpdate(cs, synSubs, trueSpike)
			}
		})
	})
	return genErr
}

func (preSpan) GenPostamble(*codegen.CodeStream, *codegen.PresynapticUpdateGroupMerged, *codegen.Substitutions, *Backend) error {
	return nil
}

//----------------------------------------------------------------------------
// postSpan
//----------------------------------------------------------------------------

// postSpan runs one thread per postsynaptic target and sweeps the incoming
// spikes in block-sized tiles; the default for dense and common sparse
// workloads.
type postSpan struct{}

func (postSpan) IsCompatible(sg *model.SynapseGroup, _ Preferences) bool {
	return sg.SpanType == model.PostsynapticSpan &&
		(sg.MatrixType.Has(model.SparseConnectivity) ||
			sg.MatrixType.Has(model.DenseConnectivity) ||
			sg.MatrixType.Has(model.BitmaskConnectivity))
}

func (postSpan) NumThreads(sg *model.SynapseGroup) int {
	if sg.MatrixType.Has(model.SparseConnectivity) {
		return sg.MaxConnections
	}
	return sg.Trg.NumNeurons
}

func (postSpan) SynapticMatrixRowStride(sg *model.SynapseGroup) int {
	return sg.RowStride()
}

func (postSpan) SharedMemoryPerThread(*codegen.PresynapticUpdateGroupMerged, *Backend) int { return 0 }

func (postSpan) GenPreamble(*codegen.CodeStream, *codegen.PresynapticUpdateGroupMerged, *codegen.Substitutions, *Backend) error {
	return nil
}

func (postSpan) GenUpdate(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend, trueSpike bool) error {
	arch := g.Archetype()
	rt := b.rt
	suffix := spikeSuffix(trueSpike)
	blockSize := b.KernelBlockSize(KernelPresynapticUpdate)
	sparse := arch.MatrixType.Has(model.SparseConnectivity)
	bitmask := arch.MatrixType.Has(model.BitmaskConnectivity)
	id := subs.Get("id")

	cs.Line("const unsigned int numSpikes = group->srcSpkCnt%s[%s];", suffix, preSpikeSlot(arch, g.BatchSize()))
	cs.Line("const unsigned int numSpikeBlocks = (numSpikes + %d) / %d;", blockSize-1, blockSize)
	cs.Line("for (unsigned int r = 0; r < numSpikeBlocks; r++)")
	var genErr error
	cs.Scope(func() {
		cs.Line("const unsigned int numSpikesInBlock = (r == numSpikeBlocks - 1) ? ((numSpikes - 1) %% %d) + 1 : %d;", blockSize, blockSize)
		rt.GenSharedMemBarrier(cs)
		cs.Line("if (%s < numSpikesInBlock)", rt.GetThreadID())
		cs.Scope(func() {
			offset := preSpikeOffset(arch, g.BatchSize())
			cs.Line("const unsigned int spk = group->srcSpk%s[%s(r * %d) + %s];", suffix, offset, blockSize, rt.GetThreadID())
			cs.Line("shSpk%s[%s] = spk;", suffix, rt.GetThreadID())
			if sparse {
				cs.Line("shRowLength[%s] = group->rowLength[spk];", rt.GetThreadID())
			}
		})
		rt.GenSharedMemBarrier(cs)

		cs.Line("// loop through all incoming spikes")
		cs.Line("for (unsigned int j = 0; j < numSpikesInBlock; j++)")
		cs.Scope(func() {
			cs.Line("// only work on existing neurons")
			cs.Line("if (%s < group->rowStride)", id)
			cs.Scope(func() {
				synSubs := codegen.NewSubstitutions(subs)
				synSubs.MustVar("id_pre", "shSpk"+suffix+"[j]")

				body := func() {
					cs.Line("const unsigned int synAddress = (shSpk%s[j] * group->rowStride) + %s;", suffix, id)
					if sparse {
						cs.Line("const unsigned int ipost = group->ind[synAddress];")
						synSubs.MustVar("id_post", "ipost")
					} else {
						synSubs.MustVar("id_post", id)
					}
					synSubs.MustVar("id_syn", "synAddress")
					addInputFuncs(synSubs, g, b, synSubs.Get("id_post"))

					emit := func() {
						genErr = g.GenSpikeUpdate(cs, synSubs, trueSpike)
					}
					if !trueSpike && arch.WUModel.EventThresholdConditionCode != "" {
						cond, err := g.GenEventThreshold(synSubs)
						if err != nil {
							genErr = err
							return
						}
						cs.Line("if(%s)", cond)
						cs.Scope(emit)
					} else {
						emit()
					}
				}

				switch {
				case sparse:
					cs.Line("if (%s < shRowLength[j])", id)
					cs.Scope(body)
				case bitmask:
					cs.Line("const uint64_t gid = ((uint64_t)shSpk%s[j] * group->rowStride) + %s;", suffix, id)
					cs.Line("if (B(group->gp[gid / 32], gid & 31))")
					cs.Scope(body)
				default:
					body()
				}
			})
		})
	})
	return genErr
}

func (postSpan) GenPostamble(*codegen.CodeStream, *codegen.PresynapticUpdateGroupMerged, *codegen.Substitutions, *Backend) error {
	return nil
}

//----------------------------------------------------------------------------
// preSpanProcedural
//----------------------------------------------------------------------------

// preSpanProcedural is preSpan with connectivity generated on the fly: no
// stored indices, the row building snippet emits synapses directly.
type preSpanProcedural struct{}

func (preSpanProcedural) IsCompatible(sg *model.SynapseGroup, _ Preferences) bool {
	return sg.SpanType == model.PresynapticSpan && sg.MatrixType.Has(model.ProceduralConnectivity)
}

func (preSpanProcedural) NumThreads(sg *model.SynapseGroup) int {
	return sg.Src.NumNeurons * sg.NumThreadsPerSpike
}

func (preSpanProcedural) SynapticMatrixRowStride(sg *model.SynapseGroup) int {
	return sg.MaxConnections
}

func (preSpanProcedural) SharedMemoryPerThread(*codegen.PresynapticUpdateGroupMerged, *Backend) int {
	return 0
}

func (preSpanProcedural) GenPreamble(*codegen.CodeStream, *codegen.PresynapticUpdateGroupMerged, *codegen.Substitutions, *Backend) error {
	return nil
}

func (preSpanProcedural) GenUpdate(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend, trueSpike bool) error {
	arch := g.Archetype()
	suffix := spikeSuffix(trueSpike)
	numThreadsPerSpike := arch.NumThreadsPerSpike
	id := subs.Get("id")

	if numThreadsPerSpike > 1 {
		cs.Line("const unsigned int spike = %s / %d;", id, numThreadsPerSpike)
		cs.Line("const unsigned int thread = %s %% %d;", id, numThreadsPerSpike)
	} else {
		cs.Line("const unsigned int spike = %s;", id)
	}
	cs.Line("if (spike < group->srcSpkCnt%s[%s])", suffix, preSpikeSlot(arch, g.BatchSize()))
	var genErr error
	cs.Scope(func() {
		offset := preSpikeOffset(arch, g.BatchSize())
		cs.Line("const unsigned int preInd = group->srcSpk%s[%sspike];", suffix, offset)

		// Lower the weight update code once into the addSynapse expansion:
		// each synapse the row builder emits runs it with $(0) as target
		synBody := codegen.NewCodeStream()
		synSubs := codegen.NewSubstitutions(subs)
		synSubs.MustVar("id_pre", "preInd")
		synSubs.MustVar("id_post", "$(0)")
		addInputFuncs(synSubs, g, b, "$(0)")
		if !trueSpike && arch.WUModel.EventThresholdConditionCode != "" {
			cond, err := g.GenEventThreshold(synSubs)
			if err != nil {
				genErr = err
				return
			}
			synBody.Line("if(%s)", cond)
			synBody.Scope(func() {
				genErr = g.GenSpikeUpdate(synBody, synSubs, trueSpike)
			})
		} else {
			if err := g.GenSpikeUpdate(synBody, synSubs, trueSpike); err != nil {
				genErr = err
				return
			}
		}
		if genErr != nil {
			return
		}

		wrapped := codegen.NewCodeStream()
		wrapped.Line("do")
		wrapped.ScopeSuffix(" while(false)", func() {
			wrapped.Code(synBody.String())
		})

		rowSubs := codegen.NewSubstitutions(subs)
		rowSubs.MustVar("id_pre", "preInd")
		rowSubs.MustVar("id_post_begin", "0")
		if numThreadsPerSpike > 1 {
			rowSubs.MustVar("id_thread", "thread")
		} else {
			rowSubs.MustVar("id_thread", "0")
		}
		rowSubs.MustVar("num_threads", fmt.Sprintf("%d", numThreadsPerSpike))
		rowSubs.MustVar("num_pre", "group->numSrcNeurons")
		rowSubs.MustVar("num_post", "group->numTrgNeurons")
		rowSubs.MustFunc("addSynapse", 1+len(arch.KernelSize), wrapped.String())
		rowSubs.MustVar("endRow", "break")

		cs.Line("while(true)")
		cs.Scope(func() {
			genErr = g.GenProceduralConnectivity(cs, rowSubs)
		})
	})
	return genErr
}

func (preSpanProcedural) GenPostamble(*codegen.CodeStream, *codegen.PresynapticUpdateGroupMerged, *codegen.Substitutions, *Backend) error {
	return nil
}

//----------------------------------------------------------------------------
// postSpanBitmask
//----------------------------------------------------------------------------

// postSpanBitmask packs 32 postsynaptic targets per thread: each thread
// reads one connectivity word per spike and accumulates into a shared
// staging array written out coalesced in the postamble.
type postSpanBitmask struct{}

func (postSpanBitmask) IsCompatible(sg *model.SynapseGroup, prefs Preferences) bool {
	return prefs.EnableBitmaskOptimisations &&
		sg.SpanType == model.PostsynapticSpan &&
		sg.MatrixType.Has(model.BitmaskConnectivity) &&
		sg.DelaySteps == 0 &&
		!sg.DendriticDelayRequired()
}

func (postSpanBitmask) NumThreads(sg *model.SynapseGroup) int {
	return (sg.Trg.NumNeurons + 31) / 32
}

func (postSpanBitmask) SynapticMatrixRowStride(sg *model.SynapseGroup) int {
	return PadSize(sg.Trg.NumNeurons, 32)
}

func (postSpanBitmask) SharedMemoryPerThread(*codegen.PresynapticUpdateGroupMerged, *Backend) int {
	return 32
}

func (postSpanBitmask) GenPreamble(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend) error {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelPresynapticUpdate)
	cs.Line("// Zero the shared accumulation slots written by this thread")
	cs.Line("for (unsigned int i = 0; i < 32; i++)")
	cs.Scope(func() {
		cs.Line("shLg[(i * %d) + %s] = 0;", blockSize, rt.GetThreadID())
	})
	rt.GenSharedMemBarrier(cs)
	return nil
}

func (postSpanBitmask) GenUpdate(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend, trueSpike bool) error {
	arch := g.Archetype()
	rt := b.rt
	suffix := spikeSuffix(trueSpike)
	blockSize := b.KernelBlockSize(KernelPresynapticUpdate)
	id := subs.Get("id")

	cs.Line("const unsigned int numSpikes = group->srcSpkCnt%s[%s];", suffix, preSpikeSlot(arch, g.BatchSize()))
	cs.Line("const unsigned int rowWords = group->rowStride / 32;")
	cs.Line("const unsigned int numSpikeBlocks = (numSpikes + %d) / %d;", blockSize-1, blockSize)
	cs.Line("for (unsigned int r = 0; r < numSpikeBlocks; r++)")
	var genErr error
	cs.Scope(func() {
		cs.Line("const unsigned int numSpikesInBlock = (r == numSpikeBlocks - 1) ? ((numSpikes - 1) %% %d) + 1 : %d;", blockSize, blockSize)
		rt.GenSharedMemBarrier(cs)
		cs.Line("if (%s < numSpikesInBlock)", rt.GetThreadID())
		cs.Scope(func() {
			offset := preSpikeOffset(arch, g.BatchSize())
			cs.Line("shSpk%s[%s] = group->srcSpk%s[%s(r * %d) + %s];", suffix, rt.GetThreadID(), suffix, offset, blockSize, rt.GetThreadID())
		})
		rt.GenSharedMemBarrier(cs)

		cs.Line("// loop through all incoming spikes")
		cs.Line("for (unsigned int j = 0; j < numSpikesInBlock; j++)")
		cs.Scope(func() {
			cs.Line("// only process existing connectivity words")
			cs.Line("if (%s < rowWords)", id)
			cs.Scope(func() {
				cs.Line("uint32_t connectivityWord = group->gp[(shSpk%s[j] * rowWords) + %s];", suffix, id)
				cs.Line("unsigned int ibit = 0;")
				cs.Line("while (connectivityWord != 0)")
				cs.Scope(func() {
					cs.Line("// advance to the next synapse in the word")
					cs.Line("const int numLZ = __clz(connectivityWord);")
					cs.Line("connectivityWord <<= (numLZ + 1);")
					cs.Line("ibit += numLZ;")

					synSubs := codegen.NewSubstitutions(subs)
					synSubs.MustVar("id_pre", "shSpk"+suffix+"[j]")
					synSubs.MustVar("id_post", "ibit + (" + id + " * 32)")
					synSubs.MustVar("id_syn", "(shSpk"+suffix+"[j] * group->rowStride) + (" + id + " * 32) + ibit")
					synSubs.MustFunc("addToInSyn", 1,
						rt.GetAtomic("scalar", codegen.AtomicAdd, codegen.SharedMem)+
							"(&shLg[(ibit * "+fmt.Sprintf("%d", blockSize)+") + "+rt.GetThreadID()+"], $(0))")

					emit := func() {
						genErr = g.GenSpikeUpdate(cs, synSubs, trueSpike)
					}
					if !trueSpike && arch.WUModel.EventThresholdConditionCode != "" {
						cond, err := g.GenEventThreshold(synSubs)
						if err != nil {
							genErr = err
							return
						}
						cs.Line("if(%s)", cond)
						cs.Scope(emit)
					} else {
						emit()
					}
					cs.Line("ibit++;")
				})
			})
		})
	})
	return genErr
}

func (postSpanBitmask) GenPostamble(cs *codegen.CodeStream, g *codegen.PresynapticUpdateGroupMerged, subs *codegen.Substitutions, b *Backend) error {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelPresynapticUpdate)
	id := subs.Get("id")

	rt.GenSharedMemBarrier(cs)
	cs.Line("// Write this thread's 32 accumulated targets back to global memory")
	cs.Line("for (unsigned int i = 0; i < 32; i++)")
	cs.Scope(func() {
		cs.Line("const unsigned int ipost = (%s * 32) + i;", id)
		cs.Line("if (ipost < group->numTrgNeurons)")
		cs.Scope(func() {
			cs.Line("%s(&group->inSyn[ipost], shLg[(i * %d) + %s]);",
				rt.GetAtomic("scalar", codegen.AtomicAdd, codegen.GlobalMem), blockSize, rt.GetThreadID())
		})
	})
	return nil
}
