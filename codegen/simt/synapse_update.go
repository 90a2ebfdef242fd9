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
	"github.com/spikegen/spikegen/codegen"
	"github.com/spikegen/spikegen/model"
)

// GenPreSynapseResetKernel emits the kernel advancing dendritic delay
// pointers, one thread per merged group member.
func (b *Backend) GenPreSynapseResetKernel(cs, decls *codegen.CodeStream, m *codegen.MergedModel) (int, error) {
	idStart := 0
	for _, n := range m.SynapseDendriticDelayUpdateGroups {
		n := n
		cs.Line("// merged%d", n.Index)
		genRangeTest(cs, idStart, len(n.Groups))
		start := idStart
		cs.Scope(func() {
			cs.Line("%sstruct MergedSynapseDendriticDelayUpdateGroup%d *group = &d_mergedSynapseDendriticDelayUpdateGroup%d[id - %d];",
				b.rt.GetPointerPrefix(), n.Index, n.Index, start)
			cs.Line("*group->denDelayPtr = (*group->denDelayPtr + 1) %% %d;", n.Archetype().MaxDendriticDelayTimesteps)
		})
		idStart += len(n.Groups)
	}
	cs.Blank()
	return idStart, nil
}

// genSynapseIndexCalculation emits the batch and delay offsets synapse
// kernel bodies index spike sources and targets with.
func (b *Backend) genSynapseIndexCalculation(cs *codegen.CodeStream, arch *model.SynapseGroup, batchSize int) {
	if batchSize > 1 {
		cs.Line("const unsigned int batch = %s;", b.rt.GetBlockID())
		cs.Line("const unsigned int preBatchOffset = group->numSrcNeurons * batch;")
		cs.Line("const unsigned int postBatchOffset = group->numTrgNeurons * batch;")
	}
	if arch.Src.DelayRequired() {
		slots := arch.Src.NumDelaySlots()
		delay := (slots - arch.DelaySteps) % slots
		if batchSize > 1 {
			cs.Line("const unsigned int preReadDelaySlot = ((*group->srcSpkQuePtr + %d) %% %d) + (batch * %d);", delay, slots, slots)
		} else {
			cs.Line("const unsigned int preReadDelaySlot = (*group->srcSpkQuePtr + %d) %% %d;", delay, slots)
		}
		cs.Line("const unsigned int preReadDelayOffset = preReadDelaySlot * group->numSrcNeurons;")
	}
	if arch.Trg.DelayRequired() {
		slots := arch.Trg.NumDelaySlots()
		delay := (slots - arch.BackPropDelaySteps) % slots
		if batchSize > 1 {
			cs.Line("const unsigned int postReadDelaySlot = ((*group->trgSpkQuePtr + %d) %% %d) + (batch * %d);", delay, slots, slots)
		} else {
			cs.Line("const unsigned int postReadDelaySlot = (*group->trgSpkQuePtr + %d) %% %d;", delay, slots)
		}
		cs.Line("const unsigned int postReadDelayOffset = postReadDelaySlot * group->numTrgNeurons;")
	}
}

// GenPresynapticUpdateKernel emits spike propagation dispatched through
// each merged group's selected update strategy.
func (b *Backend) GenPresynapticUpdateKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel) (int, error) {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelPresynapticUpdate)
	batchSize := m.Network.BatchSize

	// Size the shared accumulation array to the largest per-thread request
	// across the merged groups this kernel serves
	maxSharedMemPerThread := 0
	for _, sg := range m.PresynapticUpdateGroups {
		strategy, err := b.PresynapticUpdateStrategyFor(sg.Archetype())
		if err != nil {
			return 0, err
		}
		if n := strategy.SharedMemoryPerThread(sg, b); n > maxSharedMemPerThread {
			maxSharedMemPerThread = n
		}
	}
	if maxSharedMemPerThread > 0 {
		cs.Line("%s%s shLg[%d];", rt.GetSharedPrefix(), m.Network.ScalarName(), maxSharedMemPerThread*blockSize)
	}

	anyPostSparse, anyTrueSpike, anyEvent := false, false, false
	for _, sg := range m.PresynapticUpdateGroups {
		arch := sg.Archetype()
		if arch.SpanType == model.PostsynapticSpan && arch.MatrixType.Has(model.SparseConnectivity) {
			anyPostSparse = true
		}
		if arch.TrueSpikeRequired() || arch.WUModel.LearnPostCode != "" {
			anyTrueSpike = true
		}
		if arch.SpikeEventRequired() {
			anyEvent = true
		}
	}
	if anyPostSparse {
		cs.Line("%sunsigned int shRowLength[%d];", rt.GetSharedPrefix(), blockSize)
	}
	if anyTrueSpike {
		cs.Line("%sunsigned int shSpk[%d];", rt.GetSharedPrefix(), blockSize)
	}
	if anyEvent {
		cs.Line("%sunsigned int shSpkEvnt[%d];", rt.GetSharedPrefix(), blockSize)
	}
	cs.Blank()

	idStart := 0
	for _, sg := range m.PresynapticUpdateGroups {
		sg := sg
		arch := sg.Archetype()
		strategy, err := b.PresynapticUpdateStrategyFor(arch)
		if err != nil {
			return 0, err
		}

		counts := make([]int, len(sg.Groups))
		for i, g := range sg.Groups {
			counts[i] = strategy.NumThreads(g)
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "PresynapticUpdate", sg.Index, mt.starts, idStart)

		cs.Line("// merged%d", sg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "PresynapticUpdate", sg.Index, len(sg.Groups), idStart)
			b.genSynapseIndexCalculation(cs, arch, batchSize)

			if err := strategy.GenPreamble(cs, sg, popSubs, b); err != nil {
				genErr = err
				return
			}

			if arch.SpikeEventRequired() {
				cs.Scope(func() {
					genErr = strategy.GenUpdate(cs, sg, popSubs, b, false)
				})
				if genErr != nil {
					return
				}
			}
			if arch.TrueSpikeRequired() {
				cs.Scope(func() {
					genErr = strategy.GenUpdate(cs, sg, popSubs, b, true)
				})
				if genErr != nil {
					return
				}
			}
			cs.Blank()
			genErr = strategy.GenPostamble(cs, sg, popSubs, b)
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	return idStart, nil
}

// GenPostsynapticUpdateKernel emits postsynaptic learning: target-side
// spikes are tiled through shared memory and each thread walks one column.
func (b *Backend) GenPostsynapticUpdateKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel) (int, error) {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelPostsynapticUpdate)
	batchSize := m.Network.BatchSize

	if len(m.PostsynapticUpdateGroups) == 0 {
		return 0, nil
	}

	cs.Line("%sunsigned int shSpk[%d];", rt.GetSharedPrefix(), blockSize)
	anySparse := false
	for _, sg := range m.PostsynapticUpdateGroups {
		if sg.Archetype().MatrixType.Has(model.SparseConnectivity) {
			anySparse = true
		}
	}
	if anySparse {
		cs.Line("%sunsigned int shColLength[%d];", rt.GetSharedPrefix(), blockSize)
	}
	cs.Blank()

	idStart := 0
	for _, sg := range m.PostsynapticUpdateGroups {
		sg := sg
		arch := sg.Archetype()
		counts := make([]int, len(sg.Groups))
		for i, g := range sg.Groups {
			counts[i] = NumPostsynapticUpdateThreads(g)
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "PostsynapticUpdate", sg.Index, mt.starts, idStart)

		cs.Line("// merged%d", sg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "PostsynapticUpdate", sg.Index, len(sg.Groups), idStart)
			b.genSynapseIndexCalculation(cs, arch, batchSize)

			sparse := arch.MatrixType.Has(model.SparseConnectivity)
			postSlot := "0"
			postOffset := ""
			if arch.Trg.DelayRequired() {
				postSlot = "postReadDelaySlot"
				postOffset = "postReadDelayOffset + "
			} else if batchSize > 1 {
				postSlot = "batch"
				postOffset = "postBatchOffset + "
			}

			cs.Line("const unsigned int numSpikes = group->trgSpkCnt[%s];", postSlot)
			cs.Line("const unsigned int numSpikeBlocks = (numSpikes + %d) / %d;", blockSize-1, blockSize)
			cs.Line("for (unsigned int r = 0; r < numSpikeBlocks; r++)")
			cs.Scope(func() {
				cs.Line("const unsigned int numSpikesInBlock = (r == numSpikeBlocks - 1) ? ((numSpikes - 1) %% %d) + 1 : %d;", blockSize, blockSize)
				cs.Line("if (%s < numSpikesInBlock)", rt.GetThreadID())
				cs.Scope(func() {
					cs.Line("const unsigned int spk = group->trgSpk[%s(r * %d) + %s];", postOffset, blockSize, rt.GetThreadID())
					cs.Line("shSpk[%s] = spk;", rt.GetThreadID())
					if sparse {
						cs.Line("shColLength[%s] = group->colLength[spk];", rt.GetThreadID())
					}
				})
				rt.GenSharedMemBarrier(cs)

				cs.Line("// only work on existing neurons")
				cs.Line("if (%s < group->colStride)", popSubs.Get("id"))
				cs.Scope(func() {
					cs.Line("// loop through all incoming spikes for learning")
					cs.Line("for (unsigned int j = 0; j < numSpikesInBlock; j++)")
					cs.Scope(func() {
						synSubs := codegen.NewSubstitutions(popSubs)
						body := func() {
							synSubs.MustVar("id_post", "shSpk[j]")
							synSubs.MustVar("id_syn", "synAddress")
							genErr = sg.GenLearnPost(cs, synSubs)
						}
						if sparse {
							cs.Line("if (%s < shColLength[j])", synSubs.Get("id"))
							cs.Scope(func() {
								cs.Line("const unsigned int synAddress = group->remap[(shSpk[j] * group->colStride) + %s];", popSubs.Get("id"))
								cs.Line("const unsigned int ipre = synAddress / group->rowStride;")
								synSubs.MustVar("id_pre", "ipre")
								body()
							})
						} else {
							cs.Line("const unsigned int synAddress = (%s * group->numTrgNeurons) + shSpk[j];", synSubs.Get("id"))
							synSubs.MustVar("id_pre", synSubs.Get("id"))
							body()
						}
					})
				})
			})
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	return idStart, nil
}

// GenSynapseDynamicsKernel emits continuous synapse dynamics, one thread
// per live synapse.
func (b *Backend) GenSynapseDynamicsKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel) (int, error) {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelSynapseDynamicsUpdate)
	batchSize := m.Network.BatchSize

	idStart := 0
	for _, sg := range m.SynapseDynamicsGroups {
		sg := sg
		arch := sg.Archetype()
		counts := make([]int, len(sg.Groups))
		for i, g := range sg.Groups {
			counts[i] = NumSynapseDynamicsThreads(g)
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "SynapseDynamics", sg.Index, mt.starts, idStart)

		cs.Line("// merged%d", sg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "SynapseDynamics", sg.Index, len(sg.Groups), idStart)
			b.genSynapseIndexCalculation(cs, arch, batchSize)

			synSubs := codegen.NewSubstitutions(popSubs)
			sparse := arch.MatrixType.Has(model.SparseConnectivity)
			if sparse {
				cs.Line("if (%s < group->synRemap[0])", popSubs.Get("id"))
			} else {
				cs.Line("if (%s < (group->numSrcNeurons * group->numTrgNeurons))", popSubs.Get("id"))
			}
			cs.Scope(func() {
				if sparse {
					cs.Line("const unsigned int s = group->synRemap[1 + %s];", popSubs.Get("id"))
					synSubs.MustVar("id_pre", "(s / group->rowStride)")
					synSubs.MustVar("id_post", "group->ind[s]")
					synSubs.MustVar("id_syn", "s")
				} else {
					synSubs.MustVar("id_pre", "("+popSubs.Get("id")+" / group->rowStride)")
					synSubs.MustVar("id_post", "("+popSubs.Get("id")+" % group->rowStride)")
					synSubs.MustVar("id_syn", popSubs.Get("id"))
				}

				// Dendritic delay writes always go through an atomic since
				// several synapses can target one delay slot
				scalarAtomic := rt.GetAtomic(m.Network.ScalarName(), codegen.AtomicAdd, codegen.GlobalMem)
				if arch.DendriticDelayRequired() {
					synSubs.MustFunc("addToInSynDelay", 2,
						scalarAtomic+"(&group->denDelay["+postDenDelayIndex(arch, synSubs.Get("id_post"), "$(1)")+"], $(0))")
				} else {
					synSubs.MustFunc("addToInSyn", 1,
						scalarAtomic+"(&group->inSyn["+synSubs.Get("id_post")+"], $(0))")
				}
				genErr = sg.GenDynamics(cs, synSubs)
			})
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	return idStart, nil
}
