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

// GenPreNeuronResetKernel emits the kernel run before each neuron update:
// it maintains previous spike times where needed, advances spike queue
// pointers and zeroes this timestep's spike counts. Returns the kernel's
// total launch width.
func (b *Backend) GenPreNeuronResetKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel) (int, error) {
	batchSize := m.Network.BatchSize
	blockSize := b.KernelBlockSize(KernelPreNeuronReset)
	idStart := 0

	// Emit multi-thread groups first: their ranges stay block aligned, so
	// the barrier before the queue pointer advance is hit by whole blocks
	var singleThread []*codegen.NeuronSpikeQueueUpdateGroupMerged
	for _, n := range m.NeuronSpikeQueueUpdateGroups {
		arch := n.Archetype()
		if !arch.PrevSpikeTimeRequired() && !arch.PrevSpikeEventTimeRequired() {
			singleThread = append(singleThread, n)
			continue
		}
		cs.Line("// merged%d", n.Index)

		{
			// Multiple threads per member: one per neuron
			counts := make([]int, len(n.Groups))
			for i, g := range n.Groups {
				counts[i] = g.NumNeurons
			}
			mt := padMembers(counts, blockSize)
			b.genStartIDArrays(decls, "NeuronSpikeQueueUpdate", n.Index, mt.starts, idStart)

			genRangeTest(cs, idStart, mt.padded)
			var genErr error
			cs.Scope(func() {
				popSubs := codegen.NewSubstitutions(kernelSubs)
				b.genGroupMergedSearch(cs, popSubs, "NeuronSpikeQueueUpdate", n.Index, len(n.Groups), idStart)

				if batchSize > 1 {
					cs.Line("for(unsigned int batch = 0; batch < %d; batch++)", batchSize)
				}
				body := func() {
					if arch.DelayRequired() {
						if batchSize == 1 {
							cs.Line("const unsigned int lastTimestepDelaySlot = *group->spkQuePtr;")
						} else {
							cs.Line("const unsigned int lastTimestepDelaySlot = *group->spkQuePtr + (batch * %d);", arch.NumDelaySlots())
						}
						cs.Line("const unsigned int lastTimestepDelayOffset = lastTimestepDelaySlot * group->numNeurons;")
						if arch.PrevSpikeTimeRequired() {
							// spkQuePtr is advanced below so it still points at the last timestep
							cs.Line("if(%s < group->spkCnt[lastTimestepDelaySlot])", popSubs.Get("id"))
							cs.Scope(func() {
								cs.Line("group->prevST[lastTimestepDelayOffset + group->spk[lastTimestepDelayOffset + %s]] = %s - DT;",
									popSubs.Get("id"), popSubs.Get("t"))
							})
						}
						if arch.PrevSpikeEventTimeRequired() {
							cs.Line("if(%s < group->spkCntEvnt[lastTimestepDelaySlot])", popSubs.Get("id"))
							cs.Scope(func() {
								cs.Line("group->prevSET[lastTimestepDelayOffset + group->spkEvnt[lastTimestepDelayOffset + %s]] = %s - DT;",
									popSubs.Get("id"), popSubs.Get("t"))
							})
						}
					} else {
						if batchSize > 1 {
							cs.Line("const unsigned int batchOffset = group->numNeurons * batch;")
						}
						slot := "0"
						offset := ""
						if batchSize > 1 {
							slot = "batch"
							offset = "batchOffset + "
						}
						if arch.PrevSpikeTimeRequired() {
							cs.Line("if(%s < group->spkCnt[%s])", popSubs.Get("id"), slot)
							cs.Scope(func() {
								cs.Line("group->prevST[group->spk[%s%s]] = %s - DT;", offset, popSubs.Get("id"), popSubs.Get("t"))
							})
						}
						if arch.PrevSpikeEventTimeRequired() {
							cs.Line("if(%s < group->spkCntEvnt[%s])", popSubs.Get("id"), slot)
							cs.Scope(func() {
								cs.Line("group->prevSET[group->spkEvnt[%s%s]] = %s - DT;", offset, popSubs.Get("id"), popSubs.Get("t"))
							})
						}
					}
				}
				if batchSize > 1 {
					cs.Scope(body)
				} else {
					body()
				}
				cs.Blank()

				// The pointer advance below is read by the prev-time code
				// above in other lanes, so fence the block first
				b.rt.GenSharedMemBarrier(cs)

				cs.Line("if(%s == 0)", popSubs.Get("id"))
				cs.Scope(func() {
					if arch.DelayRequired() {
						cs.Line("*group->spkQuePtr = (*group->spkQuePtr + 1) %% %d;", arch.NumDelaySlots())
					}
					if batchSize > 1 {
						cs.Line("for(unsigned int batch = 0; batch < %d; batch++)", batchSize)
						cs.Scope(func() {
							n.GenSpikeCountReset(cs, batchSize)
						})
					} else {
						n.GenSpikeCountReset(cs, batchSize)
					}
				})
			})
			if genErr != nil {
				return 0, genErr
			}
			idStart += mt.padded
		}
	}

	for _, n := range singleThread {
		n := n
		arch := n.Archetype()
		cs.Line("// merged%d", n.Index)

		// One thread per member
		genRangeTest(cs, idStart, len(n.Groups))
		start := idStart
		cs.Scope(func() {
			cs.Line("%sstruct MergedNeuronSpikeQueueUpdateGroup%d *group = &d_mergedNeuronSpikeQueueUpdateGroup%d[id - %d];",
				b.rt.GetPointerPrefix(), n.Index, n.Index, start)
			if arch.DelayRequired() {
				cs.Line("*group->spkQuePtr = (*group->spkQuePtr + 1) %% %d;", arch.NumDelaySlots())
			}
			if batchSize > 1 {
				cs.Line("for(unsigned int batch = 0; batch < %d; batch++)", batchSize)
				cs.Scope(func() {
					n.GenSpikeCountReset(cs, batchSize)
				})
			} else {
				n.GenSpikeCountReset(cs, batchSize)
			}
		})
		idStart += len(n.Groups)
	}
	return idStart, nil
}

// GenNeuronUpdateKernel emits the per-timestep neuron simulation kernel:
// shared-memory spike staging, user model code, atomic compaction into the
// global spike queues and optional spike recording.
func (b *Backend) GenNeuronUpdateKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel) (int, error) {
	rt := b.rt
	batchSize := m.Network.BatchSize
	blockSize := b.KernelBlockSize(KernelNeuronUpdate)

	anyEvents, anyTrueSpikes, anyRecording, anyEventRecording := false, false, false, false
	for _, n := range m.NeuronUpdateGroups {
		arch := n.Archetype()
		if arch.SpikeEventRequired() {
			anyEvents = true
		}
		if arch.Model.ThresholdConditionCode != "" {
			anyTrueSpikes = true
		}
		if arch.SpikeRecordingEnabled {
			anyRecording = true
		}
		if arch.SpikeEventRecordingEnabled {
			anyEventRecording = true
		}
	}

	// Shared staging arrays: true spikes compact through lane 0, events
	// through lane 1, so the two phases overlap
	if anyEvents {
		cs.Line("%sunsigned int shSpkEvnt[%d];", rt.GetSharedPrefix(), blockSize)
		cs.Line("%sunsigned int shPosSpkEvnt;", rt.GetSharedPrefix())
		cs.Line("%sunsigned int shSpkEvntCount;", rt.GetSharedPrefix())
		cs.Blank()
		cs.Line("if (%s == 1)", rt.GetThreadID())
		cs.Scope(func() {
			cs.Line("shSpkEvntCount = 0;")
		})
		cs.Blank()
	}
	if anyTrueSpikes {
		cs.Line("%sunsigned int shSpk[%d];", rt.GetSharedPrefix(), blockSize)
		cs.Line("%sunsigned int shPosSpk;", rt.GetSharedPrefix())
		cs.Line("%sunsigned int shSpkCount;", rt.GetSharedPrefix())
		cs.Line("if (%s == 0)", rt.GetThreadID())
		cs.Scope(func() {
			cs.Line("shSpkCount = 0;")
		})
		cs.Blank()
	}
	if anyRecording {
		b.genRecordingSharedMemInit(cs, "")
	}
	if anyEventRecording {
		b.genRecordingSharedMemInit(cs, "Evnt")
	}
	rt.GenSharedMemBarrier(cs)

	idStart := 0
	for _, ng := range m.NeuronUpdateGroups {
		ng := ng
		arch := ng.Archetype()
		counts := make([]int, len(ng.Groups))
		for i, g := range ng.Groups {
			counts[i] = g.NumNeurons
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "NeuronUpdate", ng.Index, mt.starts, idStart)

		cs.Line("// merged%d", ng.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "NeuronUpdate", ng.Index, len(ng.Groups), idStart)
			b.genNeuronIndexCalculation(cs, ng, batchSize)
			cs.Blank()

			cs.Line("if(%s < group->numNeurons)", popSubs.Get("id"))
			cs.Scope(func() {
				if arch.SimRNGRequired() {
					rt.GenPopulationRNGPreamble(cs, "group->rng["+ng.VarIndex(batchSize, popSubs.Get("id"))+"]")
					b.bindRNGSubs(popSubs)
				}
				if err := ng.GenSim(cs, popSubs,
					// Emit true spikes
					func(cs *codegen.CodeStream, subs *codegen.Substitutions) {
						b.genEmitSpike(cs, subs, "", arch.SpikeRecordingEnabled)
					},
					// Emit spike-like events
					func(cs *codegen.CodeStream, subs *codegen.Substitutions) {
						b.genEmitSpike(cs, subs, "Evnt", arch.SpikeEventRecordingEnabled)
					}); err != nil {
					genErr = err
					return
				}
				if arch.SimRNGRequired() {
					rt.GenPopulationRNGPostamble(cs, "group->rng["+ng.VarIndex(batchSize, popSubs.Get("id"))+"]")
				}
			})
			if genErr != nil {
				return
			}

			rt.GenSharedMemBarrier(cs)

			// Compaction: lane 1 claims the event block while lane 0 claims
			// the true spike block
			if arch.SpikeEventRequired() {
				cs.Line("if (%s == 1)", rt.GetThreadID())
				cs.Scope(func() {
					cs.Line("if (shSpkEvntCount > 0)")
					cs.Scope(func() {
						target := spikeCountIndex(arch, arch.DelayRequired(), batchSize)
						cs.Line("shPosSpkEvnt = %s(&group->spkCntEvnt%s, shSpkEvntCount);",
							rt.GetAtomic("unsigned int", codegen.AtomicAdd, codegen.GlobalMem), target)
					})
				})
				rt.GenSharedMemBarrier(cs)
			}
			if arch.Model.ThresholdConditionCode != "" {
				cs.Line("if (%s == 0)", rt.GetThreadID())
				cs.Scope(func() {
					cs.Line("if (shSpkCount > 0)")
					cs.Scope(func() {
						target := spikeCountIndex(arch, arch.DelayRequired() && arch.TrueSpikeRequired(), batchSize)
						cs.Line("shPosSpk = %s(&group->spkCnt%s, shSpkCount);",
							rt.GetAtomic("unsigned int", codegen.AtomicAdd, codegen.GlobalMem), target)
					})
				})
				rt.GenSharedMemBarrier(cs)
			}

			// Copy staged spikes out to the global queues
			queueOffset := ng.WriteVarIndex(arch.DelayRequired(), batchSize, "")
			if arch.SpikeEventRequired() {
				cs.Line("if(%s < shSpkEvntCount)", rt.GetThreadID())
				cs.Scope(func() {
					cs.Line("const unsigned int n = shSpkEvnt[%s];", rt.GetThreadID())
					cs.Line("group->spkEvnt[%sshPosSpkEvnt + %s] = n;", queueOffset, rt.GetThreadID())
					if arch.SpikeEventTimeRequired() {
						cs.Line("group->seT[%sn] = t;", queueOffset)
					}
				})
			}
			if arch.Model.ThresholdConditionCode != "" {
				queueOffsetTrueSpk := ng.WriteVarIndex(arch.TrueSpikeRequired() && arch.DelayRequired(), batchSize, "")
				cs.Line("if(%s < shSpkCount)", rt.GetThreadID())
				cs.Scope(func() {
					cs.Line("const unsigned int n = shSpk[%s];", rt.GetThreadID())

					// Weight update models see the firing neuron's index
					wuSubs := codegen.NewSubstitutions(popSubs)
					wuSubs.MustVar("id", "n", true)
					if err := ng.GenWUVarUpdate(cs, wuSubs); err != nil {
						genErr = err
						return
					}

					cs.Line("group->spk[%sshPosSpk + %s] = n;", queueOffsetTrueSpk, rt.GetThreadID())
					if arch.SpikeTimeRequired() {
						cs.Line("group->sT[%sn] = t;", queueOffset)
					}
				})
			}
			if genErr != nil {
				return
			}

			// Copy this block's recording words to global memory
			if arch.SpikeRecordingEnabled || arch.SpikeEventRecordingEnabled {
				if blockSize == 32 {
					cs.Line("if(%s == 0)", rt.GetThreadID())
				} else {
					cs.Line("if(%s < %d)", rt.GetThreadID(), blockSize/32)
				}
				cs.Scope(func() {
					cs.Line("const unsigned int numRecordingWords = (group->numNeurons + 31) / 32;")
					globalIndex := fmt.Sprintf("(recordingTimestep * numRecordingWords * %d) + (%s / 32) + %s",
						batchSize, popSubs.Get("id"), rt.GetThreadID())
					if batchSize > 1 {
						globalIndex += " + (batch * numRecordingWords)"
					}
					if arch.SpikeRecordingEnabled {
						if blockSize == 32 {
							cs.Line("group->recordSpk[%s] = shSpkRecord;", globalIndex)
						} else {
							cs.Line("group->recordSpk[%s] = shSpkRecord[%s];", globalIndex, rt.GetThreadID())
						}
					}
					if arch.SpikeEventRecordingEnabled {
						if blockSize == 32 {
							cs.Line("group->recordSpkEvent[%s] = shSpkEvntRecord;", globalIndex)
						} else {
							cs.Line("group->recordSpkEvent[%s] = shSpkEvntRecord[%s];", globalIndex, rt.GetThreadID())
						}
					}
				})
			}
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	return idStart, nil
}

// spikeCountIndex builds the index expression into a spike count array.
func spikeCountIndex(arch *model.NeuronGroup, delayed bool, batchSize int) string {
	if delayed {
		if batchSize > 1 {
			return fmt.Sprintf("[*group->spkQuePtr + (batch * %d)]", arch.NumDelaySlots())
		}
		return "[*group->spkQuePtr]"
	}
	if batchSize > 1 {
		return "[batch]"
	}
	return "[0]"
}

// genNeuronIndexCalculation emits the batch and delay slot offsets the
// neuron body indexes with.
func (b *Backend) genNeuronIndexCalculation(cs *codegen.CodeStream, ng *codegen.NeuronUpdateGroupMerged, batchSize int) {
	arch := ng.Archetype()
	if batchSize > 1 {
		cs.Line("const unsigned int batch = %s;", b.rt.GetBlockID())
		cs.Line("const unsigned int batchOffset = group->numNeurons * batch;")
	}
	if arch.DelayRequired() {
		slots := arch.NumDelaySlots()
		if batchSize > 1 {
			cs.Line("const unsigned int readDelaySlot = ((*group->spkQuePtr + %d) %% %d) + (batch * %d);", slots-1, slots, slots)
			cs.Line("const unsigned int writeDelaySlot = *group->spkQuePtr + (batch * %d);", slots)
		} else {
			cs.Line("const unsigned int readDelaySlot = (*group->spkQuePtr + %d) %% %d;", slots-1, slots)
			cs.Line("const unsigned int writeDelaySlot = *group->spkQuePtr;")
		}
		cs.Line("const unsigned int readDelayOffset = readDelaySlot * group->numNeurons;")
		cs.Line("const unsigned int writeDelayOffset = writeDelaySlot * group->numNeurons;")
	}
}

// genEmitSpike emits the staging of one spike or spike-like event: an
// atomic bump of the shared counter and a write into the staging array.
func (b *Backend) genEmitSpike(cs *codegen.CodeStream, subs *codegen.Substitutions, suffix string, recordingEnabled bool) {
	rt := b.rt
	cs.Line("const unsigned int spk%sIdx = %s(&shSpk%sCount, 1);", suffix,
		rt.GetAtomic("unsigned int", codegen.AtomicAdd, codegen.SharedMem), suffix)
	cs.Line("shSpk%s[spk%sIdx] = %s;", suffix, suffix, subs.Get("id"))
	if recordingEnabled {
		blockSize := b.KernelBlockSize(KernelNeuronUpdate)
		if blockSize == 32 {
			cs.Line("%s(&shSpk%sRecord, 1 << %s);",
				rt.GetAtomic("unsigned int", codegen.AtomicOr, codegen.SharedMem), suffix, rt.GetThreadID())
		} else {
			cs.Line("%s(&shSpk%sRecord[%s / 32], 1 << (%s %% 32));",
				rt.GetAtomic("unsigned int", codegen.AtomicOr, codegen.SharedMem), suffix, rt.GetThreadID(), rt.GetThreadID())
		}
	}
}

// genRecordingSharedMemInit declares and zeroes the per-block spike
// recording bitmap.
func (b *Backend) genRecordingSharedMemInit(cs *codegen.CodeStream, suffix string) {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelNeuronUpdate)
	if blockSize == 32 {
		cs.Line("%suint32_t shSpk%sRecord;", rt.GetSharedPrefix(), suffix)
		cs.Line("if (%s == 0)", rt.GetThreadID())
		cs.Scope(func() {
			cs.Line("shSpk%sRecord = 0;", suffix)
		})
	} else {
		cs.Line("%suint32_t shSpk%sRecord[%d];", rt.GetSharedPrefix(), suffix, blockSize/32)
		cs.Line("if (%s < %d)", rt.GetThreadID(), blockSize/32)
		cs.Scope(func() {
			cs.Line("shSpk%sRecord[%s] = 0;", suffix, rt.GetThreadID())
		})
	}
}
