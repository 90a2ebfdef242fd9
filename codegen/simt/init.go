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

// GenInitializeKernel emits the fused initialisation kernel: per-neuron
// state, dense per-synapse state, then sparse and bitmask connectivity
// construction.
func (b *Backend) GenInitializeKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel) (int, error) {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelInitialize)
	idStart := 0

	cs.Line("// ------------------------------------------------------------------------")
	cs.Line("// Local neuron groups")
	for _, ng := range m.NeuronInitGroups {
		ng := ng
		arch := ng.Archetype()
		counts := make([]int, len(ng.Groups))
		for i, g := range ng.Groups {
			counts[i] = g.NumNeurons
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "NeuronInit", ng.Index, mt.starts, idStart)

		cs.Line("// merged%d", ng.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "NeuronInit", ng.Index, len(ng.Groups), idStart)

			cs.Line("// only do this for existing neurons")
			cs.Line("if(%s < group->numNeurons)", popSubs.Get("id"))
			cs.Scope(func() {
				cs.Line("if(%s == 0)", popSubs.Get("id"))
				cs.Scope(func() {
					ng.GenSpikeCountInit(cs)
				})

				if rt.IsPopulationRNGInitialisedOnDevice() && arch.SimRNGRequired() {
					if m.Network.BatchSize == 1 {
						rt.GenPopulationRNGInit(cs, "group->rng["+popSubs.Get("id")+"]", "deviceRNGSeed", "id")
					} else {
						cs.Line("for(unsigned int b = 0; b < %d; b++)", m.Network.BatchSize)
						cs.Scope(func() {
							rt.GenPopulationRNGInit(cs, "group->rng[(b * group->numNeurons) + "+popSubs.Get("id")+"]",
								"deviceRNGSeed", fmt.Sprintf("(b * %d) + id", b.NumInitialisationRNGStreams(m)))
						})
					}
				}

				// Initialisation draws come from the global stream skipped
				// ahead by the GLOBAL thread id
				if arch.InitRNGRequired() {
					rt.GenGlobalRNGSkipAhead(cs, "id")
					b.bindRNGSubs(popSubs)
				}

				genErr = ng.GenInit(cs, popSubs)
			})
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	cs.Blank()

	cs.Line("// ------------------------------------------------------------------------")
	cs.Line("// Synapse groups with dense connectivity")
	for _, sg := range m.SynapseDenseInitGroups {
		sg := sg
		arch := sg.Archetype()
		counts := make([]int, len(sg.Groups))
		for i, g := range sg.Groups {
			counts[i] = g.Trg.NumNeurons
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "SynapseDenseInit", sg.Index, mt.starts, idStart)

		cs.Line("// merged%d", sg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "SynapseDenseInit", sg.Index, len(sg.Groups), idStart)

			cs.Line("// only do this for existing postsynaptic neurons")
			cs.Line("if(%s < group->numTrgNeurons)", popSubs.Get("id"))
			cs.Scope(func() {
				if arch.WUInitRNGRequired() {
					rt.GenGlobalRNGSkipAhead(cs, "id")
					b.bindRNGSubs(popSubs)
				}
				popSubs.MustVar("id_post", popSubs.Get("id"))
				genErr = sg.GenWUVarInit(cs, popSubs)
			})
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	cs.Blank()

	cs.Line("// ------------------------------------------------------------------------")
	cs.Line("// Synapse groups with sparse connectivity")
	for _, sg := range m.SynapseConnectivityInitGroups {
		sg := sg
		counts := make([]int, len(sg.Groups))
		for i, g := range sg.Groups {
			n, err := NumConnectivityInitThreads(g)
			if err != nil {
				return 0, err
			}
			counts[i] = n
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "SynapseConnectivityInit", sg.Index, mt.starts, idStart)

		cs.Line("// merged%d", sg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "SynapseConnectivityInit", sg.Index, len(sg.Groups), idStart)
			genErr = b.genConnectivityInit(cs, sg, popSubs)
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	cs.Blank()
	return idStart, nil
}

// genConnectivityInit emits one merged group's sparse or bitmask
// connectivity construction around the row or column building snippet.
func (b *Backend) genConnectivityInit(cs *codegen.CodeStream, sg *codegen.SynapseConnectivityInitGroupMerged, popSubs *codegen.Substitutions) error {
	rt := b.rt
	arch := sg.Archetype()
	rowBuild := arch.ConnectivityInit.HasRowBuild()
	sparse := arch.MatrixType.Has(model.SparseConnectivity)
	id := popSubs.Get("id")

	if rowBuild {
		cs.Line("// only do this for existing presynaptic neurons")
		cs.Line("if(%s < group->numSrcNeurons)", id)
		popSubs.MustVar("id_pre", id)
		popSubs.MustVar("id_post_begin", "0")
		popSubs.MustVar("id_thread", "0")
		popSubs.MustVar("num_threads", "1")
	} else {
		cs.Line("// only do this for existing postsynaptic neurons")
		cs.Line("if(%s < group->numTrgNeurons)", id)
		popSubs.MustVar("id_post", id)
		popSubs.MustVar("id_pre_begin", "0")
		popSubs.MustVar("id_thread", "0")
		popSubs.MustVar("num_threads", "1")
	}
	popSubs.MustVar("num_pre", "group->numSrcNeurons")
	popSubs.MustVar("num_post", "group->numTrgNeurons")

	var genErr error
	cs.Scope(func() {
		// Build the addSynapse expansion: the classic do-while(false) trick
		// turns the block into a statement that eats one semicolon
		kernelInit := codegen.NewCodeStream()
		kernelInit.Line("do")
		kernelInit.ScopeSuffix(" while(false)", func() {
			if sparse {
				if rowBuild {
					kernelInit.Line("const unsigned int idx = (%s * group->rowStride) + group->rowLength[%s];", id, id)
				} else {
					kernelInit.Line("const unsigned int idx = (($(0)) * group->rowStride) + group->rowLength[$(0)];")
				}
			}

			if sparse {
				if rowBuild {
					kernelInit.Line("group->ind[idx] = $(0);")
					kernelInit.Line("group->rowLength[%s]++;", id)
				} else {
					// Column building threads race on row lengths, so they
					// claim slots atomically
					kernelInit.Line("group->ind[(($(0)) * group->rowStride) + %s(&group->rowLength[$(0)], 1)] = %s;",
						rt.GetAtomic("unsigned int", codegen.AtomicAdd, codegen.GlobalMem), id)
				}
			} else {
				indexType := "unsigned int"
				if b.AreSixtyFourBitSynapseIndicesRequired(arch) {
					indexType = "uint64_t"
				}
				if rowBuild {
					kernelInit.Line("const %s rowStartGID = %s * (%s)group->rowStride;", indexType, id, indexType)
					kernelInit.Line("%s(&group->gp[(rowStartGID + ($(0))) / 32], 0x80000000 >> ((rowStartGID + ($(0))) & 31));",
						rt.GetAtomic("unsigned int", codegen.AtomicOr, codegen.GlobalMem))
				} else {
					kernelInit.Line("const %s colStartGID = %s;", indexType, id)
					kernelInit.Line("%s(&group->gp[(colStartGID + (($(0)) * group->rowStride)) / 32], 0x80000000 >> ((colStartGID + (($(0)) * group->rowStride)) & 31));",
						rt.GetAtomic("unsigned int", codegen.AtomicOr, codegen.GlobalMem))
				}
			}
		})

		// Drop the closing line's newline so the call site's semicolon
		// follows "} while(false)" directly
		addSynapse := kernelInit.String()
		popSubs.MustFunc("addSynapse", 1+len(arch.KernelSize), addSynapse[:len(addSynapse)-1])

		if rowBuild {
			if sparse {
				cs.Line("group->rowLength[%s] = 0;", id)
			}
			if arch.ConnectivityInitRNGRequired() {
				rt.GenGlobalRNGSkipAhead(cs, "id")
				b.bindRNGSubs(popSubs)
			}
			popSubs.MustVar("endRow", "break")
			cs.Line("while(true)")
			cs.Scope(func() {
				genErr = sg.GenRowBuild(cs, popSubs)
			})
		} else {
			if arch.ConnectivityInitRNGRequired() {
				rt.GenGlobalRNGSkipAhead(cs, "id")
				b.bindRNGSubs(popSubs)
			}
			popSubs.MustVar("endCol", "break")
			cs.Line("while(true)")
			cs.Scope(func() {
				genErr = sg.GenColBuild(cs, popSubs)
			})
		}
	})
	return genErr
}

// GenInitializeSparseKernel emits the second phase of initialisation that
// needs connectivity to exist: per-synapse variables, the column-major
// remap for postsynaptic learning and the dense walk remap for synapse
// dynamics.
func (b *Backend) GenInitializeSparseKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel, numInitializeThreads int) (int, error) {
	rt := b.rt
	blockSize := b.KernelBlockSize(KernelInitializeSparse)

	if len(m.SynapseSparseInitGroups) == 0 {
		return 0, nil
	}

	// Row lengths go through shared memory so every postsynaptic thread
	// doesn't read them from global memory
	cs.Line("%sunsigned int shRowLength[%d];", rt.GetSharedPrefix(), blockSize)
	anyDynamics := false
	for _, sg := range m.SynapseSparseInitGroups {
		if sg.Archetype().WUModel.SynapseDynamicsCode != "" {
			anyDynamics = true
		}
	}
	if anyDynamics {
		cs.Line("%sunsigned int shRowStart[%d];", rt.GetSharedPrefix(), blockSize+1)
	}
	cs.Blank()

	idStart := 0
	for _, sg := range m.SynapseSparseInitGroups {
		sg := sg
		arch := sg.Archetype()
		counts := make([]int, len(sg.Groups))
		for i, g := range sg.Groups {
			counts[i] = g.MaxConnections
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "SynapseSparseInit", sg.Index, mt.starts, idStart)

		cs.Line("// merged%d", sg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "SynapseSparseInit", sg.Index, len(sg.Groups), idStart)
			id := popSubs.Get("id")

			if arch.WUInitRNGRequired() {
				rt.GenGlobalRNGSkipAhead(cs, fmt.Sprintf("%d + id", numInitializeThreads))
				b.bindRNGSubs(popSubs)
			}

			cs.Line("const unsigned int numBlocks = (group->numSrcNeurons + %d - 1) / %d;", blockSize, blockSize)
			cs.Line("unsigned int idx = %s;", id)
			cs.Line("for(unsigned int r = 0; r < numBlocks; r++)")
			cs.Scope(func() {
				cs.Line("const unsigned numRowsInBlock = (r == (numBlocks - 1)) ? ((group->numSrcNeurons - 1) %% %d) + 1 : %d;", blockSize, blockSize)

				rt.GenSharedMemBarrier(cs)
				cs.Line("if (%s < numRowsInBlock)", rt.GetThreadID())
				cs.Scope(func() {
					cs.Line("shRowLength[%s] = group->rowLength[(r * %d) + %s];", rt.GetThreadID(), blockSize, rt.GetThreadID())
				})

				if arch.WUModel.SynapseDynamicsCode != "" {
					rt.GenSharedMemBarrier(cs)
					cs.Line("if(%s == 0)", rt.GetThreadID())
					cs.Scope(func() {
						// A previous block always processed a whole block's
						// worth of rows, so its final entry carries the sum
						cs.Line("unsigned int rowStart = (r == 0) ? 0 : shRowStart[%d];", blockSize)
						cs.Line("shRowStart[0] = rowStart;")
						cs.Line("for(unsigned int i = 0; i < numRowsInBlock; i++)")
						cs.Scope(func() {
							cs.Line("rowStart += shRowLength[i];")
							cs.Line("shRowStart[i + 1] = rowStart;")
						})
						cs.Line("if(%s == 0 && (r == (numBlocks - 1)))", id)
						cs.Scope(func() {
							cs.Line("group->synRemap[0] = shRowStart[numRowsInBlock];")
						})
					})
				}

				rt.GenSharedMemBarrier(cs)

				cs.Line("for(unsigned int i = 0; i < numRowsInBlock; i++)")
				cs.Scope(func() {
					cs.Line("if(%s < shRowLength[i])", id)
					cs.Scope(func() {
						if arch.WUVarInitRequired() {
							initSubs := codegen.NewSubstitutions(popSubs)
							initSubs.MustVar("id_pre", fmt.Sprintf("((r * %d) + i)", blockSize))
							initSubs.MustVar("id_post", "group->ind[idx]")
							initSubs.MustVar("id_syn", "idx")
							if err := sg.GenWUVarInit(cs, initSubs); err != nil {
								genErr = err
								return
							}
						}

						if arch.WUModel.LearnPostCode != "" {
							cs.Scope(func() {
								cs.Line("const unsigned int postIndex = group->ind[idx];")
								// The returned previous length is the slot to
								// insert at
								cs.Line("const unsigned int colLocation = %s(&group->colLength[postIndex], 1);",
									rt.GetAtomic("unsigned int", codegen.AtomicAdd, codegen.GlobalMem))
								cs.Line("const unsigned int colMajorIndex = (postIndex * group->colStride) + colLocation;")
								cs.Line("group->remap[colMajorIndex] = idx;")
							})
						}

						if arch.WUModel.SynapseDynamicsCode != "" {
							cs.Scope(func() {
								cs.Line("group->synRemap[shRowStart[i] + %s + 1] = idx;", id)
							})
						}
					})
					cs.Line("idx += group->rowStride;")
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

// AreSixtyFourBitSynapseIndicesRequired reports whether flat synapse
// indices of the group overflow 32 bits.
func (b *Backend) AreSixtyFourBitSynapseIndicesRequired(sg *model.SynapseGroup) bool {
	return int64(sg.Src.NumNeurons)*int64(b.SynapticMatrixRowStride(sg)) > int64(^uint32(0))
}

// NumInitialisationRNGStreams is the total number of per-thread RNG
// sequences the initialisation kernels consume; batched population RNG
// seeding offsets its sequences by this count.
func (b *Backend) NumInitialisationRNGStreams(m *codegen.MergedModel) int {
	blockSize := b.KernelBlockSize(KernelInitialize)
	total := 0
	for _, g := range m.NeuronInitGroups {
		for _, ng := range g.Groups {
			total += PadSize(ng.NumNeurons, blockSize)
		}
	}
	for _, g := range m.SynapseDenseInitGroups {
		for _, sg := range g.Groups {
			total += PadSize(sg.Trg.NumNeurons, blockSize)
		}
	}
	for _, g := range m.SynapseConnectivityInitGroups {
		for _, sg := range g.Groups {
			total += PadSize(sg.Src.NumNeurons, blockSize)
		}
	}
	sparseBlock := b.KernelBlockSize(KernelInitializeSparse)
	for _, g := range m.SynapseSparseInitGroups {
		for _, sg := range g.Groups {
			total += PadSize(sg.MaxConnections, sparseBlock)
		}
	}
	return total
}
