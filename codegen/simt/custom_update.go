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

// GenCustomUpdateKernel emits the neuron-sized custom update kernel for one
// update group name.
func (b *Backend) GenCustomUpdateKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel, updateGroup string) (int, error) {
	blockSize := b.KernelBlockSize(KernelCustomUpdate)
	idStart := 0

	for _, cg := range m.CustomUpdateGroups {
		cg := cg
		if cg.Archetype().UpdateGroupName != updateGroup {
			continue
		}
		counts := make([]int, len(cg.Groups))
		for i, g := range cg.Groups {
			counts[i] = g.Size
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "CustomUpdate", cg.Index, mt.starts, idStart)

		cs.Line("// merged%d", cg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "CustomUpdate", cg.Index, len(cg.Groups), idStart)

			cs.Line("// only do this for existing neurons")
			cs.Line("if(%s < group->size)", popSubs.Get("id"))
			cs.Scope(func() {
				genErr = cg.GenUpdate(cs, popSubs)
			})
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	return idStart, nil
}

// GenCustomUpdateWUKernel emits the synapse-sized custom update kernel for
// one update group name.
func (b *Backend) GenCustomUpdateWUKernel(cs, decls *codegen.CodeStream, kernelSubs *codegen.Substitutions, m *codegen.MergedModel, updateGroup string) (int, error) {
	blockSize := b.KernelBlockSize(KernelCustomUpdate)
	idStart := 0

	for _, cg := range m.CustomUpdateWUGroups {
		cg := cg
		if cg.Archetype().UpdateGroupName != updateGroup {
			continue
		}
		counts := make([]int, len(cg.Groups))
		for i, g := range cg.Groups {
			counts[i] = NumCustomUpdateWUThreads(g)
		}
		mt := padMembers(counts, blockSize)
		b.genStartIDArrays(decls, "CustomUpdateWU", cg.Index, mt.starts, idStart)

		cs.Line("// merged%d", cg.Index)
		genRangeTest(cs, idStart, mt.padded)
		var genErr error
		cs.Scope(func() {
			popSubs := codegen.NewSubstitutions(kernelSubs)
			b.genGroupMergedSearch(cs, popSubs, "CustomUpdateWU", cg.Index, len(cg.Groups), idStart)

			sparse := cg.Archetype().SynapseGroup.MatrixType.Has(model.SparseConnectivity)
			synSubs := codegen.NewSubstitutions(popSubs)
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
				genErr = cg.GenUpdate(cs, synSubs)
			})
		})
		if genErr != nil {
			return 0, genErr
		}
		idStart += mt.padded
	}
	return idStart, nil
}
