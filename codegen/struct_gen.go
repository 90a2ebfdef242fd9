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
	"strconv"
	"strings"
)

// MergedStruct is the uniform view the struct emitter takes of any merged
// group: its purpose name, index, field table and member count.
type MergedStruct struct {
	Purpose    string
	Index      int
	Fields     []Field
	NumMembers int
}

// StructName returns the generated C struct name, e.g.
// "MergedNeuronUpdateGroup0".
func (ms MergedStruct) StructName() string {
	return "Merged" + ms.Purpose + "Group" + strconv.Itoa(ms.Index)
}

// HostArrayName returns the host instance array name.
func (ms MergedStruct) HostArrayName() string {
	return "merged" + ms.Purpose + "Group" + strconv.Itoa(ms.Index)
}

// DeviceArrayName returns the device instance array name kernels index.
func (ms MergedStruct) DeviceArrayName() string {
	return "d_merged" + ms.Purpose + "Group" + strconv.Itoa(ms.Index)
}

// PushFuncName returns the runtime-provided transfer trampoline's name.
func (ms MergedStruct) PushFuncName() string {
	return "pushMerged" + ms.Purpose + "Group" + strconv.Itoa(ms.Index) + "ToDevice"
}

// EachMergedStruct visits every merged group of the model in a stable
// order, presenting each through the uniform struct view.
func (m *MergedModel) EachMergedStruct(fn func(ms MergedStruct)) {
	for _, g := range m.NeuronUpdateGroups {
		fn(MergedStruct{"NeuronUpdate", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.NeuronInitGroups {
		fn(MergedStruct{"NeuronInit", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.NeuronSpikeQueueUpdateGroups {
		fn(MergedStruct{"NeuronSpikeQueueUpdate", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.SynapseDendriticDelayUpdateGroups {
		fn(MergedStruct{"SynapseDendriticDelayUpdate", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.PresynapticUpdateGroups {
		fn(MergedStruct{"PresynapticUpdate", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.PostsynapticUpdateGroups {
		fn(MergedStruct{"PostsynapticUpdate", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.SynapseDynamicsGroups {
		fn(MergedStruct{"SynapseDynamics", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.SynapseDenseInitGroups {
		fn(MergedStruct{"SynapseDenseInit", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.SynapseConnectivityInitGroups {
		fn(MergedStruct{"SynapseConnectivityInit", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.SynapseSparseInitGroups {
		fn(MergedStruct{"SynapseSparseInit", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.CustomUpdateGroups {
		fn(MergedStruct{"CustomUpdate", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.CustomUpdateWUGroups {
		fn(MergedStruct{"CustomUpdateWU", g.Index, g.Fields(), len(g.Groups)})
	}
	for _, g := range m.CustomUpdateHostReductionGroups {
		fn(MergedStruct{"CustomUpdateHostReduction", g.Index, g.Fields(), len(g.Groups)})
	}
}

// GenMergedStructs emits, for every merged group: the struct definition and
// push trampoline declaration (definitionsInternal), the host instance
// array (runnerVarDecl) and the population + push calls that run at the end
// of allocateMem (runnerMergedStructAlloc).
func (m *MergedModel) GenMergedStructs(definitionsInternal, definitionsInternalFunc, runnerVarDecl, runnerMergedStructAlloc *CodeStream) {
	m.EachMergedStruct(func(ms MergedStruct) {
		definitionsInternal.Line("struct %s", ms.StructName())
		definitionsInternal.ScopeSuffix(";", func() {
			for _, f := range ms.Fields {
				definitionsInternal.Line("%s %s;", f.Type, f.Name)
			}
		})
		definitionsInternal.Blank()
		definitionsInternalFunc.Line("EXPORT_FUNC void %s(const struct %s *group);", ms.PushFuncName(), ms.StructName())

		runnerVarDecl.Line("static struct %s %s[%d];", ms.StructName(), ms.HostArrayName(), ms.NumMembers)

		for i := 0; i < ms.NumMembers; i++ {
			values := make([]string, len(ms.Fields))
			for fi, f := range ms.Fields {
				values[fi] = f.Value(i)
			}
			runnerMergedStructAlloc.Line("%s[%d] = {%s};", ms.HostArrayName(), i, strings.Join(values, ", "))
		}
		runnerMergedStructAlloc.Line("%s(%s);", ms.PushFuncName(), ms.HostArrayName())
	})
}
