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
	"fmt"

	"github.com/spikegen/spikegen/model"
)

//----------------------------------------------------------------------------
// CustomUpdateGroupMerged
//----------------------------------------------------------------------------

// CustomUpdateGroupMerged generates user-triggered updates over per-neuron
// sized variables.
type CustomUpdateGroupMerged struct {
	MergedGroupBase
	Groups []*model.CustomUpdate

	net       *model.Network
	paramRepl map[string]string
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *CustomUpdateGroupMerged) Archetype() *model.CustomUpdate { return g.Groups[0] }

func digestCustomUpdate(cu *model.CustomUpdate) string {
	h := NewStructuralHash()
	hashCustomUpdateModel(h, cu.Model)
	h.String(cu.UpdateGroupName)
	for _, decl := range cu.Model.VarRefNames {
		ref := cu.VarRefs[decl.Name]
		if ref.Group != nil {
			h.Bool(ref.Group.DelayRequired())
		}
	}
	return h.Digest()
}

func newCustomUpdateGroupMerged(index int, members []*model.CustomUpdate, net *model.Network, opts Options) *CustomUpdateGroupMerged {
	g := &CustomUpdateGroupMerged{Groups: members, net: net}
	g.Index = index
	arch := g.Archetype()

	g.AddField("unsigned int", "size", func(i int) string {
		return fmt.Sprintf("%d", members[i].Size)
	})
	for _, v := range arch.Model.Vars {
		v := v
		g.AddField(v.Type+"*", v.Name, func(i int) string {
			return opts.VarPrefix + v.Name + members[i].Name
		})
	}
	for _, decl := range arch.Model.VarRefNames {
		decl := decl
		g.AddField(decl.Type+"*", decl.Name, func(i int) string {
			ref := members[i].VarRefs[decl.Name]
			return opts.VarPrefix + ref.Var + ref.Group.Name
		})
	}
	g.paramRepl = addParamFields(&g.MergedGroupBase, members, arch.Model.ParamNames,
		func(cu *model.CustomUpdate) model.ParamValues { return cu.Params }, net.Precision, "")
	for name, value := range addParamFields(&g.MergedGroupBase, members, arch.Model.DerivedParamNames,
		func(cu *model.CustomUpdate) model.ParamValues { return cu.DerivedParams }, net.Precision, "DP") {
		g.paramRepl[name] = value
	}
	for name, value := range addEGPFields(&g.MergedGroupBase, members, arch.Model.EGPs, opts,
		func(cu *model.CustomUpdate, e model.EGP) string { return e.Name + cu.Name }) {
		g.paramRepl[name] = value
	}
	return g
}

// GenUpdate lowers the update snippet: read-write variables come in through
// l-prefixed locals and are written back afterwards; reduction variables
// are declared without an initialiser so a snippet that forgets to assign
// them draws a compiler warning.
func (g *CustomUpdateGroupMerged) GenUpdate(cs *CodeStream, parent *Substitutions) error {
	arch := g.Archetype()
	label := mergedGroupLabel("custom update", g.Index)
	subs := NewSubstitutions(parent)
	id := parent.Get("id")

	for name, repl := range g.paramRepl {
		subs.MustVar(name, repl)
	}

	vars := make([]model.Var, 0, len(arch.Model.Vars)+len(arch.Model.VarRefNames))
	vars = append(vars, arch.Model.Vars...)
	for _, decl := range arch.Model.VarRefNames {
		vars = append(vars, model.Var{Name: decl.Name, Type: decl.Type, Access: decl.Access})
	}

	for _, v := range vars {
		switch {
		case v.Access.IsReduce():
			cs.Line("%s l%s;", v.Type, v.Name)
		case v.Access.IsReadOnly():
			cs.Line("const %s l%s = group->%s[%s];", v.Type, v.Name, v.Name, id)
		default:
			cs.Line("%s l%s = group->%s[%s];", v.Type, v.Name, v.Name, id)
		}
		subs.MustVar(v.Name, "l"+v.Name)
	}

	out, err := subs.ApplyCheckUnreplaced(arch.Model.UpdateCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)

	for _, v := range vars {
		if !v.Access.IsReadOnly() {
			cs.Line("group->%s[%s] = l%s;", v.Name, id, v.Name)
		}
	}
	return nil
}

//----------------------------------------------------------------------------
// CustomUpdateWUGroupMerged
//----------------------------------------------------------------------------

// CustomUpdateWUGroupMerged generates user-triggered updates over
// per-synapse sized variables; references may carry a transpose target.
type CustomUpdateWUGroupMerged struct {
	MergedGroupBase
	Groups []*model.CustomUpdateWU

	net       *model.Network
	paramRepl map[string]string
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *CustomUpdateWUGroupMerged) Archetype() *model.CustomUpdateWU { return g.Groups[0] }

func digestCustomUpdateWU(cu *model.CustomUpdateWU) string {
	h := NewStructuralHash()
	hashCustomUpdateModel(h, cu.Model)
	h.String(cu.UpdateGroupName)
	h.Int(int(cu.SynapseGroup.MatrixType))
	for _, decl := range cu.Model.VarRefNames {
		ref := cu.VarRefs[decl.Name]
		h.Bool(ref.TransposeGroup != nil)
	}
	return h.Digest()
}

func newCustomUpdateWUGroupMerged(index int, members []*model.CustomUpdateWU, net *model.Network, opts Options) *CustomUpdateWUGroupMerged {
	g := &CustomUpdateWUGroupMerged{Groups: members, net: net}
	g.Index = index
	arch := g.Archetype()
	sg := arch.SynapseGroup

	g.AddField("unsigned int", "rowStride", func(i int) string {
		rs := members[i].SynapseGroup.RowStride()
		if opts.RowStride != nil {
			rs = opts.RowStride(members[i].SynapseGroup)
		}
		return fmt.Sprintf("%d", rs)
	})
	g.AddField("unsigned int", "numSrcNeurons", func(i int) string {
		return fmt.Sprintf("%d", members[i].SynapseGroup.Src.NumNeurons)
	})
	g.AddField("unsigned int", "numTrgNeurons", func(i int) string {
		return fmt.Sprintf("%d", members[i].SynapseGroup.Trg.NumNeurons)
	})
	if sg.MatrixType.Has(model.SparseConnectivity) {
		g.AddField("unsigned int*", "synRemap", func(i int) string {
			return opts.VarPrefix + "synRemap" + members[i].SynapseGroup.Name
		})
		g.AddField(sparseIndexType(sg, opts)+"*", "ind", func(i int) string {
			return opts.VarPrefix + "ind" + members[i].SynapseGroup.Name
		})
	}

	for _, v := range arch.Model.Vars {
		v := v
		g.AddField(v.Type+"*", v.Name, func(i int) string {
			return opts.VarPrefix + v.Name + members[i].Name
		})
	}
	for _, decl := range arch.Model.VarRefNames {
		decl := decl
		g.AddField(decl.Type+"*", decl.Name, func(i int) string {
			ref := members[i].VarRefs[decl.Name]
			return opts.VarPrefix + ref.Var + ref.Group.Name
		})
		if arch.VarRefs[decl.Name].TransposeGroup != nil {
			g.AddField(decl.Type+"*", decl.Name+"Transpose", func(i int) string {
				ref := members[i].VarRefs[decl.Name]
				return opts.VarPrefix + ref.TransposeVar + ref.TransposeGroup.Name
			})
		}
	}
	g.paramRepl = addParamFields(&g.MergedGroupBase, members, arch.Model.ParamNames,
		func(cu *model.CustomUpdateWU) model.ParamValues { return cu.Params }, net.Precision, "")
	for name, value := range addParamFields(&g.MergedGroupBase, members, arch.Model.DerivedParamNames,
		func(cu *model.CustomUpdateWU) model.ParamValues { return cu.DerivedParams }, net.Precision, "DP") {
		g.paramRepl[name] = value
	}
	return g
}

// GenUpdate lowers the update snippet for one synapse; the kernel binds
// id_pre, id_post and id_syn. Transposed references write both layouts.
func (g *CustomUpdateWUGroupMerged) GenUpdate(cs *CodeStream, parent *Substitutions) error {
	arch := g.Archetype()
	label := mergedGroupLabel("custom update wu", g.Index)
	subs := NewSubstitutions(parent)
	idSyn := parent.Get("id_syn")

	for name, repl := range g.paramRepl {
		subs.MustVar(name, repl)
	}

	vars := make([]model.Var, 0, len(arch.Model.Vars)+len(arch.Model.VarRefNames))
	vars = append(vars, arch.Model.Vars...)
	for _, decl := range arch.Model.VarRefNames {
		vars = append(vars, model.Var{Name: decl.Name, Type: decl.Type, Access: decl.Access})
	}

	for _, v := range vars {
		switch {
		case v.Access.IsReduce():
			cs.Line("%s l%s;", v.Type, v.Name)
		case v.Access.IsReadOnly():
			cs.Line("const %s l%s = group->%s[%s];", v.Type, v.Name, v.Name, idSyn)
		default:
			cs.Line("%s l%s = group->%s[%s];", v.Type, v.Name, v.Name, idSyn)
		}
		subs.MustVar(v.Name, "l"+v.Name)
	}

	out, err := subs.ApplyCheckUnreplaced(arch.Model.UpdateCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)

	for _, v := range vars {
		if !v.Access.IsReadOnly() {
			cs.Line("group->%s[%s] = l%s;", v.Name, idSyn, v.Name)
		}
	}
	for _, decl := range arch.Model.VarRefNames {
		if arch.VarRefs[decl.Name].TransposeGroup != nil {
			cs.Line("group->%sTranspose[(%s * group->numSrcNeurons) + %s] = l%s;",
				decl.Name, parent.Get("id_post"), parent.Get("id_pre"), decl.Name)
		}
	}
	return nil
}

//----------------------------------------------------------------------------
// CustomUpdateHostReductionGroupMerged
//----------------------------------------------------------------------------

// CustomUpdateHostReductionGroupMerged collects custom updates whose
// reduction results must be pulled back to the host after the device pass.
type CustomUpdateHostReductionGroupMerged struct {
	MergedGroupBase
	Groups []*model.CustomUpdate
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *CustomUpdateHostReductionGroupMerged) Archetype() *model.CustomUpdate { return g.Groups[0] }

func digestCustomUpdateHostReduction(cu *model.CustomUpdate) string {
	h := NewStructuralHash()
	hashCustomUpdateModel(h, cu.Model)
	h.String(cu.UpdateGroupName)
	return h.Digest()
}

func newCustomUpdateHostReductionGroupMerged(index int, members []*model.CustomUpdate, opts Options) *CustomUpdateHostReductionGroupMerged {
	g := &CustomUpdateHostReductionGroupMerged{Groups: members}
	g.Index = index
	arch := g.Archetype()

	g.AddField("unsigned int", "size", func(i int) string {
		return fmt.Sprintf("%d", members[i].Size)
	})
	for _, v := range arch.Model.Vars {
		if !v.Access.IsReduce() {
			continue
		}
		v := v
		g.AddField(v.Type+"*", v.Name, func(i int) string {
			return opts.VarPrefix + v.Name + members[i].Name
		})
	}
	return g
}

// hasReductionVars reports whether a custom update owns reduction
// variables whose results the host consumes.
func hasReductionVars(cu *model.CustomUpdate) bool {
	for _, v := range cu.Model.Vars {
		if v.Access.IsReduce() {
			return true
		}
	}
	return false
}
