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
// SynapseGroupMergedBase
//----------------------------------------------------------------------------

// SynapseGroupMergedBase carries the structure shared by every synapse
// group merge purpose: sizing fields, connectivity arrays and weight update
// model state.
type SynapseGroupMergedBase struct {
	MergedGroupBase
	Groups []*model.SynapseGroup

	net  *model.Network
	opts Options

	wuParamRepl map[string]string
	wuEGPRepl   map[string]string
	globalG     map[string]string
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *SynapseGroupMergedBase) Archetype() *model.SynapseGroup { return g.Groups[0] }

// BatchSize exposes the model's batch size to the update strategies.
func (g *SynapseGroupMergedBase) BatchSize() int { return g.net.BatchSize }

// rowStrideOf resolves the padded row width of one member through the
// backend-supplied hook (strategies may pad it beyond the model's value).
func (g *SynapseGroupMergedBase) rowStrideOf(sg *model.SynapseGroup) int {
	if g.opts.RowStride != nil {
		return g.opts.RowStride(sg)
	}
	return sg.RowStride()
}

// addSizeFields adds the row stride and population size fields every
// synapse kernel needs.
func (g *SynapseGroupMergedBase) addSizeFields(members []*model.SynapseGroup) {
	g.AddField("unsigned int", "rowStride", func(i int) string {
		return fmt.Sprintf("%d", g.rowStrideOf(members[i]))
	})
	g.AddField("unsigned int", "numSrcNeurons", func(i int) string {
		return fmt.Sprintf("%d", members[i].Src.NumNeurons)
	})
	g.AddField("unsigned int", "numTrgNeurons", func(i int) string {
		return fmt.Sprintf("%d", members[i].Trg.NumNeurons)
	})
}

// addConnectivityFields adds the sparse index arrays or bitmask the
// archetype's matrix type requires.
func (g *SynapseGroupMergedBase) addConnectivityFields(members []*model.SynapseGroup) {
	arch := g.Archetype()
	opts := g.opts
	if arch.MatrixType.Has(model.SparseConnectivity) {
		g.AddField(sparseIndexType(arch, g.opts)+"*", "ind", func(i int) string {
			return opts.VarPrefix + "ind" + members[i].Name
		})
		g.AddField("unsigned int*", "rowLength", func(i int) string {
			return opts.VarPrefix + "rowLength" + members[i].Name
		})
	} else if arch.MatrixType.Has(model.BitmaskConnectivity) {
		g.AddField("uint32_t*", "gp", func(i int) string {
			return opts.VarPrefix + "gp" + members[i].Name
		})
	}
}

// addWUVarFields adds pointer fields for individually addressed weight
// update variables and records inline replacements for global ones.
func (g *SynapseGroupMergedBase) addWUVarFields(members []*model.SynapseGroup) {
	arch := g.Archetype()
	opts := g.opts
	g.globalG = map[string]string{}
	if arch.MatrixType.IndividualWeights() || arch.MatrixType.HasWeight(model.KernelWeight) {
		for _, v := range arch.WUModel.Vars {
			v := v
			g.AddField(v.Type+"*", v.Name, func(i int) string {
				return opts.VarPrefix + v.Name + members[i].Name
			})
		}
	} else {
		// Global weights collapse to their initial value
		for _, v := range arch.WUModel.Vars {
			vi := arch.WUVarInit[v.Name]
			g.globalG[v.Name] = "(" + FormatValue(vi.Constant, g.net.Precision) + ")"
		}
	}
}

// addWUParamFields resolves weight update parameters and extra globals.
func (g *SynapseGroupMergedBase) addWUParamFields(members []*model.SynapseGroup) {
	arch := g.Archetype()
	prec := g.net.Precision
	g.wuParamRepl = addParamFields(&g.MergedGroupBase, members, arch.WUModel.ParamNames,
		func(sg *model.SynapseGroup) model.ParamValues { return sg.WUParams }, prec, "")
	for name, value := range addParamFields(&g.MergedGroupBase, members, arch.WUModel.DerivedParamNames,
		func(sg *model.SynapseGroup) model.ParamValues { return sg.WUDerivedParams }, prec, "DP") {
		g.wuParamRepl[name] = value
	}
	g.wuEGPRepl = addEGPFields(&g.MergedGroupBase, members, arch.WUModel.EGPs, g.opts,
		func(sg *model.SynapseGroup, e model.EGP) string { return e.Name + sg.Name })
}

// BuildWUSubs binds weight update parameters, extra globals and variables
// into a fresh environment. The caller must already have bound id_syn when
// weights are individual.
func (g *SynapseGroupMergedBase) BuildWUSubs(parent *Substitutions) *Substitutions {
	subs := NewSubstitutions(parent)
	for name, repl := range g.wuParamRepl {
		subs.MustVar(name, repl)
	}
	for name, repl := range g.wuEGPRepl {
		subs.MustVar(name, repl)
	}
	arch := g.Archetype()
	if arch.MatrixType.IndividualWeights() || arch.MatrixType.HasWeight(model.KernelWeight) {
		for _, v := range arch.WUModel.Vars {
			subs.MustVar(v.Name, "group->"+v.Name+"["+subs.Get("id_syn")+"]")
		}
	} else {
		for name, repl := range g.globalG {
			subs.MustVar(name, repl)
		}
	}
	return subs
}

// sparseIndexType picks the narrowest index type that can address every
// synapse of the group.
func sparseIndexType(sg *model.SynapseGroup, opts Options) string {
	rowStride := sg.RowStride()
	if opts.RowStride != nil {
		rowStride = opts.RowStride(sg)
	}
	if int64(sg.Src.NumNeurons)*int64(rowStride) > int64(^uint32(0)) {
		return "uint64_t"
	}
	return "unsigned int"
}

// hashSynapseStructure mixes the structural decisions every synapse purpose
// shares: model identity, matrix shape, span and delay configuration.
func hashSynapseStructure(h *StructuralHash, sg *model.SynapseGroup) {
	hashWeightUpdateModel(h, sg.WUModel)
	h.Int(int(sg.MatrixType)).Int(int(sg.SpanType))
	h.Int(sg.DelaySteps).Int(sg.BackPropDelaySteps)
	h.Int(sg.NumThreadsPerSpike)
	h.Bool(sg.DendriticDelayRequired()).Int(sg.MaxDendriticDelayTimesteps)
	h.Bool(sg.Src.DelayRequired()).Int(sg.Src.NumDelaySlots())
	h.Bool(sg.Trg.DelayRequired()).Int(sg.Trg.NumDelaySlots())
	h.Ints(sg.KernelSize)
	if sg.ConnectivityInit.Snippet != nil {
		h.String(sg.ConnectivityInit.Snippet.Name)
		h.String(sg.ConnectivityInit.Snippet.RowBuildCode)
		h.String(sg.ConnectivityInit.Snippet.ColBuildCode)
	}
}

//----------------------------------------------------------------------------
// PresynapticUpdateGroupMerged
//----------------------------------------------------------------------------

// PresynapticUpdateGroupMerged generates spike and spike-like-event
// propagation for its members; the backend's update strategy chooses the
// parallelisation.
type PresynapticUpdateGroupMerged struct {
	SynapseGroupMergedBase
}

func digestPresynapticUpdate(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	hashSynapseStructure(h, sg)
	h.Bool(sg.TrueSpikeRequired()).Bool(sg.SpikeEventRequired())
	return h.Digest()
}

func newPresynapticUpdateGroupMerged(index int, members []*model.SynapseGroup, net *model.Network, opts Options) *PresynapticUpdateGroupMerged {
	g := &PresynapticUpdateGroupMerged{}
	g.Index = index
	g.Groups = members
	g.net = net
	g.opts = opts
	arch := g.Archetype()

	g.addSizeFields(members)

	if arch.Src.DelayRequired() {
		g.AddField("volatile unsigned int*", "srcSpkQuePtr", func(i int) string {
			return opts.ScalarAddressPrefix + "spkQuePtr" + members[i].Src.Name
		})
	}
	if arch.TrueSpikeRequired() {
		g.AddField("unsigned int*", "srcSpkCnt", func(i int) string {
			return opts.VarPrefix + "glbSpkCnt" + members[i].Src.Name
		})
		g.AddField("unsigned int*", "srcSpk", func(i int) string {
			return opts.VarPrefix + "glbSpk" + members[i].Src.Name
		})
	}
	if arch.SpikeEventRequired() {
		g.AddField("unsigned int*", "srcSpkCntEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkCntEvnt" + members[i].Src.Name
		})
		g.AddField("unsigned int*", "srcSpkEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkEvnt" + members[i].Src.Name
		})
	}

	g.AddField("scalar*", "inSyn", func(i int) string {
		return opts.VarPrefix + "inSyn" + members[i].PSModelTargetName()
	})
	if arch.DendriticDelayRequired() {
		g.AddField("scalar*", "denDelay", func(i int) string {
			return opts.VarPrefix + "denDelay" + members[i].PSModelTargetName()
		})
		g.AddField("volatile unsigned int*", "denDelayPtr", func(i int) string {
			return opts.ScalarAddressPrefix + "denDelayPtr" + members[i].PSModelTargetName()
		})
	}

	if arch.Src.SpikeTimeRequired() {
		g.AddField(net.TimeType().Name()+"*", "sTPre", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Src.Name
		})
	}
	if arch.Trg.SpikeTimeRequired() {
		g.AddField(net.TimeType().Name()+"*", "sTPost", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Trg.Name
		})
	}

	for d := range arch.KernelSize {
		d := d
		g.AddField("unsigned int", fmt.Sprintf("kernelSize%d", d), func(i int) string {
			return fmt.Sprintf("%d", members[i].KernelSize[d])
		})
	}

	g.addConnectivityFields(members)
	g.addWUVarFields(members)
	g.addWUParamFields(members)

	// Procedural connectivity generates rows on the fly from the row build
	// snippet's parameters
	if arch.MatrixType.Has(model.ProceduralConnectivity) && arch.ConnectivityInit.Snippet != nil {
		for _, p := range arch.ConnectivityInit.Snippet.ParamNames {
			p := p
			if isParamHeterogeneous(members, func(sg *model.SynapseGroup) model.ParamValues { return sg.ConnectivityInit.Params }, p) {
				g.AddField("scalar", p+"Conn", func(i int) string {
					return FormatValue(members[i].ConnectivityInit.Params[p], net.Precision)
				})
			}
		}
	}
	return g
}

// bindSpikeTimes binds the pre and postsynaptic spike time lookups.
func (g *PresynapticUpdateGroupMerged) bindSpikeTimes(subs *Substitutions) {
	arch := g.Archetype()
	if g.HasField("sTPre") {
		subs.MustVar("sT_pre", "group->sTPre["+preVarIndex(arch, subs.Get("id_pre"))+"]")
	}
	if g.HasField("sTPost") {
		subs.MustVar("sT_post", "group->sTPost["+postVarIndex(arch, subs.Get("id_post"))+"]")
	}
}

// GenSpikeUpdate lowers the weight update model's sim (true spike) or event
// code into the kernel. The caller binds id_pre, id_post and id_syn plus
// the input accumulation functions before calling.
func (g *PresynapticUpdateGroupMerged) GenSpikeUpdate(cs *CodeStream, parent *Substitutions, trueSpike bool) error {
	arch := g.Archetype()
	subs := g.BuildWUSubs(parent)
	g.bindSpikeTimes(subs)

	code := arch.WUModel.SimCode
	kind := "sim code"
	if !trueSpike {
		code = arch.WUModel.EventCode
		kind = "event code"
	}
	label := mergedGroupLabel("presynaptic update", g.Index) + " : " + kind
	out, err := subs.ApplyCheckUnreplaced(code, label)
	if err != nil {
		return err
	}
	cs.Code(out)
	return nil
}

// GenEventThreshold lowers the spike-like-event threshold condition into an
// expression string.
func (g *PresynapticUpdateGroupMerged) GenEventThreshold(parent *Substitutions) (string, error) {
	subs := g.BuildWUSubs(parent)
	g.bindSpikeTimes(subs)
	label := mergedGroupLabel("presynaptic update", g.Index) + " : event threshold"
	return subs.ApplyCheckUnreplaced(g.Archetype().WUModel.EventThresholdConditionCode, label)
}

// GenProceduralConnectivity lowers the row building snippet for on-the-fly
// connectivity; the strategy provides the addSynapse expansion.
func (g *PresynapticUpdateGroupMerged) GenProceduralConnectivity(cs *CodeStream, parent *Substitutions) error {
	arch := g.Archetype()
	if arch.ConnectivityInit.Snippet == nil || arch.ConnectivityInit.Snippet.RowBuildCode == "" {
		return fmt.Errorf("presynaptic update : merged%d: procedural connectivity requires row building code", g.Index)
	}
	subs := NewSubstitutions(parent)
	for _, p := range arch.ConnectivityInit.Snippet.ParamNames {
		if g.HasField(p + "Conn") {
			subs.MustVar(p, "group->"+p+"Conn")
		} else {
			subs.MustVar(p, "("+FormatValue(arch.ConnectivityInit.Params[p], g.net.Precision)+")")
		}
	}
	for _, v := range arch.ConnectivityInit.Snippet.RowBuildState {
		cs.Line("%s %s = 0;", v.Type, v.Name)
		subs.MustVar(v.Name, v.Name)
	}
	label := mergedGroupLabel("presynaptic update", g.Index) + " : procedural connectivity"
	out, err := subs.ApplyCheckUnreplaced(arch.ConnectivityInit.Snippet.RowBuildCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)
	return nil
}

// preVarIndex builds the index for reading presynaptic per-neuron arrays,
// honouring the source group's spike queue.
func preVarIndex(sg *model.SynapseGroup, index string) string {
	if sg.Src.DelayRequired() {
		return "preReadDelayOffset + " + index
	}
	return index
}

// postVarIndex builds the index for reading postsynaptic per-neuron arrays.
func postVarIndex(sg *model.SynapseGroup, index string) string {
	if sg.Trg.DelayRequired() {
		return "postReadDelayOffset + " + index
	}
	return index
}

//----------------------------------------------------------------------------
// PostsynapticUpdateGroupMerged
//----------------------------------------------------------------------------

// PostsynapticUpdateGroupMerged generates postsynaptic learning driven by
// target-side spikes.
type PostsynapticUpdateGroupMerged struct {
	SynapseGroupMergedBase
}

func digestPostsynapticUpdate(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	hashSynapseStructure(h, sg)
	return h.Digest()
}

func newPostsynapticUpdateGroupMerged(index int, members []*model.SynapseGroup, net *model.Network, opts Options) *PostsynapticUpdateGroupMerged {
	g := &PostsynapticUpdateGroupMerged{}
	g.Index = index
	g.Groups = members
	g.net = net
	g.opts = opts
	arch := g.Archetype()

	g.addSizeFields(members)
	g.AddField("unsigned int", "colStride", func(i int) string {
		return fmt.Sprintf("%d", members[i].ColStride())
	})

	if arch.Trg.DelayRequired() {
		g.AddField("volatile unsigned int*", "trgSpkQuePtr", func(i int) string {
			return opts.ScalarAddressPrefix + "spkQuePtr" + members[i].Trg.Name
		})
	}
	g.AddField("unsigned int*", "trgSpkCnt", func(i int) string {
		return opts.VarPrefix + "glbSpkCnt" + members[i].Trg.Name
	})
	g.AddField("unsigned int*", "trgSpk", func(i int) string {
		return opts.VarPrefix + "glbSpk" + members[i].Trg.Name
	})

	if arch.MatrixType.Has(model.SparseConnectivity) {
		g.AddField("unsigned int*", "colLength", func(i int) string {
			return opts.VarPrefix + "colLength" + members[i].Name
		})
		g.AddField("unsigned int*", "remap", func(i int) string {
			return opts.VarPrefix + "remap" + members[i].Name
		})
	}

	if arch.Src.SpikeTimeRequired() {
		g.AddField(net.TimeType().Name()+"*", "sTPre", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Src.Name
		})
	}
	if arch.Trg.SpikeTimeRequired() {
		g.AddField(net.TimeType().Name()+"*", "sTPost", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Trg.Name
		})
	}

	g.addWUVarFields(members)
	g.addWUParamFields(members)
	return g
}

// GenLearnPost lowers the learn-post snippet; the kernel binds id_pre,
// id_post and id_syn.
func (g *PostsynapticUpdateGroupMerged) GenLearnPost(cs *CodeStream, parent *Substitutions) error {
	arch := g.Archetype()
	subs := g.BuildWUSubs(parent)
	if g.HasField("sTPre") {
		subs.MustVar("sT_pre", "group->sTPre["+preVarIndex(arch, subs.Get("id_pre"))+"]")
	}
	if g.HasField("sTPost") {
		subs.MustVar("sT_post", "group->sTPost["+postVarIndex(arch, subs.Get("id_post"))+"]")
	}
	label := mergedGroupLabel("postsynaptic update", g.Index) + " : learn post code"
	out, err := subs.ApplyCheckUnreplaced(arch.WUModel.LearnPostCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)
	return nil
}

//----------------------------------------------------------------------------
// SynapseDynamicsGroupMerged
//----------------------------------------------------------------------------

// SynapseDynamicsGroupMerged generates continuous per-synapse dynamics.
type SynapseDynamicsGroupMerged struct {
	SynapseGroupMergedBase
}

func digestSynapseDynamics(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	hashSynapseStructure(h, sg)
	return h.Digest()
}

func newSynapseDynamicsGroupMerged(index int, members []*model.SynapseGroup, net *model.Network, opts Options) *SynapseDynamicsGroupMerged {
	g := &SynapseDynamicsGroupMerged{}
	g.Index = index
	g.Groups = members
	g.net = net
	g.opts = opts
	arch := g.Archetype()

	g.addSizeFields(members)
	if arch.MatrixType.Has(model.SparseConnectivity) {
		g.AddField("unsigned int*", "synRemap", func(i int) string {
			return opts.VarPrefix + "synRemap" + members[i].Name
		})
		g.AddField(sparseIndexType(arch, opts)+"*", "ind", func(i int) string {
			return opts.VarPrefix + "ind" + members[i].Name
		})
	}

	g.AddField("scalar*", "inSyn", func(i int) string {
		return opts.VarPrefix + "inSyn" + members[i].PSModelTargetName()
	})
	if arch.DendriticDelayRequired() {
		g.AddField("scalar*", "denDelay", func(i int) string {
			return opts.VarPrefix + "denDelay" + members[i].PSModelTargetName()
		})
		g.AddField("volatile unsigned int*", "denDelayPtr", func(i int) string {
			return opts.ScalarAddressPrefix + "denDelayPtr" + members[i].PSModelTargetName()
		})
	}

	if arch.Src.SpikeTimeRequired() {
		g.AddField(net.TimeType().Name()+"*", "sTPre", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Src.Name
		})
	}
	if arch.Trg.SpikeTimeRequired() {
		g.AddField(net.TimeType().Name()+"*", "sTPost", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Trg.Name
		})
	}

	g.addWUVarFields(members)
	g.addWUParamFields(members)
	return g
}

// GenDynamics lowers the synapse dynamics snippet; the kernel binds id_pre,
// id_post, id_syn and the input accumulation functions.
func (g *SynapseDynamicsGroupMerged) GenDynamics(cs *CodeStream, parent *Substitutions) error {
	arch := g.Archetype()
	subs := g.BuildWUSubs(parent)
	if g.HasField("sTPre") {
		subs.MustVar("sT_pre", "group->sTPre["+preVarIndex(arch, subs.Get("id_pre"))+"]")
	}
	if g.HasField("sTPost") {
		subs.MustVar("sT_post", "group->sTPost["+postVarIndex(arch, subs.Get("id_post"))+"]")
	}
	label := mergedGroupLabel("synapse dynamics", g.Index) + " : synapse dynamics code"
	out, err := subs.ApplyCheckUnreplaced(arch.WUModel.SynapseDynamicsCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)
	return nil
}

//----------------------------------------------------------------------------
// SynapseDendriticDelayUpdateGroupMerged
//----------------------------------------------------------------------------

// SynapseDendriticDelayUpdateGroupMerged advances dendritic delay pointers
// before each timestep's synapse update.
type SynapseDendriticDelayUpdateGroupMerged struct {
	MergedGroupBase
	Groups []*model.SynapseGroup
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *SynapseDendriticDelayUpdateGroupMerged) Archetype() *model.SynapseGroup { return g.Groups[0] }

func digestSynapseDendriticDelayUpdate(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	h.Int(sg.MaxDendriticDelayTimesteps)
	return h.Digest()
}

func newSynapseDendriticDelayUpdateGroupMerged(index int, members []*model.SynapseGroup, opts Options) *SynapseDendriticDelayUpdateGroupMerged {
	g := &SynapseDendriticDelayUpdateGroupMerged{Groups: members}
	g.Index = index
	g.AddField("volatile unsigned int*", "denDelayPtr", func(i int) string {
		return opts.ScalarAddressPrefix + "denDelayPtr" + members[i].PSModelTargetName()
	})
	return g
}

//----------------------------------------------------------------------------
// SynapseDenseInitGroupMerged
//----------------------------------------------------------------------------

// SynapseDenseInitGroupMerged initialises per-synapse variables of densely
// connected groups, one thread per target neuron.
type SynapseDenseInitGroupMerged struct {
	SynapseGroupMergedBase
}

func digestSynapseDenseInit(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	hashWeightUpdateModel(h, sg.WUModel)
	h.Int(int(sg.MatrixType))
	for _, v := range sg.WUModel.Vars {
		vi := sg.WUVarInit[v.Name]
		if vi.Snippet != nil {
			h.String(v.Name).String(vi.Snippet.Name).String(vi.Snippet.Code)
		} else {
			h.String(v.Name).String("").Float(vi.Constant)
		}
	}
	return h.Digest()
}

func newSynapseDenseInitGroupMerged(index int, members []*model.SynapseGroup, net *model.Network, opts Options) *SynapseDenseInitGroupMerged {
	g := &SynapseDenseInitGroupMerged{}
	g.Index = index
	g.Groups = members
	g.net = net
	g.opts = opts

	g.addSizeFields(members)
	g.addWUVarFields(members)
	g.addVarInitParamFields(members)
	return g
}

// addVarInitParamFields adds heterogeneous variable initialiser parameters
// as struct fields suffixed with the variable name.
func (g *SynapseGroupMergedBase) addVarInitParamFields(members []*model.SynapseGroup) {
	arch := g.Archetype()
	for _, v := range arch.WUModel.Vars {
		vi := arch.WUVarInit[v.Name]
		if vi.Snippet == nil {
			continue
		}
		for _, p := range vi.Snippet.ParamNames {
			p, v := p, v
			if isParamHeterogeneous(members, func(sg *model.SynapseGroup) model.ParamValues { return sg.WUVarInit[v.Name].Params }, p) {
				g.AddField("scalar", p+v.Name, func(i int) string {
					return FormatValue(members[i].WUVarInit[v.Name].Params[p], g.net.Precision)
				})
			}
		}
	}
}

// genWUVarInitElement emits initialisation of every weight update variable
// at the synapse index bound to id_syn.
func (g *SynapseGroupMergedBase) genWUVarInitElement(cs *CodeStream, parent *Substitutions, purpose string) error {
	arch := g.Archetype()
	idSyn := parent.Get("id_syn")
	for _, v := range arch.WUModel.Vars {
		vi := arch.WUVarInit[v.Name]
		target := fmt.Sprintf("group->%s[%s]", v.Name, idSyn)
		if vi.Snippet == nil {
			cs.Line("%s = %s;", target, FormatValue(vi.Constant, g.net.Precision))
			continue
		}
		subs := NewSubstitutions(parent)
		subs.MustVar("value", target)
		for _, p := range vi.Snippet.ParamNames {
			if g.HasField(p + v.Name) {
				subs.MustVar(p, "group->"+p+v.Name)
			} else {
				subs.MustVar(p, "("+FormatValue(vi.Params[p], g.net.Precision)+")")
			}
		}
		label := mergedGroupLabel(purpose, g.Index) + " : var init " + v.Name
		out, err := subs.ApplyCheckUnreplaced(vi.Snippet.Code, label)
		if err != nil {
			return err
		}
		cs.Scope(func() {
			cs.Code(out)
		})
	}
	return nil
}

// GenWUVarInit emits the per-row loop initialising this dense group's
// weight update variables; the kernel binds id_post.
func (g *SynapseDenseInitGroupMerged) GenWUVarInit(cs *CodeStream, parent *Substitutions) error {
	var genErr error
	cs.Line("for(unsigned int i = 0; i < group->numSrcNeurons; i++)")
	cs.Scope(func() {
		subs := NewSubstitutions(parent)
		subs.MustVar("id_pre", "i")
		subs.MustVar("id_syn", "(i * group->rowStride) + "+parent.Get("id_post"))
		genErr = g.genWUVarInitElement(cs, subs, "dense init")
	})
	return genErr
}

//----------------------------------------------------------------------------
// SynapseConnectivityInitGroupMerged
//----------------------------------------------------------------------------

// SynapseConnectivityInitGroupMerged builds sparse or bitmask connectivity
// from row or column building snippets.
type SynapseConnectivityInitGroupMerged struct {
	SynapseGroupMergedBase
}

func digestSynapseConnectivityInit(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	h.Int(int(sg.MatrixType))
	if sg.ConnectivityInit.Snippet != nil {
		h.String(sg.ConnectivityInit.Snippet.Name)
		h.String(sg.ConnectivityInit.Snippet.RowBuildCode)
		h.String(sg.ConnectivityInit.Snippet.ColBuildCode)
		h.Strings(sg.ConnectivityInit.Snippet.ParamNames)
	}
	h.Ints(sg.KernelSize)
	return h.Digest()
}

func newSynapseConnectivityInitGroupMerged(index int, members []*model.SynapseGroup, net *model.Network, opts Options) *SynapseConnectivityInitGroupMerged {
	g := &SynapseConnectivityInitGroupMerged{}
	g.Index = index
	g.Groups = members
	g.net = net
	g.opts = opts
	arch := g.Archetype()

	g.addSizeFields(members)
	g.addConnectivityFields(members)

	if arch.ConnectivityInit.Snippet != nil {
		for _, p := range arch.ConnectivityInit.Snippet.ParamNames {
			p := p
			if isParamHeterogeneous(members, func(sg *model.SynapseGroup) model.ParamValues { return sg.ConnectivityInit.Params }, p) {
				g.AddField("scalar", p+"Conn", func(i int) string {
					return FormatValue(members[i].ConnectivityInit.Params[p], net.Precision)
				})
			}
		}
	}
	return g
}

// BuildConnectivitySubs binds the snippet's parameters and state variables.
func (g *SynapseConnectivityInitGroupMerged) BuildConnectivitySubs(cs *CodeStream, parent *Substitutions) *Substitutions {
	arch := g.Archetype()
	subs := NewSubstitutions(parent)
	snippet := arch.ConnectivityInit.Snippet
	if snippet == nil {
		return subs
	}
	for _, p := range snippet.ParamNames {
		if g.HasField(p + "Conn") {
			subs.MustVar(p, "group->"+p+"Conn")
		} else {
			subs.MustVar(p, "("+FormatValue(arch.ConnectivityInit.Params[p], g.net.Precision)+")")
		}
	}
	state := snippet.RowBuildState
	if snippet.RowBuildCode == "" {
		state = snippet.ColBuildState
	}
	for _, v := range state {
		cs.Line("%s %s = 0;", v.Type, v.Name)
		subs.MustVar(v.Name, v.Name)
	}
	return subs
}

// GenRowBuild lowers the row building snippet.
func (g *SynapseConnectivityInitGroupMerged) GenRowBuild(cs *CodeStream, parent *Substitutions) error {
	subs := g.BuildConnectivitySubs(cs, parent)
	label := mergedGroupLabel("connectivity init", g.Index) + " : row build code"
	out, err := subs.ApplyCheckUnreplaced(g.Archetype().ConnectivityInit.Snippet.RowBuildCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)
	return nil
}

// GenColBuild lowers the column building snippet.
func (g *SynapseConnectivityInitGroupMerged) GenColBuild(cs *CodeStream, parent *Substitutions) error {
	subs := g.BuildConnectivitySubs(cs, parent)
	label := mergedGroupLabel("connectivity init", g.Index) + " : col build code"
	out, err := subs.ApplyCheckUnreplaced(g.Archetype().ConnectivityInit.Snippet.ColBuildCode, label)
	if err != nil {
		return err
	}
	cs.Code(out)
	return nil
}

//----------------------------------------------------------------------------
// SynapseSparseInitGroupMerged
//----------------------------------------------------------------------------

// SynapseSparseInitGroupMerged initialises sparse groups' per-synapse
// variables and builds the remap structures once connectivity exists.
type SynapseSparseInitGroupMerged struct {
	SynapseGroupMergedBase
}

func digestSynapseSparseInit(sg *model.SynapseGroup) string {
	h := NewStructuralHash()
	hashWeightUpdateModel(h, sg.WUModel)
	h.Int(int(sg.MatrixType))
	h.Bool(sg.WUModel.LearnPostCode != "")
	h.Bool(sg.WUModel.SynapseDynamicsCode != "")
	for _, v := range sg.WUModel.Vars {
		vi := sg.WUVarInit[v.Name]
		if vi.Snippet != nil {
			h.String(v.Name).String(vi.Snippet.Name).String(vi.Snippet.Code)
		} else {
			h.String(v.Name).String("").Float(vi.Constant)
		}
	}
	return h.Digest()
}

func newSynapseSparseInitGroupMerged(index int, members []*model.SynapseGroup, net *model.Network, opts Options) *SynapseSparseInitGroupMerged {
	g := &SynapseSparseInitGroupMerged{}
	g.Index = index
	g.Groups = members
	g.net = net
	g.opts = opts
	arch := g.Archetype()

	g.addSizeFields(members)
	g.AddField(sparseIndexType(arch, opts)+"*", "ind", func(i int) string {
		return opts.VarPrefix + "ind" + members[i].Name
	})
	g.AddField("unsigned int*", "rowLength", func(i int) string {
		return opts.VarPrefix + "rowLength" + members[i].Name
	})

	if arch.WUModel.LearnPostCode != "" {
		g.AddField("unsigned int", "colStride", func(i int) string {
			return fmt.Sprintf("%d", members[i].ColStride())
		})
		g.AddField("unsigned int*", "colLength", func(i int) string {
			return opts.VarPrefix + "colLength" + members[i].Name
		})
		g.AddField("unsigned int*", "remap", func(i int) string {
			return opts.VarPrefix + "remap" + members[i].Name
		})
	}
	if arch.WUModel.SynapseDynamicsCode != "" {
		g.AddField("unsigned int*", "synRemap", func(i int) string {
			return opts.VarPrefix + "synRemap" + members[i].Name
		})
	}

	g.addWUVarFields(members)
	g.addVarInitParamFields(members)
	return g
}

// GenWUVarInit initialises one synapse's variables; the kernel binds
// id_pre, id_post and id_syn.
func (g *SynapseSparseInitGroupMerged) GenWUVarInit(cs *CodeStream, parent *Substitutions) error {
	return g.genWUVarInitElement(cs, parent, "sparse init")
}
