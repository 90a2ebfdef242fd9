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

// NeuronInitGroupMerged initialises a population's state on the device:
// spike arrays, spike times, model variables and incoming synapse
// accumulators.
type NeuronInitGroupMerged struct {
	MergedGroupBase
	Groups []*model.NeuronGroup

	net  *model.Network
	opts Options
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *NeuronInitGroupMerged) Archetype() *model.NeuronGroup { return g.Groups[0] }

func digestNeuronInit(ng *model.NeuronGroup) string {
	h := NewStructuralHash()
	hashNeuronModel(h, ng.Model)
	h.Bool(ng.DelayRequired()).Int(ng.NumDelaySlots())
	h.Bool(ng.SimRNGRequired()).Bool(ng.InitRNGRequired())
	h.Bool(ng.SpikeTimeRequired()).Bool(ng.PrevSpikeTimeRequired())
	h.Bool(ng.SpikeEventRequired())
	for _, v := range ng.Model.Vars {
		vi := ng.VarInit[v.Name]
		if vi.Snippet != nil {
			h.String(v.Name).String(vi.Snippet.Name).String(vi.Snippet.Code)
		} else {
			h.String(v.Name).String("").Float(vi.Constant)
		}
	}
	for _, sg := range ng.InSyn {
		h.String(sg.PSModelTargetName())
		h.Bool(sg.DendriticDelayRequired()).Int(sg.MaxDendriticDelayTimesteps)
		if sg.PSModel != nil {
			h.String(sg.PSModel.Name)
		}
	}
	for _, cs := range ng.CurrentSources {
		h.String(cs.Model.Name)
	}
	return h.Digest()
}

func newNeuronInitGroupMerged(index int, members []*model.NeuronGroup, net *model.Network, opts Options) *NeuronInitGroupMerged {
	g := &NeuronInitGroupMerged{Groups: members, net: net, opts: opts}
	g.Index = index
	arch := g.Archetype()
	timeType := net.TimeType().Name()

	g.AddField("unsigned int", "numNeurons", func(i int) string {
		return fmt.Sprintf("%d", members[i].NumNeurons)
	})
	g.AddField("unsigned int*", "spkCnt", func(i int) string {
		return opts.VarPrefix + "glbSpkCnt" + members[i].Name
	})
	g.AddField("unsigned int*", "spk", func(i int) string {
		return opts.VarPrefix + "glbSpk" + members[i].Name
	})
	if arch.SpikeEventRequired() {
		g.AddField("unsigned int*", "spkCntEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkCntEvnt" + members[i].Name
		})
		g.AddField("unsigned int*", "spkEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkEvnt" + members[i].Name
		})
	}
	if arch.SpikeTimeRequired() {
		g.AddField(timeType+"*", "sT", func(i int) string {
			return opts.VarPrefix + "sT" + members[i].Name
		})
	}
	if arch.PrevSpikeTimeRequired() {
		g.AddField(timeType+"*", "prevST", func(i int) string {
			return opts.VarPrefix + "prevST" + members[i].Name
		})
	}
	if arch.SimRNGRequired() {
		g.AddField("curandState*", "rng", func(i int) string {
			return opts.VarPrefix + "rng" + members[i].Name
		})
	}
	for _, v := range arch.Model.Vars {
		v := v
		g.AddField(v.Type+"*", v.Name, func(i int) string {
			return opts.VarPrefix + v.Name + members[i].Name
		})
	}
	g.addNeuronVarInitParamFields(members, arch.Model.Vars,
		func(ng *model.NeuronGroup) map[string]model.VarInit { return ng.VarInit }, "")

	for idx, sg := range arch.InSyn {
		idx, sg := idx, sg
		suffix := fmt.Sprintf("InSyn%d", idx)
		g.AddField("scalar*", "inSyn"+suffix, func(i int) string {
			return opts.VarPrefix + "inSyn" + members[i].InSyn[idx].PSModelTargetName()
		})
		if sg.DendriticDelayRequired() {
			g.AddField("scalar*", "denDelay"+suffix, func(i int) string {
				return opts.VarPrefix + "denDelay" + members[i].InSyn[idx].PSModelTargetName()
			})
		}
		if sg.PSModel != nil {
			for _, v := range sg.PSModel.Vars {
				v := v
				g.AddField(v.Type+"*", v.Name+suffix, func(i int) string {
					return opts.VarPrefix + v.Name + members[i].InSyn[idx].PSModelTargetName()
				})
			}
		}
	}

	for idx, src := range arch.CurrentSources {
		idx, src := idx, src
		suffix := fmt.Sprintf("CS%d", idx)
		for _, v := range src.Model.Vars {
			v := v
			g.AddField(v.Type+"*", v.Name+suffix, func(i int) string {
				return opts.VarPrefix + v.Name + members[i].CurrentSources[idx].Name
			})
		}
	}
	return g
}

// addNeuronVarInitParamFields adds heterogeneous initialiser parameters as
// fields suffixed with the variable (and child suffix) they configure.
func (g *NeuronInitGroupMerged) addNeuronVarInitParamFields(members []*model.NeuronGroup, vars []model.Var,
	get func(ng *model.NeuronGroup) map[string]model.VarInit, suffix string) {

	for _, v := range vars {
		vi := get(g.Archetype())[v.Name]
		if vi.Snippet == nil {
			continue
		}
		for _, p := range vi.Snippet.ParamNames {
			p, v := p, v
			if isParamHeterogeneous(members, func(ng *model.NeuronGroup) model.ParamValues { return get(ng)[v.Name].Params }, p) {
				g.AddField("scalar", p+v.Name+suffix, func(i int) string {
					return FormatValue(get(members[i])[v.Name].Params[p], g.net.Precision)
				})
			}
		}
	}
}

// GenSpikeCountInit zeroes per-slot spike counts; the backend runs this on
// the group's first thread only.
func (g *NeuronInitGroupMerged) GenSpikeCountInit(cs *CodeStream) {
	arch := g.Archetype()
	slots := arch.NumDelaySlots() * g.net.BatchSize
	cs.Line("for(unsigned int d = 0; d < %d; d++)", slots)
	cs.Scope(func() {
		cs.Line("group->spkCnt[d] = 0;")
		if arch.SpikeEventRequired() {
			cs.Line("group->spkCntEvnt[d] = 0;")
		}
	})
}

// GenInit initialises one neuron's state; the enclosing scope guarantees
// $(id) < numNeurons.
func (g *NeuronInitGroupMerged) GenInit(cs *CodeStream, parent *Substitutions) error {
	arch := g.Archetype()
	net := g.net
	label := mergedGroupLabel("neuron init", g.Index)
	id := parent.Get("id")

	// Zero spike source arrays across every delay slot and batch
	slots := arch.NumDelaySlots() * net.BatchSize
	cs.Line("for(unsigned int d = 0; d < %d; d++)", slots)
	cs.Scope(func() {
		cs.Line("group->spk[(d * group->numNeurons) + %s] = 0;", id)
		if arch.SpikeEventRequired() {
			cs.Line("group->spkEvnt[(d * group->numNeurons) + %s] = 0;", id)
		}
		if arch.SpikeTimeRequired() {
			cs.Line("group->sT[(d * group->numNeurons) + %s] = -TIME_MAX;", id)
		}
		if arch.PrevSpikeTimeRequired() {
			cs.Line("group->prevST[(d * group->numNeurons) + %s] = -TIME_MAX;", id)
		}
	})

	// Duplicated state is initialised once per batch
	var genErr error
	genBody := func() {
		if err := g.genVarInitList(cs, parent, arch.Model.Vars,
			func(name string) model.VarInit { return arch.VarInit[name] }, "", label); err != nil {
			genErr = err
			return
		}

		// Incoming synapse state
		for idx, sg := range arch.InSyn {
			suffix := fmt.Sprintf("InSyn%d", idx)
			cs.Line("group->inSyn%s[%s] = %s;", suffix, batchedIndex(net.BatchSize, id), zeroLiteral(net))
			if sg.DendriticDelayRequired() {
				cs.Line("for(unsigned int d = 0; d < %d; d++)", sg.MaxDendriticDelayTimesteps)
				cs.Scope(func() {
					cs.Line("group->denDelay%s[(d * group->numNeurons) + %s] = %s;", suffix, id, zeroLiteral(net))
				})
			}
			if sg.PSModel != nil {
				if err := g.genVarInitList(cs, parent, sg.PSModel.Vars,
					func(name string) model.VarInit { return sg.PSVarInit[name] }, suffix, label); err != nil {
					genErr = err
					return
				}
			}
		}

		// Current source state
		for idx, src := range arch.CurrentSources {
			suffix := fmt.Sprintf("CS%d", idx)
			if err := g.genVarInitList(cs, parent, src.Model.Vars,
				func(name string) model.VarInit { return src.VarInit[name] }, suffix, label); err != nil {
				genErr = err
				return
			}
		}
	}

	if net.BatchSize > 1 {
		cs.Line("for(unsigned int b = 0; b < %d; b++)", net.BatchSize)
		cs.Scope(func() {
			cs.Line("const unsigned int batchOffset = b * group->numNeurons;")
			genBody()
		})
	} else {
		genBody()
	}
	return genErr
}

func (g *NeuronInitGroupMerged) genVarInitList(cs *CodeStream, parent *Substitutions,
	vars []model.Var, get func(name string) model.VarInit, suffix, label string) error {

	net := g.net
	id := parent.Get("id")
	for _, v := range vars {
		vi := get(v.Name)
		target := fmt.Sprintf("group->%s%s[%s]", v.Name, suffix, batchedIndex(net.BatchSize, id))
		if vi.Snippet == nil {
			cs.Line("%s = %s;", target, FormatValue(vi.Constant, net.Precision))
			continue
		}
		subs := NewSubstitutions(parent)
		subs.MustVar("value", target)
		for _, p := range vi.Snippet.ParamNames {
			if g.HasField(p + v.Name + suffix) {
				subs.MustVar(p, "group->"+p+v.Name+suffix)
			} else {
				subs.MustVar(p, "("+FormatValue(vi.Params[p], net.Precision)+")")
			}
		}
		out, err := subs.ApplyCheckUnreplaced(vi.Snippet.Code, label+" : var init "+v.Name)
		if err != nil {
			return err
		}
		cs.Scope(func() {
			cs.Code(out)
		})
	}
	return nil
}

// batchedIndex prefixes an index with the batch offset when batching.
func batchedIndex(batchSize int, index string) string {
	if batchSize > 1 {
		return "batchOffset + " + index
	}
	return index
}

// zeroLiteral returns 0 spelled in the model's scalar precision.
func zeroLiteral(net *model.Network) string {
	return FormatValue(0, net.Precision)
}
