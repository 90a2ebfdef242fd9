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
	"strings"

	"github.com/spikegen/spikegen/model"
)

//----------------------------------------------------------------------------
// NeuronSpikeQueueUpdateGroupMerged
//----------------------------------------------------------------------------

// NeuronSpikeQueueUpdateGroupMerged resets spike counts and advances spike
// queue pointers before each timestep's neuron update.
type NeuronSpikeQueueUpdateGroupMerged struct {
	MergedGroupBase
	Groups []*model.NeuronGroup

	net *model.Network
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *NeuronSpikeQueueUpdateGroupMerged) Archetype() *model.NeuronGroup { return g.Groups[0] }

func digestNeuronSpikeQueueUpdate(ng *model.NeuronGroup) string {
	h := NewStructuralHash()
	h.Bool(ng.DelayRequired()).Int(ng.NumDelaySlots())
	h.Bool(ng.PrevSpikeTimeRequired()).Bool(ng.PrevSpikeEventTimeRequired())
	h.Bool(ng.SpikeEventRequired())
	h.Bool(ng.Model.ThresholdConditionCode != "")
	return h.Digest()
}

func newNeuronSpikeQueueUpdateGroupMerged(index int, members []*model.NeuronGroup, net *model.Network, opts Options) *NeuronSpikeQueueUpdateGroupMerged {
	g := &NeuronSpikeQueueUpdateGroupMerged{Groups: members, net: net}
	g.Index = index
	arch := g.Archetype()

	if arch.PrevSpikeTimeRequired() || arch.PrevSpikeEventTimeRequired() {
		g.AddField("unsigned int", "numNeurons", func(i int) string {
			return fmt.Sprintf("%d", members[i].NumNeurons)
		})
	}
	if arch.DelayRequired() {
		g.AddField("volatile unsigned int*", "spkQuePtr", func(i int) string {
			return opts.ScalarAddressPrefix + "spkQuePtr" + members[i].Name
		})
	}
	g.AddField("unsigned int*", "spkCnt", func(i int) string {
		return opts.VarPrefix + "glbSpkCnt" + members[i].Name
	})
	if arch.SpikeEventRequired() {
		g.AddField("unsigned int*", "spkCntEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkCntEvnt" + members[i].Name
		})
	}
	if arch.PrevSpikeTimeRequired() {
		g.AddField("unsigned int*", "spk", func(i int) string {
			return opts.VarPrefix + "glbSpk" + members[i].Name
		})
		g.AddField(net.TimeType().Name()+"*", "prevST", func(i int) string {
			return opts.VarPrefix + "prevST" + members[i].Name
		})
	}
	if arch.PrevSpikeEventTimeRequired() {
		g.AddField("unsigned int*", "spkEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkEvnt" + members[i].Name
		})
		g.AddField(net.TimeType().Name()+"*", "prevSET", func(i int) string {
			return opts.VarPrefix + "prevSET" + members[i].Name
		})
	}
	return g
}

// GenSpikeCountReset zeroes the spike counts of the slot spikes will be
// written into this timestep.
func (g *NeuronSpikeQueueUpdateGroupMerged) GenSpikeCountReset(cs *CodeStream, batchSize int) {
	arch := g.Archetype()
	batch := "0"
	if batchSize > 1 {
		batch = "batch"
	}
	if arch.DelayRequired() {
		slot := "*group->spkQuePtr"
		if batchSize > 1 {
			slot = fmt.Sprintf("(batch * %d) + *group->spkQuePtr", arch.NumDelaySlots())
		}
		if arch.Model.ThresholdConditionCode != "" {
			cs.Line("group->spkCnt[%s] = 0;", slot)
		}
		if arch.SpikeEventRequired() {
			cs.Line("group->spkCntEvnt[%s] = 0;", slot)
		}
	} else {
		if arch.Model.ThresholdConditionCode != "" {
			cs.Line("group->spkCnt[%s] = 0;", batch)
		}
		if arch.SpikeEventRequired() {
			cs.Line("group->spkCntEvnt[%s] = 0;", batch)
		}
	}
}

//----------------------------------------------------------------------------
// NeuronUpdateGroupMerged
//----------------------------------------------------------------------------

// NeuronUpdateGroupMerged generates the per-neuron simulation body shared by
// its members.
type NeuronUpdateGroupMerged struct {
	MergedGroupBase
	Groups []*model.NeuronGroup

	net  *model.Network
	opts Options

	paramRepl       map[string]string
	derivedRepl     map[string]string
	egpRepl         map[string]string
	inSynParamRepl  []map[string]string
	csParamRepl     []map[string]string
	eventThreshRepl []map[string]string
	outSynPreRepl   []map[string]string
	inSynPostRepl   []map[string]string
}

// Archetype returns the member whose structure shaped the emitted code.
func (g *NeuronUpdateGroupMerged) Archetype() *model.NeuronGroup { return g.Groups[0] }

func digestNeuronUpdate(ng *model.NeuronGroup) string {
	h := NewStructuralHash()
	hashNeuronModel(h, ng.Model)
	h.Bool(ng.DelayRequired()).Int(ng.NumDelaySlots())
	h.Bool(ng.SimRNGRequired())
	h.Bool(ng.SpikeTimeRequired()).Bool(ng.PrevSpikeTimeRequired())
	h.Bool(ng.SpikeEventTimeRequired()).Bool(ng.PrevSpikeEventTimeRequired())
	h.Bool(ng.SpikeEventRequired()).Bool(ng.TrueSpikeRequired())
	h.Bool(ng.SpikeRecordingEnabled).Bool(ng.SpikeEventRecordingEnabled)

	// Incoming postsynaptic models and their delay structure are part of the
	// generated body
	for _, sg := range ng.InSyn {
		h.String(sg.PSModelTargetName())
		if sg.PSModel != nil {
			h.String(sg.PSModel.Name).String(sg.PSModel.ApplyInputCode).String(sg.PSModel.DecayCode)
			h.Strings(sg.PSModel.ParamNames)
		}
		h.Bool(sg.DendriticDelayRequired()).Int(sg.MaxDendriticDelayTimesteps)
	}
	// Outgoing spike-like-event thresholds shape the event condition
	for _, sg := range ng.OutSyn {
		if sg.WUModel.EventCode != "" {
			h.String(sg.WUModel.EventThresholdConditionCode)
			h.Strings(sg.WUModel.ParamNames)
		}
	}
	// Current sources inject into the accumulated input
	for _, cs := range ng.CurrentSources {
		h.String(cs.Model.Name).String(cs.Model.InjectionCode)
		h.Strings(cs.Model.ParamNames)
	}
	return h.Digest()
}

func newNeuronUpdateGroupMerged(index int, members []*model.NeuronGroup, net *model.Network, opts Options) *NeuronUpdateGroupMerged {
	g := &NeuronUpdateGroupMerged{Groups: members, net: net, opts: opts}
	g.Index = index
	arch := g.Archetype()
	prec := net.Precision
	timeType := net.TimeType().Name()

	g.AddField("unsigned int", "numNeurons", func(i int) string {
		return fmt.Sprintf("%d", members[i].NumNeurons)
	})

	if arch.Model.ThresholdConditionCode != "" || arch.TrueSpikeRequired() {
		g.AddField("unsigned int*", "spkCnt", func(i int) string {
			return opts.VarPrefix + "glbSpkCnt" + members[i].Name
		})
		g.AddField("unsigned int*", "spk", func(i int) string {
			return opts.VarPrefix + "glbSpk" + members[i].Name
		})
	}
	if arch.SpikeEventRequired() {
		g.AddField("unsigned int*", "spkCntEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkCntEvnt" + members[i].Name
		})
		g.AddField("unsigned int*", "spkEvnt", func(i int) string {
			return opts.VarPrefix + "glbSpkEvnt" + members[i].Name
		})
	}
	if arch.DelayRequired() {
		g.AddField("volatile unsigned int*", "spkQuePtr", func(i int) string {
			return opts.ScalarAddressPrefix + "spkQuePtr" + members[i].Name
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
	if arch.SpikeEventTimeRequired() {
		g.AddField(timeType+"*", "seT", func(i int) string {
			return opts.VarPrefix + "seT" + members[i].Name
		})
	}
	if arch.PrevSpikeEventTimeRequired() {
		g.AddField(timeType+"*", "prevSET", func(i int) string {
			return opts.VarPrefix + "prevSET" + members[i].Name
		})
	}
	if arch.SimRNGRequired() {
		g.AddField("curandState*", "rng", func(i int) string {
			return opts.VarPrefix + "rng" + members[i].Name
		})
	}
	if arch.SpikeRecordingEnabled {
		g.AddField("uint32_t*", "recordSpk", func(i int) string {
			return opts.VarPrefix + "recordSpk" + members[i].Name
		})
	}
	if arch.SpikeEventRecordingEnabled {
		g.AddField("uint32_t*", "recordSpkEvent", func(i int) string {
			return opts.VarPrefix + "recordSpkEvnt" + members[i].Name
		})
	}

	// Per-neuron state variables
	for _, v := range arch.Model.Vars {
		v := v
		g.AddField(v.Type+"*", v.Name, func(i int) string {
			return opts.VarPrefix + v.Name + members[i].Name
		})
	}

	g.paramRepl = addParamFields(&g.MergedGroupBase, members, arch.Model.ParamNames,
		func(ng *model.NeuronGroup) model.ParamValues { return ng.Params }, prec, "")
	g.derivedRepl = addParamFields(&g.MergedGroupBase, members, arch.Model.DerivedParamNames,
		func(ng *model.NeuronGroup) model.ParamValues { return ng.DerivedParams }, prec, "")
	g.egpRepl = addEGPFields(&g.MergedGroupBase, members, arch.Model.EGPs, opts,
		func(ng *model.NeuronGroup, e model.EGP) string { return e.Name + ng.Name })

	// Incoming synapse children: inSyn accumulators, dendritic delay buffers
	// and postsynaptic model state
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
			g.AddField("volatile unsigned int*", "denDelayPtr"+suffix, func(i int) string {
				return opts.ScalarAddressPrefix + "denDelayPtr" + members[i].InSyn[idx].PSModelTargetName()
			})
		}
		var repl map[string]string
		if sg.PSModel != nil {
			for _, v := range sg.PSModel.Vars {
				v := v
				g.AddField(v.Type+"*", v.Name+suffix, func(i int) string {
					return opts.VarPrefix + v.Name + members[i].InSyn[idx].PSModelTargetName()
				})
			}
			repl = addParamFields(&g.MergedGroupBase, members, sg.PSModel.ParamNames,
				func(ng *model.NeuronGroup) model.ParamValues { return ng.InSyn[idx].PSParams }, prec, suffix)
			for name, value := range addParamFields(&g.MergedGroupBase, members, sg.PSModel.DerivedParamNames,
				func(ng *model.NeuronGroup) model.ParamValues { return ng.InSyn[idx].PSDerivedParams }, prec, "DP"+suffix) {
				repl[name] = value
			}
		}
		g.inSynParamRepl = append(g.inSynParamRepl, repl)
	}

	// Current source children
	for idx, cs := range arch.CurrentSources {
		idx, cs := idx, cs
		suffix := fmt.Sprintf("CS%d", idx)
		for _, v := range cs.Model.Vars {
			v := v
			g.AddField(v.Type+"*", v.Name+suffix, func(i int) string {
				return opts.VarPrefix + v.Name + members[i].CurrentSources[idx].Name
			})
		}
		repl := addParamFields(&g.MergedGroupBase, members, cs.Model.ParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.CurrentSources[idx].Params }, prec, suffix)
		for name, value := range addParamFields(&g.MergedGroupBase, members, cs.Model.DerivedParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.CurrentSources[idx].DerivedParams }, prec, "DP"+suffix) {
			repl[name] = value
		}
		for name, value := range addEGPFields(&g.MergedGroupBase, members, cs.Model.EGPs, opts,
			func(ng *model.NeuronGroup, e model.EGP) string { return e.Name + ng.CurrentSources[idx].Name }) {
			repl[name] = value
		}
		g.csParamRepl = append(g.csParamRepl, repl)
	}

	// Outgoing spike-like-event threshold parameters
	for idx, sg := range arch.OutSyn {
		if sg.WUModel.EventCode == "" {
			g.eventThreshRepl = append(g.eventThreshRepl, nil)
			continue
		}
		idx := idx
		suffix := fmt.Sprintf("EventThresh%d", idx)
		repl := addParamFields(&g.MergedGroupBase, members, sg.WUModel.ParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.OutSyn[idx].WUParams }, prec, suffix)
		for name, value := range addParamFields(&g.MergedGroupBase, members, sg.WUModel.DerivedParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.OutSyn[idx].WUDerivedParams }, prec, "DP"+suffix) {
			repl[name] = value
		}
		g.eventThreshRepl = append(g.eventThreshRepl, repl)
	}

	// Outgoing weight update presynaptic state (spike and dynamics code)
	for idx, sg := range arch.OutSyn {
		if len(sg.WUModel.PreVars) == 0 {
			g.outSynPreRepl = append(g.outSynPreRepl, nil)
			continue
		}
		idx, sg := idx, sg
		suffix := fmt.Sprintf("WUPre%d", idx)
		for _, v := range sg.WUModel.PreVars {
			v := v
			g.AddField(v.Type+"*", v.Name+suffix, func(i int) string {
				return opts.VarPrefix + v.Name + members[i].OutSyn[idx].Name
			})
		}
		repl := addParamFields(&g.MergedGroupBase, members, sg.WUModel.ParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.OutSyn[idx].WUParams }, prec, suffix)
		for name, value := range addParamFields(&g.MergedGroupBase, members, sg.WUModel.DerivedParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.OutSyn[idx].WUDerivedParams }, prec, "DP"+suffix) {
			repl[name] = value
		}
		g.outSynPreRepl = append(g.outSynPreRepl, repl)
	}

	// Incoming weight update postsynaptic state
	for idx, sg := range arch.InSyn {
		if len(sg.WUModel.PostVars) == 0 {
			g.inSynPostRepl = append(g.inSynPostRepl, nil)
			continue
		}
		idx, sg := idx, sg
		suffix := fmt.Sprintf("WUPost%d", idx)
		for _, v := range sg.WUModel.PostVars {
			v := v
			g.AddField(v.Type+"*", v.Name+suffix, func(i int) string {
				return opts.VarPrefix + v.Name + members[i].InSyn[idx].Name
			})
		}
		repl := addParamFields(&g.MergedGroupBase, members, sg.WUModel.ParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.InSyn[idx].WUParams }, prec, suffix)
		for name, value := range addParamFields(&g.MergedGroupBase, members, sg.WUModel.DerivedParamNames,
			func(ng *model.NeuronGroup) model.ParamValues { return ng.InSyn[idx].WUDerivedParams }, prec, "DP"+suffix) {
			repl[name] = value
		}
		g.inSynPostRepl = append(g.inSynPostRepl, repl)
	}

	return g
}

// VarIndex builds the index expression for an unqueued per-neuron array.
func (g *NeuronUpdateGroupMerged) VarIndex(batchSize int, index string) string {
	if batchSize > 1 {
		return "batchOffset + " + index
	}
	return index
}

// ReadVarIndex builds the index for reading a queued per-neuron array from
// the slot written last timestep.
func (g *NeuronUpdateGroupMerged) ReadVarIndex(delay bool, batchSize int, index string) string {
	if !delay {
		return g.VarIndex(batchSize, index)
	}
	if index == "" {
		return "readDelayOffset + "
	}
	return "readDelayOffset + " + index
}

// WriteVarIndex builds the index for writing a queued per-neuron array into
// this timestep's slot.
func (g *NeuronUpdateGroupMerged) WriteVarIndex(delay bool, batchSize int, index string) string {
	if !delay {
		if batchSize > 1 {
			if index == "" {
				return "batchOffset + "
			}
			return "batchOffset + " + index
		}
		return index
	}
	if index == "" {
		return "writeDelayOffset + "
	}
	return "writeDelayOffset + " + index
}

// buildNeuronSubs binds the model's params, derived params, EGPs and state
// variable locals into a fresh substitution environment.
func (g *NeuronUpdateGroupMerged) buildNeuronSubs(parent *Substitutions) *Substitutions {
	subs := NewSubstitutions(parent)
	for name, repl := range g.paramRepl {
		subs.MustVar(name, repl)
	}
	for name, repl := range g.derivedRepl {
		subs.MustVar(name, repl)
	}
	for name, repl := range g.egpRepl {
		subs.MustVar(name, repl)
	}
	for _, v := range g.Archetype().Model.Vars {
		subs.MustVar(v.Name, "l"+v.Name)
	}
	return subs
}

// EmitSpikeFn is a backend callback that emits the staging of one spike.
type EmitSpikeFn func(cs *CodeStream, subs *Substitutions)

// GenSim lowers the neuron model's per-timestep body: input accumulation,
// user sim code, spike-like-event test, threshold test with spike emission
// and reset.
func (g *NeuronUpdateGroupMerged) GenSim(cs *CodeStream, popSubs *Substitutions,
	emitTrueSpike, emitSpikeEvent EmitSpikeFn) error {

	arch := g.Archetype()
	net := g.net
	batchSize := net.BatchSize
	scalar := net.ScalarName()
	label := mergedGroupLabel("neuron update", g.Index)

	subs := g.buildNeuronSubs(popSubs)
	id := subs.Get("id")

	// Pull state variables into registers
	for _, v := range arch.Model.Vars {
		qual := ""
		if v.Access.IsReadOnly() {
			qual = "const "
		}
		cs.Line("%s%s l%s = group->%s[%s];", qual, v.Type, v.Name, v.Name,
			g.VarIndex(batchSize, id))
	}
	cs.Blank()

	// Accumulate synaptic input
	cs.Line("%s Isyn = 0;", scalar)
	subs.MustVar("Isyn", "Isyn")
	for _, v := range arch.Model.AdditionalInputVars {
		cs.Line("%s %s = 0;", v.Type, v.Name)
		subs.MustVar(v.Name, v.Name)
	}
	if arch.SpikeTimeRequired() {
		cs.Line("const %s lsT = group->sT[%s];", net.TimeType().Name(),
			g.ReadVarIndex(arch.DelayRequired(), batchSize, id))
		subs.MustVar("sT", "lsT")
	}
	if arch.PrevSpikeTimeRequired() {
		cs.Line("const %s lprevST = group->prevST[%s];", net.TimeType().Name(),
			g.ReadVarIndex(arch.DelayRequired(), batchSize, id))
		subs.MustVar("prev_sT", "lprevST")
	}
	cs.Blank()

	for idx, sg := range arch.InSyn {
		idx, sg := idx, sg
		suffix := fmt.Sprintf("InSyn%d", idx)
		var genErr error
		cs.Scope(func() {
			cs.Line("// pull inSyn values in a coalesced access")
			cs.Line("%s linSyn = group->inSyn%s[%s];", scalar, suffix, g.VarIndex(batchSize, id))

			if sg.DendriticDelayRequired() {
				cs.Line("const unsigned int denDelayOffset = (*group->denDelayPtr%s * group->numNeurons) + %s;", suffix, g.VarIndex(batchSize, id))
				cs.Line("linSyn += group->denDelay%s[denDelayOffset];", suffix)
				cs.Line("group->denDelay%s[denDelayOffset] = 0;", suffix)
			}

			if sg.PSModel != nil {
				psSubs := NewSubstitutions(subs)
				psSubs.MustVar("inSyn", "linSyn")
				for name, repl := range g.inSynParamRepl[idx] {
					psSubs.MustVar(name, repl)
				}
				for _, v := range sg.PSModel.Vars {
					v := v
					cs.Line("%s lps%s = group->%s%s[%s];", v.Type, v.Name, v.Name, suffix,
						g.VarIndex(batchSize, id))
					psSubs.MustVar(v.Name, "lps"+v.Name)
				}

				apply, err := psSubs.ApplyCheckUnreplaced(sg.PSModel.ApplyInputCode, label+" : psm apply input")
				if err != nil {
					genErr = err
					return
				}
				cs.Code(apply)

				decay, err := psSubs.ApplyCheckUnreplaced(sg.PSModel.DecayCode, label+" : psm decay")
				if err != nil {
					genErr = err
					return
				}
				cs.Code(decay)

				for _, v := range sg.PSModel.Vars {
					if !v.Access.IsReadOnly() {
						cs.Line("group->%s%s[%s] = lps%s;", v.Name, suffix, g.VarIndex(batchSize, id), v.Name)
					}
				}
			} else {
				cs.Line("Isyn += linSyn;")
				cs.Line("linSyn = 0;")
			}
			cs.Line("group->inSyn%s[%s] = linSyn;", suffix, g.VarIndex(batchSize, id))
		})
		if genErr != nil {
			return genErr
		}
	}

	// Current source injection
	for idx, src := range arch.CurrentSources {
		idx, src := idx, src
		suffix := fmt.Sprintf("CS%d", idx)
		var genErr error
		cs.Scope(func() {
			csSubs := NewSubstitutions(subs)
			csSubs.MustFunc("injectCurrent", 1, "Isyn += $(0)")
			for name, repl := range g.csParamRepl[idx] {
				csSubs.MustVar(name, repl)
			}
			for _, v := range src.Model.Vars {
				cs.Line("%s lcs%s = group->%s%s[%s];", v.Type, v.Name, v.Name, suffix,
					g.VarIndex(batchSize, id))
				csSubs.MustVar(v.Name, "lcs"+v.Name)
			}
			inject, err := csSubs.ApplyCheckUnreplaced(src.Model.InjectionCode, label+" : current source")
			if err != nil {
				genErr = err
				return
			}
			cs.Code(inject)
			for _, v := range src.Model.Vars {
				if !v.Access.IsReadOnly() {
					cs.Line("group->%s%s[%s] = lcs%s;", v.Name, suffix, g.VarIndex(batchSize, id), v.Name)
				}
			}
		})
		if genErr != nil {
			return genErr
		}
	}

	// User simulation code
	sim, err := subs.ApplyCheckUnreplaced(arch.Model.SimCode, label+" : sim code")
	if err != nil {
		return err
	}
	cs.Code(sim)
	cs.Blank()

	// Run weight update model dynamics that live on the neuron side
	if err := g.genWUPrePostDynamics(cs, subs, label); err != nil {
		return err
	}

	// Spike-like events: fire when any outgoing event threshold holds
	if arch.SpikeEventRequired() {
		var conds []string
		for idx, sg := range arch.OutSyn {
			if sg.WUModel.EventCode == "" {
				continue
			}
			evSubs := NewSubstitutions(subs)
			for name, repl := range g.eventThreshRepl[idx] {
				evSubs.MustVar(name, repl)
			}
			evSubs.MustVar("id_pre", id)
			cond, err := evSubs.ApplyCheckUnreplaced(sg.WUModel.EventThresholdConditionCode,
				label+" : event threshold")
			if err != nil {
				return err
			}
			conds = append(conds, "("+cond+")")
		}
		cs.Line("// test for and register a spike-like event")
		cs.Line("if (%s)", strings.Join(conds, " || "))
		cs.Scope(func() {
			emitSpikeEvent(cs, subs)
		})
		cs.Blank()
	}

	// True spikes: threshold test, emission, reset
	if arch.Model.ThresholdConditionCode != "" {
		cond, err := subs.ApplyCheckUnreplaced(arch.Model.ThresholdConditionCode, label+" : threshold condition")
		if err != nil {
			return err
		}
		var genErr error
		cs.Line("// test for and register a true spike")
		cs.Line("if (%s)", cond)
		cs.Scope(func() {
			emitTrueSpike(cs, subs)
			if arch.Model.ResetCode != "" {
				reset, err := subs.ApplyCheckUnreplaced(arch.Model.ResetCode, label+" : reset code")
				if err != nil {
					genErr = err
					return
				}
				cs.Line("// spike reset code")
				cs.Code(reset)
			}
		})
		if genErr != nil {
			return genErr
		}
	}

	// Store state variables back to global memory
	for _, v := range arch.Model.Vars {
		if !v.Access.IsReadOnly() {
			cs.Line("group->%s[%s] = l%s;", v.Name, g.VarIndex(batchSize, id), v.Name)
		}
	}
	return nil
}

// GenWUVarUpdate runs outgoing pre-spike and incoming post-spike weight
// update code for a neuron that just fired. The enclosing scope has rebound
// $(id) to the firing neuron's index.
func (g *NeuronUpdateGroupMerged) GenWUVarUpdate(cs *CodeStream, subs *Substitutions) error {
	arch := g.Archetype()
	label := mergedGroupLabel("neuron update", g.Index)

	for idx, sg := range arch.OutSyn {
		if sg.WUModel.PreSpikeCode == "" {
			continue
		}
		suffix := fmt.Sprintf("WUPre%d", idx)
		if err := g.genWUChild(cs, subs, label+" : wu pre spike", suffix,
			sg.WUModel.PreVars, g.outSynPreRepl[idx], sg.WUModel.PreSpikeCode); err != nil {
			return err
		}
	}
	for idx, sg := range arch.InSyn {
		if sg.WUModel.PostSpikeCode == "" {
			continue
		}
		suffix := fmt.Sprintf("WUPost%d", idx)
		if err := g.genWUChild(cs, subs, label+" : wu post spike", suffix,
			sg.WUModel.PostVars, g.inSynPostRepl[idx], sg.WUModel.PostSpikeCode); err != nil {
			return err
		}
	}
	return nil
}

// genWUPrePostDynamics runs per-timestep weight update pre and post
// dynamics code attached to this population.
func (g *NeuronUpdateGroupMerged) genWUPrePostDynamics(cs *CodeStream, subs *Substitutions, label string) error {
	arch := g.Archetype()
	for idx, sg := range arch.OutSyn {
		if sg.WUModel.PreDynamicsCode == "" {
			continue
		}
		suffix := fmt.Sprintf("WUPre%d", idx)
		if err := g.genWUChild(cs, subs, label+" : wu pre dynamics", suffix,
			sg.WUModel.PreVars, g.outSynPreRepl[idx], sg.WUModel.PreDynamicsCode); err != nil {
			return err
		}
	}
	for idx, sg := range arch.InSyn {
		if sg.WUModel.PostDynamicsCode == "" {
			continue
		}
		suffix := fmt.Sprintf("WUPost%d", idx)
		if err := g.genWUChild(cs, subs, label+" : wu post dynamics", suffix,
			sg.WUModel.PostVars, g.inSynPostRepl[idx], sg.WUModel.PostDynamicsCode); err != nil {
			return err
		}
	}
	return nil
}

// genWUChild loads one weight update model's pre or post variables, runs a
// snippet and stores the variables back.
func (g *NeuronUpdateGroupMerged) genWUChild(cs *CodeStream, subs *Substitutions,
	label, suffix string, vars []model.Var, paramRepl map[string]string, code string) error {

	batchSize := g.net.BatchSize
	var genErr error
	cs.Scope(func() {
		childSubs := NewSubstitutions(subs)
		id := childSubs.Get("id")
		for name, repl := range paramRepl {
			childSubs.MustVar(name, repl)
		}
		for _, v := range vars {
			cs.Line("%s l%s = group->%s%s[%s];", v.Type, v.Name, v.Name, suffix, g.VarIndex(batchSize, id))
			childSubs.MustVar(v.Name, "l"+v.Name)
		}
		out, err := childSubs.ApplyCheckUnreplaced(code, label)
		if err != nil {
			genErr = err
			return
		}
		cs.Code(out)
		for _, v := range vars {
			if !v.Access.IsReadOnly() {
				cs.Line("group->%s%s[%s] = l%s;", v.Name, suffix, g.VarIndex(batchSize, id), v.Name)
			}
		}
	})
	return genErr
}
