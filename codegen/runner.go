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
	"math"
	"strconv"

	"github.com/spikegen/spikegen/model"
)

// RunnerOutput holds the three host-side source texts the generator
// produces.
type RunnerOutput struct {
	Definitions         string
	DefinitionsInternal string
	Runner              string
}

// WritePreciseString renders a floating point value with enough decimal
// digits to round-trip exactly at the given precision.
func WritePreciseString(v float64, prec model.Precision) string {
	if prec == model.Float {
		return strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// numericLimits returns (min, max, literal suffix) matching C's
// numeric_limits for the precision: min is the smallest positive normalised
// value and the suffix is "f" for float, empty for double.
func numericLimits(prec model.Precision) (string, string, string) {
	if prec == model.Float {
		min := float64(math.Float32frombits(0x00800000))
		max := float64(math.Float32frombits(0x7f7fffff))
		return WritePreciseString(min, prec), WritePreciseString(max, prec), "f"
	}
	return WritePreciseString(2.2250738585072014e-308, prec), WritePreciseString(math.MaxFloat64, prec), ""
}

// runnerState gathers the intermediate streams the runner emitter fills
// before assembling the final files.
type runnerState struct {
	definitionsVar  *CodeStream
	definitionsFunc *CodeStream

	definitionsInternalVar  *CodeStream
	definitionsInternalFunc *CodeStream

	runnerVarDecl          *CodeStream
	runnerVarAlloc         *CodeStream
	runnerMergedStructInit *CodeStream
	runnerVarFree          *CodeStream
	runnerPushFunc         *CodeStream
	runnerPullFunc         *CodeStream
	runnerEGPFunc          *CodeStream
	runnerStepTimeFinalise *CodeStream
	recordingAllocs        *CodeStream
	recordingPulls         *CodeStream

	statePushFuncs        []string
	statePullFuncs        []string
	connectivityPushFuncs []string
	currentSpikePull      []string
	currentSpikeEventPull []string
}

// GenerateRunner emits definitions.h, definitionsInternal.h and runner.cc
// for the merged model through the runtime's hooks.
func GenerateRunner(m *MergedModel, rt Runtime) (*RunnerOutput, error) {
	net := m.Network
	s := &runnerState{
		definitionsVar:          NewCodeStream(),
		definitionsFunc:         NewCodeStream(),
		definitionsInternalVar:  NewCodeStream(),
		definitionsInternalFunc: NewCodeStream(),
		runnerVarDecl:           NewCodeStream(),
		runnerVarAlloc:          NewCodeStream(),
		runnerMergedStructInit:  NewCodeStream(),
		runnerVarFree:           NewCodeStream(),
		runnerPushFunc:          NewCodeStream(),
		runnerPullFunc:          NewCodeStream(),
		runnerEGPFunc:           NewCodeStream(),
		runnerStepTimeFinalise:  NewCodeStream(),
	}

	rt.GenStepTimeFinalisePreamble(s.runnerStepTimeFinalise, net)

	// Simulation time lives on both sides
	timeType := net.TimeType().Name()
	rt.GenScalar(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, "unsigned long long", "iT", model.LocHostDevice())
	rt.GenScalar(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, timeType, "t", model.LocHostDevice())

	for _, ng := range net.NeuronGroups {
		if err := genNeuronGroupRunner(s, rt, net, ng); err != nil {
			return nil, err
		}
	}
	for _, cs := range net.CurrentSources {
		if err := genCurrentSourceRunner(s, rt, net, cs); err != nil {
			return nil, err
		}
	}
	for _, sg := range net.SynapseGroups {
		if err := genSynapseGroupRunner(s, rt, net, sg); err != nil {
			return nil, err
		}
	}
	for _, cu := range net.CustomUpdates {
		genCustomUpdateRunner(s, rt, net, cu.Name, cu.Model, cu.Size)
	}
	for _, cu := range net.CustomUpdateWUs {
		size := cu.SynapseGroup.Src.NumNeurons * cu.SynapseGroup.RowStride()
		genCustomUpdateRunner(s, rt, net, cu.Name, cu.Model, size)
	}

	// Merged group structures and their transfer trampolines
	m.GenMergedStructs(s.definitionsInternalVar, s.definitionsInternalFunc, s.runnerVarDecl, s.runnerMergedStructInit)

	return assembleRunner(m, rt, s)
}

// arrayCount multiplies an element count by the batch size for duplicated
// state.
func arrayCount(net *model.Network, n int, batched bool) int {
	if batched {
		return n * net.BatchSize
	}
	return n
}

// genSpikeMacros emits the convenience macros exposing the current spike
// (or spike-like-event) block of one population.
func genSpikeMacros(cs *CodeStream, ng *model.NeuronGroup, trueSpike bool) {
	suffix, macroSuffix := "", ""
	if !trueSpike {
		suffix, macroSuffix = "Evnt", "Event"
	}
	delayed := ng.DelayRequired()
	if trueSpike {
		delayed = delayed && ng.TrueSpikeRequired()
	}
	if delayed {
		cs.Line("#define spike%sCount_%s glbSpkCnt%s%s[spkQuePtr%s]", macroSuffix, ng.Name, suffix, ng.Name, ng.Name)
		cs.Line("#define spike%s_%s (glbSpk%s%s + (spkQuePtr%s * %d))", macroSuffix, ng.Name, suffix, ng.Name, ng.Name, ng.NumNeurons)
		cs.Line("#define glbSpkShift%s%s spkQuePtr%s*%d", suffix, ng.Name, ng.Name, ng.NumNeurons)
	} else {
		cs.Line("#define spike%sCount_%s glbSpkCnt%s%s[0]", macroSuffix, ng.Name, suffix, ng.Name)
		cs.Line("#define spike%s_%s glbSpk%s%s", macroSuffix, ng.Name, suffix, ng.Name)
		cs.Line("#define glbSpkShift%s%s 0", suffix, ng.Name)
	}
	cs.Blank()
}

func genNeuronGroupRunner(s *runnerState, rt Runtime, net *model.Network, ng *model.NeuronGroup) error {
	batch := net.BatchSize
	slots := ng.NumDelaySlots()
	timeType := net.TimeType().Name()

	genSpikeMacros(s.definitionsVar, ng, true)
	if ng.SpikeEventRequired() {
		genSpikeMacros(s.definitionsVar, ng, false)
	}

	// True spike queue
	cntCount := batch
	spkCount := ng.NumNeurons * batch
	if ng.DelayRequired() && ng.TrueSpikeRequired() {
		cntCount = slots * batch
		spkCount = ng.NumNeurons * slots * batch
	}
	rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
		"unsigned int", "glbSpkCnt"+ng.Name, ng.SpikeLocation, cntCount)
	rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
		"unsigned int", "glbSpk"+ng.Name, ng.SpikeLocation, spkCount)

	genNamedPushPull(s, rt, "unsigned int", "glbSpkCnt"+ng.Name, ng.SpikeLocation, true, cntCount)
	genNamedPushPull(s, rt, "unsigned int", "glbSpk"+ng.Name, ng.SpikeLocation, true, spkCount)
	genSpikesPushPull(s, rt, net, ng, "")

	if ng.SpikeEventRequired() {
		evCount := slots * batch
		evSpkCount := ng.NumNeurons * slots * batch
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			"unsigned int", "glbSpkCntEvnt"+ng.Name, ng.SpikeLocation, evCount)
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			"unsigned int", "glbSpkEvnt"+ng.Name, ng.SpikeLocation, evSpkCount)
		genNamedPushPull(s, rt, "unsigned int", "glbSpkCntEvnt"+ng.Name, ng.SpikeLocation, true, evCount)
		genNamedPushPull(s, rt, "unsigned int", "glbSpkEvnt"+ng.Name, ng.SpikeLocation, true, evSpkCount)
		genSpikesPushPull(s, rt, net, ng, "Evnt")
	}

	if ng.DelayRequired() {
		rt.GenScalar(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl,
			"unsigned int", "spkQuePtr"+ng.Name, model.LocHostDevice())
	}

	timeCount := ng.NumNeurons * slots * batch
	if ng.SpikeTimeRequired() {
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			timeType, "sT"+ng.Name, ng.SpikeTimeLocation, timeCount)
		genNamedPushPull(s, rt, timeType, "sT"+ng.Name, ng.SpikeTimeLocation, true, timeCount)
	}
	if ng.PrevSpikeTimeRequired() {
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			timeType, "prevST"+ng.Name, ng.SpikeTimeLocation, timeCount)
		genNamedPushPull(s, rt, timeType, "prevST"+ng.Name, ng.SpikeTimeLocation, true, timeCount)
	}
	if ng.SpikeEventTimeRequired() {
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			timeType, "seT"+ng.Name, ng.SpikeTimeLocation, timeCount)
		genNamedPushPull(s, rt, timeType, "seT"+ng.Name, ng.SpikeTimeLocation, true, timeCount)
	}
	if ng.PrevSpikeEventTimeRequired() {
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			timeType, "prevSET"+ng.Name, ng.SpikeTimeLocation, timeCount)
		genNamedPushPull(s, rt, timeType, "prevSET"+ng.Name, ng.SpikeTimeLocation, true, timeCount)
	}

	if ng.SimRNGRequired() {
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			rt.PopulationRNGType(), "rng"+ng.Name, model.LocDeviceOnly(), arrayCount(net, ng.NumNeurons, true))
	}

	if ng.SpikeRecordingEnabled || ng.SpikeEventRecordingEnabled {
		words := (ng.NumNeurons + 31) / 32 * net.BatchSize
		if ng.SpikeRecordingEnabled {
			rt.GenExtraGlobalParamDefinition(s.definitionsVar, "uint32_t*", "recordSpk"+ng.Name, ng.SpikeLocation)
			rt.GenExtraGlobalParamImplementation(s.runnerVarDecl, "uint32_t*", "recordSpk"+ng.Name, ng.SpikeLocation)
			s.recordingAlloc(rt, "uint32_t*", "recordSpk"+ng.Name, ng.SpikeLocation, fmt.Sprintf("%d * timesteps", words))
		}
		if ng.SpikeEventRecordingEnabled {
			rt.GenExtraGlobalParamDefinition(s.definitionsVar, "uint32_t*", "recordSpkEvnt"+ng.Name, ng.SpikeLocation)
			rt.GenExtraGlobalParamImplementation(s.runnerVarDecl, "uint32_t*", "recordSpkEvnt"+ng.Name, ng.SpikeLocation)
			s.recordingAlloc(rt, "uint32_t*", "recordSpkEvnt"+ng.Name, ng.SpikeLocation, fmt.Sprintf("%d * timesteps", words))
		}
	}

	// Model state variables
	var stateVars []string
	for _, v := range ng.Model.Vars {
		count := arrayCount(net, ng.NumNeurons, true)
		_, autoInitialized := ng.VarInit[v.Name]
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			v.Type, v.Name+ng.Name, ng.VarLocation, count)
		genNamedPushPull(s, rt, v.Type, v.Name+ng.Name, ng.VarLocation, autoInitialized, count)
		stateVars = append(stateVars, v.Name+ng.Name)
	}
	genStatePushPull(s, rt, ng.Name, stateVars)

	for _, egp := range ng.Model.EGPs {
		genExtraGlobalParam(s, rt, egp.Type, egp.Name+ng.Name, model.LocHostDevice())
	}
	return nil
}

// recordingAlloc queues an allocation that runs inside
// allocateRecordingBuffers rather than allocateMem.
func (s *runnerState) recordingAlloc(rt Runtime, ctype, name string, loc model.VarLocation, countExpr string) {
	if s.recordingAllocs == nil {
		s.recordingAllocs = NewCodeStream()
		s.recordingPulls = NewCodeStream()
		s.runnerVarDecl.Line("unsigned long long numRecordingTimesteps = 0;")
	}
	rt.GenExtraGlobalParamAllocation(s.recordingAllocs, ctype, name, loc, countExpr)
	rt.GenExtraGlobalParamPull(s.recordingPulls, ctype, name, loc, countExpr)
}

func genCurrentSourceRunner(s *runnerState, rt Runtime, net *model.Network, src *model.CurrentSource) error {
	var stateVars []string
	for _, v := range src.Model.Vars {
		count := arrayCount(net, src.Target.NumNeurons, true)
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			v.Type, v.Name+src.Name, src.VarLocation, count)
		genNamedPushPull(s, rt, v.Type, v.Name+src.Name, src.VarLocation, true, count)
		stateVars = append(stateVars, v.Name+src.Name)
	}
	genStatePushPull(s, rt, src.Name, stateVars)
	for _, egp := range src.Model.EGPs {
		genExtraGlobalParam(s, rt, egp.Type, egp.Name+src.Name, model.LocHostDevice())
	}
	return nil
}

func genSynapseGroupRunner(s *runnerState, rt Runtime, net *model.Network, sg *model.SynapseGroup) error {
	batch := net.BatchSize
	scalar := net.ScalarName()
	var stateVars []string

	// Postsynaptic input accumulator
	inSynCount := sg.Trg.NumNeurons * batch
	rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
		scalar, "inSyn"+sg.PSModelTargetName(), sg.InSynLocation, inSynCount)
	genNamedPushPull(s, rt, scalar, "inSyn"+sg.PSModelTargetName(), sg.InSynLocation, true, inSynCount)
	stateVars = append(stateVars, "inSyn"+sg.PSModelTargetName())

	if sg.DendriticDelayRequired() {
		count := sg.MaxDendriticDelayTimesteps * sg.Trg.NumNeurons * batch
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			scalar, "denDelay"+sg.PSModelTargetName(), sg.DendriticDelayLocation, count)
		rt.GenScalar(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl,
			"unsigned int", "denDelayPtr"+sg.PSModelTargetName(), model.LocHostDevice())
	}

	// Postsynaptic model state
	if sg.PSModel != nil && sg.MatrixType.HasWeight(model.IndividualPSMWeight) {
		for _, v := range sg.PSModel.Vars {
			count := arrayCount(net, sg.Trg.NumNeurons, true)
			rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
				v.Type, v.Name+sg.PSModelTargetName(), sg.WUVarLocation, count)
			genNamedPushPull(s, rt, v.Type, v.Name+sg.PSModelTargetName(), sg.WUVarLocation, true, count)
			stateVars = append(stateVars, v.Name+sg.PSModelTargetName())
		}
	}

	// Connectivity
	switch {
	case sg.MatrixType.Has(model.SparseConnectivity):
		rowLenCount := sg.Src.NumNeurons
		indCount := sg.Src.NumNeurons * sg.RowStride()
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			"unsigned int", "rowLength"+sg.Name, sg.SparseConnLocation, rowLenCount)
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			"unsigned int", "ind"+sg.Name, sg.SparseConnLocation, indCount)
		genNamedPushPull(s, rt, "unsigned int", "rowLength"+sg.Name, sg.SparseConnLocation, sg.ConnectivityInit.Snippet != nil, rowLenCount)
		genNamedPushPull(s, rt, "unsigned int", "ind"+sg.Name, sg.SparseConnLocation, sg.ConnectivityInit.Snippet != nil, indCount)
		genConnectivityPushPull(s, rt, sg.Name, []string{"rowLength" + sg.Name, "ind" + sg.Name})

		if sg.WUModel.LearnPostCode != "" {
			rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
				"unsigned int", "colLength"+sg.Name, model.LocDeviceOnly(), sg.Trg.NumNeurons)
			rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
				"unsigned int", "remap"+sg.Name, model.LocDeviceOnly(), sg.Trg.NumNeurons*sg.ColStride())
		}
		if sg.WUModel.SynapseDynamicsCode != "" {
			rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
				"unsigned int", "synRemap"+sg.Name, model.LocDeviceOnly(), 1+sg.Src.NumNeurons*sg.RowStride())
		}
	case sg.MatrixType.Has(model.BitmaskConnectivity):
		gpCount := (sg.Src.NumNeurons*sg.RowStride() + 31) / 32
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			"uint32_t", "gp"+sg.Name, sg.SparseConnLocation, gpCount)
		genNamedPushPull(s, rt, "uint32_t", "gp"+sg.Name, sg.SparseConnLocation, sg.ConnectivityInit.Snippet != nil, gpCount)
		genConnectivityPushPull(s, rt, sg.Name, []string{"gp" + sg.Name})
	}

	// Weight update model state
	if sg.MatrixType.IndividualWeights() {
		for _, v := range sg.WUModel.Vars {
			count := sg.Src.NumNeurons * sg.RowStride()
			rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
				v.Type, v.Name+sg.Name, sg.WUVarLocation, count)
			genNamedPushPull(s, rt, v.Type, v.Name+sg.Name, sg.WUVarLocation, true, count)
			stateVars = append(stateVars, v.Name+sg.Name)
		}
	}
	for _, v := range sg.WUModel.PreVars {
		count := arrayCount(net, sg.Src.NumNeurons, true)
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			v.Type, v.Name+sg.Name, sg.WUVarLocation, count)
		genNamedPushPull(s, rt, v.Type, v.Name+sg.Name, sg.WUVarLocation, true, count)
		stateVars = append(stateVars, v.Name+sg.Name)
	}
	for _, v := range sg.WUModel.PostVars {
		count := arrayCount(net, sg.Trg.NumNeurons, true)
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			v.Type, v.Name+sg.Name, sg.WUVarLocation, count)
		genNamedPushPull(s, rt, v.Type, v.Name+sg.Name, sg.WUVarLocation, true, count)
		stateVars = append(stateVars, v.Name+sg.Name)
	}
	genStatePushPull(s, rt, sg.Name, stateVars)

	for _, egp := range sg.WUModel.EGPs {
		genExtraGlobalParam(s, rt, egp.Type, egp.Name+sg.Name, model.LocHostDevice())
	}
	return nil
}

func genCustomUpdateRunner(s *runnerState, rt Runtime, net *model.Network, name string, cm *model.CustomUpdateModel, size int) {
	var stateVars []string
	for _, v := range cm.Vars {
		rt.GenArray(s.definitionsVar, s.definitionsInternalVar, s.runnerVarDecl, s.runnerVarAlloc, s.runnerVarFree,
			v.Type, v.Name+name, model.LocHostDevice(), size)
		genNamedPushPull(s, rt, v.Type, v.Name+name, model.LocHostDevice(), true, size)
		stateVars = append(stateVars, v.Name+name)
	}
	genStatePushPull(s, rt, name, stateVars)
	for _, egp := range cm.EGPs {
		genExtraGlobalParam(s, rt, egp.Type, egp.Name+name, model.LocHostDevice())
	}
}

// genNamedPushPull emits pushXToDevice / pullXFromDevice for one array.
func genNamedPushPull(s *runnerState, rt Runtime, ctype, name string, loc model.VarLocation, autoInitialized bool, count int) {
	if !loc.OnHost() {
		return
	}
	s.definitionsFunc.Line("EXPORT_FUNC void push%sToDevice(bool uninitialisedOnly = false);", name)
	s.definitionsFunc.Line("EXPORT_FUNC void pull%sFromDevice();", name)
	rt.GenVariablePushPull(s.runnerPushFunc, s.runnerPullFunc, ctype, name, loc, autoInitialized, count)
}

// genSpikesPushPull emits the composite spike transfer functions for one
// population plus the current-spike wrappers the copy helpers call.
func genSpikesPushPull(s *runnerState, rt Runtime, net *model.Network, ng *model.NeuronGroup, suffix string) {
	kind := "Spikes"
	current := "CurrentSpikes"
	if suffix == "Evnt" {
		kind = "SpikeEvents"
		current = "CurrentSpikeEvents"
	}
	s.definitionsFunc.Line("EXPORT_FUNC void push%s%sToDevice(bool uninitialisedOnly = false);", ng.Name, kind)
	s.definitionsFunc.Line("EXPORT_FUNC void pull%s%sFromDevice();", ng.Name, kind)
	s.runnerPushFunc.Line("void push%s%sToDevice(bool uninitialisedOnly)", ng.Name, kind)
	s.runnerPushFunc.Scope(func() {
		s.runnerPushFunc.Line("pushglbSpkCnt%s%sToDevice(uninitialisedOnly);", suffix, ng.Name)
		s.runnerPushFunc.Line("pushglbSpk%s%sToDevice(uninitialisedOnly);", suffix, ng.Name)
	})
	s.runnerPushFunc.Blank()
	s.runnerPullFunc.Line("void pull%s%sFromDevice()", ng.Name, kind)
	s.runnerPullFunc.Scope(func() {
		s.runnerPullFunc.Line("pullglbSpkCnt%s%sFromDevice();", suffix, ng.Name)
		s.runnerPullFunc.Line("pullglbSpk%s%sFromDevice();", suffix, ng.Name)
	})
	s.runnerPullFunc.Blank()

	s.definitionsFunc.Line("EXPORT_FUNC void push%s%sToDevice(bool uninitialisedOnly = false);", ng.Name, current)
	s.definitionsFunc.Line("EXPORT_FUNC void pull%s%sFromDevice();", ng.Name, current)
	rt.GenCurrentSpikePushPull(s.runnerPushFunc, s.runnerPullFunc, ng, net.BatchSize, suffix == "Evnt")
	if suffix == "" {
		s.currentSpikePull = append(s.currentSpikePull, ng.Name+current)
	} else {
		s.currentSpikeEventPull = append(s.currentSpikeEventPull, ng.Name+current)
	}
}

// genStatePushPull emits the pushXStateToDevice / pullXStateFromDevice
// composites.
func genStatePushPull(s *runnerState, rt Runtime, name string, vars []string) {
	s.definitionsFunc.Line("EXPORT_FUNC void push%sStateToDevice(bool uninitialisedOnly = false);", name)
	s.definitionsFunc.Line("EXPORT_FUNC void pull%sStateFromDevice();", name)
	s.runnerPushFunc.Line("void push%sStateToDevice(bool uninitialisedOnly)", name)
	s.runnerPushFunc.Scope(func() {
		for _, v := range vars {
			s.runnerPushFunc.Line("push%sToDevice(uninitialisedOnly);", v)
		}
	})
	s.runnerPushFunc.Blank()
	s.runnerPullFunc.Line("void pull%sStateFromDevice()", name)
	s.runnerPullFunc.Scope(func() {
		for _, v := range vars {
			s.runnerPullFunc.Line("pull%sFromDevice();", v)
		}
	})
	s.runnerPullFunc.Blank()
	s.statePushFuncs = append(s.statePushFuncs, name)
	s.statePullFuncs = append(s.statePullFuncs, name)
}

// genConnectivityPushPull emits pushXConnectivityToDevice feeding
// copyConnectivityToDevice.
func genConnectivityPushPull(s *runnerState, rt Runtime, name string, arrays []string) {
	s.definitionsFunc.Line("EXPORT_FUNC void push%sConnectivityToDevice(bool uninitialisedOnly = false);", name)
	s.definitionsFunc.Line("EXPORT_FUNC void pull%sConnectivityFromDevice();", name)
	s.runnerPushFunc.Line("void push%sConnectivityToDevice(bool uninitialisedOnly)", name)
	s.runnerPushFunc.Scope(func() {
		for _, a := range arrays {
			s.runnerPushFunc.Line("push%sToDevice(uninitialisedOnly);", a)
		}
	})
	s.runnerPushFunc.Blank()
	s.runnerPullFunc.Line("void pull%sConnectivityFromDevice()", name)
	s.runnerPullFunc.Scope(func() {
		for _, a := range arrays {
			s.runnerPullFunc.Line("pull%sFromDevice();", a)
		}
	})
	s.runnerPullFunc.Blank()
	s.connectivityPushFuncs = append(s.connectivityPushFuncs, name)
}

// genExtraGlobalParam emits the allocate/free/push/pull family for one
// user-sized array.
func genExtraGlobalParam(s *runnerState, rt Runtime, ctype, name string, loc model.VarLocation) {
	rt.GenExtraGlobalParamDefinition(s.definitionsVar, ctype, name, loc)
	rt.GenExtraGlobalParamImplementation(s.runnerVarDecl, ctype, name, loc)
	if ctype == "" || ctype[len(ctype)-1] != '*' {
		return
	}

	s.definitionsFunc.Line("EXPORT_FUNC void allocate%s(unsigned int count);", name)
	s.definitionsFunc.Line("EXPORT_FUNC void free%s();", name)
	s.definitionsFunc.Line("EXPORT_FUNC void push%sToDevice(unsigned int count);", name)
	s.definitionsFunc.Line("EXPORT_FUNC void pull%sFromDevice(unsigned int count);", name)

	s.runnerEGPFunc.Line("void allocate%s(unsigned int count)", name)
	s.runnerEGPFunc.Scope(func() {
		rt.GenExtraGlobalParamAllocation(s.runnerEGPFunc, ctype, name, loc, "count")
	})
	s.runnerEGPFunc.Blank()
	s.runnerEGPFunc.Line("void free%s()", name)
	s.runnerEGPFunc.Scope(func() {
		rt.GenExtraGlobalParamFree(s.runnerEGPFunc, name, loc)
	})
	s.runnerEGPFunc.Blank()
	s.runnerEGPFunc.Line("void push%sToDevice(unsigned int count)", name)
	s.runnerEGPFunc.Scope(func() {
		rt.GenExtraGlobalParamPush(s.runnerEGPFunc, ctype, name, loc, "count")
	})
	s.runnerEGPFunc.Blank()
	s.runnerEGPFunc.Line("void pull%sFromDevice(unsigned int count)", name)
	s.runnerEGPFunc.Scope(func() {
		rt.GenExtraGlobalParamPull(s.runnerEGPFunc, ctype, name, loc, "count")
	})
	s.runnerEGPFunc.Blank()
}
