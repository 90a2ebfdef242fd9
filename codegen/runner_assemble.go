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

	"github.com/spikegen/spikegen/model"
)

// genDefinitionsPreamble writes the macro block at the top of
// definitions.h: export decoration, DT, the scalar typedef, numeric limit
// macros and the high-bit-first bitmask helpers.
func genDefinitionsPreamble(cs *CodeStream, net *model.Network, rt Runtime) {
	cs.Line("#pragma once")
	cs.Blank()
	cs.Line("// Export attributes switch between import and export when the")
	cs.Line("// generated library is built as a DLL")
	cs.Line("#ifdef _WIN32")
	cs.Line("#ifdef BUILDING_GENERATED_CODE")
	cs.Line("#define EXPORT_VAR __declspec(dllexport) extern")
	cs.Line("#define EXPORT_FUNC __declspec(dllexport)")
	cs.Line("#else")
	cs.Line("#define EXPORT_VAR __declspec(dllimport) extern")
	cs.Line("#define EXPORT_FUNC __declspec(dllimport)")
	cs.Line("#endif")
	cs.Line("#else")
	cs.Line("#define EXPORT_VAR extern")
	cs.Line("#define EXPORT_FUNC")
	cs.Line("#endif")
	cs.Blank()

	rt.GenDefinitionsPreamble(cs)
	cs.Blank()

	dt := strconv.FormatFloat(net.DT, 'f', 6, 64)
	if net.TimePrecision == model.Float {
		cs.Line("#define DT %sf", dt)
	} else {
		cs.Line("#define DT %s", dt)
	}
	cs.Line("typedef %s scalar;", net.ScalarName())

	scalarMin, scalarMax, scalarSuffix := numericLimits(net.Precision)
	cs.Line("#define SCALAR_MIN %s%s", scalarMin, scalarSuffix)
	cs.Line("#define SCALAR_MAX %s%s", scalarMax, scalarSuffix)
	timeMin, timeMax, timeSuffix := numericLimits(net.TimePrecision)
	cs.Line("#define TIME_MIN %s%s", timeMin, timeSuffix)
	cs.Line("#define TIME_MAX %s%s", timeMax, timeSuffix)
	cs.Blank()

	cs.Line("// Bitmask helpers operating on the high-bit-first ordering used throughout")
	cs.Line("#define B(x,i) ((x) & (0x80000000 >> (i))) //!< Extract the bit at the specified position i from x")
	cs.Line("#define setB(x,i) x= ((x) | (0x80000000 >> (i))) //!< Set the bit at the specified position i in x to 1")
	cs.Line("#define delB(x,i) x= ((x) & (~(0x80000000 >> (i)))) //!< Set the bit at the specified position i in x to 0")
	cs.Blank()
}

// assembleRunner stitches the intermediate streams into the three output
// files, emitting the composite copy functions and stepTime.
func assembleRunner(m *MergedModel, rt Runtime, s *runnerState) (*RunnerOutput, error) {
	net := m.Network

	definitions := NewCodeStream()
	genDefinitionsPreamble(definitions, net, rt)
	definitions.Line("extern \"C\" {")
	definitions.Code(s.definitionsVar.String())
	definitions.Blank()

	// Runner functions
	definitions.Line("// Runner functions")
	definitions.Line("EXPORT_FUNC void copyStateToDevice(bool uninitialisedOnly = false);")
	definitions.Line("EXPORT_FUNC void copyConnectivityToDevice(bool uninitialisedOnly = false);")
	definitions.Line("EXPORT_FUNC void copyStateFromDevice();")
	definitions.Line("EXPORT_FUNC void copyCurrentSpikesFromDevice();")
	definitions.Line("EXPORT_FUNC void copyCurrentSpikeEventsFromDevice();")
	if s.recordingAllocs != nil {
		definitions.Line("EXPORT_FUNC void allocateRecordingBuffers(unsigned int timesteps);")
		definitions.Line("EXPORT_FUNC void pullRecordingBuffersFromDevice();")
	}
	definitions.Line("EXPORT_FUNC void allocateMem();")
	definitions.Line("EXPORT_FUNC void freeMem();")
	definitions.Line("EXPORT_FUNC void stepTime();")
	definitions.Blank()
	definitions.Code(s.definitionsFunc.String())
	definitions.Blank()
	definitions.Line("// Functions generated by backend")
	timeType := net.TimeType().Name()
	if s.recordingAllocs != nil {
		definitions.Line("EXPORT_FUNC void updateNeurons(%s t, unsigned int recordingTimestep);", timeType)
	} else {
		definitions.Line("EXPORT_FUNC void updateNeurons(%s t);", timeType)
	}
	definitions.Line("EXPORT_FUNC void updateSynapses(%s t);", timeType)
	definitions.Line("EXPORT_FUNC void initialize();")
	definitions.Line("EXPORT_FUNC void initializeSparse();")
	for _, group := range net.CustomUpdateGroupNames() {
		definitions.Line("EXPORT_FUNC void update%s();", group)
	}
	definitions.Line("}  // extern \"C\"")

	definitionsInternal := NewCodeStream()
	definitionsInternal.Line("#pragma once")
	definitionsInternal.Line("#include \"definitions.h\"")
	definitionsInternal.Blank()
	definitionsInternal.Line("extern \"C\" {")
	definitionsInternal.Code(s.definitionsInternalVar.String())
	definitionsInternal.Blank()
	definitionsInternal.Code(s.definitionsInternalFunc.String())
	definitionsInternal.Line("}  // extern \"C\"")

	runner := NewCodeStream()
	runner.Line("#include \"definitionsInternal.h\"")
	runner.Blank()
	rt.GenRunnerPreamble(runner)
	runner.Blank()
	runner.Code(s.runnerVarDecl.String())
	runner.Blank()
	runner.Code(s.runnerPushFunc.String())
	runner.Code(s.runnerPullFunc.String())
	runner.Code(s.runnerEGPFunc.String())

	// Composite state transfer functions
	runner.Line("void copyStateToDevice(bool uninitialisedOnly)")
	runner.Scope(func() {
		for _, name := range s.statePushFuncs {
			runner.Line("push%sStateToDevice(uninitialisedOnly);", name)
		}
	})
	runner.Blank()

	runner.Line("void copyConnectivityToDevice(bool uninitialisedOnly)")
	runner.Scope(func() {
		for _, name := range s.connectivityPushFuncs {
			runner.Line("push%sConnectivityToDevice(uninitialisedOnly);", name)
		}
	})
	runner.Blank()

	runner.Line("void copyStateFromDevice()")
	runner.Scope(func() {
		for _, name := range s.statePullFuncs {
			runner.Line("pull%sStateFromDevice();", name)
		}
	})
	runner.Blank()

	runner.Line("void copyCurrentSpikesFromDevice()")
	runner.Scope(func() {
		for _, fn := range s.currentSpikePull {
			runner.Line("pull%sFromDevice();", fn)
		}
	})
	runner.Blank()

	runner.Line("void copyCurrentSpikeEventsFromDevice()")
	runner.Scope(func() {
		for _, fn := range s.currentSpikeEventPull {
			runner.Line("pull%sFromDevice();", fn)
		}
	})
	runner.Blank()

	if s.recordingAllocs != nil {
		runner.Line("void allocateRecordingBuffers(unsigned int timesteps)")
		runner.Scope(func() {
			runner.Line("numRecordingTimesteps = timesteps;")
			runner.Code(s.recordingAllocs.String())
		})
		runner.Blank()
		runner.Line("void pullRecordingBuffersFromDevice()")
		runner.Scope(func() {
			runner.Line("if(numRecordingTimesteps == 0)")
			runner.Scope(func() {
				runner.Line("throw std::runtime_error(\"Recording buffer not allocated - cannot pull from device\");")
			})
			runner.Code(s.recordingPulls.String())
		})
		runner.Blank()
	}

	// Host reductions: pull reduced custom update state after device passes
	for _, g := range m.CustomUpdateHostReductionGroups {
		runner.Line("void customUpdate%dHostReduction()", g.Index)
		runner.Scope(func() {
			for _, cu := range g.Groups {
				for _, v := range cu.Model.Vars {
					if v.Access.IsReduce() {
						runner.Line("pull%s%sFromDevice();", v.Name, cu.Name)
					}
				}
			}
		})
		runner.Blank()
	}

	runner.Line("void allocateMem()")
	runner.Scope(func() {
		rt.GenAllocateMemPreamble(runner, net)
		runner.Code(s.runnerVarAlloc.String())
		runner.Blank()
		runner.Line("// Assemble merged group structures and push them to the device")
		runner.Code(s.runnerMergedStructInit.String())
	})
	runner.Blank()

	runner.Line("void freeMem()")
	runner.Scope(func() {
		runner.Code(s.runnerVarFree.String())
	})
	runner.Blank()

	runner.Line("void stepTime()")
	runner.Scope(func() {
		// Synapses consume the spikes produced last timestep, so they must
		// run before the queue pointers move on
		runner.Line("updateSynapses(t);")
		for _, ng := range net.NeuronGroups {
			if ng.DelayRequired() {
				runner.Line("spkQuePtr%s = (spkQuePtr%s + 1) %% %d;", ng.Name, ng.Name, ng.NumDelaySlots())
			}
		}
		if s.recordingAllocs != nil {
			runner.Line("updateNeurons(t, (unsigned int)(iT %% numRecordingTimesteps));")
		} else {
			runner.Line("updateNeurons(t);")
		}
		for _, sg := range net.SynapseGroups {
			if sg.DendriticDelayRequired() {
				runner.Line("denDelayPtr%s = (denDelayPtr%s + 1) %% %d;",
					sg.PSModelTargetName(), sg.PSModelTargetName(), sg.MaxDendriticDelayTimesteps)
			}
		}
		runner.Line("iT++;")
		runner.Line("t = iT*DT;")
		runner.Code(s.runnerStepTimeFinalise.String())
	})

	return &RunnerOutput{
		Definitions:         definitions.String(),
		DefinitionsInternal: definitionsInternal.String(),
		Runner:              runner.String(),
	}, nil
}
