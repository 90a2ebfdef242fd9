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
	"strings"

	"github.com/spikegen/spikegen/codegen"
	"github.com/spikegen/spikegen/model"
)

// testRuntime is a minimal CUDA-flavoured dialect for exercising the
// emitters in tests.
type testRuntime struct{}

func (testRuntime) Name() string { return "test" }

func (testRuntime) GetAtomic(ctype string, op codegen.AtomicOp, space codegen.MemSpace) string {
	if op == codegen.AtomicOr {
		return "atomicOr"
	}
	return "atomicAdd"
}

func (testRuntime) GetThreadID() string            { return "threadIdx.x" }
func (testRuntime) GetBlockID() string             { return "blockIdx.y" }
func (testRuntime) GetSharedPrefix() string        { return "__shared__ " }
func (testRuntime) GetPointerPrefix() string       { return "" }
func (testRuntime) GetVarPrefix() string           { return "d_" }
func (testRuntime) GetScalarAddressPrefix() string { return "&d_" }

func (testRuntime) GenSharedMemBarrier(cs *codegen.CodeStream) { cs.Line("__syncthreads();") }

func (testRuntime) PopulationRNGType() string                { return "curandState" }
func (testRuntime) IsPopulationRNGInitialisedOnDevice() bool { return true }

func (testRuntime) GenPopulationRNGInit(cs *codegen.CodeStream, stateExpr, seed, sequence string) {
	cs.Line("curand_init(%s, %s, 0, &%s);", seed, sequence, stateExpr)
}
func (testRuntime) GenPopulationRNGPreamble(cs *codegen.CodeStream, stateExpr string) {
	cs.Line("curandState rng = %s;", stateExpr)
}
func (testRuntime) GenPopulationRNGPostamble(cs *codegen.CodeStream, stateExpr string) {
	cs.Line("%s = rng;", stateExpr)
}
func (testRuntime) GenGlobalRNGSkipAhead(cs *codegen.CodeStream, sequence string) {
	cs.Line("skipahead_sequence(%s, &rng);", sequence)
}
func (testRuntime) GetRNGTemplate(dist string) (string, int) {
	switch dist {
	case "uniform", "normal", "exponential":
		return "curand_" + dist + "(&rng)", 0
	case "log_normal":
		return "curand_log_normal(&rng, $(0), $(1))", 2
	case "gamma":
		return "gammaDist(rng, $(0))", 1
	}
	return "", 0
}

func (testRuntime) GenKernelFilePreamble(cs *codegen.CodeStream, net *model.Network) {
	cs.Line("#include \"definitionsInternal.h\"")
}
func (testRuntime) GenKernelDecl(cs *codegen.CodeStream, kernelName, params string) {
	cs.Line("__global__ void %s(%s)", kernelName, params)
}
func (testRuntime) GetGlobalThreadID(blockSize int) string {
	return fmt.Sprintf("%d * blockIdx.x + threadIdx.x", blockSize)
}
func (testRuntime) GenKernelLaunch(cs *codegen.CodeStream, kernelName string, totalThreads, blockSize, batchSize int, args string) {
	cs.Line("%s<<<%d, %d>>>(%s);", kernelName, (totalThreads+blockSize-1)/blockSize, blockSize, args)
}
func (testRuntime) GenMergedStructArrayDecl(cs *codegen.CodeStream, structName, arrayName string, count int) {
	cs.Line("__device__ struct %s %s[%d];", structName, arrayName, count)
}
func (testRuntime) GenMergedGroupStartIDs(cs *codegen.CodeStream, arrayName string, starts []int) {
	values := make([]string, len(starts))
	for i, s := range starts {
		values[i] = fmt.Sprintf("%d", s)
	}
	cs.Line("__device__ unsigned int %s[%d] = {%s};", arrayName, len(starts), strings.Join(values, ", "))
}

func (testRuntime) GenDefinitionsPreamble(cs *codegen.CodeStream)           { cs.Line("#include <cstdint>") }
func (testRuntime) GenRunnerPreamble(cs *codegen.CodeStream)                {}
func (testRuntime) GenAllocateMemPreamble(cs *codegen.CodeStream, net *model.Network) {}
func (testRuntime) GenStepTimeFinalisePreamble(cs *codegen.CodeStream, net *model.Network) {}

func (testRuntime) GenArray(definitionsVar, definitionsInternalVar, runnerVarDecl, runnerVarAlloc, runnerVarFree *codegen.CodeStream,
	ctype, name string, loc model.VarLocation, count int) {

	if loc.OnHost() {
		definitionsVar.Line("EXPORT_VAR %s* %s;", ctype, name)
		runnerVarDecl.Line("%s* %s;", ctype, name)
		runnerVarAlloc.Line("hostAlloc(&%s, %d * sizeof(%s));", name, count, ctype)
		runnerVarFree.Line("hostFree(%s);", name)
	}
	if loc.OnDevice() {
		definitionsInternalVar.Line("EXPORT_VAR %s* d_%s;", ctype, name)
		runnerVarDecl.Line("%s* d_%s;", ctype, name)
		runnerVarAlloc.Line("deviceAlloc(&d_%s, %d * sizeof(%s));", name, count, ctype)
		runnerVarFree.Line("deviceFree(d_%s);", name)
	}
}

func (testRuntime) GenScalar(definitionsVar, definitionsInternalVar, runnerVarDecl *codegen.CodeStream,
	ctype, name string, loc model.VarLocation) {

	definitionsVar.Line("EXPORT_VAR %s %s;", ctype, name)
	runnerVarDecl.Line("%s %s;", ctype, name)
	if loc.OnDevice() {
		runnerVarDecl.Line("__device__ %s d_%s;", ctype, name)
	}
}

func (testRuntime) GenVariablePushPull(push, pull *codegen.CodeStream, ctype, name string, loc model.VarLocation,
	autoInitialized bool, count int) {

	push.Line("void push%sToDevice(bool uninitialisedOnly)", name)
	push.Scope(func() {
		push.Line("copyToDevice(d_%s, %s, %d * sizeof(%s));", name, name, count, ctype)
	})
	pull.Line("void pull%sFromDevice()", name)
	pull.Scope(func() {
		pull.Line("copyFromDevice(%s, d_%s, %d * sizeof(%s));", name, name, count, ctype)
	})
}

func (testRuntime) GenCurrentSpikePushPull(push, pull *codegen.CodeStream, ng *model.NeuronGroup, batchSize int, event bool) {
	kind := "CurrentSpikes"
	if event {
		kind = "CurrentSpikeEvents"
	}
	push.Line("void push%s%sToDevice(bool uninitialisedOnly)", ng.Name, kind)
	push.Scope(func() {
		push.Line("copyCurrentSpikesToDevice();")
	})
	pull.Line("void pull%s%sFromDevice()", ng.Name, kind)
	pull.Scope(func() {
		pull.Line("copyCurrentSpikesFromDevice();")
	})
}

func (testRuntime) GenExtraGlobalParamDefinition(definitionsVar *codegen.CodeStream, ctype, name string, loc model.VarLocation) {
	definitionsVar.Line("EXPORT_VAR %s %s;", ctype, name)
}
func (testRuntime) GenExtraGlobalParamImplementation(runnerVarDecl *codegen.CodeStream, ctype, name string, loc model.VarLocation) {
	runnerVarDecl.Line("%s %s;", ctype, name)
	runnerVarDecl.Line("%s d_%s;", ctype, name)
}
func (testRuntime) GenExtraGlobalParamAllocation(cs *codegen.CodeStream, ctype, name string, loc model.VarLocation, countExpr string) {
	cs.Line("egpAlloc(&%s, %s);", name, countExpr)
}
func (testRuntime) GenExtraGlobalParamFree(cs *codegen.CodeStream, name string, loc model.VarLocation) {
	cs.Line("egpFree(%s);", name)
}
func (testRuntime) GenExtraGlobalParamPush(cs *codegen.CodeStream, ctype, name string, loc model.VarLocation, countExpr string) {
	cs.Line("egpPush(%s, %s);", name, countExpr)
}
func (testRuntime) GenExtraGlobalParamPull(cs *codegen.CodeStream, ctype, name string, loc model.VarLocation, countExpr string) {
	cs.Line("egpPull(%s, %s);", name, countExpr)
}
