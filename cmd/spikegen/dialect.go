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

package main

import (
	"fmt"
	"strings"

	"github.com/spikegen/spikegen/codegen"
	"github.com/spikegen/spikegen/model"
)

// cudaDialect is the built-in reference device dialect: CUDA spelling for
// atomics, barriers, RNG streams and host-side memory transfer.
type cudaDialect struct{}

// AvailableDialects lists the device dialects the command can emit for.
func AvailableDialects() []string {
	return []string{"cuda"}
}

// GetDialect resolves a dialect name.
func GetDialect(name string) (codegen.Runtime, error) {
	switch name {
	case "cuda":
		return cudaDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (available: %s)", name, strings.Join(AvailableDialects(), ","))
	}
}

func (cudaDialect) Name() string { return "cuda" }

func (cudaDialect) GetAtomic(ctype string, op codegen.AtomicOp, space codegen.MemSpace) string {
	if op == codegen.AtomicOr {
		return "atomicOr"
	}
	return "atomicAdd"
}

func (cudaDialect) GetThreadID() string           { return "threadIdx.x" }
func (cudaDialect) GetBlockID() string            { return "blockIdx.y" }
func (cudaDialect) GetSharedPrefix() string       { return "__shared__ " }
func (cudaDialect) GetPointerPrefix() string      { return "" }
func (cudaDialect) GetVarPrefix() string          { return "d_" }
func (cudaDialect) GetScalarAddressPrefix() string { return "&d_" }

func (cudaDialect) GenSharedMemBarrier(cs *codegen.CodeStream) {
	cs.Line("__syncthreads();")
}

func (cudaDialect) PopulationRNGType() string              { return "curandState" }
func (cudaDialect) IsPopulationRNGInitialisedOnDevice() bool { return true }

func (cudaDialect) GenPopulationRNGInit(cs *codegen.CodeStream, stateExpr, seed, sequence string) {
	cs.Line("curand_init(%s, %s, 0, &%s);", seed, sequence, stateExpr)
}

func (cudaDialect) GenPopulationRNGPreamble(cs *codegen.CodeStream, stateExpr string) {
	cs.Line("curandState rng = %s;", stateExpr)
}

func (cudaDialect) GenPopulationRNGPostamble(cs *codegen.CodeStream, stateExpr string) {
	cs.Line("%s = rng;", stateExpr)
}

func (cudaDialect) GenGlobalRNGSkipAhead(cs *codegen.CodeStream, sequence string) {
	cs.Line("curandStatePhilox4_32_10_t rng = d_rng;")
	cs.Line("skipahead_sequence((unsigned long long)(%s), &rng);", sequence)
}

func (cudaDialect) GetRNGTemplate(dist string) (string, int) {
	switch dist {
	case "uniform":
		return "curand_uniform(&rng)", 0
	case "normal":
		return "curand_normal(&rng)", 0
	case "exponential":
		return "exponentialDist(rng)", 0
	case "log_normal":
		return "curand_log_normal(&rng, $(0), $(1))", 2
	case "gamma":
		return "gammaDist(rng, $(0))", 1
	case "binomial":
		return "binomialDist(rng, $(0), $(1))", 2
	default:
		return "", 0
	}
}

func (cudaDialect) GenKernelFilePreamble(cs *codegen.CodeStream, net *model.Network) {
	cs.Line("#include \"definitionsInternal.h\"")
	cs.Blank()
	cs.Line("#include <curand_kernel.h>")
	cs.Blank()
	cs.Line("__device__ curandStatePhilox4_32_10_t d_rng;")
	cs.Blank()
}

func (cudaDialect) GenKernelDecl(cs *codegen.CodeStream, kernelName, params string) {
	cs.Line("extern \"C\" __global__ void %s(%s)", kernelName, params)
}

func (cudaDialect) GetGlobalThreadID(blockSize int) string {
	return fmt.Sprintf("%d * blockIdx.x + threadIdx.x", blockSize)
}

func (cudaDialect) GenKernelLaunch(cs *codegen.CodeStream, kernelName string, totalThreads, blockSize, batchSize int, args string) {
	grid := (totalThreads + blockSize - 1) / blockSize
	cs.Scope(func() {
		if batchSize > 1 {
			cs.Line("const dim3 threads(%d, 1);", blockSize)
			cs.Line("const dim3 grid(%d, %d);", grid, batchSize)
		} else {
			cs.Line("const dim3 threads(%d, 1);", blockSize)
			cs.Line("const dim3 grid(%d, 1);", grid)
		}
		cs.Line("%s<<<grid, threads>>>(%s);", kernelName, args)
		cs.Line("CHECK_CUDA_ERRORS(cudaPeekAtLastError());")
	})
}

func (cudaDialect) GenMergedStructArrayDecl(cs *codegen.CodeStream, structName, arrayName string, count int) {
	cs.Line("__device__ __constant__ struct %s %s[%d];", structName, arrayName, count)
}

func (cudaDialect) GenMergedGroupStartIDs(cs *codegen.CodeStream, arrayName string, starts []int) {
	values := make([]string, len(starts))
	for i, s := range starts {
		values[i] = fmt.Sprintf("%d", s)
	}
	cs.Line("__device__ __constant__ unsigned int %s[%d] = {%s};", arrayName, len(starts), strings.Join(values, ", "))
}

func (cudaDialect) GenDefinitionsPreamble(cs *codegen.CodeStream) {
	cs.Line("#include <cstdint>")
	cs.Line("#include <stdexcept>")
}

func (cudaDialect) GenRunnerPreamble(cs *codegen.CodeStream) {
	cs.Line("#include <cuda_runtime.h>")
	cs.Blank()
	cs.Line("#define CHECK_CUDA_ERRORS(call)                                          \\")
	cs.Line("{                                                                        \\")
	cs.Line("    cudaError_t error = call;                                            \\")
	cs.Line("    if (error != cudaSuccess) {                                          \\")
	cs.Line("        throw std::runtime_error(__FILE__\": \" + std::to_string(__LINE__) + \\")
	cs.Line("                                 \": cuda error \" + std::to_string(error) + \": \" + cudaGetErrorString(error)); \\")
	cs.Line("    }                                                                    \\")
	cs.Line("}")
}

func (cudaDialect) GenAllocateMemPreamble(cs *codegen.CodeStream, net *model.Network) {
	cs.Line("CHECK_CUDA_ERRORS(cudaSetDevice(0));")
	cs.Blank()
}

func (cudaDialect) GenStepTimeFinalisePreamble(cs *codegen.CodeStream, net *model.Network) {
}

func (cudaDialect) GenArray(definitionsVar, definitionsInternalVar, runnerVarDecl, runnerVarAlloc, runnerVarFree *codegen.CodeStream,
	ctype, name string, loc model.VarLocation, count int) {

	if loc.OnHost() {
		definitionsVar.Line("EXPORT_VAR %s* %s;", ctype, name)
		runnerVarDecl.Line("%s* %s;", ctype, name)
	}
	if loc.OnDevice() {
		definitionsInternalVar.Line("EXPORT_VAR %s* d_%s;", ctype, name)
		runnerVarDecl.Line("%s* d_%s;", ctype, name)
	}
	if loc.ZeroCopy() {
		runnerVarAlloc.Line("CHECK_CUDA_ERRORS(cudaHostAlloc(&%s, %d * sizeof(%s), cudaHostAllocMapped));", name, count, ctype)
		runnerVarAlloc.Line("CHECK_CUDA_ERRORS(cudaHostGetDevicePointer(&d_%s, %s, 0));", name, name)
		runnerVarFree.Line("CHECK_CUDA_ERRORS(cudaFreeHost(%s));", name)
		return
	}
	if loc.OnHost() {
		runnerVarAlloc.Line("CHECK_CUDA_ERRORS(cudaHostAlloc(&%s, %d * sizeof(%s), cudaHostAllocPortable));", name, count, ctype)
		runnerVarFree.Line("CHECK_CUDA_ERRORS(cudaFreeHost(%s));", name)
	}
	if loc.OnDevice() {
		runnerVarAlloc.Line("CHECK_CUDA_ERRORS(cudaMalloc(&d_%s, %d * sizeof(%s)));", name, count, ctype)
		runnerVarFree.Line("CHECK_CUDA_ERRORS(cudaFree(d_%s));", name)
	}
}

func (cudaDialect) GenScalar(definitionsVar, definitionsInternalVar, runnerVarDecl *codegen.CodeStream,
	ctype, name string, loc model.VarLocation) {

	definitionsVar.Line("EXPORT_VAR %s %s;", ctype, name)
	runnerVarDecl.Line("%s %s;", ctype, name)
	if loc.OnDevice() {
		definitionsInternalVar.Line("EXPORT_VAR __device__ %s d_%s;", ctype, name)
		runnerVarDecl.Line("__device__ %s d_%s;", ctype, name)
	}
}

func (cudaDialect) GenVariablePushPull(push, pull *codegen.CodeStream, ctype, name string, loc model.VarLocation,
	autoInitialized bool, count int) {

	push.Line("void push%sToDevice(bool uninitialisedOnly)", name)
	push.Scope(func() {
		body := func() {
			push.Line("CHECK_CUDA_ERRORS(cudaMemcpy(d_%s, %s, %d * sizeof(%s), cudaMemcpyHostToDevice));", name, name, count, ctype)
		}
		if autoInitialized {
			push.Line("if(!uninitialisedOnly)")
			push.Scope(body)
		} else {
			body()
		}
	})
	push.Blank()

	pull.Line("void pull%sFromDevice()", name)
	pull.Scope(func() {
		pull.Line("CHECK_CUDA_ERRORS(cudaMemcpy(%s, d_%s, %d * sizeof(%s), cudaMemcpyDeviceToHost));", name, name, count, ctype)
	})
	pull.Blank()
}

func (cudaDialect) GenCurrentSpikePushPull(push, pull *codegen.CodeStream, ng *model.NeuronGroup, batchSize int, event bool) {
	kind := "CurrentSpikes"
	suffix := ""
	if event {
		kind = "CurrentSpikeEvents"
		suffix = "Evnt"
	}
	delayed := ng.DelayRequired()
	if !event {
		delayed = delayed && ng.TrueSpikeRequired()
	}

	push.Line("void push%s%sToDevice(bool uninitialisedOnly)", ng.Name, kind)
	push.Scope(func() {
		if delayed {
			push.Line("CHECK_CUDA_ERRORS(cudaMemcpy(d_glbSpkCnt%s%s + spkQuePtr%s, glbSpkCnt%s%s + spkQuePtr%s, sizeof(unsigned int), cudaMemcpyHostToDevice));",
				suffix, ng.Name, ng.Name, suffix, ng.Name, ng.Name)
			push.Line("CHECK_CUDA_ERRORS(cudaMemcpy(d_glbSpk%s%s + (spkQuePtr%s * %d), glbSpk%s%s + (spkQuePtr%s * %d), glbSpkCnt%s%s[spkQuePtr%s] * sizeof(unsigned int), cudaMemcpyHostToDevice));",
				suffix, ng.Name, ng.Name, ng.NumNeurons, suffix, ng.Name, ng.Name, ng.NumNeurons, suffix, ng.Name, ng.Name)
		} else {
			push.Line("CHECK_CUDA_ERRORS(cudaMemcpy(d_glbSpkCnt%s%s, glbSpkCnt%s%s, sizeof(unsigned int), cudaMemcpyHostToDevice));",
				suffix, ng.Name, suffix, ng.Name)
			push.Line("CHECK_CUDA_ERRORS(cudaMemcpy(d_glbSpk%s%s, glbSpk%s%s, glbSpkCnt%s%s[0] * sizeof(unsigned int), cudaMemcpyHostToDevice));",
				suffix, ng.Name, suffix, ng.Name, suffix, ng.Name)
		}
	})
	push.Blank()

	pull.Line("void pull%s%sFromDevice()", ng.Name, kind)
	pull.Scope(func() {
		if delayed {
			pull.Line("CHECK_CUDA_ERRORS(cudaMemcpy(glbSpkCnt%s%s + spkQuePtr%s, d_glbSpkCnt%s%s + spkQuePtr%s, sizeof(unsigned int), cudaMemcpyDeviceToHost));",
				suffix, ng.Name, ng.Name, suffix, ng.Name, ng.Name)
			pull.Line("CHECK_CUDA_ERRORS(cudaMemcpy(glbSpk%s%s + (spkQuePtr%s * %d), d_glbSpk%s%s + (spkQuePtr%s * %d), glbSpkCnt%s%s[spkQuePtr%s] * sizeof(unsigned int), cudaMemcpyDeviceToHost));",
				suffix, ng.Name, ng.Name, ng.NumNeurons, suffix, ng.Name, ng.Name, ng.NumNeurons, suffix, ng.Name, ng.Name)
		} else {
			pull.Line("CHECK_CUDA_ERRORS(cudaMemcpy(glbSpkCnt%s%s, d_glbSpkCnt%s%s, sizeof(unsigned int), cudaMemcpyDeviceToHost));",
				suffix, ng.Name, suffix, ng.Name)
			pull.Line("CHECK_CUDA_ERRORS(cudaMemcpy(glbSpk%s%s, d_glbSpk%s%s, glbSpkCnt%s%s[0] * sizeof(unsigned int), cudaMemcpyDeviceToHost));",
				suffix, ng.Name, suffix, ng.Name, suffix, ng.Name)
		}
	})
	pull.Blank()
}

func (cudaDialect) GenExtraGlobalParamDefinition(definitionsVar *codegen.CodeStream, ctype, name string, loc model.VarLocation) {
	definitionsVar.Line("EXPORT_VAR %s %s;", ctype, name)
}

func (cudaDialect) GenExtraGlobalParamImplementation(runnerVarDecl *codegen.CodeStream, ctype, name string, loc model.VarLocation) {
	runnerVarDecl.Line("%s %s;", ctype, name)
	runnerVarDecl.Line("%s d_%s;", ctype, name)
}

func (cudaDialect) GenExtraGlobalParamAllocation(cs *codegen.CodeStream, ctype, name string, loc model.VarLocation, countExpr string) {
	elem := strings.TrimSuffix(ctype, "*")
	cs.Line("CHECK_CUDA_ERRORS(cudaHostAlloc(&%s, %s * sizeof(%s), cudaHostAllocPortable));", name, countExpr, elem)
	cs.Line("CHECK_CUDA_ERRORS(cudaMalloc(&d_%s, %s * sizeof(%s)));", name, countExpr, elem)
}

func (cudaDialect) GenExtraGlobalParamFree(cs *codegen.CodeStream, name string, loc model.VarLocation) {
	cs.Line("CHECK_CUDA_ERRORS(cudaFreeHost(%s));", name)
	cs.Line("CHECK_CUDA_ERRORS(cudaFree(d_%s));", name)
}

func (cudaDialect) GenExtraGlobalParamPush(cs *codegen.CodeStream, ctype, name string, loc model.VarLocation, countExpr string) {
	elem := strings.TrimSuffix(ctype, "*")
	cs.Line("CHECK_CUDA_ERRORS(cudaMemcpy(d_%s, %s, %s * sizeof(%s), cudaMemcpyHostToDevice));", name, name, countExpr, elem)
}

func (cudaDialect) GenExtraGlobalParamPull(cs *codegen.CodeStream, ctype, name string, loc model.VarLocation, countExpr string) {
	elem := strings.TrimSuffix(ctype, "*")
	cs.Line("CHECK_CUDA_ERRORS(cudaMemcpy(%s, d_%s, %s * sizeof(%s), cudaMemcpyDeviceToHost));", name, name, countExpr, elem)
}
