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

import "github.com/spikegen/spikegen/model"

// AtomicOp selects the atomic operation a kernel needs.
type AtomicOp int

const (
	AtomicAdd AtomicOp = iota
	AtomicOr
)

// MemSpace selects which address space an atomic operates on.
type MemSpace int

const (
	GlobalMem MemSpace = iota
	SharedMem
)

// Runtime abstracts one device dialect (CUDA, OpenCL, ...). The core never
// spells device intrinsics itself; everything runtime-specific comes
// through these hooks.
type Runtime interface {
	Name() string

	// Device source spelling
	GetAtomic(ctype string, op AtomicOp, space MemSpace) string
	GetThreadID() string
	GetBlockID() string
	GetSharedPrefix() string
	GetPointerPrefix() string
	GetVarPrefix() string
	GetScalarAddressPrefix() string
	GenSharedMemBarrier(cs *CodeStream)

	// Per-population RNG streams. Preamble and skip-ahead leave a local
	// stream named "rng" in scope; GetRNGTemplate spells one draw from it,
	// with numArgs > 0 for parameterised distributions ($(0), $(1) in the
	// template).
	PopulationRNGType() string
	IsPopulationRNGInitialisedOnDevice() bool
	GenPopulationRNGInit(cs *CodeStream, stateExpr, seed, sequence string)
	GenPopulationRNGPreamble(cs *CodeStream, stateExpr string)
	GenPopulationRNGPostamble(cs *CodeStream, stateExpr string)
	GenGlobalRNGSkipAhead(cs *CodeStream, sequence string)
	GetRNGTemplate(dist string) (template string, numArgs int)

	// Kernel and merged struct scaffolding
	GenKernelFilePreamble(cs *CodeStream, net *model.Network)
	GenKernelDecl(cs *CodeStream, kernelName, params string)
	GetGlobalThreadID(blockSize int) string
	GenKernelLaunch(cs *CodeStream, kernelName string, totalThreads, blockSize, batchSize int, args string)
	GenMergedStructArrayDecl(cs *CodeStream, structName, arrayName string, count int)
	GenMergedGroupStartIDs(cs *CodeStream, arrayName string, starts []int)

	// Host runner emission
	GenDefinitionsPreamble(cs *CodeStream)
	GenRunnerPreamble(cs *CodeStream)
	GenAllocateMemPreamble(cs *CodeStream, net *model.Network)
	GenStepTimeFinalisePreamble(cs *CodeStream, net *model.Network)

	GenArray(definitionsVar, definitionsInternalVar, runnerVarDecl, runnerVarAlloc, runnerVarFree *CodeStream,
		ctype, name string, loc model.VarLocation, count int)
	GenScalar(definitionsVar, definitionsInternalVar, runnerVarDecl *CodeStream,
		ctype, name string, loc model.VarLocation)
	GenVariablePushPull(push, pull *CodeStream, ctype, name string, loc model.VarLocation,
		autoInitialized bool, count int)
	GenCurrentSpikePushPull(push, pull *CodeStream, ng *model.NeuronGroup, batchSize int, event bool)

	GenExtraGlobalParamDefinition(definitionsVar *CodeStream, ctype, name string, loc model.VarLocation)
	GenExtraGlobalParamImplementation(runnerVarDecl *CodeStream, ctype, name string, loc model.VarLocation)
	GenExtraGlobalParamAllocation(cs *CodeStream, ctype, name string, loc model.VarLocation, countExpr string)
	GenExtraGlobalParamFree(cs *CodeStream, name string, loc model.VarLocation)
	GenExtraGlobalParamPush(cs *CodeStream, ctype, name string, loc model.VarLocation, countExpr string)
	GenExtraGlobalParamPull(cs *CodeStream, ctype, name string, loc model.VarLocation, countExpr string)
}
