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

package model

import (
	"encoding/json"
	"fmt"
)

// SynapseMatrixConnectivity is the connectivity half of a synaptic matrix
// type bitmask.
type SynapseMatrixConnectivity uint32

const (
	DenseConnectivity SynapseMatrixConnectivity = 1 << iota
	BitmaskConnectivity
	SparseConnectivity
	ProceduralConnectivity
	KernelConnectivity
)

// SynapseMatrixWeight is the weight half of a synaptic matrix type bitmask.
type SynapseMatrixWeight uint32

const (
	GlobalWeight SynapseMatrixWeight = 1 << (iota + 5)
	IndividualWeight
	ProceduralWeight
	KernelWeight
	IndividualPSMWeight
)

// SynapseMatrixType combines connectivity and weight bits.
type SynapseMatrixType uint32

const (
	DenseGlobal            = SynapseMatrixType(DenseConnectivity) | SynapseMatrixType(GlobalWeight)
	DenseIndividual        = SynapseMatrixType(DenseConnectivity) | SynapseMatrixType(IndividualWeight)
	DenseProcedural        = SynapseMatrixType(DenseConnectivity) | SynapseMatrixType(ProceduralWeight)
	DenseIndividualPSM     = SynapseMatrixType(DenseConnectivity) | SynapseMatrixType(IndividualPSMWeight)
	BitmaskGlobal          = SynapseMatrixType(BitmaskConnectivity) | SynapseMatrixType(GlobalWeight)
	SparseGlobal           = SynapseMatrixType(SparseConnectivity) | SynapseMatrixType(GlobalWeight)
	SparseIndividual       = SynapseMatrixType(SparseConnectivity) | SynapseMatrixType(IndividualWeight)
	SparseIndividualPSM    = SynapseMatrixType(SparseConnectivity) | SynapseMatrixType(IndividualPSMWeight)
	ProceduralGlobal       = SynapseMatrixType(ProceduralConnectivity) | SynapseMatrixType(GlobalWeight)
	ProceduralProcedural   = SynapseMatrixType(ProceduralConnectivity) | SynapseMatrixType(ProceduralWeight)
	ProceduralKernel       = SynapseMatrixType(ProceduralConnectivity) | SynapseMatrixType(KernelWeight)
	ToeplitzKernelIndexing = SynapseMatrixType(KernelConnectivity) | SynapseMatrixType(KernelWeight)
)

// matrixTypeNames is used for the JSON encoding of matrix types.
var matrixTypeNames = map[SynapseMatrixType]string{
	DenseGlobal:            "DenseGlobal",
	DenseIndividual:        "DenseIndividual",
	DenseProcedural:        "DenseProcedural",
	DenseIndividualPSM:     "DenseIndividualPSM",
	BitmaskGlobal:          "BitmaskGlobal",
	SparseGlobal:           "SparseGlobal",
	SparseIndividual:       "SparseIndividual",
	SparseIndividualPSM:    "SparseIndividualPSM",
	ProceduralGlobal:       "ProceduralGlobal",
	ProceduralProcedural:   "ProceduralProcedural",
	ProceduralKernel:       "ProceduralKernel",
	ToeplitzKernelIndexing: "ToeplitzKernelIndexing",
}

var matrixTypeValues = func() map[string]SynapseMatrixType {
	m := make(map[string]SynapseMatrixType, len(matrixTypeNames))
	for k, v := range matrixTypeNames {
		m[v] = k
	}
	return m
}()

// Has reports whether the connectivity bit is set.
func (t SynapseMatrixType) Has(c SynapseMatrixConnectivity) bool {
	return t&SynapseMatrixType(c) != 0
}

// HasWeight reports whether the weight bit is set.
func (t SynapseMatrixType) HasWeight(w SynapseMatrixWeight) bool {
	return t&SynapseMatrixType(w) != 0
}

// IndividualWeights reports whether each synapse has its own weight
// variables (either plain individual or individual-PSM).
func (t SynapseMatrixType) IndividualWeights() bool {
	return t.HasWeight(IndividualWeight) || t.HasWeight(IndividualPSMWeight)
}

func (t SynapseMatrixType) String() string {
	if name, ok := matrixTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SynapseMatrixType(%#x)", uint32(t))
}

func (t SynapseMatrixType) MarshalJSON() ([]byte, error) {
	name, ok := matrixTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown synapse matrix type %#x", uint32(t))
	}
	return json.Marshal(name)
}

func (t *SynapseMatrixType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, ok := matrixTypeValues[name]
	if !ok {
		return fmt.Errorf("unknown synapse matrix type %q", name)
	}
	*t = v
	return nil
}
