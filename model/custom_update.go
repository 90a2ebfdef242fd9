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

// CustomUpdateModel describes a user-triggered update over referenced
// variables. Variables with reduce access collect across the referenced
// population.
type CustomUpdateModel struct {
	Name string

	ParamNames        []string
	DerivedParamNames []string
	Vars              []Var
	VarRefNames       []VarRefDecl
	EGPs              []EGP

	UpdateCode string
}

// VarRefDecl declares a named variable reference slot of a custom update
// model.
type VarRefDecl struct {
	Name   string
	Type   string
	Access VarAccess
}

// VarRef binds a variable reference slot to a concrete variable of a neuron
// group.
type VarRef struct {
	Group *NeuronGroup
	Var   string
}

// WUVarRef binds a reference slot to a per-synapse variable; an optional
// transpose target receives the transposed values.
type WUVarRef struct {
	Group *SynapseGroup
	Var   string

	TransposeGroup *SynapseGroup
	TransposeVar   string
}

// CustomUpdate operates on per-neuron sized variables.
type CustomUpdate struct {
	Name string
	// UpdateGroupName batches updates launched together by the runner.
	UpdateGroupName string

	Model         *CustomUpdateModel
	Params        ParamValues
	DerivedParams ParamValues
	VarInit       map[string]VarInit
	VarRefs       map[string]VarRef

	// Size is the element count, normally the referenced group's neuron
	// count.
	Size int
}

// CustomUpdateWU operates on per-synapse sized variables of one synapse
// group.
type CustomUpdateWU struct {
	Name            string
	UpdateGroupName string

	Model         *CustomUpdateModel
	Params        ParamValues
	DerivedParams ParamValues
	VarInit       map[string]VarInit
	VarRefs       map[string]WUVarRef

	SynapseGroup *SynapseGroup
}
