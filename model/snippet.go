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

// ParamValues binds parameter names to their values for one population.
type ParamValues map[string]float64

// Var declares one per-element state variable of a model.
type Var struct {
	Name   string
	Type   string
	Access VarAccess
}

// EGP declares an extra global parameter: a user-owned scalar or array made
// visible to snippets by name and shipped to the device on demand. Pointer
// types (e.g. "scalar*") are dynamically allocated via allocateX(count).
type EGP struct {
	Name string
	Type string
}

// IsPointer reports whether the extra global parameter is an array.
func (e EGP) IsPointer() bool {
	return len(e.Type) > 0 && e.Type[len(e.Type)-1] == '*'
}

// VarInitSnippet generates per-element initialisation code. The code assigns
// $(value); parameters are referenced as $(name).
type VarInitSnippet struct {
	Name       string
	ParamNames []string
	Code       string
}

// VarInit couples an initialisation snippet with parameter values. A nil
// Snippet with constant value uses the trivial "$(value) = constant" form.
type VarInit struct {
	Snippet  *VarInitSnippet
	Params   ParamValues
	Constant float64
}

// RequiresKernel reports whether the initialisation must run in the
// device initialisation kernel (a snippet is present).
func (v VarInit) RequiresKernel() bool { return v.Snippet != nil }

// ConnectivitySnippet builds sparse or bitmask connectivity. Exactly one of
// RowBuildCode or ColBuildCode must be non-empty for SPARSE/BITMASK matrix
// types; the code calls $(addSynapse, target, kernelIdx...) and $(endRow) /
// $(endCol).
type ConnectivitySnippet struct {
	Name          string
	ParamNames    []string
	RowBuildCode  string
	ColBuildCode  string
	RowBuildState []Var
	ColBuildState []Var
}

// ConnectivityInit couples a connectivity snippet with parameter values.
type ConnectivityInit struct {
	Snippet *ConnectivitySnippet
	Params  ParamValues
}

// HasRowBuild reports whether row building code is present.
func (c ConnectivityInit) HasRowBuild() bool {
	return c.Snippet != nil && c.Snippet.RowBuildCode != ""
}

// HasColBuild reports whether column building code is present.
func (c ConnectivityInit) HasColBuild() bool {
	return c.Snippet != nil && c.Snippet.ColBuildCode != ""
}
