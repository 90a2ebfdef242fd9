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

// CurrentSourceModel describes current injected into neurons each timestep.
// Injection code calls $(injectCurrent, expr).
type CurrentSourceModel struct {
	Name string

	ParamNames        []string
	DerivedParamNames []string
	Vars              []Var
	EGPs              []EGP

	InjectionCode string
}

// CurrentSource attaches a current source model to a neuron group.
type CurrentSource struct {
	Name   string
	Target *NeuronGroup

	Model         *CurrentSourceModel
	Params        ParamValues
	DerivedParams ParamValues
	VarInit       map[string]VarInit

	VarLocation VarLocation
}

// RNGRequired reports whether injection code draws random numbers.
func (cs *CurrentSource) RNGRequired() bool {
	return isRNGRequired(cs.Model.InjectionCode)
}
