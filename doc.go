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

// Package spikegen compiles descriptions of spiking neural networks -
// populations of neurons, synaptic projections, current sources and custom
// update hooks - into kernel source for SIMT accelerators plus a host runner
// that allocates memory, transfers state and advances simulated time.
//
// The interesting parts live in the subpackages:
//
//   - model: the network description consumed by the generator
//   - transpiler: scanner and numeric type system for user code snippets
//   - codegen: group merging, substitution, struct and runner emission
//   - codegen/simt: the per-kernel emitters and presynaptic update strategies
//   - cmd/spikegen: the command line driver and built-in device dialect
package spikegen
