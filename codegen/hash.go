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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"github.com/spikegen/spikegen/model"
)

// StructuralHash accumulates the structural fingerprint of an entity for one
// merge purpose. Entities with equal digests emit textually identical kernel
// bodies, so every decision that affects emitted code structure must be fed
// in; a missed flag silently merges groups that should stay apart.
type StructuralHash struct {
	h hash.Hash
}

// NewStructuralHash returns an empty fingerprint.
func NewStructuralHash() *StructuralHash {
	return &StructuralHash{h: sha256.New()}
}

// String mixes a length-prefixed string into the digest.
func (s *StructuralHash) String(v string) *StructuralHash {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(v)))
	s.h.Write(n[:])
	s.h.Write([]byte(v))
	return s
}

// Int mixes an integer into the digest.
func (s *StructuralHash) Int(v int) *StructuralHash {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(v))
	s.h.Write(n[:])
	return s
}

// Bool mixes a flag into the digest.
func (s *StructuralHash) Bool(v bool) *StructuralHash {
	if v {
		return s.Int(1)
	}
	return s.Int(0)
}

// Float mixes a float's bit pattern into the digest.
func (s *StructuralHash) Float(v float64) *StructuralHash {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], math.Float64bits(v))
	s.h.Write(n[:])
	return s
}

// Strings mixes a string slice into the digest.
func (s *StructuralHash) Strings(vs []string) *StructuralHash {
	s.Int(len(vs))
	for _, v := range vs {
		s.String(v)
	}
	return s
}

// Ints mixes an int slice into the digest.
func (s *StructuralHash) Ints(vs []int) *StructuralHash {
	s.Int(len(vs))
	for _, v := range vs {
		s.Int(v)
	}
	return s
}

// Digest finalises and returns the hex fingerprint.
func (s *StructuralHash) Digest() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

// hashNeuronModel mixes the structural identity of a neuron model.
func hashNeuronModel(s *StructuralHash, m *model.NeuronModel) {
	s.String(m.Name)
	s.Strings(m.ParamNames)
	s.Strings(m.DerivedParamNames)
	for _, v := range m.Vars {
		s.String(v.Name).String(v.Type).Int(int(v.Access))
	}
	for _, e := range m.EGPs {
		s.String(e.Name).String(e.Type)
	}
	s.String(m.SimCode).String(m.ThresholdConditionCode).String(m.ResetCode)
}

// hashWeightUpdateModel mixes the structural identity of a weight update
// model.
func hashWeightUpdateModel(s *StructuralHash, m *model.WeightUpdateModel) {
	s.String(m.Name)
	s.Strings(m.ParamNames)
	s.Strings(m.DerivedParamNames)
	for _, v := range m.Vars {
		s.String(v.Name).String(v.Type).Int(int(v.Access))
	}
	for _, v := range m.PreVars {
		s.String(v.Name).String(v.Type)
	}
	for _, v := range m.PostVars {
		s.String(v.Name).String(v.Type)
	}
	for _, e := range m.EGPs {
		s.String(e.Name).String(e.Type)
	}
	s.String(m.SimCode).String(m.EventCode).String(m.EventThresholdConditionCode)
	s.String(m.LearnPostCode).String(m.SynapseDynamicsCode)
	s.String(m.PreSpikeCode).String(m.PostSpikeCode)
	s.String(m.PreDynamicsCode).String(m.PostDynamicsCode)
}

// hashCustomUpdateModel mixes the structural identity of a custom update
// model.
func hashCustomUpdateModel(s *StructuralHash, m *model.CustomUpdateModel) {
	s.String(m.Name)
	s.Strings(m.ParamNames)
	s.Strings(m.DerivedParamNames)
	for _, v := range m.Vars {
		s.String(v.Name).String(v.Type).Int(int(v.Access))
	}
	for _, r := range m.VarRefNames {
		s.String(r.Name).String(r.Type).Int(int(r.Access))
	}
	s.String(m.UpdateCode)
}
