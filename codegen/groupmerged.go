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
	"fmt"
	"strconv"

	"github.com/spikegen/spikegen/model"
)

// FieldValue resolves one struct field's initialiser expression for the
// merged group member at the given index. Resolvers are pure functions of
// member identity.
type FieldValue func(memberIndex int) string

// Field is one member-varying value of a merged group: a device pointer
// base, a heterogeneous parameter, a kernel dimension.
type Field struct {
	Type  string
	Name  string
	Value FieldValue
}

// MergedGroupBase carries what every merged group shares: its index within
// its purpose, and the field table resolved per member.
type MergedGroupBase struct {
	Index  int
	fields []Field
}

// AddField appends a struct field with its per-member resolver.
func (g *MergedGroupBase) AddField(ctype, name string, value FieldValue) {
	g.fields = append(g.fields, Field{Type: ctype, Name: name, Value: value})
}

// Fields returns the field table in declaration order.
func (g *MergedGroupBase) Fields() []Field {
	return g.fields
}

// HasField reports whether a field with the given name exists.
func (g *MergedGroupBase) HasField(name string) bool {
	for _, f := range g.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Options configure how merged groups resolve runner symbols.
type Options struct {
	// VarPrefix prefixes device copies of runner arrays, e.g. "d_".
	VarPrefix string
	// ScalarAddressPrefix takes the device address of a runner scalar,
	// e.g. "&" when scalars are device-addressable directly.
	ScalarAddressPrefix string
	// RowStride overrides the padded row width used for a synapse group's
	// backing matrix; nil falls back to the group's own RowStride().
	RowStride func(*model.SynapseGroup) int
}

// partitionByDigest groups items with equal digests, preserving first-seen
// order both across and within groups. The first member of each group is
// the archetype.
func partitionByDigest[T any](items []T, digest func(T) string) [][]T {
	index := map[string]int{}
	var groups [][]T
	for _, item := range items {
		d := digest(item)
		if gi, ok := index[d]; ok {
			groups[gi] = append(groups[gi], item)
		} else {
			index[d] = len(groups)
			groups = append(groups, []T{item})
		}
	}
	return groups
}

// isParamHeterogeneous reports whether a parameter's value differs across
// members.
func isParamHeterogeneous[T any](members []T, get func(T) model.ParamValues, name string) bool {
	archetype := get(members[0])[name]
	for _, m := range members[1:] {
		if get(m)[name] != archetype {
			return true
		}
	}
	return false
}

// FormatValue renders a parameter value as a C literal of the model's
// scalar type: an "f" suffix keeps float expressions single precision.
func FormatValue(v float64, scalar model.Precision) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	// Integral values still need to read as floating literals
	if !containsAny(s, ".eE") {
		s += ".0"
	}
	if scalar == model.Float {
		s += "f"
	}
	return s
}

func containsAny(s, chars string) bool {
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(chars); j++ {
			if s[i] == chars[j] {
				return true
			}
		}
	}
	return false
}

// addParamFields inlines homogeneous parameters as literals into subs and
// turns heterogeneous ones into scalar struct fields.
func addParamFields[T any](g *MergedGroupBase, members []T, names []string,
	get func(T) model.ParamValues, prec model.Precision, fieldSuffix string) map[string]string {

	repl := make(map[string]string, len(names))
	for _, name := range names {
		name := name
		if isParamHeterogeneous(members, get, name) {
			g.AddField("scalar", name+fieldSuffix, func(i int) string {
				return FormatValue(get(members[i])[name], prec)
			})
			repl[name] = "group->" + name + fieldSuffix
		} else {
			repl[name] = "(" + FormatValue(get(members[0])[name], prec) + ")"
		}
	}
	return repl
}

// addEGPFields adds pointer fields for every extra global parameter.
func addEGPFields[T any](g *MergedGroupBase, members []T, egps []model.EGP,
	opts Options, symbol func(T, model.EGP) string) map[string]string {

	repl := make(map[string]string, len(egps))
	for _, egp := range egps {
		egp := egp
		t := egp.Type
		if !egp.IsPointer() {
			// Non pointer EGPs are passed by value
			g.AddField(t, egp.Name, func(i int) string { return symbol(members[i], egp) })
		} else {
			g.AddField(t, egp.Name, func(i int) string { return opts.VarPrefix + symbol(members[i], egp) })
		}
		repl[egp.Name] = "group->" + egp.Name
	}
	return repl
}

// mergedGroupLabel names one merged group for error context, e.g.
// "presynaptic update : merged3".
func mergedGroupLabel(purpose string, index int) string {
	return fmt.Sprintf("%s : merged%d", purpose, index)
}
