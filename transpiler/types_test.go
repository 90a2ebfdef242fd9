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

package transpiler

import "testing"

func TestParseNumericRoundTrip(t *testing.T) {
	tests := []struct {
		typeString string
		want       *Numeric
	}{
		{"char", Int8},
		{"unsigned char", Uint8},
		{"short", Int16},
		{"signed short int", Int16},
		{"unsigned short", Uint16},
		{"int", Int32},
		{"signed", Int32},
		{"unsigned", Uint32},
		{"unsigned int", Uint32},
		{"float", Float},
		{"double", Double},
		{"bool", Bool},
		{"uint32_t", Uint32},
		{"int8_t", Int8},
	}

	for _, tt := range tests {
		t.Run(tt.typeString, func(t *testing.T) {
			got, err := ParseNumeric(tt.typeString)
			if err != nil {
				t.Fatalf("ParseNumeric(%q) error: %v", tt.typeString, err)
			}
			if got != tt.want {
				t.Errorf("ParseNumeric(%q) = %v, want %v", tt.typeString, got, tt.want)
			}

			// Emitting the name and re-parsing must yield the same singleton
			again, err := ParseNumeric(got.Name())
			if err != nil {
				t.Fatalf("ParseNumeric(%q) error: %v", got.Name(), err)
			}
			if again != got {
				t.Errorf("round trip of %q = %v, want same instance", got.Name(), again)
			}
		})
	}
}

func TestParseNumericErrors(t *testing.T) {
	for _, typeString := range []string{"", "floaty", "unsigned float", "int*", "signed unsigned"} {
		t.Run(typeString, func(t *testing.T) {
			if _, err := ParseNumeric(typeString); err == nil {
				t.Errorf("ParseNumeric(%q) succeeded, want error", typeString)
			}
		})
	}
}

func TestGetPromotedType(t *testing.T) {
	tests := []struct {
		in, want *Numeric
	}{
		{Bool, Int32},
		{Int8, Int32},
		{Uint8, Int32},
		{Int16, Int32},
		{Uint16, Int32},
		{Int32, Int32},
		{Uint32, Uint32},
		{Float, Float},
		{Double, Double},
	}
	for _, tt := range tests {
		if got := GetPromotedType(tt.in); got != tt.want {
			t.Errorf("GetPromotedType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetCommonType(t *testing.T) {
	tests := []struct {
		name    string
		a, b    *Numeric
		want    *Numeric
	}{
		{"DoubleWins", Double, Int32, Double},
		{"DoubleBeatsFloat", Float, Double, Double},
		{"FloatWins", Float, Uint32, Float},
		{"SmallIntsPromote", Int8, Int16, Int32},
		{"UnsignedSmallPromote", Uint8, Uint16, Int32},
		{"EqualRankUnsignedWins", Uint32, Int32, Uint32},
		{"SameType", Uint32, Uint32, Uint32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCommonType(tt.a, tt.b); got != tt.want {
				t.Errorf("GetCommonType(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Commutativity
			if got := GetCommonType(tt.b, tt.a); got != tt.want {
				t.Errorf("GetCommonType(%v, %v) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestGetCommonTypeIdempotent(t *testing.T) {
	for _, n := range []*Numeric{Int32, Uint32, Float, Double} {
		if got := GetCommonType(n, n); got != n {
			t.Errorf("GetCommonType(%v, %v) = %v, want %v", n, n, got, n)
		}
	}
}
