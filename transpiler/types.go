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

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Numeric describes one of the numeric types user snippets may use. Each
// type exists as a single package-level instance so identity comparison
// works; ParseNumeric round-trips to the same instance.
type Numeric struct {
	name     string
	rank     int
	min, max float64
	signed   bool
	integral bool
}

// Name returns the C spelling of the type.
func (n *Numeric) Name() string { return n.name }

// Rank returns the integer conversion rank. Floating types share the top
// ranks but are distinguished by IsIntegral.
func (n *Numeric) Rank() int { return n.rank }

// Min returns the lowest representable value.
func (n *Numeric) Min() float64 { return n.min }

// Max returns the highest representable value.
func (n *Numeric) Max() float64 { return n.max }

// IsSigned reports whether the type can represent negative values.
func (n *Numeric) IsSigned() bool { return n.signed }

// IsIntegral reports whether the type is an integer type.
func (n *Numeric) IsIntegral() bool { return n.integral }

func (n *Numeric) String() string { return n.name }

// The numeric type singletons.
var (
	Bool   = &Numeric{name: "bool", rank: 0, min: 0, max: 1, signed: false, integral: true}
	Int8   = &Numeric{name: "int8_t", rank: 10, min: math.MinInt8, max: math.MaxInt8, signed: true, integral: true}
	Uint8  = &Numeric{name: "uint8_t", rank: 10, min: 0, max: math.MaxUint8, signed: false, integral: true}
	Int16  = &Numeric{name: "int16_t", rank: 20, min: math.MinInt16, max: math.MaxInt16, signed: true, integral: true}
	Uint16 = &Numeric{name: "uint16_t", rank: 20, min: 0, max: math.MaxUint16, signed: false, integral: true}
	Int32  = &Numeric{name: "int32_t", rank: 30, min: math.MinInt32, max: math.MaxInt32, signed: true, integral: true}
	Uint32 = &Numeric{name: "uint32_t", rank: 30, min: 0, max: math.MaxUint32, signed: false, integral: true}
	Float  = &Numeric{name: "float", rank: 40, min: -math.MaxFloat32, max: math.MaxFloat32, signed: true, integral: false}
	Double = &Numeric{name: "double", rank: 50, min: -math.MaxFloat64, max: math.MaxFloat64, signed: true, integral: false}
)

// unsignedType maps signed integer types to their unsigned equivalents.
var unsignedType = map[*Numeric]*Numeric{
	Int8:  Uint8,
	Int16: Uint16,
	Int32: Uint32,
}

// TypeContext binds typedef names visible to the scanner. The name "scalar"
// selects the floating type of unsuffixed floating literals.
type TypeContext map[string]*Numeric

// numericTypes maps sorted sets of type specifiers to numeric types,
// following C's multi-keyword spellings.
var numericTypes = map[string]*Numeric{
	specKey("char"): Int8,

	specKey("unsigned", "char"): Uint8,

	specKey("short"):                  Int16,
	specKey("short", "int"):           Int16,
	specKey("signed", "short"):        Int16,
	specKey("signed", "short", "int"): Int16,

	specKey("unsigned", "short"):        Uint16,
	specKey("unsigned", "short", "int"): Uint16,

	specKey("int"):           Int32,
	specKey("signed"):        Int32,
	specKey("signed", "int"): Int32,

	specKey("unsigned"):        Uint32,
	specKey("unsigned", "int"): Uint32,

	specKey("float"):  Float,
	specKey("double"): Double,

	specKey("bool"):     Bool,
	specKey("int8_t"):   Int8,
	specKey("uint8_t"):  Uint8,
	specKey("int16_t"):  Int16,
	specKey("uint16_t"): Uint16,
	specKey("int32_t"):  Int32,
	specKey("uint32_t"): Uint32,
}

// specKey builds the canonical lookup key for a set of type specifiers.
func specKey(specifiers ...string) string {
	s := append([]string(nil), specifiers...)
	sort.Strings(s)
	return strings.Join(s, " ")
}

// GetNumericType resolves a set of type specifier lexemes to a numeric type,
// or nil if the combination is invalid.
func GetNumericType(specifiers []string) *Numeric {
	return numericTypes[specKey(specifiers...)]
}

// ParseNumeric scans and parses a type string such as "unsigned int" and
// returns the corresponding numeric type singleton.
func ParseNumeric(typeString string) (*Numeric, error) {
	handler := &ErrorList{Context: "type '" + typeString + "'"}
	tokens := ScanSource(typeString, nil, handler)
	if err := handler.Err(); err != nil {
		return nil, fmt.Errorf("error parsing type: %w", err)
	}

	var specifiers []string
	for _, tok := range tokens {
		switch tok.Type {
		case TypeSpecifier:
			specifiers = append(specifiers, tok.Lexeme)
		case TypeQualifier:
			// const etc. does not change the numeric type
		case EndOfFile:
		default:
			return nil, fmt.Errorf("unable to parse type '%s': unexpected token '%s'", typeString, tok.Lexeme)
		}
	}
	t := GetNumericType(specifiers)
	if t == nil {
		return nil, fmt.Errorf("unable to parse type '%s'", typeString)
	}
	return t, nil
}

// GetPromotedType applies C's integer promotion: any integer type with rank
// below int32 converts to int32. All sub-int32 types in this type system are
// representable in int32, so the promoted type is always signed.
func GetPromotedType(t *Numeric) *Numeric {
	if t.integral && t.rank < Int32.rank {
		return Int32
	}
	return t
}

// GetCommonType implements C's usual arithmetic conversions for a binary
// operation on types a and b.
func GetCommonType(a, b *Numeric) *Numeric {
	// Any double operand makes the result double, then any float
	if a == Double || b == Double {
		return Double
	}
	if a == Float || b == Float {
		return Float
	}

	aProm := GetPromotedType(a)
	bProm := GetPromotedType(b)
	if aProm == bProm {
		return aProm
	}

	// Same signedness: the greater rank wins
	if aProm.signed == bProm.signed {
		if aProm.rank > bProm.rank {
			return aProm
		}
		return bProm
	}

	signedOp, unsignedOp := aProm, bProm
	if !aProm.signed {
		signedOp, unsignedOp = bProm, aProm
	}

	// Unsigned operand of equal or greater rank wins
	if unsignedOp.rank >= signedOp.rank {
		return unsignedOp
	}
	// A signed type that can represent the whole unsigned range wins
	if signedOp.min <= unsignedOp.min && signedOp.max >= unsignedOp.max {
		return signedOp
	}
	// Fall back to the unsigned equivalent of the signed operand
	return unsignedType[signedOp]
}
