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

// TokenType identifies the lexical class of a scanned token.
type TokenType int

const (
	// Single character tokens
	LeftParen TokenType = iota
	RightParen
	LeftBrace
	RightBrace
	LeftSquareBracket
	RightSquareBracket
	Comma
	Dot
	Colon
	Semicolon
	Tilda
	Question

	// One or two character tokens
	Not
	NotEqual
	Equal
	EqualEqual
	Star
	StarEqual
	Slash
	Percent
	PercentEqual
	Caret
	CaretEqual
	Less
	LessEqual
	ShiftLeft
	ShiftLeftEqual
	Greater
	GreaterEqual
	ShiftRight
	ShiftRightEqual
	Plus
	PlusEqual
	PlusPlus
	Minus
	MinusEqual
	MinusMinus
	Ampersand
	AmpersandEqual
	AmpersandAmpersand
	Pipe
	PipeEqual
	PipePipe

	// Literals
	Identifier
	Int32Number
	Uint32Number
	FloatNumber
	DoubleNumber
	String

	// Keywords
	Do
	Else
	False
	For
	If
	True
	While
	Switch
	Break
	Continue
	Case
	Default
	Print
	TypeSpecifier
	TypeQualifier

	EndOfFile
)

// Token is a single lexeme with its source line.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

// keywords maps reserved identifiers to their token types. Identifiers bound
// in the type context additionally scan as TypeSpecifier (the typedef-name
// rule).
var keywords = map[string]TokenType{
	"const":    TypeQualifier,
	"do":       Do,
	"else":     Else,
	"false":    False,
	"for":      For,
	"if":       If,
	"true":     True,
	"while":    While,
	"switch":   Switch,
	"break":    Break,
	"continue": Continue,
	"case":     Case,
	"default":  Default,
	"print":    Print,
	"char":     TypeSpecifier,
	"short":    TypeSpecifier,
	"int":      TypeSpecifier,
	"long":     TypeSpecifier,
	"float":    TypeSpecifier,
	"double":   TypeSpecifier,
	"signed":   TypeSpecifier,
	"unsigned": TypeSpecifier,
	"uint8_t":  TypeSpecifier,
	"int8_t":   TypeSpecifier,
	"uint16_t": TypeSpecifier,
	"int16_t":  TypeSpecifier,
	"uint32_t": TypeSpecifier,
	"int32_t":  TypeSpecifier,
	"bool":     TypeSpecifier,
}
