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
	"testing"
)

func scanOne(t *testing.T, source string, context TypeContext) []Token {
	t.Helper()
	handler := &ErrorList{}
	tokens := ScanSource(source, context, handler)
	if handler.HasError() {
		t.Fatalf("ScanSource(%q) reported errors: %v", source, handler.Err())
	}
	return tokens
}

func TestScanLiterals(t *testing.T) {
	floatCtx := TypeContext{"scalar": Float}
	doubleCtx := TypeContext{"scalar": Double}

	tests := []struct {
		name    string
		source  string
		context TypeContext
		want    TokenType
	}{
		{"Int", "42", floatCtx, Int32Number},
		{"UintSuffix", "42U", floatCtx, Uint32Number},
		{"UintLowerSuffix", "42u", floatCtx, Uint32Number},
		{"Hex", "0x2A", floatCtx, Int32Number},
		{"HexUnsigned", "0x2AU", floatCtx, Uint32Number},
		{"FloatScalarFloat", "1.5", floatCtx, FloatNumber},
		{"FloatScalarDouble", "1.5", doubleCtx, DoubleNumber},
		{"FloatSuffix", "1.5f", doubleCtx, FloatNumber},
		{"DoubleSuffix", "1.5d", floatCtx, DoubleNumber},
		{"Exponent", "1.5e-3", floatCtx, FloatNumber},
		{"ExponentPlus", "2.0E+6f", doubleCtx, FloatNumber},
		{"String", "\"hello\"", floatCtx, String},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := scanOne(t, tt.source, tt.context)
			if len(tokens) != 2 {
				t.Fatalf("got %d tokens, want 2 (literal + EOF)", len(tokens))
			}
			if tokens[0].Type != tt.want {
				t.Errorf("token type = %v, want %v", tokens[0].Type, tt.want)
			}
			if tokens[1].Type != EndOfFile {
				t.Errorf("final token = %v, want EndOfFile", tokens[1].Type)
			}
		})
	}
}

func TestScanLiteralErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"HexFloat", "0x1.5"},
		{"Octal", "0123"},
		{"NoScalarInContext", "1.5"},
		{"LongSuffix", "12L"},
		{"UnexpectedChar", "@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &ErrorList{}
			ScanSource(tt.source, nil, handler)
			if !handler.HasError() {
				t.Errorf("ScanSource(%q) reported no error", tt.source)
			}
		})
	}
}

func TestScanOperators(t *testing.T) {
	tests := []struct {
		source string
		want   []TokenType
	}{
		{"==", []TokenType{EqualEqual}},
		{"!=", []TokenType{NotEqual}},
		{"<=", []TokenType{LessEqual}},
		{">=", []TokenType{GreaterEqual}},
		{"<<", []TokenType{ShiftLeft}},
		{">>", []TokenType{ShiftRight}},
		{"<<=", []TokenType{ShiftLeftEqual}},
		{">>=", []TokenType{ShiftRightEqual}},
		{"&&", []TokenType{AmpersandAmpersand}},
		{"||", []TokenType{PipePipe}},
		{"++", []TokenType{PlusPlus}},
		{"--", []TokenType{MinusMinus}},
		{"+=", []TokenType{PlusEqual}},
		{"-=", []TokenType{MinusEqual}},
		{"*=", []TokenType{StarEqual}},
		{"%=", []TokenType{PercentEqual}},
		{"^=", []TokenType{CaretEqual}},
		{"&=", []TokenType{AmpersandEqual}},
		{"|=", []TokenType{PipeEqual}},
		{"a<b", []TokenType{Identifier, Less, Identifier}},
		{"x=y/z;", []TokenType{Identifier, Equal, Identifier, Slash, Identifier, Semicolon}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens := scanOne(t, tt.source, nil)
			if len(tokens) != len(tt.want)+1 {
				t.Fatalf("got %d tokens, want %d", len(tokens)-1, len(tt.want))
			}
			for i, want := range tt.want {
				if tokens[i].Type != want {
					t.Errorf("token %d = %v, want %v", i, tokens[i].Type, want)
				}
			}
		})
	}
}

func TestScanKeywordsAndTypedefs(t *testing.T) {
	context := TypeContext{"scalar": Float}

	tokens := scanOne(t, "if (V > scalar) { const unsigned int x = 0; }", context)

	wantTypes := []TokenType{
		If, LeftParen, Identifier, Greater, TypeSpecifier, RightParen,
		LeftBrace, TypeQualifier, TypeSpecifier, TypeSpecifier, Identifier,
		Equal, Int32Number, Semicolon, RightBrace, EndOfFile,
	}
	if len(tokens) != len(wantTypes) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(wantTypes))
	}
	for i, want := range wantTypes {
		if tokens[i].Type != want {
			t.Errorf("token %d (%q) = %v, want %v", i, tokens[i].Lexeme, tokens[i].Type, want)
		}
	}
}

func TestScanLineCountingAndComments(t *testing.T) {
	source := "x = 1;\n// a comment with stuff: $(x) 0123\ny = 2;\n"
	tokens := scanOne(t, source, nil)

	// x = 1 ; y = 2 ; EOF
	if len(tokens) != 9 {
		t.Fatalf("got %d tokens, want 9", len(tokens))
	}
	if tokens[0].Line != 1 {
		t.Errorf("first token line = %d, want 1", tokens[0].Line)
	}
	if tokens[4].Lexeme != "y" || tokens[4].Line != 3 {
		t.Errorf("token after comment = %q line %d, want y line 3", tokens[4].Lexeme, tokens[4].Line)
	}
}

func TestScanErrorsReportLine(t *testing.T) {
	handler := &ErrorList{}
	ScanSource("x;\n0123;", nil, handler)
	if !handler.HasError() {
		t.Fatal("expected error for octal literal")
	}
	if err := handler.Err(); err == nil || err.Error() == "" {
		t.Fatalf("Err() = %v", err)
	}
}
