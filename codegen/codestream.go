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
	"bytes"
	"fmt"
	"strings"

	"github.com/goki/ki/indent"
)

// CodeStream accumulates generated source with brace-scope indentation.
// Emitters write whole lines; Scope opens a brace block, indents everything
// written inside the callback and closes it again.
type CodeStream struct {
	buf   bytes.Buffer
	depth int
}

// NewCodeStream returns an empty stream.
func NewCodeStream() *CodeStream {
	return &CodeStream{}
}

// Line writes one indented line.
func (cs *CodeStream) Line(format string, args ...interface{}) {
	cs.buf.Write(indent.TabBytes(cs.depth))
	if len(args) == 0 {
		cs.buf.WriteString(format)
	} else {
		fmt.Fprintf(&cs.buf, format, args...)
	}
	cs.buf.WriteByte('\n')
}

// Blank writes an empty line.
func (cs *CodeStream) Blank() {
	cs.buf.WriteByte('\n')
}

// Code writes a multi-line block, indenting each non-empty line. Trailing
// newlines are normalised to exactly one.
func (cs *CodeStream) Code(block string) {
	block = strings.TrimRight(block, "\n")
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			cs.buf.WriteByte('\n')
			continue
		}
		cs.buf.Write(indent.TabBytes(cs.depth))
		cs.buf.WriteString(line)
		cs.buf.WriteByte('\n')
	}
}

// Scope emits an indented brace block around whatever body writes.
func (cs *CodeStream) Scope(body func()) {
	cs.Line("{")
	cs.depth++
	body()
	cs.depth--
	cs.Line("}")
}

// ScopeSuffix is Scope with text following the closing brace, e.g. ";" for
// struct definitions or " while(false);".
func (cs *CodeStream) ScopeSuffix(suffix string, body func()) {
	cs.Line("{")
	cs.depth++
	body()
	cs.depth--
	cs.Line("}" + suffix)
}

// String returns everything written so far.
func (cs *CodeStream) String() string {
	return cs.buf.String()
}

// Len returns the number of bytes written so far.
func (cs *CodeStream) Len() int {
	return cs.buf.Len()
}
