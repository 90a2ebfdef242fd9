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

import "testing"

func TestCodeStreamScopes(t *testing.T) {
	cs := NewCodeStream()
	cs.Line("if (id < n)")
	cs.Scope(func() {
		cs.Line("x = 1;")
		cs.Scope(func() {
			cs.Line("y = 2;")
		})
	})

	want := "if (id < n)\n{\n\tx = 1;\n\t{\n\t\ty = 2;\n\t}\n}\n"
	if got := cs.String(); got != want {
		t.Errorf("Scope output:\n%q\nwant:\n%q", got, want)
	}
}

func TestCodeStreamScopeSuffix(t *testing.T) {
	cs := NewCodeStream()
	cs.Line("do")
	cs.ScopeSuffix(" while(false)", func() {
		cs.Line("work();")
	})

	want := "do\n{\n\twork();\n} while(false)\n"
	if got := cs.String(); got != want {
		t.Errorf("ScopeSuffix output:\n%q\nwant:\n%q", got, want)
	}
}

func TestCodeStreamCodeBlock(t *testing.T) {
	cs := NewCodeStream()
	cs.Scope(func() {
		cs.Code("a = 1;\nb = 2;\n\n")
	})

	want := "{\n\ta = 1;\n\tb = 2;\n}\n"
	if got := cs.String(); got != want {
		t.Errorf("Code output:\n%q\nwant:\n%q", got, want)
	}
}
