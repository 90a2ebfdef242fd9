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
	"strings"
	"testing"
)

func TestVariableSubstitution(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustVar("V", "lV")
	subs.MustVar("Vthresh", "(-50.0f)")

	got, err := subs.Apply("$(V) >= $(Vthresh)")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if want := "lV >= (-50.0f)"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestParentFallback(t *testing.T) {
	outer := NewSubstitutions(nil)
	outer.MustVar("id", "lid")
	outer.MustVar("t", "t")

	inner := NewSubstitutions(outer)
	inner.MustVar("id", "n", true)

	got, err := inner.Apply("$(id) $(t)")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if want := "n t"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
	if inner.Get("id") != "n" {
		t.Errorf("Get(id) = %q, want n", inner.Get("id"))
	}
	if inner.Get("t") != "t" {
		t.Errorf("Get(t) = %q, want t", inner.Get("t"))
	}
}

func TestDoubleDefinition(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustVar("x", "a")
	if err := subs.AddVar("x", "b"); err == nil {
		t.Error("AddVar of duplicate succeeded, want error")
	}
	// Explicit override is allowed
	if err := subs.AddVar("x", "b", true); err != nil {
		t.Errorf("AddVar with override failed: %v", err)
	}
}

func TestFunctionSubstitution(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustFunc("addToInSyn", 1, "atomicAdd(&group->inSyn[ipost], $(0))")
	subs.MustVar("g", "group->g[synAddress]")

	got, err := subs.Apply("$(addToInSyn, $(g));")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if want := "atomicAdd(&group->inSyn[ipost], group->g[synAddress]);"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestFunctionSubstitutionNestedParens(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustFunc("addSynapse", 1, "do { ind[idx] = $(0); } while(false)")

	got, err := subs.Apply("$(addSynapse, min(a, b));")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if want := "do { ind[idx] = min(a, b); } while(false);"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestFunctionSubstitutionArity(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustFunc("addToInSynDelay", 2, "atomicAdd(&denDelay[$(1)], $(0))")

	if _, err := subs.Apply("$(addToInSynDelay, x);"); err == nil {
		t.Error("arity mismatch succeeded, want error")
	}
	got, err := subs.Apply("$(addToInSynDelay, x, d);")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if want := "atomicAdd(&denDelay[d], x);"; got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyCheckUnreplaced(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustVar("V", "lV")

	if _, err := subs.ApplyCheckUnreplaced("$(V) + $(unknown)", "neuron sim : merged7"); err == nil {
		t.Error("unreplaced substitution passed, want error")
	} else if !strings.Contains(err.Error(), "merged7") {
		t.Errorf("error %q does not carry context", err)
	}

	got, err := subs.ApplyCheckUnreplaced("$(V) + 1", "neuron sim : merged7")
	if err != nil {
		t.Fatalf("ApplyCheckUnreplaced error: %v", err)
	}
	if want := "lV + 1"; got != want {
		t.Errorf("ApplyCheckUnreplaced = %q, want %q", got, want)
	}
}

func TestSubstitutionIdempotence(t *testing.T) {
	subs := NewSubstitutions(nil)
	subs.MustVar("V", "lV")

	const code = "lV += Isyn * DT;"
	got, err := subs.ApplyCheckUnreplaced(code, "idempotence")
	if err != nil {
		t.Fatalf("ApplyCheckUnreplaced error: %v", err)
	}
	if got != code {
		t.Errorf("substitution changed snippet with nothing to replace: %q", got)
	}
}
