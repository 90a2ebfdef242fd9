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
	"strings"
)

// ErrorHandler receives scan errors as they are encountered. Scanning always
// runs to the end of the source so one pass reports every error.
type ErrorHandler interface {
	Error(line int, message string)
	HasError() bool
}

// ErrorList is the default ErrorHandler; it records every reported error.
type ErrorList struct {
	// Context labels the source being scanned, e.g. "neuron sim code : merged3".
	Context string

	errors []string
}

// Error records a scan error at the given source line.
func (e *ErrorList) Error(line int, message string) {
	e.errors = append(e.errors, fmt.Sprintf("line %d: %s", line, message))
}

// HasError reports whether any error has been recorded.
func (e *ErrorList) HasError() bool {
	return len(e.errors) > 0
}

// Err collapses the recorded errors into a single error, or nil if none.
func (e *ErrorList) Err() error {
	if len(e.errors) == 0 {
		return nil
	}
	if e.Context != "" {
		return fmt.Errorf("%s: %s", e.Context, strings.Join(e.errors, "; "))
	}
	return fmt.Errorf("%s", strings.Join(e.errors, "; "))
}
