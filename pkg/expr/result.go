// Copyright 2025 Tom Barlow
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

package expr

import (
	"encoding/json"
)

// ErrorInfo is the reportable form of an evaluation failure.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Result packages the outcome of one evaluation. On failure Value is nil,
// Type is "error", ContextHits is empty, and Err is populated.
type Result struct {
	// Value is the evaluated value; nil when Err is set.
	Value Value

	// Type is the value's type name, or "error".
	Type string

	// ContextHits lists every context path dereferenced during the
	// evaluation, in first-touch order, without duplicates.
	ContextHits []string

	// Err describes the failure, if any.
	Err *ErrorInfo
}

func valueResult(v Value, hits []string) *Result {
	if hits == nil {
		hits = []string{}
	}
	return &Result{Value: v, Type: v.Kind().String(), ContextHits: hits}
}

func errorResult(err error) *Result {
	return &Result{Type: "error", ContextHits: []string{}, Err: describeError(err)}
}

func describeError(err error) *ErrorInfo {
	if k, ok := err.(kinded); ok {
		return &ErrorInfo{Kind: k.errorKind(), Message: err.Error()}
	}
	// Non-taxonomy errors should not escape the package; classify them as
	// type errors rather than crash.
	return &ErrorInfo{Kind: KindTypeError, Message: err.Error()}
}

// OK reports whether the evaluation succeeded.
func (r *Result) OK() bool {
	return r.Err == nil
}

// MarshalJSON renders the result as {value, type, contextHits, error}.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Value       any        `json:"value"`
		Type        string     `json:"type"`
		ContextHits []string   `json:"contextHits"`
		Err         *ErrorInfo `json:"error,omitempty"`
	}{
		Type:        r.Type,
		ContextHits: r.ContextHits,
		Err:         r.Err,
	}
	if r.Value != nil {
		out.Value = r.Value.Interface()
	}
	return json.Marshal(out)
}

// Display renders the value for human output: strings verbatim, everything
// else as JSON.
func (r *Result) Display() string {
	if r.Value == nil {
		return ""
	}
	if s, ok := r.Value.(String); ok {
		return string(s)
	}
	return marshalJSON(r.Value)
}
