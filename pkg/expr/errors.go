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
	"fmt"
)

// ErrorKind classifies evaluation failures. Every error produced by this
// package reports exactly one kind; all failures are ordinary, recoverable
// outcomes.
type ErrorKind string

const (
	KindSyntaxError           ErrorKind = "SyntaxError"
	KindUnknownContext        ErrorKind = "UnknownContext"
	KindUnknownProperty       ErrorKind = "UnknownProperty"
	KindUnknownFunction       ErrorKind = "UnknownFunction"
	KindArityError            ErrorKind = "ArityError"
	KindTypeError             ErrorKind = "TypeError"
	KindJSONError             ErrorKind = "JSONError"
	KindCapabilityUnavailable ErrorKind = "CapabilityUnavailable"
)

// kinded is implemented by every error type in this package.
type kinded interface {
	error
	errorKind() ErrorKind
}

// SyntaxError represents a lexing or parsing failure.
type SyntaxError struct {
	// Offset is the byte position in the (unwrapped) expression text.
	Offset int

	// Message is the human-readable error description
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}

func (e *SyntaxError) errorKind() ErrorKind { return KindSyntaxError }

// UnknownContextError reports an identifier that is not one of the fixed
// context roots.
type UnknownContextError struct {
	// Name is the identifier that failed to resolve
	Name string
}

// Error implements the error interface.
func (e *UnknownContextError) Error() string {
	return fmt.Sprintf("unknown context %q; valid contexts are %s", e.Name, rootList())
}

func (e *UnknownContextError) errorKind() ErrorKind { return KindUnknownContext }

// UnknownPropertyError reports a property access that found no such key.
type UnknownPropertyError struct {
	// Path is the dotted path of the value being dereferenced, when known
	Path string

	// Name is the property that was not found
	Name string
}

// Error implements the error interface.
func (e *UnknownPropertyError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unknown property %q on %s", e.Name, e.Path)
	}
	return fmt.Sprintf("unknown property %q", e.Name)
}

func (e *UnknownPropertyError) errorKind() ErrorKind { return KindUnknownProperty }

// UnknownFunctionError reports a call to a name the function library does
// not provide.
type UnknownFunctionError struct {
	// Name is the function name as written
	Name string
}

// Error implements the error interface.
func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

func (e *UnknownFunctionError) errorKind() ErrorKind { return KindUnknownFunction }

// ArityError reports a call with the wrong number of arguments.
type ArityError struct {
	// Function is the built-in that was called
	Function string

	// Min and Max bound the accepted argument count; Max of -1 means
	// unbounded
	Min, Max int

	// Got is the number of arguments supplied
	Got int
}

// Error implements the error interface.
func (e *ArityError) Error() string {
	switch {
	case e.Max < 0:
		return fmt.Sprintf("%s expects at least %d argument(s), got %d", e.Function, e.Min, e.Got)
	case e.Min == e.Max:
		return fmt.Sprintf("%s expects exactly %d argument(s), got %d", e.Function, e.Min, e.Got)
	default:
		return fmt.Sprintf("%s expects between %d and %d arguments, got %d", e.Function, e.Min, e.Max, e.Got)
	}
}

func (e *ArityError) errorKind() ErrorKind { return KindArityError }

// TypeError reports an operation applied to a value of the wrong kind.
type TypeError struct {
	// Message is the human-readable error description
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return e.Message
}

func (e *TypeError) errorKind() ErrorKind { return KindTypeError }

// JSONError reports malformed input to fromJSON.
type JSONError struct {
	// Cause is the underlying decoder error
	Cause error
}

// Error implements the error interface.
func (e *JSONError) Error() string {
	return fmt.Sprintf("invalid JSON: %v", e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *JSONError) Unwrap() error {
	return e.Cause
}

func (e *JSONError) errorKind() ErrorKind { return KindJSONError }

// CapabilityError reports a built-in whose host capability is missing or
// failed.
type CapabilityError struct {
	// Capability names the missing capability (e.g. "file access")
	Capability string

	// Cause is the underlying error when the capability was present but
	// failed
	Cause error
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s capability failed: %v", e.Capability, e.Cause)
	}
	return fmt.Sprintf("no %s capability is configured", e.Capability)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

func (e *CapabilityError) errorKind() ErrorKind { return KindCapabilityUnavailable }
