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
	"strings"
)

// RunStatus reports the state of the surrounding run for the status
// predicates success(), failure(), and cancelled().
type RunStatus struct {
	Succeeded bool
	Failed    bool
	Cancelled bool
}

// StatusReader is the host capability consulted by the status predicates.
// Implementations must be read-only and safe for concurrent use.
type StatusReader interface {
	Status() RunStatus
}

// StatusFunc adapts a function to the StatusReader interface.
type StatusFunc func() RunStatus

// Status implements StatusReader.
func (f StatusFunc) Status() RunStatus { return f() }

// FileHasher is the host capability behind hashFiles. It resolves glob
// patterns and returns a stable hash of the matched files' contents, or ""
// when nothing matches.
type FileHasher interface {
	HashFiles(patterns []string) (string, error)
}

// builtin describes one library function. All built-ins receive
// already-evaluated values; argument evaluation and arity checking happen
// before dispatch.
type builtin struct {
	name    string
	minArgs int
	// maxArgs of -1 means unbounded.
	maxArgs int
	call    func(ev *Evaluator, args []Value) (Value, error)
}

// builtins is keyed by lowercase name; lookup is case-insensitive.
var builtins = map[string]*builtin{
	"contains":   {name: "contains", minArgs: 2, maxArgs: 2, call: fnContains},
	"startswith": {name: "startsWith", minArgs: 2, maxArgs: 2, call: fnStartsWith},
	"endswith":   {name: "endsWith", minArgs: 2, maxArgs: 2, call: fnEndsWith},
	"format":     {name: "format", minArgs: 1, maxArgs: -1, call: fnFormat},
	"join":       {name: "join", minArgs: 1, maxArgs: 2, call: fnJoin},
	"tojson":     {name: "toJSON", minArgs: 1, maxArgs: 1, call: fnToJSON},
	"fromjson":   {name: "fromJSON", minArgs: 1, maxArgs: 1, call: fnFromJSON},
	"success":    {name: "success", minArgs: 0, maxArgs: 0, call: fnSuccess},
	"failure":    {name: "failure", minArgs: 0, maxArgs: 0, call: fnFailure},
	"cancelled":  {name: "cancelled", minArgs: 0, maxArgs: 0, call: fnCancelled},
	"always":     {name: "always", minArgs: 0, maxArgs: 0, call: fnAlways},
	"hashfiles":  {name: "hashFiles", minArgs: 1, maxArgs: -1, call: fnHashFiles},
}

func lookupBuiltin(name string) (*builtin, bool) {
	fn, ok := builtins[strings.ToLower(name)]
	return fn, ok
}

// fnContains tests array membership with loose equality, or substring
// presence when the haystack is not an array.
func fnContains(_ *Evaluator, args []Value) (Value, error) {
	if arr, ok := args[0].(Array); ok {
		for _, el := range arr {
			if looseEquals(el, args[1]) {
				return Boolean(true), nil
			}
		}
		return Boolean(false), nil
	}
	haystack, err := coerceString(args[0])
	if err != nil {
		return nil, err
	}
	needle, err := coerceString(args[1])
	if err != nil {
		return nil, err
	}
	return Boolean(strings.Contains(haystack, needle)), nil
}

func fnStartsWith(_ *Evaluator, args []Value) (Value, error) {
	s, err := coerceString(args[0])
	if err != nil {
		return nil, err
	}
	prefix, err := coerceString(args[1])
	if err != nil {
		return nil, err
	}
	return Boolean(strings.HasPrefix(s, prefix)), nil
}

func fnEndsWith(_ *Evaluator, args []Value) (Value, error) {
	s, err := coerceString(args[0])
	if err != nil {
		return nil, err
	}
	suffix, err := coerceString(args[1])
	if err != nil {
		return nil, err
	}
	return Boolean(strings.HasSuffix(s, suffix)), nil
}

// fnFormat replaces each {i} placeholder in the template with the string
// coercion of the corresponding argument. {{ and }} escape literal braces;
// placeholders with no matching argument are left verbatim.
func fnFormat(_ *Evaluator, args []Value) (Value, error) {
	tmpl, err := coerceString(args[0])
	if err != nil {
		return nil, err
	}
	values := args[1:]

	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			idx, ok := placeholderIndex(tmpl[i+1 : i+end])
			if !ok || idx >= len(values) {
				// Unmatched placeholder stays verbatim.
				b.WriteString(tmpl[i : i+end+1])
				i += end
				continue
			}
			s, err := coerceString(values[idx])
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return String(b.String()), nil
}

func placeholderIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// fnJoin joins an array's string-coerced elements with a separator
// (default ","). A scalar first argument is treated as a one-element array.
func fnJoin(_ *Evaluator, args []Value) (Value, error) {
	sep := ","
	if len(args) == 2 {
		s, err := coerceString(args[1])
		if err != nil {
			return nil, err
		}
		sep = s
	}

	arr, ok := args[0].(Array)
	if !ok {
		s, err := coerceString(args[0])
		if err != nil {
			return nil, err
		}
		return String(s), nil
	}

	parts := make([]string, len(arr))
	for i, el := range arr {
		s, err := coerceString(el)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	return String(strings.Join(parts, sep)), nil
}

func fnToJSON(_ *Evaluator, args []Value) (Value, error) {
	return String(marshalJSON(args[0])), nil
}

func fnFromJSON(_ *Evaluator, args []Value) (Value, error) {
	s, err := coerceString(args[0])
	if err != nil {
		return nil, err
	}
	return unmarshalJSON(s)
}

func (ev *Evaluator) runStatus() RunStatus {
	if ev == nil || ev.status == nil {
		return RunStatus{Succeeded: true}
	}
	return ev.status.Status()
}

// fnSuccess reports that no prior step failed or was cancelled. With no
// status capability configured it defaults to true.
func fnSuccess(ev *Evaluator, _ []Value) (Value, error) {
	s := ev.runStatus()
	return Boolean(!s.Failed && !s.Cancelled), nil
}

func fnFailure(ev *Evaluator, _ []Value) (Value, error) {
	return Boolean(ev.runStatus().Failed), nil
}

func fnCancelled(ev *Evaluator, _ []Value) (Value, error) {
	return Boolean(ev.runStatus().Cancelled), nil
}

func fnAlways(_ *Evaluator, _ []Value) (Value, error) {
	return Boolean(true), nil
}

// fnHashFiles forwards its string-coerced patterns to the file-access
// capability. Without one configured this is a reported error, not a
// silent placeholder.
func fnHashFiles(ev *Evaluator, args []Value) (Value, error) {
	if ev == nil || ev.hasher == nil {
		return nil, &CapabilityError{Capability: "file access"}
	}
	patterns := make([]string, len(args))
	for i, arg := range args {
		s, err := coerceString(arg)
		if err != nil {
			return nil, err
		}
		patterns[i] = s
	}
	hash, err := ev.hasher.HashFiles(patterns)
	if err != nil {
		if _, ok := err.(kinded); ok {
			return nil, err
		}
		return nil, &CapabilityError{Capability: "file access", Cause: err}
	}
	return String(hash), nil
}
