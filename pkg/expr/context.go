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
	"strings"
)

// ContextRoots lists the fixed context roots an expression may reference.
var ContextRoots = []string{
	"env",
	"vars",
	"secrets",
	"inputs",
	"github",
	"runner",
	"matrix",
	"needs",
	"strategy",
}

func isContextRoot(name string) bool {
	for _, root := range ContextRoots {
		if root == name {
			return true
		}
	}
	return false
}

func rootList() string {
	return strings.Join(ContextRoots, ", ")
}

// Snapshot is an immutable set of context root values for one evaluation.
// The evaluator only reads from it; a snapshot may outlive any number of
// evaluations, but concurrent evaluations must not share one with a caller
// that is still mutating the underlying data.
type Snapshot struct {
	roots map[string]*Object
}

// NewSnapshot builds a snapshot from plain Go data, such as the result of
// decoding a YAML or JSON context file. Top-level keys must be context root
// names mapping to objects; roots that are absent evaluate as empty objects.
func NewSnapshot(data map[string]any) (*Snapshot, error) {
	snap := &Snapshot{roots: make(map[string]*Object, len(data))}
	for _, name := range sortedKeys(data) {
		if !isContextRoot(name) {
			return nil, &UnknownContextError{Name: name}
		}
		val := FromAny(data[name])
		obj, ok := val.(*Object)
		if !ok {
			return nil, &TypeError{Message: fmt.Sprintf("context root %q must be an object, got %s", name, val.Kind())}
		}
		snap.roots[name] = obj
	}
	return snap, nil
}

// SetRoot replaces one root with an already-built object. It is intended
// for snapshot construction; snapshots must not be modified while an
// evaluation is using them.
func (s *Snapshot) SetRoot(name string, obj *Object) error {
	if !isContextRoot(name) {
		return &UnknownContextError{Name: name}
	}
	if s.roots == nil {
		s.roots = make(map[string]*Object)
	}
	s.roots[name] = obj
	return nil
}

// Root returns the named root. Roots never populated are returned as empty
// objects, matching a workflow run where a context simply has no entries.
func (s *Snapshot) Root(name string) (*Object, bool) {
	if !isContextRoot(name) {
		return nil, false
	}
	if s == nil || s.roots == nil {
		return NewObject(), true
	}
	if obj, ok := s.roots[name]; ok {
		return obj, true
	}
	return NewObject(), true
}
