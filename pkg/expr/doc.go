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

// Package expr evaluates workflow expressions of the kind embedded in
// ${{ ... }} placeholders.
//
// An expression is parsed into an explicit syntax tree by a precedence
// climbing parser and evaluated against an immutable context snapshot
// holding the nine fixed roots (env, vars, secrets, inputs, github, runner,
// matrix, needs, strategy). Expressions support:
//
//   - Context access: github.ref, matrix.node[0], needs.*.result
//   - Comparisons: ==, !=, <, >, <=, >= (loose coercion)
//   - Boolean logic: &&, ||, and !. The logical operators short-circuit
//     and return whichever operand decided the outcome, so
//     cond && 'X' || 'Y' selects a value like a ternary
//   - Built-in functions: contains, startsWith, endsWith, format, join,
//     toJSON, fromJSON, success, failure, cancelled, always, hashFiles
//
// Every evaluation produces a Result carrying the value, its type name, and
// the list of context paths actually dereferenced, in first-touch order;
// that list is what explains why an expression produced its value.
// Failures are ordinary results with a populated error record; the package
// performs no I/O and never panics on malformed input.
//
// Example:
//
//	snap, _ := expr.NewSnapshot(map[string]any{
//	    "github": map[string]any{"ref": "refs/heads/main"},
//	})
//	r := expr.New().Evaluate(`${{ github.ref == 'refs/heads/main' }}`, snap)
//	// r.Value == Boolean(true), r.ContextHits == []string{"github.ref"}
//
// The status and file-access capabilities behind success()/failure()/
// cancelled() and hashFiles() are supplied by the host through options;
// hashFiles without a capability is a reported error, not a placeholder.
package expr
