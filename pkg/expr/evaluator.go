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
	"math"
	"strconv"
	"strings"
)

// Evaluator evaluates expressions against context snapshots. An Evaluator
// holds only configuration (capabilities); it carries no per-evaluation
// state, so one instance may serve concurrent evaluations.
type Evaluator struct {
	status StatusReader
	hasher FileHasher
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithStatus supplies the run-status capability consulted by success(),
// failure(), and cancelled().
func WithStatus(status StatusReader) Option {
	return func(e *Evaluator) { e.status = status }
}

// WithFileHasher supplies the file-access capability required by
// hashFiles().
func WithFileHasher(hasher FileHasher) Option {
	return func(e *Evaluator) { e.hasher = hasher }
}

// New creates an expression evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate parses and evaluates an expression, optionally wrapped in
// ${{ }}, against a snapshot. It never panics and never mutates the
// snapshot; every failure is reported through the result's Err field.
func (e *Evaluator) Evaluate(expression string, snap *Snapshot) *Result {
	parsed, err := Parse(expression)
	if err != nil {
		return errorResult(err)
	}
	return e.EvaluateExpression(parsed, snap)
}

// EvaluateExpression evaluates an already-parsed expression against a
// snapshot. The expression may be reused across calls and snapshots.
func (e *Evaluator) EvaluateExpression(parsed *Expression, snap *Snapshot) *Result {
	st := &evalState{ev: e, snap: snap, hits: newHitSet()}
	r, err := st.eval(parsed.root)
	if err != nil {
		// Hits gathered before the failure point are discarded.
		return errorResult(err)
	}
	return valueResult(st.use(r), st.hits.paths())
}

// ref is an evaluated value together with the context path it was read
// from, or "" for computed values. Paths are recorded as hits only when the
// value is consumed rather than dereferenced further, so github.ref yields
// one hit ("github.ref"), not two.
type ref struct {
	val  Value
	path string
}

// evalState threads the per-call hit accumulator through the walk. Hit
// state is local to one evaluation; there is no global mutable state.
type evalState struct {
	ev   *Evaluator
	snap *Snapshot
	hits *hitSet
}

// use marks a ref's value as consumed, recording its context path.
func (st *evalState) use(r ref) Value {
	if r.path != "" {
		st.hits.add(r.path)
	}
	return r.val
}

func (st *evalState) eval(n node) (ref, error) {
	switch nd := n.(type) {
	case *literal:
		return ref{val: nd.val}, nil
	case *contextRoot:
		return st.evalRoot(nd)
	case *propertyAccess:
		return st.evalProperty(nd)
	case *indexAccess:
		return st.evalIndex(nd)
	case *wildcard:
		return st.evalWildcard(nd)
	case *functionCall:
		return st.evalCall(nd)
	case *unaryNot:
		operand, err := st.eval(nd.operand)
		if err != nil {
			return ref{}, err
		}
		return ref{val: Boolean(!Truthy(st.use(operand)))}, nil
	case *binaryOp:
		return st.evalBinary(nd)
	default:
		return ref{}, &TypeError{Message: fmt.Sprintf("invalid AST node %T", n)}
	}
}

func (st *evalState) evalRoot(nd *contextRoot) (ref, error) {
	obj, ok := st.snap.Root(nd.name)
	if !ok {
		return ref{}, &UnknownContextError{Name: nd.name}
	}
	return ref{val: obj, path: nd.name}, nil
}

func (st *evalState) evalProperty(nd *propertyAccess) (ref, error) {
	base, err := st.eval(nd.base)
	if err != nil {
		return ref{}, err
	}

	switch bv := base.val.(type) {
	case *Object:
		val, found := bv.Get(nd.name)
		if !found {
			return ref{}, &UnknownPropertyError{Path: base.path, Name: nd.name}
		}
		return ref{val: val, path: extendPath(base.path, nd.name)}, nil
	case Array:
		// Property access on an array projects the name over every
		// element: absent properties become null, never an error.
		out := make(Array, len(bv))
		for i, el := range bv {
			if obj, ok := el.(*Object); ok {
				if val, found := obj.Get(nd.name); found {
					out[i] = val
					continue
				}
			}
			out[i] = Null{}
		}
		// An explicit .* before the property already marks the
		// projection in the path.
		seg := "*." + nd.name
		if strings.HasSuffix(base.path, ".*") {
			seg = nd.name
		}
		return ref{val: out, path: extendPath(base.path, seg)}, nil
	default:
		return ref{}, &UnknownPropertyError{Path: base.path, Name: nd.name}
	}
}

func (st *evalState) evalIndex(nd *indexAccess) (ref, error) {
	base, err := st.eval(nd.base)
	if err != nil {
		return ref{}, err
	}
	idxRef, err := st.eval(nd.index)
	if err != nil {
		return ref{}, err
	}
	idxVal := st.use(idxRef)

	arr, ok := base.val.(Array)
	if !ok {
		return ref{}, &TypeError{Message: fmt.Sprintf("cannot index into a value of type %s: not an array", base.val.Kind())}
	}
	num, ok := idxVal.(Number)
	if !ok {
		return ref{}, &TypeError{Message: fmt.Sprintf("array index must be a number, got %s", idxVal.Kind())}
	}
	f := float64(num)
	if math.IsNaN(f) {
		return ref{}, &TypeError{Message: "array index must be a number, got NaN"}
	}
	i := int(f) // truncate toward zero
	if i < 0 || i >= len(arr) {
		return ref{}, &TypeError{Message: fmt.Sprintf("index %d out of range for array of length %d", i, len(arr))}
	}
	return ref{val: arr[i], path: extendPath(base.path, strconv.Itoa(i))}, nil
}

func (st *evalState) evalWildcard(nd *wildcard) (ref, error) {
	base, err := st.eval(nd.base)
	if err != nil {
		return ref{}, err
	}
	switch bv := base.val.(type) {
	case Array:
		return ref{val: bv, path: extendPath(base.path, "*")}, nil
	case *Object:
		return ref{val: Array(bv.Values()), path: extendPath(base.path, "*")}, nil
	default:
		return ref{}, &TypeError{Message: fmt.Sprintf("cannot apply .* to a value of type %s", base.val.Kind())}
	}
}

func (st *evalState) evalCall(nd *functionCall) (ref, error) {
	fn, ok := lookupBuiltin(nd.name)
	if !ok {
		return ref{}, &UnknownFunctionError{Name: nd.name}
	}
	if len(nd.args) < fn.minArgs || (fn.maxArgs >= 0 && len(nd.args) > fn.maxArgs) {
		return ref{}, &ArityError{Function: fn.name, Min: fn.minArgs, Max: fn.maxArgs, Got: len(nd.args)}
	}

	// Each argument is evaluated exactly once, with its hits recorded,
	// before dispatch.
	args := make([]Value, len(nd.args))
	for i, argNode := range nd.args {
		argRef, err := st.eval(argNode)
		if err != nil {
			return ref{}, err
		}
		args[i] = st.use(argRef)
	}

	out, err := fn.call(st.ev, args)
	if err != nil {
		return ref{}, err
	}
	return ref{val: out}, nil
}

func (st *evalState) evalBinary(nd *binaryOp) (ref, error) {
	// && and || short-circuit and return whichever operand decided the
	// outcome; they are value-selecting, not boolean-producing.
	switch nd.op {
	case opAnd:
		left, err := st.eval(nd.left)
		if err != nil {
			return ref{}, err
		}
		if !Truthy(st.use(left)) {
			return left, nil
		}
		return st.eval(nd.right)
	case opOr:
		left, err := st.eval(nd.left)
		if err != nil {
			return ref{}, err
		}
		if Truthy(st.use(left)) {
			return left, nil
		}
		return st.eval(nd.right)
	}

	// Comparisons always evaluate both operands.
	leftRef, err := st.eval(nd.left)
	if err != nil {
		return ref{}, err
	}
	left := st.use(leftRef)
	rightRef, err := st.eval(nd.right)
	if err != nil {
		return ref{}, err
	}
	right := st.use(rightRef)

	switch nd.op {
	case opEq:
		return ref{val: Boolean(looseEquals(left, right))}, nil
	case opNe:
		return ref{val: Boolean(!looseEquals(left, right))}, nil
	}

	ln, rn := toNumber(left), toNumber(right)
	if math.IsNaN(ln) {
		return ref{}, &TypeError{Message: fmt.Sprintf("cannot compare %s numerically", left.Kind())}
	}
	if math.IsNaN(rn) {
		return ref{}, &TypeError{Message: fmt.Sprintf("cannot compare %s numerically", right.Kind())}
	}

	var out bool
	switch nd.op {
	case opLt:
		out = ln < rn
	case opLe:
		out = ln <= rn
	case opGt:
		out = ln > rn
	case opGe:
		out = ln >= rn
	default:
		return ref{}, &TypeError{Message: fmt.Sprintf("invalid operator %s", nd.op)}
	}
	return ref{val: Boolean(out)}, nil
}

func extendPath(base, segment string) string {
	if base == "" {
		return ""
	}
	return base + "." + segment
}

// hitSet accumulates dotted context paths in first-touch order without
// duplicates.
type hitSet struct {
	order []string
	seen  map[string]bool
}

func newHitSet() *hitSet {
	return &hitSet{seen: make(map[string]bool)}
}

func (h *hitSet) add(path string) {
	if h.seen[path] {
		return
	}
	h.seen[path] = true
	h.order = append(h.order, path)
}

func (h *hitSet) paths() []string {
	return h.order
}
