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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptySnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(nil)
	require.NoError(t, err)
	return snap
}

func TestFunctions_Strings(t *testing.T) {
	snap := emptySnapshot(t)
	tests := []struct {
		name string
		expr string
		want Value
	}{
		{name: "contains substring", expr: `contains('refs/heads/main', 'main')`, want: Boolean(true)},
		{name: "contains missing substring", expr: `contains('refs/heads/main', 'dev')`, want: Boolean(false)},
		{name: "contains coerces needle", expr: `contains('build 42', 42)`, want: Boolean(true)},
		{name: "contains array element", expr: `contains(fromJSON('["a","b"]'), 'b')`, want: Boolean(true)},
		{name: "contains array loose equality", expr: `contains(fromJSON('[1,2]'), '2')`, want: Boolean(true)},
		{name: "contains array missing", expr: `contains(fromJSON('["a"]'), 'z')`, want: Boolean(false)},
		{name: "startsWith", expr: `startsWith('refs/heads/main', 'refs/heads/')`, want: Boolean(true)},
		{name: "startsWith false", expr: `startsWith('refs/tags/v1', 'refs/heads/')`, want: Boolean(false)},
		{name: "startsWith coerces", expr: `startsWith(123, 1)`, want: Boolean(true)},
		{name: "endsWith", expr: `endsWith('main.go', '.go')`, want: Boolean(true)},
		{name: "endsWith false", expr: `endsWith('main.go', '.rs')`, want: Boolean(false)},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Evaluate(tt.expr, snap)
			require.True(t, r.OK(), "unexpected error: %+v", r.Err)
			assert.Equal(t, tt.want, r.Value)
		})
	}
}

func TestFunctions_Format(t *testing.T) {
	snap := emptySnapshot(t)
	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "basic", expr: `format('Build {0} on {1}', 42, 'refs/heads/main')`, want: "Build 42 on refs/heads/main"},
		{name: "repeated placeholder", expr: `format('{0}{0}', 'ab')`, want: "abab"},
		{name: "out of order", expr: `format('{1}-{0}', 'a', 'b')`, want: "b-a"},
		{name: "unmatched stays verbatim", expr: `format('{0} {9}', 'x')`, want: "x {9}"},
		{name: "escaped braces", expr: `format('{{0}}', 'x')`, want: "{0}"},
		{name: "null renders empty", expr: `format('[{0}]', null)`, want: "[]"},
		{name: "boolean renders text", expr: `format('{0}', true)`, want: "true"},
		{name: "no placeholders", expr: `format('plain')`, want: "plain"},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Evaluate(tt.expr, snap)
			require.True(t, r.OK(), "unexpected error: %+v", r.Err)
			assert.Equal(t, String(tt.want), r.Value)
		})
	}
}

func TestFunctions_FormatRejectsObjects(t *testing.T) {
	r := New().Evaluate(`format('{0}', fromJSON('{"a":1}'))`, emptySnapshot(t))
	require.False(t, r.OK())
	assert.Equal(t, KindTypeError, r.Err.Kind)
}

func TestFunctions_Join(t *testing.T) {
	snap := emptySnapshot(t)
	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "custom separator", expr: `join(fromJSON('["a","b"]'), '-')`, want: "a-b"},
		{name: "default separator", expr: `join(fromJSON('["a","b","c"]'))`, want: "a,b,c"},
		{name: "empty array", expr: `join(fromJSON('[]'), '-')`, want: ""},
		{name: "scalar becomes single element", expr: `join('solo', '-')`, want: "solo"},
		{name: "number elements", expr: `join(fromJSON('[1,2]'), '+')`, want: "1+2"},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Evaluate(tt.expr, snap)
			require.True(t, r.OK(), "unexpected error: %+v", r.Err)
			assert.Equal(t, String(tt.want), r.Value)
		})
	}
}

func TestFunctions_JSONRoundTrip(t *testing.T) {
	snap := emptySnapshot(t)
	e := New()

	// Object key order survives serialization both ways.
	r := e.Evaluate(`toJSON(fromJSON('{"z":1,"a":[true,null,"x"]}'))`, snap)
	require.True(t, r.OK(), "unexpected error: %+v", r.Err)
	assert.Equal(t, String(`{"z":1,"a":[true,null,"x"]}`), r.Value)

	for _, doc := range []string{
		`null`, `true`, `42`, `-1.5`, `"text"`, `[]`, `[1,[2,[3]]]`,
		`{"b":{"d":1,"c":2},"a":[null,false]}`,
	} {
		parsed, err := unmarshalJSON(doc)
		require.NoError(t, err, doc)
		again, err := unmarshalJSON(marshalJSON(parsed))
		require.NoError(t, err, doc)
		assert.True(t, looseEquals(parsed, again), "round trip changed %s", doc)
	}
}

func TestFunctions_FromJSONErrors(t *testing.T) {
	snap := emptySnapshot(t)
	e := New()

	for _, input := range []string{`fromJSON('{bad')`, `fromJSON('')`, `fromJSON('[1,]')`, `fromJSON('{} {}')`} {
		r := e.Evaluate(input, snap)
		require.False(t, r.OK(), input)
		assert.Equal(t, KindJSONError, r.Err.Kind, input)
	}
}

func TestFunctions_FromJSONKinds(t *testing.T) {
	snap := emptySnapshot(t)
	e := New()
	tests := []struct {
		expr string
		typ  string
	}{
		{expr: `fromJSON('null')`, typ: "null"},
		{expr: `fromJSON('true')`, typ: "boolean"},
		{expr: `fromJSON('3.5')`, typ: "number"},
		{expr: `fromJSON('"s"')`, typ: "string"},
		{expr: `fromJSON('[1]')`, typ: "array"},
		{expr: `fromJSON('{}')`, typ: "object"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			r := e.Evaluate(tt.expr, snap)
			require.True(t, r.OK())
			assert.Equal(t, tt.typ, r.Type)
		})
	}
}

func TestFunctions_StatusPredicates(t *testing.T) {
	snap := emptySnapshot(t)

	// Default with no capability: the run is treated as succeeding.
	e := New()
	for expr, want := range map[string]Value{
		`success()`:   Boolean(true),
		`failure()`:   Boolean(false),
		`cancelled()`: Boolean(false),
		`always()`:    Boolean(true),
	} {
		r := e.Evaluate(expr, snap)
		require.True(t, r.OK(), expr)
		assert.Equal(t, want, r.Value, expr)
	}

	failed := New(WithStatus(StatusFunc(func() RunStatus {
		return RunStatus{Failed: true}
	})))
	for expr, want := range map[string]Value{
		`success()`: Boolean(false),
		`failure()`: Boolean(true),
		`always()`:  Boolean(true),
	} {
		r := failed.Evaluate(expr, snap)
		require.True(t, r.OK(), expr)
		assert.Equal(t, want, r.Value, expr)
	}

	cancelled := New(WithStatus(StatusFunc(func() RunStatus {
		return RunStatus{Cancelled: true}
	})))
	r := cancelled.Evaluate(`cancelled()`, snap)
	require.True(t, r.OK())
	assert.Equal(t, Boolean(true), r.Value)
	r = cancelled.Evaluate(`success()`, snap)
	require.True(t, r.OK())
	assert.Equal(t, Boolean(false), r.Value)
}

type fakeHasher struct {
	patterns []string
	hash     string
	err      error
}

func (f *fakeHasher) HashFiles(patterns []string) (string, error) {
	f.patterns = patterns
	return f.hash, f.err
}

func TestFunctions_HashFiles(t *testing.T) {
	snap := emptySnapshot(t)

	// Without a file-access capability the call is a reported error.
	r := New().Evaluate(`hashFiles('**/go.sum')`, snap)
	require.False(t, r.OK())
	assert.Equal(t, KindCapabilityUnavailable, r.Err.Kind)

	hasher := &fakeHasher{hash: "abc123"}
	r = New(WithFileHasher(hasher)).Evaluate(`hashFiles('**/go.sum', 'go.mod')`, snap)
	require.True(t, r.OK(), "unexpected error: %+v", r.Err)
	assert.Equal(t, String("abc123"), r.Value)
	assert.Equal(t, []string{"**/go.sum", "go.mod"}, hasher.patterns)

	broken := &fakeHasher{err: errors.New("disk gone")}
	r = New(WithFileHasher(broken)).Evaluate(`hashFiles('*')`, snap)
	require.False(t, r.OK())
	assert.Equal(t, KindCapabilityUnavailable, r.Err.Kind)
}

func TestFunctions_UnknownAndArity(t *testing.T) {
	snap := emptySnapshot(t)
	e := New()

	r := e.Evaluate(`frobnicate(1)`, snap)
	require.False(t, r.OK())
	assert.Equal(t, KindUnknownFunction, r.Err.Kind)

	tests := []struct {
		name string
		expr string
		msg  string
	}{
		{name: "too few", expr: `contains('a')`, msg: "exactly 2"},
		{name: "too many", expr: `contains('a', 'b', 'c')`, msg: "exactly 2"},
		{name: "join too many", expr: `join('a', 'b', 'c')`, msg: "between 1 and 2"},
		{name: "format too few", expr: `format()`, msg: "at least 1"},
		{name: "niladic with args", expr: `always(1)`, msg: "exactly 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Evaluate(tt.expr, snap)
			require.False(t, r.OK())
			assert.Equal(t, KindArityError, r.Err.Kind)
			assert.Contains(t, r.Err.Message, tt.msg)
		})
	}
}

func TestFunctions_CaseInsensitiveNames(t *testing.T) {
	snap := emptySnapshot(t)
	e := New()
	for _, expr := range []string{`toJSON(1)`, `tojson(1)`, `ToJson(1)`, `STARTSWITH('ab', 'a')`} {
		r := e.Evaluate(expr, snap)
		assert.True(t, r.OK(), expr)
	}
}

func TestFunctions_ArgumentsEvaluatedOnceWithHits(t *testing.T) {
	snap, err := NewSnapshot(map[string]any{
		"github": map[string]any{"ref": "refs/heads/main"},
		"env":    map[string]any{"SUFFIX": "main"},
	})
	require.NoError(t, err)

	r := New().Evaluate(`endsWith(github.ref, env.SUFFIX)`, snap)
	require.True(t, r.OK())
	assert.Equal(t, Boolean(true), r.Value)
	assert.Equal(t, []string{"github.ref", "env.SUFFIX"}, r.ContextHits)
}
