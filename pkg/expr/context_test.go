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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot_RejectsUnknownRoot(t *testing.T) {
	_, err := NewSnapshot(map[string]any{"steps": map[string]any{}})
	var uerr *UnknownContextError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "steps", uerr.Name)
	assert.Contains(t, uerr.Error(), "github")
}

func TestNewSnapshot_RejectsNonObjectRoot(t *testing.T) {
	_, err := NewSnapshot(map[string]any{"env": "PATH=/bin"})
	var terr *TypeError
	require.ErrorAs(t, err, &terr)
}

func TestNewSnapshot_AllRootsAccepted(t *testing.T) {
	data := make(map[string]any, len(ContextRoots))
	for _, root := range ContextRoots {
		data[root] = map[string]any{"k": "v"}
	}
	snap, err := NewSnapshot(data)
	require.NoError(t, err)

	for _, root := range ContextRoots {
		obj, ok := snap.Root(root)
		require.True(t, ok, root)
		val, found := obj.Get("k")
		require.True(t, found, root)
		assert.Equal(t, String("v"), val)
	}
}

func TestSnapshot_MissingRootsAreEmpty(t *testing.T) {
	snap, err := NewSnapshot(map[string]any{"env": map[string]any{"CI": "true"}})
	require.NoError(t, err)

	obj, ok := snap.Root("matrix")
	require.True(t, ok)
	assert.Equal(t, 0, obj.Len())

	_, ok = snap.Root("steps")
	assert.False(t, ok)
}

func TestSnapshot_SetRoot(t *testing.T) {
	github := NewObject()
	github.Set("ref", String("refs/tags/v1"))

	var snap Snapshot
	require.NoError(t, snap.SetRoot("github", github))
	assert.Error(t, snap.SetRoot("bogus", NewObject()))

	r := New().Evaluate(`github.ref`, &snap)
	require.True(t, r.OK())
	assert.Equal(t, String("refs/tags/v1"), r.Value)
}

func TestSnapshot_NilIsAllEmptyRoots(t *testing.T) {
	var snap *Snapshot
	e := New()

	r := e.Evaluate(`secrets`, snap)
	require.True(t, r.OK())
	assert.Equal(t, "object", r.Type)

	// Empty roots still enforce property existence.
	r = e.Evaluate(`env.PATH`, snap)
	require.False(t, r.OK())
	assert.Equal(t, KindUnknownProperty, r.Err.Kind)
}
