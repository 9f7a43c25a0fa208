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

package hashfiles

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"go.sum":          {Data: []byte("sum contents")},
		"go.mod":          {Data: []byte("module x")},
		"src/a.go":        {Data: []byte("package a")},
		"src/deep/b.go":   {Data: []byte("package b")},
		"docs/readme.md":  {Data: []byte("# readme")},
		"src/testdata/fx": {Data: []byte("fixture")},
	}
}

func TestHashFiles_Deterministic(t *testing.T) {
	h := NewFS(testFS())

	first, err := h.HashFiles([]string{"**/*.go"})
	require.NoError(t, err)
	assert.Len(t, first, 64, "hex sha256")

	again, err := h.HashFiles([]string{"**/*.go"})
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestHashFiles_PatternOrderIrrelevant(t *testing.T) {
	h := NewFS(testFS())

	a, err := h.HashFiles([]string{"go.sum", "go.mod"})
	require.NoError(t, err)
	b, err := h.HashFiles([]string{"go.mod", "go.sum"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Overlapping patterns count each file once.
	c, err := h.HashFiles([]string{"go.mod", "go.sum", "go.*"})
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestHashFiles_ContentSensitive(t *testing.T) {
	fsys := testFS()
	h := NewFS(fsys)
	before, err := h.HashFiles([]string{"go.sum"})
	require.NoError(t, err)

	fsys["go.sum"].Data = []byte("different")
	after, err := h.HashFiles([]string{"go.sum"})
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestHashFiles_NoMatches(t *testing.T) {
	h := NewFS(testFS())
	hash, err := h.HashFiles([]string{"**/*.rs"})
	require.NoError(t, err)
	assert.Equal(t, "", hash)
}

func TestHashFiles_BadPattern(t *testing.T) {
	h := NewFS(testFS())
	_, err := h.HashFiles([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestHashFiles_RealDirectory(t *testing.T) {
	dir := t.TempDir()
	h := New(dir)

	hash, err := h.HashFiles([]string{"**"})
	require.NoError(t, err)
	assert.Equal(t, "", hash, "empty directory hashes to empty string")
}
