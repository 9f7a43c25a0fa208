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

// Package hashfiles implements the file-access capability behind the
// hashFiles built-in. It lives outside the expression core so that the
// core itself performs no I/O; hosts opt in by wiring a Hasher into an
// evaluator.
package hashfiles

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Hasher resolves glob patterns against a base directory and hashes the
// matched files. It implements expr.FileHasher.
type Hasher struct {
	fsys fs.FS
}

// New creates a Hasher rooted at the given directory.
func New(baseDir string) *Hasher {
	return &Hasher{fsys: os.DirFS(baseDir)}
}

// NewFS creates a Hasher over an arbitrary filesystem, mainly for tests.
func NewFS(fsys fs.FS) *Hasher {
	return &Hasher{fsys: fsys}
}

// HashFiles returns a hex SHA-256 over the matched files' content hashes,
// combined in sorted path order so the result is stable across pattern
// order and directory traversal order. No matches yields "".
func (h *Hasher) HashFiles(patterns []string) (string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(h.fsys, pattern)
		if err != nil {
			return "", fmt.Errorf("bad glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := fs.Stat(h.fsys, match)
			if err != nil {
				return "", fmt.Errorf("stat %s: %w", match, err)
			}
			if info.IsDir() || seen[match] {
				continue
			}
			seen[match] = true
			paths = append(paths, match)
		}
	}
	if len(paths) == 0 {
		return "", nil
	}
	sort.Strings(paths)

	combined := sha256.New()
	for _, path := range paths {
		sum, err := h.hashFile(path)
		if err != nil {
			return "", err
		}
		combined.Write(sum)
	}
	return hex.EncodeToString(combined.Sum(nil)), nil
}

func (h *Hasher) hashFile(path string) ([]byte, error) {
	f, err := h.fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return hash.Sum(nil), nil
}
