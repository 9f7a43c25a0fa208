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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %q", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("expected default format 'text', got %q", cfg.Format)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected default output to be os.Stderr")
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		envVars    map[string]string
		wantLevel  string
		wantFormat Format
	}{
		{
			name:       "defaults when no env vars",
			envVars:    map[string]string{},
			wantLevel:  "info",
			wantFormat: FormatText,
		},
		{
			name:       "debug flag wins",
			envVars:    map[string]string{"GHEXPR_DEBUG": "1", "GHEXPR_LOG_LEVEL": "error"},
			wantLevel:  "debug",
			wantFormat: FormatText,
		},
		{
			name:       "explicit level and format",
			envVars:    map[string]string{"GHEXPR_LOG_LEVEL": "WARN", "GHEXPR_LOG_FORMAT": "JSON"},
			wantLevel:  "warn",
			wantFormat: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"GHEXPR_DEBUG", "GHEXPR_LOG_LEVEL", "GHEXPR_LOG_FORMAT"} {
				os.Unsetenv(key)
			}
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := FromEnv()
			if cfg.Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", cfg.Format, tt.wantFormat)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "debug", Format: FormatJSON, Output: &buf})

	logger.Debug("evaluated", slog.String(ExpressionKey, "github.ref"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "evaluated" {
		t.Errorf("msg = %v, want 'evaluated'", entry["msg"])
	}
	if entry[ExpressionKey] != "github.ref" {
		t.Errorf("%s = %v, want 'github.ref'", ExpressionKey, entry[ExpressionKey])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatText, Output: &buf})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info message should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("visible")
	if buf.Len() == 0 {
		t.Error("warn message should be logged at warn level")
	}
}
