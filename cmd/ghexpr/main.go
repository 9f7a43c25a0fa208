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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghexpr/ghexpr/internal/commands/check"
	"github.com/ghexpr/ghexpr/internal/commands/eval"
	"github.com/ghexpr/ghexpr/internal/commands/shared"
	logpkg "github.com/ghexpr/ghexpr/internal/log"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var exitErr *shared.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, shared.RenderError(exitErr.Message))
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, shared.RenderError(err.Error()))
		os.Exit(shared.ExitUsageError)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "ghexpr",
		Short: "Evaluate workflow ${{ }} expressions from the command line",
		Long: `ghexpr parses and evaluates workflow expressions of the kind embedded in
${{ }} placeholders, against a context snapshot you provide as a YAML or
JSON file. Alongside the value it reports which context paths the
evaluation actually read, which makes conditions explainable.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := logpkg.FromEnv()
			if logLevel != "" {
				cfg.Level = logLevel
			}
			slog.SetDefault(logpkg.New(cfg))
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from GHEXPR_LOG_LEVEL)")

	root.AddCommand(eval.NewCommand())
	root.AddCommand(check.NewCommand())

	return root
}
