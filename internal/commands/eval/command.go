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

// Package eval implements the ghexpr eval command.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ghexpr/ghexpr/internal/commands/shared"
	"github.com/ghexpr/ghexpr/internal/hashfiles"
	"github.com/ghexpr/ghexpr/pkg/expr"
)

type options struct {
	contextPath string
	jsonOut     bool
	showHits    bool
	status      string
	hashBase    string
	watch       bool
}

// NewCommand creates the eval command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a workflow expression against a context snapshot",
		Long: `Eval parses and evaluates a workflow expression, optionally wrapped in
${{ }}, against a context snapshot loaded from a YAML or JSON file. The
snapshot's top-level keys must be context root names (env, vars, secrets,
inputs, github, runner, matrix, needs, strategy).

The result is printed together with its type; --hits additionally lists
every context path the evaluation actually read, in first-touch order,
which explains where the value came from.

The run-status predicates success(), failure(), and cancelled() consult
--status (default: succeeded). hashFiles() is only available when
--hash-base points at a directory to glob; without it the call reports
a capability error rather than guessing.

See also: ghexpr check`,
		Example: `  # Example 1: Branch condition against a context file
  ghexpr eval 'github.ref == "refs/heads/main"' --context ctx.yaml

  # Example 2: Defaulting idiom, machine-readable output
  ghexpr eval "env.NODE_VERSION || '18'" --context ctx.yaml --json

  # Example 3: Explain which context paths a condition reads
  ghexpr eval "needs.build.result == 'success' && always()" -c ctx.yaml --hits

  # Example 4: Run-status predicates for a failed run
  ghexpr eval 'failure() && github.ref' -c ctx.yaml --status failed

  # Example 5: Re-evaluate whenever the context file changes
  ghexpr eval 'matrix.node[0] >= 16' -c ctx.yaml --watch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on evaluation errors
		SilenceErrors: true, // Errors are rendered by the command itself
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.contextPath, "context", "c", "", "Path to a YAML or JSON context snapshot file")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit the full result record as JSON")
	cmd.Flags().BoolVar(&opts.showHits, "hits", false, "List the context paths the evaluation read")
	cmd.Flags().StringVar(&opts.status, "status", "succeeded", "Run status for success()/failure()/cancelled(): succeeded, failed, or cancelled")
	cmd.Flags().StringVar(&opts.hashBase, "hash-base", "", "Base directory for hashFiles() globs")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-evaluate whenever the context file changes")

	return cmd
}

func run(cmd *cobra.Command, expression string, opts options) error {
	evaluator, err := buildEvaluator(opts)
	if err != nil {
		return err
	}

	if opts.watch {
		if opts.contextPath == "" {
			return &shared.ExitError{Code: shared.ExitUsageError, Message: "--watch requires --context"}
		}
		return watchLoop(cmd, expression, evaluator, opts)
	}

	snap, err := loadSnapshot(opts.contextPath)
	if err != nil {
		return err
	}
	return render(cmd, evaluator.Evaluate(expression, snap), opts)
}

func buildEvaluator(opts options) (*expr.Evaluator, error) {
	var evalOpts []expr.Option

	status, err := parseStatus(opts.status)
	if err != nil {
		return nil, err
	}
	evalOpts = append(evalOpts, expr.WithStatus(status))

	if opts.hashBase != "" {
		info, err := os.Stat(opts.hashBase)
		if err != nil || !info.IsDir() {
			return nil, &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("--hash-base %q is not a directory", opts.hashBase)}
		}
		evalOpts = append(evalOpts, expr.WithFileHasher(hashfiles.New(opts.hashBase)))
	}

	return expr.New(evalOpts...), nil
}

func parseStatus(s string) (expr.StatusReader, error) {
	var status expr.RunStatus
	switch strings.ToLower(s) {
	case "", "succeeded", "success":
		status.Succeeded = true
	case "failed", "failure":
		status.Failed = true
	case "cancelled", "canceled":
		status.Cancelled = true
	default:
		return nil, &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("invalid --status %q: use succeeded, failed, or cancelled", s)}
	}
	return expr.StatusFunc(func() expr.RunStatus { return status }), nil
}

// loadSnapshot reads a YAML or JSON context file into a snapshot. An empty
// path yields a snapshot with all roots empty.
func loadSnapshot(path string) (*expr.Snapshot, error) {
	if path == "" {
		return expr.NewSnapshot(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("failed to read context file: %v", err)}
	}

	// YAML is a superset of JSON, so one decoder covers both formats.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("failed to parse context file: %v", err)}
	}

	snap, err := expr.NewSnapshot(raw)
	if err != nil {
		return nil, &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("invalid context file: %v", err)}
	}
	return snap, nil
}

func render(cmd *cobra.Command, result *expr.Result, opts options) error {
	out := cmd.OutOrStdout()

	if opts.jsonOut {
		enc, err := json.Marshal(result)
		if err != nil {
			return &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("failed to encode result: %v", err)}
		}
		fmt.Fprintln(out, string(enc))
		if !result.OK() {
			return &shared.ExitError{Code: shared.ExitEvalError}
		}
		return nil
	}

	if !result.OK() {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderError(fmt.Sprintf("%s: %s", result.Err.Kind, result.Err.Message)))
		return &shared.ExitError{Code: shared.ExitEvalError}
	}

	fmt.Fprintf(out, "%s %s\n", result.Display(), shared.Muted.Render("("+result.Type+")"))
	if opts.showHits {
		fmt.Fprintln(out, shared.Bold.Render("Context hits:"))
		if len(result.ContextHits) == 0 {
			fmt.Fprintln(out, shared.Muted.Render("  (none)"))
		}
		for _, hit := range result.ContextHits {
			fmt.Fprintln(out, shared.RenderHit(hit))
		}
	}
	return nil
}
