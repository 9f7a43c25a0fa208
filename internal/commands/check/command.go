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

// Package check implements the ghexpr check command.
package check

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghexpr/ghexpr/internal/commands/shared"
	"github.com/ghexpr/ghexpr/pkg/expr"
)

// NewCommand creates the check command
func NewCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check <expression>",
		Short: "Check an expression for syntax errors without evaluating it",
		Long: `Check parses an expression, optionally wrapped in ${{ }}, and reports
syntax problems with their byte offset. No context is consulted and no
functions run; context or type errors only surface at evaluation time.

See also: ghexpr eval`,
		Example: `  # Example 1: Valid expression
  ghexpr check "github.ref == 'refs/heads/main'"

  # Example 2: Catch an unterminated string
  ghexpr check "startsWith(github.ref, 'refs"

  # Example 3: Machine-readable diagnostics
  ghexpr check 'contains(matrix.node, 18' --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit diagnostics as JSON")

	return cmd
}

type report struct {
	Valid   bool   `json:"valid"`
	Offset  int    `json:"offset,omitempty"`
	Message string `json:"message,omitempty"`
}

func run(cmd *cobra.Command, expression string, jsonOut bool) error {
	out := cmd.OutOrStdout()

	_, err := expr.Parse(expression)
	rep := report{Valid: err == nil}
	var serr *expr.SyntaxError
	if errors.As(err, &serr) {
		rep.Offset = serr.Offset
		rep.Message = serr.Message
	} else if err != nil {
		rep.Message = err.Error()
	}

	if jsonOut {
		enc, jerr := json.Marshal(rep)
		if jerr != nil {
			return &shared.ExitError{Code: shared.ExitUsageError, Message: jerr.Error()}
		}
		fmt.Fprintln(out, string(enc))
		if !rep.Valid {
			return &shared.ExitError{Code: shared.ExitEvalError}
		}
		return nil
	}

	if !rep.Valid {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderError(fmt.Sprintf("offset %d: %s", rep.Offset, rep.Message)))
		return &shared.ExitError{Code: shared.ExitEvalError}
	}
	fmt.Fprintln(out, shared.RenderOK("expression is valid"))
	return nil
}
