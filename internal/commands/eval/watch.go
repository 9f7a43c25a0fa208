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

package eval

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ghexpr/ghexpr/internal/commands/shared"
	logpkg "github.com/ghexpr/ghexpr/internal/log"
	"github.com/ghexpr/ghexpr/pkg/expr"
)

// debounceWindow coalesces the bursts of writes editors produce when
// saving a file.
const debounceWindow = 200 * time.Millisecond

// watchLoop re-evaluates the expression whenever the context file changes,
// until interrupted. The watch is on the file's directory: editors commonly
// save via rename-and-replace, which drops a watch placed on the file
// itself.
func watchLoop(cmd *cobra.Command, expression string, evaluator *expr.Evaluator, opts options) error {
	parsed, perr := expr.Parse(expression)
	if perr != nil {
		return render(cmd, evaluator.Evaluate(expression, nil), opts)
	}

	absPath, err := filepath.Abs(opts.contextPath)
	if err != nil {
		return &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("failed to resolve context path: %v", err)}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("failed to create file watcher: %v", err)}
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return &shared.ExitError{Code: shared.ExitUsageError, Message: fmt.Sprintf("failed to watch %s: %v", filepath.Dir(absPath), err)}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default().With(slog.String(logpkg.ContextFileKey, absPath))
	logger.Debug("watch started", slog.String(logpkg.ExpressionKey, parsed.Source()))

	evalOnce := func() {
		start := time.Now()
		snap, err := loadSnapshot(absPath)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderError(err.Error()))
			return
		}
		// Render errors only signal the exit code; in watch mode the
		// loop keeps going.
		_ = render(cmd, evaluator.EvaluateExpression(parsed, snap), opts)
		logger.Debug("evaluated", slog.Int64(logpkg.DurationKey, time.Since(start).Milliseconds()))
	}
	evalOnce()

	var debounce *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("watch stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("context changed", slog.String(logpkg.EventKey, event.Op.String()))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			evalOnce()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", werr))
		}
	}
}
