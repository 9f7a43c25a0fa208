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

package shared

// Exit codes used by ghexpr commands.
const (
	// ExitOK means the command completed successfully.
	ExitOK = 0
	// ExitEvalError means the expression failed to parse or evaluate.
	ExitEvalError = 1
	// ExitUsageError means bad flags, unreadable files, or malformed
	// context data.
	ExitUsageError = 2
)

// ExitError carries an exit code through cobra's error return path. An
// empty Message means the command already printed its own diagnostics.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}
