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
	"os"

	dagflowerrors "github.com/ashgrove/dagflow/pkg/errors"
)

// Exit codes for the CLI contract in spec.md §6: 0 on success, non-zero on
// validation or database error. ExitValidation and ExitInfra are
// distinguished so scripting callers can tell "fix your graph" apart from
// "retry me".
const (
	ExitValidation = 2
	ExitInfra      = 1
)

// ExitError carries the process exit code alongside a user-facing message.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// classify turns a domain error into the exit code the CLI contract
// promises: validation problems are the caller's to fix (ExitValidation),
// everything else (connection failures, unexpected driver errors) is
// infrastructure (ExitInfra).
func classify(err error) int {
	var validationErr *dagflowerrors.ValidationError
	if errors.As(err, &validationErr) {
		return ExitValidation
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitInfra
}

// handleExitError prints err and exits with its classified code. Called
// once, from main, after rootCmd.Execute returns an error.
func handleExitError(err error) {
	fmt.Fprintln(os.Stderr, "orchestrator:", err)
	os.Exit(classify(err))
}
