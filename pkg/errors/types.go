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

package errors

import (
	"fmt"
	"time"
)

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "workflow", "tool", "connector")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError represents a race surfaced by Postgres itself: a unique
// violation on an idempotency key, or a row that no longer matches the
// version/status a coordination primitive expected when it tried to
// transition it.
type ConflictError struct {
	// Resource is the type of row in conflict (e.g., "step_task", "run")
	Resource string

	// ID is the identifier of the conflicting row
	ID string

	// Reason explains what the conflict was (e.g., "idempotency key already claimed")
	Reason string

	// Cause is the underlying driver error, if any (e.g., a pgconn.PgError)
	Cause error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Resource, e.ID, e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// TypeViolationError represents the -1 path of complete_task: a map step's
// task produced output that fails the array-of-matching-type check the
// parent map step declared.
type TypeViolationError struct {
	// StepSlug identifies the map step whose output violated its declared type
	StepSlug string

	// TaskIndex is the task within the map step that produced the bad output
	TaskIndex int

	// Expected describes the type the step declared
	Expected string

	// Got describes what the task actually returned
	Got string
}

// Error implements the error interface.
func (e *TypeViolationError) Error() string {
	return fmt.Sprintf("step %s task %d: output type violation, expected %s, got %s",
		e.StepSlug, e.TaskIndex, e.Expected, e.Got)
}

// StepError is the structured failure a step function returns to the
// worker loop per the step-function contract (spec.md §6): a message plus
// an explicit retryable hint. Retryable defaults to true when a step
// function returns a bare error instead of a *StepError, matching §7
// taxonomy item 3's "no hint" default; Retryable=false forces a terminal
// failure on the very first attempt, per §7 taxonomy item 4, regardless
// of how many attempts remain.
type StepError struct {
	// Message is the human-readable failure description recorded on the
	// task, step, and (if terminal) the run.
	Message string

	// Retryable indicates whether the worker should let fail_task apply
	// its normal attempts_count/max_attempts retry logic. false forces
	// immediate terminal failure.
	Retryable bool

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return e.Message
}

// ErrorType implements ErrorClassifier.
func (e *StepError) ErrorType() string {
	return "step"
}

// IsRetryable implements ErrorClassifier.
func (e *StepError) IsRetryable() bool {
	return e.Retryable
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "api_key", "database.host")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents operation timeouts.
// Use this when an operation exceeds its configured timeout.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "postgres query", "workflow step")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
