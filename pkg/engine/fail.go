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

package engine

import (
	"context"
	"fmt"

	"github.com/ashgrove/dagflow/internal/log"
)

// FailTask records a failed task execution attempt. fail_task decides
// whether this was a retryable attempt (the message's visibility timeout
// is delayed by the step's backoff policy) or the terminal attempt (the
// task, its step, and the whole run are marked failed):
//
//	0 - no-op; the run had already failed.
//	1 - retry scheduled; the message becomes visible again after the
//	    computed backoff delay.
//	2 - terminal; either retryable was false or max_attempts was
//	    exhausted, and the run is now failed.
//
// retryable carries the step function's hint (spec.md §6/§7): false forces
// a terminal failure regardless of attempts_count. retryBaseSeconds and
// retryCapSeconds should come from the step's effective backoff policy
// (graph.Definition.EffectiveRetryBaseSeconds / EffectiveRetryCapSeconds);
// fail_task does the doubling itself so the delay calculation only ever
// lives in one place.
func (e *Engine) FailTask(ctx context.Context, runID, stepSlug string, taskIndex int, errMessage string, retryable bool, retryBaseSeconds, retryCapSeconds int) (terminal bool, err error) {
	logger := log.WithStepContext(e.logger, runID, stepSlug, taskIndex)

	var code int
	row := e.pool.QueryRow(ctx, `SELECT fail_task($1, $2, $3, $4, $5, $6, $7)`,
		runID, stepSlug, taskIndex, errMessage, retryBaseSeconds, retryCapSeconds, retryable)
	if scanErr := row.Scan(&code); scanErr != nil {
		return false, fmt.Errorf("failing task %s[%d] of run %s: %w", stepSlug, taskIndex, runID, scanErr)
	}

	switch code {
	case 1:
		logger.Warn("task attempt failed, retry scheduled", "event", "task_retry_scheduled", "error", errMessage)
		return false, nil
	case 2:
		logger.Error("task attempt failed, run terminated", "event", "task_failed_terminal", "error", errMessage)
		return true, nil
	case 0:
		logger.Warn("fail_task no-op: run already failed", "event", "fail_noop")
		return true, nil
	default:
		return false, fmt.Errorf("fail_task returned unexpected code %d for %s[%d]", code, stepSlug, taskIndex)
	}
}
