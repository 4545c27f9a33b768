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
	"encoding/json"
	"fmt"

	"github.com/ashgrove/dagflow/internal/log"
	dagflowerrors "github.com/ashgrove/dagflow/pkg/errors"
)

// CompleteTask records a successful task execution. The return code from
// complete_task maps directly onto this function's result:
//
//	 1 - recorded; any dependents whose last dependency this was are now
//	     started, and the run completes if this was its last step.
//	 0 - no-op; the run had already failed before this task finished.
//	-1 - the output violated a map child's declared array type; the run is
//	     now failed and a TypeViolationError is returned.
func (e *Engine) CompleteTask(ctx context.Context, runID, stepSlug string, taskIndex int, output json.RawMessage) error {
	logger := log.WithStepContext(e.logger, runID, stepSlug, taskIndex)

	var code int
	row := e.pool.QueryRow(ctx, `SELECT complete_task($1, $2, $3, $4)`, runID, stepSlug, taskIndex, output)
	if err := row.Scan(&code); err != nil {
		return fmt.Errorf("completing task %s[%d] of run %s: %w", stepSlug, taskIndex, runID, err)
	}

	switch code {
	case 1:
		logger.Info("task completed", "event", "task_completed")
		return nil
	case 0:
		logger.Warn("complete_task no-op: run already failed", "event", "complete_noop")
		return nil
	case -1:
		logger.Error("task output violated a map child's declared type", "event", "type_violation")
		return &dagflowerrors.TypeViolationError{
			StepSlug:  stepSlug,
			TaskIndex: taskIndex,
			Expected:  "array",
			Got:       "non-array",
		}
	default:
		return fmt.Errorf("complete_task returned unexpected code %d for %s[%d]", code, stepSlug, taskIndex)
	}
}
