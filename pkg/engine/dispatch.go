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
	"time"
)

// ClaimedTask is one step-task a worker has successfully claimed, with its
// resolved input (the run's input merged with its dependencies' outputs).
type ClaimedTask struct {
	RunID     string
	StepSlug  string
	TaskIndex int
	Input     json.RawMessage
	MessageID int64
}

// Poll long-polls the named workflow's queue and claims every message it
// receives via start_tasks, in one round trip per batch. A message that
// start_tasks doesn't return (already claimed by a racing worker, or
// belonging to a task already completed/failed) is simply absent from the
// result; the caller does not need to reconcile counts.
func (e *Engine) Poll(ctx context.Context, workerID, workflowSlug string, visibilityTimeout time.Duration, maxMessages int, pollFor time.Duration) ([]ClaimedTask, error) {
	messages, err := e.queue.ReadWithPoll(ctx, workflowSlug, visibilityTimeout, maxMessages, pollFor)
	if err != nil {
		return nil, fmt.Errorf("polling queue %s: %w", workflowSlug, err)
	}
	if len(messages) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	rows, err := e.pool.Query(ctx, `
		SELECT run_id, step_slug, task_index, input, message_id
		FROM start_tasks($1, $2, $3)
	`, workflowSlug, ids, workerID)
	if err != nil {
		return nil, fmt.Errorf("claiming tasks for %s: %w", workflowSlug, err)
	}
	defer rows.Close()

	var claimed []ClaimedTask
	for rows.Next() {
		var t ClaimedTask
		if err := rows.Scan(&t.RunID, &t.StepSlug, &t.TaskIndex, &t.Input, &t.MessageID); err != nil {
			return nil, fmt.Errorf("scanning claimed task: %w", err)
		}
		claimed = append(claimed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading claimed tasks for %s: %w", workflowSlug, err)
	}
	return claimed, nil
}
