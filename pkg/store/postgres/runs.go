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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashgrove/dagflow/pkg/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunStore answers read-path queries about run progress. It goes straight
// through pgxpool rather than sqlx: the coordination primitives that mutate
// these rows already live in pgx-land (pkg/engine), and a second pool type
// here would buy nothing.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore wraps an existing connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// ErrRunNotFound is returned when no run exists with the given id.
var ErrRunNotFound = errors.New("run not found")

// GetRunStatus reports a run's status, output or error, and step progress.
// Completed steps come from the maintained remaining_steps counter; the
// total is a count of the run's step_state rows.
func (s *RunStore) GetRunStatus(ctx context.Context, runID string) (*store.RunStatusView, error) {
	var (
		view           store.RunStatusView
		totalSteps     int
		remainingSteps int
		errMsg         *string
	)

	row := s.pool.QueryRow(ctx, `
		SELECT r.status, r.output, r.error_message, r.remaining_steps,
		       (SELECT count(*) FROM step_state ss WHERE ss.run_id = r.id) AS total_steps
		FROM run r
		WHERE r.id = $1
	`, runID)

	if err := row.Scan(&view.Status, &view.Output, &errMsg, &remainingSteps, &totalSteps); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}

	if errMsg != nil {
		view.ErrorMessage = *errMsg
	}
	view.Progress = store.Progress{
		CompletedSteps: totalSteps - remainingSteps,
		TotalSteps:     totalSteps,
	}
	return &view, nil
}

// GetRun loads the full run row, for callers needing more than the public
// status view (e.g. re-driving a step function with the original input).
func (s *RunStore) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	var run store.Run
	row := s.pool.QueryRow(ctx, `
		SELECT id, workflow_slug, status, input, output, error_message,
		       remaining_steps, created_at, started_at, completed_at, failed_at
		FROM run
		WHERE id = $1
	`, runID)

	err := row.Scan(
		&run.ID, &run.WorkflowSlug, &run.Status, &run.Input, &run.Output, &run.ErrorMessage,
		&run.RemainingSteps, &run.CreatedAt, &run.StartedAt, &run.CompletedAt, &run.FailedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	return &run, nil
}
