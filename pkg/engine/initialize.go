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
	"log/slog"

	"github.com/ashgrove/dagflow/internal/log"
	"github.com/ashgrove/dagflow/internal/tracing"
	dagflowerrors "github.com/ashgrove/dagflow/pkg/errors"
	"github.com/google/uuid"
)

// InitializeRun validates the named workflow's graph, creates a new run
// row and one step_state per step, and immediately starts whichever steps
// have no dependencies, all inside initialize_run's single transaction.
// It returns the new run's id.
func (e *Engine) InitializeRun(ctx context.Context, workflowSlug string, input json.RawMessage) (string, error) {
	def, err := e.defs.GetDefinition(ctx, workflowSlug)
	if err != nil {
		return "", fmt.Errorf("loading definition for %s: %w", workflowSlug, err)
	}
	if err := def.Validate(); err != nil {
		return "", fmt.Errorf("workflow %s failed validation: %w", workflowSlug, err)
	}

	runID := uuid.New().String()
	ctx, span := tracing.StartWorkflowRun(ctx, e.tracer, runID, workflowSlug)
	defer span.End()

	logger := log.WithRunContext(e.logger, runID, workflowSlug)
	logger.Info("initializing run")

	var returnedID string
	row := e.pool.QueryRow(ctx, `SELECT initialize_run($1, $2, $3)`, runID, workflowSlug, input)
	if err := row.Scan(&returnedID); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("initializing run for %s: %w", workflowSlug, err)
	}

	logger.Info("run initialized", slog.String(log.EventKey, "run_initialized"))
	return returnedID, nil
}

// GetDefinitionForValidation loads and validates a workflow's graph
// without persisting or starting a run, backing the CLI's validate verb.
func (e *Engine) GetDefinitionForValidation(ctx context.Context, workflowSlug string) error {
	def, err := e.defs.GetDefinition(ctx, workflowSlug)
	if err != nil {
		return &dagflowerrors.NotFoundError{Resource: "workflow", ID: workflowSlug}
	}
	return def.Validate()
}
