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

// Package postgres implements pkg/store's repositories against Postgres.
// Definitions (the static authoring surface) go through sqlx over
// database/sql for straightforward CRUD; the transactional coordination
// primitives live in pkg/engine and go through pgxpool directly.
package postgres

import (
	"context"
	"fmt"

	"github.com/ashgrove/dagflow/pkg/graph"
	"github.com/ashgrove/dagflow/pkg/store"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// DefinitionStore persists and loads static workflow graphs.
type DefinitionStore struct {
	db *sqlx.DB
}

// NewDefinitionStore wraps an existing sqlx handle opened with the "pgx"
// driver name.
func NewDefinitionStore(db *sqlx.DB) *DefinitionStore {
	return &DefinitionStore{db: db}
}

// Open opens a new sqlx.DB against dsn using the pgx stdlib driver.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return db, nil
}

// PutDefinition persists a validated graph.Definition into the
// workflow/workflow_step/workflow_step_dependencies_def tables, replacing
// any existing definition of the same slug. The caller must have already
// called Definition.Validate.
func (s *DefinitionStore) PutDefinition(ctx context.Context, def *graph.Definition) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning definition transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow (slug, max_attempts, timeout_seconds, retry_base_seconds, retry_cap_seconds)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE SET
			max_attempts = EXCLUDED.max_attempts,
			timeout_seconds = EXCLUDED.timeout_seconds,
			retry_base_seconds = EXCLUDED.retry_base_seconds,
			retry_cap_seconds = EXCLUDED.retry_cap_seconds
	`, def.WorkflowSlug, def.MaxAttempts, def.TimeoutSeconds, def.RetryBaseSeconds, def.RetryCapSeconds)
	if err != nil {
		return fmt.Errorf("upserting workflow %s: %w", def.WorkflowSlug, err)
	}

	// A workflow's steps/edges are replaced wholesale; partial-graph
	// updates aren't part of the authoring surface this core exposes.
	_, err = tx.ExecContext(ctx, `DELETE FROM workflow_step WHERE workflow_slug = $1`, def.WorkflowSlug)
	if err != nil {
		return fmt.Errorf("clearing existing steps for %s: %w", def.WorkflowSlug, err)
	}

	for i, step := range def.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_step
				(workflow_slug, step_slug, step_type, step_index, initial_tasks, max_attempts, timeout_seconds, retry_base_seconds, retry_cap_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, def.WorkflowSlug, step.Slug, string(step.Type), i, step.InitialTasks, step.MaxAttempts, step.TimeoutSeconds, step.RetryBaseSeconds, step.RetryCapSeconds)
		if err != nil {
			return fmt.Errorf("inserting step %s: %w", step.Slug, err)
		}

		for _, dep := range step.DependsOn {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO workflow_step_dependencies_def (workflow_slug, step_slug, depends_on_step)
				VALUES ($1, $2, $3)
			`, def.WorkflowSlug, step.Slug, dep)
			if err != nil {
				return fmt.Errorf("inserting dependency %s->%s: %w", step.Slug, dep, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing definition for %s: %w", def.WorkflowSlug, err)
	}
	return nil
}

// GetDefinition loads a workflow's static graph back into a
// graph.Definition, in step_index order.
func (s *DefinitionStore) GetDefinition(ctx context.Context, workflowSlug string) (*graph.Definition, error) {
	var wf store.WorkflowDefinition
	if err := s.db.GetContext(ctx, &wf, `SELECT * FROM workflow WHERE slug = $1`, workflowSlug); err != nil {
		return nil, fmt.Errorf("loading workflow %s: %w", workflowSlug, err)
	}

	var steps []store.WorkflowStepDefinition
	if err := s.db.SelectContext(ctx, &steps, `
		SELECT * FROM workflow_step WHERE workflow_slug = $1 ORDER BY step_index
	`, workflowSlug); err != nil {
		return nil, fmt.Errorf("loading steps for %s: %w", workflowSlug, err)
	}

	var deps []store.WorkflowStepDependency
	if err := s.db.SelectContext(ctx, &deps, `
		SELECT * FROM workflow_step_dependencies_def WHERE workflow_slug = $1
	`, workflowSlug); err != nil {
		return nil, fmt.Errorf("loading dependencies for %s: %w", workflowSlug, err)
	}

	depsByStep := make(map[string][]string, len(steps))
	for _, d := range deps {
		depsByStep[d.StepSlug] = append(depsByStep[d.StepSlug], d.DependsOnStep)
	}

	def := &graph.Definition{
		WorkflowSlug:     wf.Slug,
		MaxAttempts:      wf.MaxAttempts,
		TimeoutSeconds:   wf.TimeoutSeconds,
		RetryBaseSeconds: wf.RetryBaseSeconds,
		RetryCapSeconds:  wf.RetryCapSeconds,
	}
	for _, s := range steps {
		def.Steps = append(def.Steps, graph.Step{
			Slug:             s.StepSlug,
			Type:             graph.StepType(s.StepType),
			DependsOn:        depsByStep[s.StepSlug],
			InitialTasks:     s.InitialTasks,
			MaxAttempts:      s.MaxAttempts,
			TimeoutSeconds:   s.TimeoutSeconds,
			RetryBaseSeconds: s.RetryBaseSeconds,
			RetryCapSeconds:  s.RetryCapSeconds,
		})
	}
	return def, nil
}
