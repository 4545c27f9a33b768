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

// Package store holds the persisted row types and the two repository
// surfaces built on them: the simpler authoring-table CRUD (workflow,
// workflow_step, workflow_step_dependencies_def) and the run-status read
// path, both over Postgres.
package store

import (
	"encoding/json"
	"time"
)

// RunStatus is the terminal/non-terminal state of a run.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// StepStatus is the per-run lifecycle state of one step.
type StepStatus string

const (
	StepCreated   StepStatus = "created"
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// TaskStatus is the lifecycle state of one step task.
type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskStarted   TaskStatus = "started"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// WorkflowDefinition is the persisted row for a workflow's defaults.
type WorkflowDefinition struct {
	Slug             string    `db:"slug"`
	MaxAttempts      int       `db:"max_attempts"`
	TimeoutSeconds   int       `db:"timeout_seconds"`
	RetryBaseSeconds int       `db:"retry_base_seconds"`
	RetryCapSeconds  int       `db:"retry_cap_seconds"`
	CreatedAt        time.Time `db:"created_at"`
}

// WorkflowStepDefinition is the persisted row for one static step.
type WorkflowStepDefinition struct {
	WorkflowSlug     string `db:"workflow_slug"`
	StepSlug         string `db:"step_slug"`
	StepType         string `db:"step_type"`
	StepIndex        int    `db:"step_index"`
	InitialTasks     *int   `db:"initial_tasks"`
	MaxAttempts      *int   `db:"max_attempts"`
	TimeoutSeconds   *int   `db:"timeout_seconds"`
	RetryBaseSeconds *int   `db:"retry_base_seconds"`
	RetryCapSeconds  *int   `db:"retry_cap_seconds"`
}

// WorkflowStepDependency is one static dependency edge.
type WorkflowStepDependency struct {
	WorkflowSlug  string `db:"workflow_slug"`
	StepSlug      string `db:"step_slug"`
	DependsOnStep string `db:"depends_on_step"`
}

// Run is the persisted row for one workflow execution.
type Run struct {
	ID             string          `db:"id"`
	WorkflowSlug   string          `db:"workflow_slug"`
	Status         RunStatus       `db:"status"`
	Input          json.RawMessage `db:"input"`
	Output         json.RawMessage `db:"output"`
	ErrorMessage   *string         `db:"error_message"`
	RemainingSteps int             `db:"remaining_steps"`
	CreatedAt      time.Time       `db:"created_at"`
	StartedAt      *time.Time      `db:"started_at"`
	CompletedAt    *time.Time      `db:"completed_at"`
	FailedAt       *time.Time      `db:"failed_at"`
}

// Progress summarizes how far a run has advanced.
type Progress struct {
	CompletedSteps int `json:"completed_steps"`
	TotalSteps     int `json:"total_steps"`
}

// RunStatusView is the read path behind the public get_run_status API:
// status plus either output or error, plus progress.
type RunStatusView struct {
	Status       RunStatus       `json:"status"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	Progress     Progress        `json:"progress"`
}
