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

// Package graph holds the static, authoring-time shape of a workflow: its
// steps, their types, and the dependency edges between them. The core
// orchestration engine never mutates a Definition; it only reads one to
// seed a run's per-run state in pkg/engine.
package graph

import (
	"regexp"
	"sort"
)

// slugPattern is the shared naming rule for workflow and step slugs. A
// workflow slug also names the queue created for it, hence the length cap.
var slugPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const maxSlugLength = 47

// StepType distinguishes a single-task step from a fan-out map step.
type StepType string

const (
	// StepTypeSingle runs exactly one task per run.
	StepTypeSingle StepType = "single"

	// StepTypeMap runs one task per element of its parent's array output.
	// A map step has at most one dependency.
	StepTypeMap StepType = "map"
)

// Step is the static definition of one node in the graph.
type Step struct {
	// Slug uniquely identifies the step within its workflow.
	Slug string

	// Type is single or map.
	Type StepType

	// DependsOn lists the slugs of steps this step depends on. Single
	// steps may list 0..N; map steps may list 0 or 1.
	DependsOn []string

	// InitialTasks overrides the default fan-out width of 1 for a single
	// step. Nil means the default. Explicitly set to 0 it is rejected by
	// Validate: a single step can never itself be the empty-array child
	// of a map parent, so a width of zero can never start (see the
	// open-question resolution in DESIGN.md). Meaningless for map steps,
	// whose width is always runtime-resolved from the parent's output.
	InitialTasks *int

	// MaxAttempts overrides the workflow default for this step.
	MaxAttempts *int

	// TimeoutSeconds overrides the workflow default for this step.
	TimeoutSeconds *int

	// RetryBaseSeconds overrides the workflow default backoff base.
	RetryBaseSeconds *int

	// RetryCapSeconds overrides the workflow default backoff cap.
	RetryCapSeconds *int
}

// Definition is the full static graph for one workflow.
type Definition struct {
	// WorkflowSlug names the workflow and its queue.
	WorkflowSlug string

	// MaxAttempts is the workflow-wide default, used when a step doesn't
	// override it.
	MaxAttempts int

	// TimeoutSeconds is the workflow-wide default per-task timeout,
	// also the visibility-timeout baseline.
	TimeoutSeconds int

	// RetryBaseSeconds is the workflow-wide default backoff base.
	RetryBaseSeconds int

	// RetryCapSeconds is the workflow-wide default backoff cap.
	RetryCapSeconds int

	// Steps holds every step, in authoring (insertion) order. Order is
	// preserved as step_index when persisted.
	Steps []Step
}

// StepBySlug returns the step with the given slug, or false if absent.
func (d *Definition) StepBySlug(slug string) (Step, bool) {
	for _, s := range d.Steps {
		if s.Slug == slug {
			return s, true
		}
	}
	return Step{}, false
}

// Dependents returns the slugs of steps that directly depend on slug, in
// the deterministic lexicographic order the completion cascade requires.
func (d *Definition) Dependents(slug string) []string {
	var out []string
	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			if dep == slug {
				out = append(out, s.Slug)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Leaves returns the slugs of steps with no dependents, in lexicographic
// order. A completed run's output is the array of these steps' outputs.
func (d *Definition) Leaves() []string {
	hasDependent := make(map[string]bool, len(d.Steps))
	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			hasDependent[dep] = true
		}
	}

	var out []string
	for _, s := range d.Steps {
		if !hasDependent[s.Slug] {
			out = append(out, s.Slug)
		}
	}
	sort.Strings(out)
	return out
}

// EffectiveMaxAttempts resolves a step's max_attempts, falling back to the
// workflow default.
func (d *Definition) EffectiveMaxAttempts(s Step) int {
	if s.MaxAttempts != nil {
		return *s.MaxAttempts
	}
	return d.MaxAttempts
}

// EffectiveTimeoutSeconds resolves a step's timeout, falling back to the
// workflow default.
func (d *Definition) EffectiveTimeoutSeconds(s Step) int {
	if s.TimeoutSeconds != nil {
		return *s.TimeoutSeconds
	}
	return d.TimeoutSeconds
}

// EffectiveRetryBaseSeconds resolves a step's backoff base, falling back
// to the workflow default.
func (d *Definition) EffectiveRetryBaseSeconds(s Step) int {
	if s.RetryBaseSeconds != nil {
		return *s.RetryBaseSeconds
	}
	return d.RetryBaseSeconds
}

// EffectiveRetryCapSeconds resolves a step's backoff cap, falling back to
// the workflow default.
func (d *Definition) EffectiveRetryCapSeconds(s Step) int {
	if s.RetryCapSeconds != nil {
		return *s.RetryCapSeconds
	}
	return d.RetryCapSeconds
}
