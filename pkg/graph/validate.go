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

package graph

import (
	"fmt"
	"strings"

	dagflowerrors "github.com/ashgrove/dagflow/pkg/errors"
)

// color marks a step's state during the depth-first cycle search.
type color int

const (
	unvisited color = iota
	visiting
	visited
)

// Validate runs every check required before a run may be initialized from
// this definition: slug shape, duplicate slugs, unknown dependency
// references, the map-step single-dependency invariant, the explicit-zero
// initial-tasks rejection from the open question on zero-task non-map
// steps, and finally a depth-first cycle search.
//
// It returns the first error found; callers that want every error should
// call ValidateAll.
func (d *Definition) Validate() error {
	errs := d.ValidateAll()
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll runs every validation check and returns all failures found,
// rather than stopping at the first. Cycle detection only runs if the
// structural checks (slugs, references, dependency-count invariants) pass,
// since a DFS over an ill-formed graph can't produce a meaningful cycle
// path.
func (d *Definition) ValidateAll() []error {
	var errs []error

	if !slugPattern.MatchString(d.WorkflowSlug) || len(d.WorkflowSlug) > maxSlugLength {
		errs = append(errs, &dagflowerrors.ValidationError{
			Field:      "workflow_slug",
			Message:    fmt.Sprintf("%q does not match %s or exceeds %d characters", d.WorkflowSlug, slugPattern.String(), maxSlugLength),
			Suggestion: "use a slug matching ^[A-Za-z_][A-Za-z0-9_]*$ of at most 47 characters",
		})
	}

	seen := make(map[string]bool, len(d.Steps))
	for _, s := range d.Steps {
		if !slugPattern.MatchString(s.Slug) || len(s.Slug) > maxSlugLength {
			errs = append(errs, &dagflowerrors.ValidationError{
				Field:      "step_slug",
				Message:    fmt.Sprintf("step slug %q does not match %s or exceeds %d characters", s.Slug, slugPattern.String(), maxSlugLength),
				Suggestion: "use a slug matching ^[A-Za-z_][A-Za-z0-9_]*$ of at most 47 characters",
			})
		}
		if seen[s.Slug] {
			errs = append(errs, &dagflowerrors.ValidationError{
				Field:      "step_slug",
				Message:    fmt.Sprintf("duplicate step slug %q", s.Slug),
				Suggestion: "step slugs must be unique within a workflow",
			})
		}
		seen[s.Slug] = true
	}

	structurallyValid := true
	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			if !seen[dep] {
				errs = append(errs, &dagflowerrors.ValidationError{
					Field:      "depends_on",
					Message:    fmt.Sprintf("step %q depends on unknown step %q", s.Slug, dep),
					Suggestion: "declare the dependency as a step before referencing it",
				})
				structurallyValid = false
			}
		}
		if s.Type == StepTypeMap && len(s.DependsOn) > 1 {
			errs = append(errs, &dagflowerrors.ValidationError{
				Field:      "step_type",
				Message:    fmt.Sprintf("map step %q has %d dependencies, must have 0 or 1", s.Slug, len(s.DependsOn)),
				Suggestion: "map steps fan out over a single parent's array output; give the step at most one dependency",
			})
		}
		if s.Type == StepTypeSingle && s.InitialTasks != nil && *s.InitialTasks == 0 {
			errs = append(errs, &dagflowerrors.ValidationError{
				Field:      "initial_tasks",
				Message:    fmt.Sprintf("step %q declares initial_tasks=0 but is not the child of a map step", s.Slug),
				Suggestion: "a single step with no tasks can never start; only map steps may resolve to zero tasks, via an empty parent array",
			})
		}
	}

	if !structurallyValid {
		return errs
	}

	if cyclePath := d.findCycle(); cyclePath != nil {
		errs = append(errs, &dagflowerrors.ValidationError{
			Field:      "depends_on",
			Message:    fmt.Sprintf("cycle detected: %s", strings.Join(cyclePath, " -> ")),
			Suggestion: "remove the dependency that closes the cycle",
		})
	}

	return errs
}

// findCycle performs the depth-first, three-color search over the
// dependency edges (child depends on parent) and returns the cycle path
// if one exists, else nil. Steps are visited in definition order so the
// result is deterministic across calls.
func (d *Definition) findCycle() []string {
	colors := make(map[string]color, len(d.Steps))
	var path []string

	var visit func(slug string) []string
	visit = func(slug string) []string {
		colors[slug] = visiting
		path = append(path, slug)

		step, _ := d.StepBySlug(slug)
		for _, dep := range step.DependsOn {
			switch colors[dep] {
			case visiting:
				// Found the back-edge; report the cycle starting at dep.
				start := indexOf(path, dep)
				cycle := append([]string{}, path[start:]...)
				cycle = append(cycle, dep)
				return cycle
			case unvisited:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}

		colors[slug] = visited
		path = path[:len(path)-1]
		return nil
	}

	for _, s := range d.Steps {
		if colors[s.Slug] == unvisited {
			if cyc := visit(s.Slug); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
