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

package graph_test

import (
	"testing"

	"github.com/ashgrove/dagflow/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func linearDefinition() *graph.Definition {
	return &graph.Definition{
		WorkflowSlug: "linear_three_step",
		MaxAttempts:  3,
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle},
			{Slug: "b", Type: graph.StepTypeSingle, DependsOn: []string{"a"}},
			{Slug: "c", Type: graph.StepTypeSingle, DependsOn: []string{"b"}},
		},
	}
}

func TestValidate_Linear_OK(t *testing.T) {
	require.NoError(t, linearDefinition().Validate())
}

func TestValidate_UnknownDependency(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "bad_dep",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle, DependsOn: []string{"ghost"}},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestValidate_DuplicateSlug(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "dupes",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle},
			{Slug: "a", Type: graph.StepTypeSingle},
		},
	}
	errs := def.ValidateAll()
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Error() == `validation failed on step_slug: duplicate step slug "a"` {
			found = true
		}
	}
	assert.True(t, found, "expected duplicate slug error, got %v", errs)
}

func TestValidate_MapStepTooManyDeps(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "bad_map",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle},
			{Slug: "b", Type: graph.StepTypeSingle},
			{Slug: "m", Type: graph.StepTypeMap, DependsOn: []string{"a", "b"}},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have 0 or 1")
}

func TestValidate_ExplicitZeroInitialTasksOnNonMapChild(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "zero_tasks",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle, InitialTasks: intPtr(0)},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not the child of a map step")
}

func TestValidate_SlugShape(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "1bad",
		Steps:        []graph.Step{{Slug: "a", Type: graph.StepTypeSingle}},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow_slug")
}

func TestValidate_DirectCycle(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "cyclic",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle, DependsOn: []string{"b"}},
			{Slug: "b", Type: graph.StepTypeSingle, DependsOn: []string{"a"}},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestValidate_SelfCycle(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "self_cyclic",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle, DependsOn: []string{"a"}},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestValidate_DiamondNoFalsePositive(t *testing.T) {
	def := &graph.Definition{
		WorkflowSlug: "diamond",
		Steps: []graph.Step{
			{Slug: "root", Type: graph.StepTypeSingle},
			{Slug: "left", Type: graph.StepTypeSingle, DependsOn: []string{"root"}},
			{Slug: "right", Type: graph.StepTypeSingle, DependsOn: []string{"root"}},
			{Slug: "merge", Type: graph.StepTypeSingle, DependsOn: []string{"left", "right"}},
		},
	}
	assert.NoError(t, def.Validate())
	assert.Equal(t, []string{"merge"}, def.Leaves())
	assert.Equal(t, []string{"left", "right"}, def.Dependents("root"))
}

func TestDefinition_Leaves_Linear(t *testing.T) {
	assert.Equal(t, []string{"c"}, linearDefinition().Leaves())
}
