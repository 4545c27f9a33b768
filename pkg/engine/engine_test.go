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

	"github.com/ashgrove/dagflow/pkg/graph"
)

// fakeDefs is a DefinitionLookup that always resolves to a fixed
// definition, letting InitializeRun's validation step run without a
// database round trip.
type fakeDefs struct {
	def *graph.Definition
	err error
}

func (f *fakeDefs) GetDefinition(ctx context.Context, workflowSlug string) (*graph.Definition, error) {
	return f.def, f.err
}

func linearThreeStepDefinition() *graph.Definition {
	return &graph.Definition{
		WorkflowSlug:     "linear_three_step",
		MaxAttempts:      3,
		TimeoutSeconds:   30,
		RetryBaseSeconds: 1,
		RetryCapSeconds:  3600,
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeSingle},
			{Slug: "b", Type: graph.StepTypeSingle, DependsOn: []string{"a"}},
			{Slug: "c", Type: graph.StepTypeSingle, DependsOn: []string{"b"}},
		},
	}
}
