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

	"gopkg.in/yaml.v3"
)

// yamlDefinition mirrors Definition's shape as plain YAML data: the static
// half of the authoring surface described in spec.md §6 ("Static: a
// function returning [(step_slug, step_fn, opts)]"), minus the step
// functions themselves, which the core never sees.
type yamlDefinition struct {
	WorkflowSlug     string     `yaml:"workflow_slug"`
	MaxAttempts      int        `yaml:"max_attempts"`
	TimeoutSeconds   int        `yaml:"timeout_seconds"`
	RetryBaseSeconds int        `yaml:"retry_base_seconds"`
	RetryCapSeconds  int        `yaml:"retry_cap_seconds"`
	Steps            []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Slug             string   `yaml:"slug"`
	Type             string   `yaml:"type"`
	DependsOn        []string `yaml:"depends_on"`
	InitialTasks     *int     `yaml:"initial_tasks"`
	MaxAttempts      *int     `yaml:"max_attempts"`
	TimeoutSeconds   *int     `yaml:"timeout_seconds"`
	RetryBaseSeconds *int     `yaml:"retry_base_seconds"`
	RetryCapSeconds  *int     `yaml:"retry_cap_seconds"`
}

// defaultMaxAttempts and defaultTimeoutSeconds fill a workflow-level
// default that's left at zero in the YAML; they match
// internal/migrations' column defaults so a graph file and a DB row
// loaded for the same workflow behave the same way.
const (
	defaultMaxAttempts    = 3
	defaultTimeoutSeconds = 30
	defaultRetryBase      = 1
	defaultRetryCap       = 3600
)

// ParseYAML decodes a static graph definition from YAML, the shape the
// `orchestrator validate` and `orchestrator run` CLI verbs read from disk.
func ParseYAML(data []byte) (*Definition, error) {
	var yd yamlDefinition
	if err := yaml.Unmarshal(data, &yd); err != nil {
		return nil, fmt.Errorf("parsing workflow graph: %w", err)
	}

	def := &Definition{
		WorkflowSlug:     yd.WorkflowSlug,
		MaxAttempts:      orDefault(yd.MaxAttempts, defaultMaxAttempts),
		TimeoutSeconds:   orDefault(yd.TimeoutSeconds, defaultTimeoutSeconds),
		RetryBaseSeconds: orDefault(yd.RetryBaseSeconds, defaultRetryBase),
		RetryCapSeconds:  orDefault(yd.RetryCapSeconds, defaultRetryCap),
	}
	for _, s := range yd.Steps {
		def.Steps = append(def.Steps, Step{
			Slug:             s.Slug,
			Type:             StepType(s.Type),
			DependsOn:        s.DependsOn,
			InitialTasks:     s.InitialTasks,
			MaxAttempts:      s.MaxAttempts,
			TimeoutSeconds:   s.TimeoutSeconds,
			RetryBaseSeconds: s.RetryBaseSeconds,
			RetryCapSeconds:  s.RetryCapSeconds,
		})
	}
	return def, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
