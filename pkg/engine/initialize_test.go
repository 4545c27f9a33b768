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
	"regexp"
	"testing"

	"github.com/ashgrove/dagflow/pkg/graph"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_InitializeRun_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	const wantRunID = "0199a000-0000-7000-8000-000000000001"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT initialize_run($1, $2, $3)")).
		WithArgs(pgxmock.AnyArg(), "linear_three_step", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"initialize_run"}).AddRow(wantRunID))

	e := newEngine(mock, nil, &fakeDefs{def: linearThreeStepDefinition()}, nil, nil)

	runID, err := e.InitializeRun(context.Background(), "linear_three_step", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, wantRunID, runID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_InitializeRun_ValidationFailureNeverTouchesDatabase(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	invalid := &graph.Definition{
		WorkflowSlug: "linear_three_step",
		Steps: []graph.Step{
			{Slug: "a", Type: graph.StepTypeMap, DependsOn: []string{"b", "c"}},
			{Slug: "b", Type: graph.StepTypeSingle},
			{Slug: "c", Type: graph.StepTypeSingle},
		},
	}

	e := newEngine(mock, nil, &fakeDefs{def: invalid}, nil, nil)

	_, err = e.InitializeRun(context.Background(), "linear_three_step", []byte(`{}`))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "no query should have been issued")
}

func TestEngine_InitializeRun_PropagatesQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT initialize_run($1, $2, $3)")).
		WithArgs(pgxmock.AnyArg(), "linear_three_step", pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	e := newEngine(mock, nil, &fakeDefs{def: linearThreeStepDefinition()}, nil, nil)

	_, err = e.InitializeRun(context.Background(), "linear_three_step", []byte(`{}`))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
