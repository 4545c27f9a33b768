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

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_FailTask_RetryScheduled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT fail_task($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs("run-1", "flaky", 0, "boom", 1, 3600, true).
		WillReturnRows(pgxmock.NewRows([]string{"fail_task"}).AddRow(1))

	e := newEngine(mock, nil, nil, nil, nil)

	terminal, err := e.FailTask(context.Background(), "run-1", "flaky", 0, "boom", true, 1, 3600)
	require.NoError(t, err)
	assert.False(t, terminal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_FailTask_TerminalOnAttemptsExhausted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT fail_task($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs("run-1", "flaky", 0, "boom", 1, 3600, true).
		WillReturnRows(pgxmock.NewRows([]string{"fail_task"}).AddRow(2))

	e := newEngine(mock, nil, nil, nil, nil)

	terminal, err := e.FailTask(context.Background(), "run-1", "flaky", 0, "boom", true, 1, 3600)
	require.NoError(t, err)
	assert.True(t, terminal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_FailTask_NonRetryableForcesTerminalRegardlessOfAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// retryable=false is passed straight through; fail_task itself (not
	// this façade) is what decides the attempts_count check no longer
	// matters, so the assertion here is simply that the flag reaches the
	// SQL call and the 2 (terminal) code is honored.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT fail_task($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs("run-1", "flaky", 0, "unrecoverable", 1, 3600, false).
		WillReturnRows(pgxmock.NewRows([]string{"fail_task"}).AddRow(2))

	e := newEngine(mock, nil, nil, nil, nil)

	terminal, err := e.FailTask(context.Background(), "run-1", "flaky", 0, "unrecoverable", false, 1, 3600)
	require.NoError(t, err)
	assert.True(t, terminal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_FailTask_GuardWhenRunAlreadyFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT fail_task($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs("run-1", "flaky", 0, "boom", 1, 3600, true).
		WillReturnRows(pgxmock.NewRows([]string{"fail_task"}).AddRow(0))

	e := newEngine(mock, nil, nil, nil, nil)

	terminal, err := e.FailTask(context.Background(), "run-1", "flaky", 0, "boom", true, 1, 3600)
	require.NoError(t, err)
	assert.True(t, terminal, "guard code is reported as already-terminal to the caller")
	require.NoError(t, mock.ExpectationsWereMet())
}
