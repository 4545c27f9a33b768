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

// Package engine is the thin Go face of the coordination primitives that
// live as PL/pgSQL functions in internal/migrations. It never re-derives
// the locking or counter arithmetic those functions perform; its job is
// connection handling, argument marshalling, return-code translation, and
// tracing/logging around each call.
package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/ashgrove/dagflow/pkg/graph"
	"github.com/ashgrove/dagflow/pkg/queue"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
)

// pgxQuerier is the subset of *pgxpool.Pool's API the coordination
// primitives call through: one QueryRow per scalar-returning SQL function
// (initialize_run, complete_task, fail_task) and one Query for start_tasks'
// row set. Defining it as an interface lets tests substitute a pgxmock
// pool instead of a live Postgres connection; *pgxpool.Pool satisfies it
// without any wrapping.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Engine dispatches workflow runs against Postgres and a pgmq-compatible
// queue. One Engine is shared by every worker in a replica set; all of its
// methods are safe for concurrent use, since the correctness guarantees
// come from the database transactions underneath, not from in-process
// locking.
type Engine struct {
	pool   pgxQuerier
	queue  queue.Queue
	logger *slog.Logger
	tracer trace.Tracer

	// concretePool backs Pool(); nil when the Engine was built over a
	// mock querier (pgxQuerier, not *pgxpool.Pool) for testing.
	concretePool *pgxpool.Pool

	// defs resolves a workflow slug to its definition for InitializeRun
	// and GetDefinitionForValidation; it is consulted on every call, and
	// the Engine keeps no cache of its own.
	defs DefinitionLookup
}

// DefinitionLookup resolves a workflow slug to its static graph, backing
// the effective-retry/timeout lookups the dispatch and failure paths need.
// pkg/store/postgres.DefinitionStore satisfies this.
type DefinitionLookup interface {
	GetDefinition(ctx context.Context, workflowSlug string) (*graph.Definition, error)
}

// New constructs an Engine. logger and tracer may be nil, in which case a
// discarding logger and the global no-op tracer are used.
func New(pool *pgxpool.Pool, q queue.Queue, defs DefinitionLookup, logger *slog.Logger, tracer trace.Tracer) *Engine {
	e := newEngine(pool, q, defs, logger, tracer)
	e.concretePool = pool
	return e
}

// newEngine builds an Engine over any pgxQuerier, used directly by tests
// that substitute a pgxmock pool for pool.
func newEngine(pool pgxQuerier, q queue.Queue, defs DefinitionLookup, logger *slog.Logger, tracer trace.Tracer) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("dagflow/engine")
	}
	return &Engine{pool: pool, queue: q, logger: logger, tracer: tracer, defs: defs}
}

// Pool exposes the underlying connection pool for callers that need a
// repository built on the same pool (e.g. pkg/store/postgres.RunStore).
// Returns nil if the Engine was built over a mock querier.
func (e *Engine) Pool() *pgxpool.Pool {
	return e.concretePool
}
