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

// Package worker implements the poll-claim-execute-complete loop every
// orchestrator replica runs: long-poll the workflow's queue, claim whatever
// comes back via the engine, run the registered step function for each
// claimed task under its own timeout, and report completion or failure
// back through the engine. Replicas coordinate through nothing but
// Postgres and the queue; the loop itself holds no shared state.
package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashgrove/dagflow/internal/log"
	"github.com/ashgrove/dagflow/internal/tracing"
	"github.com/ashgrove/dagflow/pkg/engine"
	dagflowerrors "github.com/ashgrove/dagflow/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// dispatcher is the slice of *engine.Engine the worker loop depends on.
// Defining it here (rather than depending on the concrete type) lets
// tests drive runTask without a live Postgres connection.
type dispatcher interface {
	Poll(ctx context.Context, workerID, workflowSlug string, visibilityTimeout time.Duration, maxMessages int, pollFor time.Duration) ([]engine.ClaimedTask, error)
	CompleteTask(ctx context.Context, runID, stepSlug string, taskIndex int, output json.RawMessage) error
	FailTask(ctx context.Context, runID, stepSlug string, taskIndex int, errMessage string, retryable bool, retryBaseSeconds, retryCapSeconds int) (bool, error)
}

// StepFunc is the user-supplied body of a workflow step: given a task's
// resolved input (the run's input merged with its dependencies' outputs),
// it returns the task's output or an error. A map step's StepFunc runs
// once per element of its parent's output array; the element at
// TaskIndex is whatever the caller's harness puts in Input.
//
// An error may be a *dagflowerrors.StepError to carry an explicit
// retryable hint (spec.md §6); any other error is treated as retryable
// with no hint, per §7 taxonomy item 3.
type StepFunc func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Registry maps a step slug to the function that executes its tasks.
type Registry map[string]StepFunc

// Config controls one worker's polling and concurrency behavior.
type Config struct {
	// WorkflowSlug is the queue this worker polls.
	WorkflowSlug string

	// WorkerID identifies this worker in claimed_by and logs. Defaults to
	// a generated id if empty.
	WorkerID string

	// Concurrency bounds how many tasks this worker runs at once.
	Concurrency int

	// BatchSize is the max messages requested per poll.
	BatchSize int

	// PollFor is how long a single ReadWithPoll call may block.
	PollFor time.Duration

	// VisibilityTimeout is the default invisibility window granted to a
	// claimed message; step-level timeout overrides extend it per task
	// (see runTask).
	VisibilityTimeout time.Duration
}

// Worker runs Config.Concurrency concurrent task executions against one
// workflow's queue until its context is canceled.
type Worker struct {
	eng      dispatcher
	defs     engine.DefinitionLookup
	registry Registry
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
	sem      *semaphore.Weighted
	metrics  *metrics
}

// New constructs a Worker. logger and tracer may be nil.
func New(eng *engine.Engine, defs engine.DefinitionLookup, registry Registry, cfg Config, logger *slog.Logger, tracer trace.Tracer) *Worker {
	return newWorker(eng, defs, registry, cfg, logger, tracer)
}

func newWorker(eng dispatcher, defs engine.DefinitionLookup, registry Registry, cfg Config, logger *slog.Logger, tracer trace.Tracer) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.Concurrency
	}
	if cfg.PollFor <= 0 {
		cfg.PollFor = 5 * time.Second
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 30 * time.Second
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = fmt.Sprintf("worker-%d", time.Now().UnixNano())
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("dagflow/worker")
	}

	return &Worker{
		eng:      eng,
		defs:     defs,
		registry: registry,
		cfg:      cfg,
		logger:   log.WithWorker(logger, cfg.WorkerID),
		tracer:   tracer,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		metrics:  defaultMetrics,
	}
}

// Run polls and dispatches claimed tasks until ctx is canceled, then waits
// for in-flight tasks to finish before returning. A poll error is logged
// and retried after a short pause rather than aborting the loop; only
// context cancellation stops it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting", "workflow", w.cfg.WorkflowSlug, "concurrency", w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return w.drain()
		default:
		}

		claimed, err := w.eng.Poll(ctx, w.cfg.WorkerID, w.cfg.WorkflowSlug, w.cfg.VisibilityTimeout, w.cfg.BatchSize, w.cfg.PollFor)
		if err != nil {
			if ctx.Err() != nil {
				return w.drain()
			}
			w.logger.Error("poll failed, retrying", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return w.drain()
			}
			continue
		}

		for _, task := range claimed {
			task := task
			if err := w.sem.Acquire(ctx, 1); err != nil {
				return w.drain()
			}
			go func() {
				defer w.sem.Release(1)
				w.runTask(ctx, task)
			}()
		}
	}
}

// drain waits for every in-flight task to release the semaphore, giving
// claimed work a chance to finish (or hit its own timeout) instead of
// being abandoned mid-execution on shutdown.
func (w *Worker) drain() error {
	w.logger.Info("worker draining in-flight tasks")
	if err := w.sem.Acquire(context.Background(), int64(w.cfg.Concurrency)); err != nil {
		return fmt.Errorf("draining worker %s: %w", w.cfg.WorkerID, err)
	}
	w.sem.Release(int64(w.cfg.Concurrency))
	w.logger.Info("worker stopped")
	return nil
}

// runTask executes one claimed task's step function under its effective
// timeout and reports the outcome back through the engine. It never
// returns an error to the caller: execution failures are reported via
// FailTask/CompleteTask, not propagated, since one task's failure must
// never interrupt the worker loop.
func (w *Worker) runTask(ctx context.Context, task engine.ClaimedTask) {
	correlationID := tracing.NewCorrelationID()
	ctx = tracing.ToContext(ctx, correlationID)
	logger := log.WithCorrelationID(log.WithStepContext(w.logger, task.RunID, task.StepSlug, task.TaskIndex), correlationID.String())

	w.metrics.inFlight.WithLabelValues(w.cfg.WorkflowSlug).Inc()
	defer w.metrics.inFlight.WithLabelValues(w.cfg.WorkflowSlug).Dec()

	fn, ok := w.registry[task.StepSlug]
	if !ok {
		logger.Error("no step function registered", "event", "unregistered_step")
		w.reportFailure(ctx, task, fmt.Sprintf("no step function registered for %q", task.StepSlug), true, w.defaultRetryPolicy())
		w.metrics.tasksTotal.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug, "unregistered").Inc()
		return
	}

	timeout, retryBase, retryCap := w.effectivePolicy(ctx, task.StepSlug)

	taskCtx, span := tracing.StartTask(ctx, w.tracer, task.StepSlug, task.TaskIndex)
	defer span.End()

	execCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	start := time.Now()
	output, err := fn(execCtx, task.Input)
	elapsed := time.Since(start)
	w.metrics.taskDuration.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug).Observe(elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		logger.Warn("step function returned an error", "error", err, "duration_ms", elapsed.Milliseconds())
		w.reportFailure(ctx, task, err.Error(), isRetryable(err), retryPolicy{base: retryBase, cap: retryCap})
		w.metrics.tasksTotal.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug, "error").Inc()
		return
	}

	if execCtx.Err() != nil {
		// Timeouts are always retryable (§7 taxonomy item 5): a slow
		// attempt carries no type information about whether retrying
		// would help, so it gets the normal attempts_count treatment.
		logger.Warn("step function exceeded its timeout", "duration_ms", elapsed.Milliseconds())
		w.reportFailure(ctx, task, fmt.Sprintf("step timed out after %s", timeout), true, retryPolicy{base: retryBase, cap: retryCap})
		w.metrics.tasksTotal.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug, "timeout").Inc()
		return
	}

	if err := w.eng.CompleteTask(ctx, task.RunID, task.StepSlug, task.TaskIndex, output); err != nil {
		var typeViolation *dagflowerrors.TypeViolationError
		if stderrors.As(err, &typeViolation) {
			logger.Error("output failed the map-child type check", "error", err)
			w.metrics.tasksTotal.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug, "type_violation").Inc()
			return
		}
		logger.Error("failed to record task completion", "error", err)
		w.metrics.tasksTotal.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug, "complete_error").Inc()
		return
	}
	w.metrics.tasksTotal.WithLabelValues(w.cfg.WorkflowSlug, task.StepSlug, "completed").Inc()
}

type retryPolicy struct {
	base int
	cap  int
}

func (w *Worker) defaultRetryPolicy() retryPolicy {
	return retryPolicy{base: 1, cap: 3600}
}

// effectivePolicy resolves a step's timeout and backoff policy from its
// workflow definition, falling back to conservative defaults if the
// definition can't be loaded (which should only happen if a worker races
// a workflow deletion mid-poll).
func (w *Worker) effectivePolicy(ctx context.Context, stepSlug string) (timeout time.Duration, retryBase, retryCap int) {
	def, err := w.defs.GetDefinition(ctx, w.cfg.WorkflowSlug)
	if err != nil {
		return 30 * time.Second, 1, 3600
	}
	step, ok := def.StepBySlug(stepSlug)
	if !ok {
		return 30 * time.Second, 1, 3600
	}
	return time.Duration(def.EffectiveTimeoutSeconds(step)) * time.Second,
		def.EffectiveRetryBaseSeconds(step),
		def.EffectiveRetryCapSeconds(step)
}

func (w *Worker) reportFailure(ctx context.Context, task engine.ClaimedTask, message string, retryable bool, policy retryPolicy) {
	if _, err := w.eng.FailTask(ctx, task.RunID, task.StepSlug, task.TaskIndex, message, retryable, policy.base, policy.cap); err != nil {
		w.logger.Error("failed to record task failure", "error", err)
	}
}

// isRetryable reads the retryable hint off a *dagflowerrors.StepError, or
// an ErrorClassifier more generally; any other error defaults to
// retryable, per §7 taxonomy item 3's "no hint" rule.
func isRetryable(err error) bool {
	var classifier dagflowerrors.ErrorClassifier
	if stderrors.As(err, &classifier) {
		return classifier.IsRetryable()
	}
	return true
}
