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

/*
Package tracing provides distributed tracing and metrics for run and
task execution.

It wraps the OpenTelemetry SDK behind the pkg/observability interfaces so
the engine and worker packages depend on a small tracer/span abstraction
rather than OTel directly, and it adds correlation-ID propagation for
tying a worker's logs back to the run and task a span describes.

# Overview

The tracing package supports:

  - Distributed tracing via OpenTelemetry, exported to console, OTLP
    gRPC, or OTLP HTTP
  - Prometheus metrics export for run and step counts and durations
  - Correlation ID propagation from a claimed task through its logs
  - Configurable head-based sampling, with errors always sampled
  - Run and task span creation via StartWorkflowRun and StartTask

# Quick Start

Create an OTel provider:

	cfg := tracing.Config{
	    Enabled:        true,
	    ServiceName:    "orchestratord",
	    ServiceVersion: "1.0.0",
	    Sampling: tracing.SamplingConfig{
	        Enabled: true,
	        Rate:    0.1, // 10% sampling
	    },
	}

	provider, err := tracing.NewOTelProviderWithConfig(ctx, cfg)

Get a tracer and create spans:

	tracer := provider.Tracer("worker")

	ctx, span := tracer.Start(ctx, "execute-step",
	    observability.WithAttributes(map[string]any{
	        "step.slug": stepSlug,
	    }),
	)
	defer span.End()

# Correlation IDs

Correlation IDs link a claimed task's logs back to its run:

	ctx = tracing.ToContext(ctx, tracing.NewCorrelationID())
	id := tracing.FromContext(ctx)

# Metrics Collection

	collector := provider.MetricsCollector()

	collector.RecordRunStart(ctx, runID, workflowSlug)
	collector.RecordRunComplete(ctx, runID, workflowSlug, "completed", duration)

Metrics exposed at /metrics:

  - dagflow_runs_total{workflow,status}
  - dagflow_run_duration_seconds{workflow,status}
  - dagflow_steps_total{workflow,step,status}
  - dagflow_step_duration_seconds{workflow,step,status}
  - dagflow_active_runs
  - dagflow_queue_depth

These are independent of pkg/worker's own promauto counters, which track
per-task-attempt throughput and in-flight concurrency; this package's
counters are the run- and step-level view.

# Configuration

	tracing:
	  enabled: true
	  sample_rate: 0.1
	  exporter: otlp
	  otlp_endpoint: localhost:4317

# Key Components

  - OTelProvider: OpenTelemetry SDK wrapper implementing pkg/observability.TracerProvider
  - MetricsCollector: run and step metrics recording
  - CorrelationID: request correlation across a task's log lines
  - Sampler: configurable trace sampling
  - CreateExporter / CreateExportersFromConfig: span exporters (console, OTLP gRPC, OTLP HTTP)

# Subpackages

  - export: console and OTLP span exporters, and their shared TLS config
*/
package tracing
