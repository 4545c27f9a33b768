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

// Command orchestratord runs the worker loop for a single workflow: it
// applies pending migrations, then polls that workflow's queue until
// signaled to stop. Step functions are supplied by an importing package
// via worker.Registry; this binary alone has none registered, so it
// exists to document the process shape real deployments embed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashgrove/dagflow/internal/config"
	"github.com/ashgrove/dagflow/internal/log"
	"github.com/ashgrove/dagflow/internal/migrations"
	"github.com/ashgrove/dagflow/internal/tracing"
	"github.com/ashgrove/dagflow/pkg/engine"
	"github.com/ashgrove/dagflow/pkg/queue"
	"github.com/ashgrove/dagflow/pkg/store/postgres"
	"github.com/ashgrove/dagflow/pkg/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to a YAML config file")
		workflowSlug = flag.String("workflow", "", "workflow slug this worker polls (required)")
		metricsAddr  = flag.String("metrics-addr", ":9090", "address to serve /metrics on")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("orchestratord %s (commit %s)\n", version, commit)
		return
	}
	if *workflowSlug == "" {
		fmt.Fprintln(os.Stderr, "orchestratord: -workflow is required")
		os.Exit(2)
	}

	logger := log.New(log.FromEnv())
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := migrations.Up(cfg.Postgres.DSN); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	tracer := setupTracing(ctx, *workflowSlug, cfg.Tracing, logger)

	defs := postgres.NewDefinitionStore(mustOpenSQLX(cfg.Postgres.DSN, logger))
	q := queue.NewPGMQ(pool)
	eng := engine.New(pool, q, defs, logger, tracer)

	w := worker.New(eng, defs, registeredSteps(), worker.Config{
		WorkflowSlug:      *workflowSlug,
		Concurrency:       cfg.Worker.Concurrency,
		BatchSize:         cfg.Worker.BatchSize,
		PollFor:           cfg.Worker.PollFor(),
		VisibilityTimeout: cfg.Worker.VisibilityTimeout(),
	}, logger, tracer)

	go serveMetrics(*metricsAddr, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := w.Run(ctx); err != nil {
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
}

// registeredSteps is the seam where a real deployment's binary would
// import its own package of step functions and build a worker.Registry
// from them; this binary ships none.
func registeredSteps() worker.Registry {
	return worker.Registry{}
}

// setupTracing builds an OTel tracer from the worker's tracing config. When
// tracing is disabled it returns the global tracer, which defaults to a
// no-op implementation, so callers never need to nil-check the result.
func setupTracing(ctx context.Context, workflowSlug string, cfg config.TracingConfig, logger *slog.Logger) trace.Tracer {
	if !cfg.Enabled {
		return otel.Tracer("dagflow/orchestratord")
	}

	exporterCfg := tracing.ExporterConfig{Type: cfg.Exporter, Endpoint: cfg.OTLPEndpoint}
	tracingCfg := tracing.Config{
		Enabled:        true,
		ServiceName:    "orchestratord",
		ServiceVersion: version,
		Sampling: tracing.SamplingConfig{
			Enabled:            true,
			Rate:               cfg.SampleRate,
			AlwaysSampleErrors: true,
		},
		Exporters: []tracing.ExporterConfig{exporterCfg},
	}

	if _, err := tracing.NewOTelProviderWithConfig(ctx, tracingCfg); err != nil {
		logger.Error("failed to initialize tracing, continuing without it", "error", err)
		return otel.Tracer("dagflow/orchestratord")
	}

	logger.Info("tracing enabled", "workflow", workflowSlug, "exporter", cfg.Exporter)
	return otel.Tracer("dagflow/orchestratord")
}

func mustOpenSQLX(dsn string, logger *slog.Logger) *sqlx.DB {
	db, err := postgres.Open(dsn)
	if err != nil {
		logger.Error("failed to open sqlx connection", "error", err)
		os.Exit(1)
	}
	return db
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", "error", err)
	}
}
