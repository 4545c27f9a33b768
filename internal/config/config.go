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

// Package config loads orchestrator configuration from defaults, a YAML
// file, and environment variables, in that order of increasing
// precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	dagflowerrors "github.com/ashgrove/dagflow/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the complete orchestrator configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Postgres PostgresConfig `yaml:"postgres"`
	Worker   WorkerConfig   `yaml:"worker"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info.
	Level string `yaml:"level"`

	// Format is json or text. Default: json.
	Format string `yaml:"format"`

	// AddSource adds file:line to every log entry.
	AddSource bool `yaml:"add_source"`
}

// PostgresConfig holds the connection string the orchestrator uses for
// both the pgxpool coordination path and the sqlx definition-repository
// path.
type PostgresConfig struct {
	// DSN is a libpq connection string or URL.
	// Environment: ORCHESTRATOR_POSTGRES_DSN
	DSN string `yaml:"dsn"`

	// MaxConns bounds the pgxpool's connection count.
	MaxConns int32 `yaml:"max_conns"`
}

// WorkerConfig controls polling and concurrency for every workflow this
// process's workers serve.
type WorkerConfig struct {
	// Concurrency bounds how many tasks one worker process runs at once.
	// Environment: ORCHESTRATOR_WORKER_CONCURRENCY
	Concurrency int `yaml:"concurrency"`

	// BatchSize is the max messages requested per poll. Default: 10. A
	// value of zero or less makes the worker use Concurrency instead.
	BatchSize int `yaml:"batch_size"`

	// PollSeconds is how long a single long-poll call may block.
	PollSeconds int `yaml:"poll_seconds"`

	// VisibilityTimeoutSeconds is the default invisibility window granted
	// to a claimed message before a step-level timeout override applies.
	VisibilityTimeoutSeconds int `yaml:"visibility_timeout_seconds"`
}

// TracingConfig controls OpenTelemetry span export for run and task
// execution. Traces are off by default; the worker and engine still tag
// every span with a no-op tracer when tracing is disabled.
type TracingConfig struct {
	// Enabled turns on span export. Default: false.
	Enabled bool `yaml:"enabled"`

	// SampleRate is the fraction of traces kept, from 0.0 to 1.0.
	// Environment: ORCHESTRATOR_TRACING_SAMPLE_RATE
	SampleRate float64 `yaml:"sample_rate"`

	// Exporter is "console" or "otlp". Default: console.
	Exporter string `yaml:"exporter"`

	// OTLPEndpoint is the collector address used when Exporter is "otlp".
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// PollFor returns WorkerConfig.PollSeconds as a time.Duration.
func (w WorkerConfig) PollFor() time.Duration {
	return time.Duration(w.PollSeconds) * time.Second
}

// VisibilityTimeout returns WorkerConfig.VisibilityTimeoutSeconds as a
// time.Duration.
func (w WorkerConfig) VisibilityTimeout() time.Duration {
	return time.Duration(w.VisibilityTimeoutSeconds) * time.Second
}

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Postgres: PostgresConfig{
			DSN:      "postgres://localhost:5432/dagflow?sslmode=disable",
			MaxConns: 10,
		},
		Worker: WorkerConfig{
			Concurrency:              10,
			BatchSize:                10,
			PollSeconds:              5,
			VisibilityTimeoutSeconds: 30,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			SampleRate: 1.0,
			Exporter:   "console",
		},
	}
}

// Load reads configuration from defaults, then configPath if non-empty,
// then environment variables, in that order of increasing precedence.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &dagflowerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &dagflowerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("ORCHESTRATOR_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("ORCHESTRATOR_LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
	if val := os.Getenv("ORCHESTRATOR_POSTGRES_DSN"); val != "" {
		c.Postgres.DSN = val
	}
	if val := os.Getenv("ORCHESTRATOR_POSTGRES_MAX_CONNS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Postgres.MaxConns = int32(n)
		}
	}
	if val := os.Getenv("ORCHESTRATOR_WORKER_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Worker.Concurrency = n
		}
	}
	if val := os.Getenv("ORCHESTRATOR_WORKER_BATCH_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Worker.BatchSize = n
		}
	}
	if val := os.Getenv("ORCHESTRATOR_WORKER_POLL_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Worker.PollSeconds = n
		}
	}
	if val := os.Getenv("ORCHESTRATOR_WORKER_VISIBILITY_TIMEOUT_SECONDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Worker.VisibilityTimeoutSeconds = n
		}
	}
	if val := os.Getenv("ORCHESTRATOR_TRACING_ENABLED"); val != "" {
		c.Tracing.Enabled = val == "true" || val == "1"
	}
	if val := os.Getenv("ORCHESTRATOR_TRACING_SAMPLE_RATE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Tracing.SampleRate = f
		}
	}
	if val := os.Getenv("ORCHESTRATOR_TRACING_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Exporter = "otlp"
		c.Tracing.OTLPEndpoint = val
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return &dagflowerrors.ValidationError{
			Field:   "postgres.dsn",
			Message: "must not be empty",
		}
	}
	if c.Worker.Concurrency <= 0 {
		return &dagflowerrors.ValidationError{
			Field:   "worker.concurrency",
			Message: "must be positive",
		}
	}
	if c.Worker.PollSeconds <= 0 {
		return &dagflowerrors.ValidationError{
			Field:   "worker.poll_seconds",
			Message: "must be positive",
		}
	}
	if c.Worker.VisibilityTimeoutSeconds <= 0 {
		return &dagflowerrors.ValidationError{
			Field:   "worker.visibility_timeout_seconds",
			Message: "must be positive",
		}
	}
	return nil
}
