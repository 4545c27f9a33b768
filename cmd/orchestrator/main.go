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

// Command orchestrator is the CLI surface for the core: validating a
// static graph, applying migrations, kicking off a run, and reading run
// status back. It never executes a step function itself; that's
// orchestratord's job once the authoring binary has registered one.
package main

import (
	"log/slog"

	"github.com/ashgrove/dagflow/internal/config"
	"github.com/ashgrove/dagflow/internal/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Postgres-backed DAG workflow orchestrator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))

	if err := root.Execute(); err != nil {
		handleExitError(err)
	}
}

// loadConfig centralizes the config.Load call every data-touching
// subcommand needs, with a consistent logger attached for their use.
func loadConfig(configPath string) (*config.Config, *slog.Logger, error) {
	logger := log.New(log.FromEnv())
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, logger, &ExitError{Code: ExitInfra, Message: "loading configuration", Cause: err}
	}
	return cfg, logger, nil
}
