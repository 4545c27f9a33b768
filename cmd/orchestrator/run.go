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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ashgrove/dagflow/pkg/engine"
	"github.com/ashgrove/dagflow/pkg/graph"
	"github.com/ashgrove/dagflow/pkg/queue"
	"github.com/ashgrove/dagflow/pkg/store/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// newRunCmd implements initialize_run from the CLI: it loads a graph file,
// validates it, persists it as the workflow's authoring-surface
// definition (so a worker polling the same slug sees the same graph), and
// starts a run.
func newRunCmd(configPath *string) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "run <graph.yaml>",
		Short: "Persist a graph and initialize a run against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &ExitError{Code: ExitInfra, Message: "reading graph file", Cause: err}
			}
			def, err := graph.ParseYAML(data)
			if err != nil {
				return &ExitError{Code: ExitValidation, Message: "parsing graph file", Cause: err}
			}
			if err := def.Validate(); err != nil {
				return &ExitError{Code: ExitValidation, Message: "graph failed validation", Cause: err}
			}

			input := json.RawMessage(`{}`)
			if inputPath != "" {
				raw, err := os.ReadFile(inputPath)
				if err != nil {
					return &ExitError{Code: ExitInfra, Message: "reading input file", Cause: err}
				}
				input = raw
			}

			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
			if err != nil {
				return &ExitError{Code: ExitInfra, Message: "connecting to postgres", Cause: err}
			}
			defer pool.Close()

			sqlxDB, err := postgres.Open(cfg.Postgres.DSN)
			if err != nil {
				return &ExitError{Code: ExitInfra, Message: "opening definition store", Cause: err}
			}
			defer sqlxDB.Close()

			defs := postgres.NewDefinitionStore(sqlxDB)
			if err := defs.PutDefinition(ctx, def); err != nil {
				return &ExitError{Code: ExitInfra, Message: "persisting graph", Cause: err}
			}

			eng := engine.New(pool, queue.NewPGMQ(pool), defs, logger, nil)
			runID, err := eng.InitializeRun(ctx, def.WorkflowSlug, input)
			if err != nil {
				return &ExitError{Code: ExitInfra, Message: "initializing run", Cause: err}
			}

			fmt.Fprintln(cmd.OutOrStdout(), runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON file used as the run's input (default: {})")
	return cmd
}
