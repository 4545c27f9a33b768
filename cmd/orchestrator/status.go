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
	"errors"
	"fmt"

	"github.com/ashgrove/dagflow/pkg/store/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// newStatusCmd implements get_run_status: {status, output|error, progress}.
func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Print a run's status, output or error, and step progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
			if err != nil {
				return &ExitError{Code: ExitInfra, Message: "connecting to postgres", Cause: err}
			}
			defer pool.Close()

			store := postgres.NewRunStore(pool)
			view, err := store.GetRunStatus(ctx, args[0])
			if err != nil {
				if errors.Is(err, postgres.ErrRunNotFound) {
					return &ExitError{Code: ExitValidation, Message: "run not found", Cause: err}
				}
				return &ExitError{Code: ExitInfra, Message: "querying run status", Cause: err}
			}

			out, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return &ExitError{Code: ExitInfra, Message: "encoding run status", Cause: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
