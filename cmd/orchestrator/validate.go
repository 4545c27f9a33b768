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
	"fmt"
	"os"

	"github.com/ashgrove/dagflow/pkg/graph"
	"github.com/spf13/cobra"
)

// newValidateCmd implements C9: it runs the depth-first cycle check and
// every structural check from graph.Definition.ValidateAll against a
// graph file, printing every failure found and exiting non-zero on the
// first one, per spec.md §6's CLI exit-code contract and §9's note to
// pick one canonical contract per SQL function — the CLI side of that is
// "report everything, exit on whether anything failed".
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph.yaml>",
		Short: "Validate a workflow graph before it is ever run",
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

			errs := def.ValidateAll()
			if len(errs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d steps\n", def.WorkflowSlug, len(def.Steps))
				return nil
			}

			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), "-", e)
			}
			return &ExitError{Code: ExitValidation, Message: fmt.Sprintf("%d validation error(s)", len(errs)), Cause: errs[0]}
		},
	}
}
