//
// Copyright 2026 The Membership Authors
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
//

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) rateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "Show the current THB/POL rate used for payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			deps, err := a.deps(ctx)
			if err != nil {
				return err
			}
			if deps.Close != nil {
				defer deps.Close()
			}
			return a.runRate(ctx, deps)
		},
	}
}

func (a *App) runRate(ctx context.Context, deps *Deps) error {
	q, err := deps.Rates.Rate(ctx)
	if err != nil {
		return err
	}
	if q.Degraded {
		fmt.Fprintln(a.Out, "WARNING: live price feeds are unavailable, the fallback rate is used.")
	}
	fmt.Fprintf(a.Out, "Source:    %s\n", q.Source)
	fmt.Fprintf(a.Out, "Rate:      %s THB/POL\n", q.Raw.StringFixed(4))
	fmt.Fprintf(a.Out, "Adjusted:  %s THB/POL (buffer %s)\n", q.Adjusted.StringFixed(4), q.Buffer.String())
	return nil
}
