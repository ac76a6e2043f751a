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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dproject/membership/internal/app/membership"
)

func (a *App) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [wallet]",
		Short: "Show membership and bonus status of a wallet, the ledger sender by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			wallet := ""
			if len(args) > 0 {
				wallet = args[0]
			}
			return a.runStatus(ctx, deps, wallet)
		},
	}
}

func (a *App) runStatus(ctx context.Context, deps *Deps, wallet string) error {
	if wallet == "" {
		wallet = deps.Ledger.Sender()
	}
	user, err := deps.Directory.Get(ctx, wallet)
	if membership.IsNotFound(err) {
		fmt.Fprintf(a.Out, "%s is not registered\n", wallet)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to load membership")
	}

	fmt.Fprintf(a.Out, "Wallet:    %s\n", user.UserID)
	if ref := user.Referrer(); ref != "" {
		fmt.Fprintf(a.Out, "Referrer:  %s\n", ref)
	}
	if !user.IsMember() {
		fmt.Fprintln(a.Out, "Member:    no")
		return nil
	}
	fmt.Fprintln(a.Out, "Member:    yes")
	fmt.Fprintf(a.Out, "Paid:      %s POL at %s THB/POL on %s\n", user.PlanA.POL, user.PlanA.RateTHBPOL, user.PlanA.DateTime)
	fmt.Fprintf(a.Out, "Report:    %s\n", user.PlanA.LinkIPFS)

	summary, err := deps.Directory.BonusSummary(ctx, wallet)
	if err != nil {
		return errors.Wrap(err, "failed to load bonus summary")
	}
	fmt.Fprintf(a.Out, "Bonus:     %s total, %s net over %d entries\n",
		summary.Total.StringFixed(4), summary.Net.StringFixed(4), summary.Entries)
	return nil
}
