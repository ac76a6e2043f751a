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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dproject/membership/internal/app/ledger"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/app/payment"
)

// Packages are display only. The fee is the same for all of them.
var packages = map[string]string{
	"400": "Basic membership",
	"800": "Upstar membership",
}

type payOptions struct {
	referrer string
	pkg      string
	yes      bool
}

func (a *App) payCommand() *cobra.Command {
	opts := &payOptions{}
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay the membership fee: platform share first, then the referrer share",
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
			return a.runPay(ctx, deps, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.referrer, "referrer", "r", "", "wallet address of the referrer (required)")
	cmd.Flags().StringVarP(&opts.pkg, "package", "p", "400", "membership package: 400 or 800")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "confirm the first attempt of each phase without asking")
	_ = cmd.MarkFlagRequired("referrer")
	return cmd
}

func (a *App) runPay(ctx context.Context, deps *Deps, opts *payOptions) error {
	out := a.Out
	decimals := deps.Config.Ledger.Decimals

	pkgName, ok := packages[opts.pkg]
	if !ok {
		return errors.Errorf("unknown package %q", opts.pkg)
	}

	referrer := strings.TrimSpace(opts.referrer)
	info, err := deps.Directory.Referrer(ctx, referrer)
	if membership.IsNotFound(err) {
		return errors.Errorf("referrer %s is not registered", referrer)
	}
	if err != nil {
		return errors.Wrap(err, "failed to look up referrer")
	}
	if !info.IsMember && !info.IsRoot {
		return errors.Errorf("referrer %s has not completed membership payment", referrer)
	}

	fmt.Fprintf(out, "Wallet:    %s\n", deps.Ledger.Sender())
	if balance, err := deps.Ledger.Balance(ctx); err == nil {
		fmt.Fprintf(out, "Balance:   %s POL\n", ledger.FormatUnits(balance, decimals, 4))
	} else {
		fmt.Fprintf(out, "Balance:   unavailable (%v)\n", err)
	}
	fmt.Fprintf(out, "Package:   %s (%s)\n", opts.pkg, pkgName)
	fmt.Fprintf(out, "Referrer:  %s%s\n", info.UserID, describe(info))

	wf := deps.Engine.NewWorkflow(payment.Request{
		Referrer:      info.UserID,
		Package:       opts.pkg,
		ReferrerEmail: deref(info.Email),
		ReferrerName:  deref(info.Name),
	})
	if err := wf.Begin(ctx); err != nil {
		if errors.Cause(err) == payment.ErrAlreadyMember {
			fmt.Fprintln(out, "This wallet is already a member. Nothing to pay.")
			return nil
		}
		return err
	}

	snap := wf.Snapshot()
	if snap.Quote.Degraded {
		fmt.Fprintln(out, "WARNING: live price feeds are unavailable, the fallback rate is used.")
	}
	fmt.Fprintf(out, "Rate:      %s THB/POL (buffer %s, used %s)\n",
		snap.Quote.Raw.StringFixed(4), snap.Quote.Buffer.String(), snap.Quote.Adjusted.StringFixed(4))
	fmt.Fprintf(out, "Total:     %s POL\n", ledger.FormatUnits(snap.Amounts.Total, decimals, 4))
	fmt.Fprintf(out, "Phase 1:   %s POL to platform %s\n", ledger.FormatUnits(snap.Amounts.Phase1, decimals, 4), deps.Config.Payment.PlatformAddress)
	fmt.Fprintf(out, "Phase 2:   %s POL to referrer %s\n", ledger.FormatUnits(snap.Amounts.Phase2, decimals, 4), info.UserID)

	p := newPrompter(a.In, out, opts.yes)

	var failed error
	for {
		ok, err := p.confirm("Send phase 1?", failed != nil)
		if err != nil || !ok {
			if cerr := wf.Cancel(); cerr != nil {
				return cerr
			}
			fmt.Fprintln(out, "Payment cancelled. No funds were moved.")
			if err == io.EOF {
				return failed
			}
			return err
		}
		err = wf.ConfirmPhase1(ctx)
		if err == nil {
			fmt.Fprintf(out, "Phase 1 sent: %s\n", wf.Snapshot().Phase1TxID)
			break
		}
		if _, isTransfer := payment.IsTransferError(err); !isTransfer {
			return err
		}
		failed = err
		fmt.Fprintf(out, "Phase 1 failed: %v\n", err)
	}

	failed = nil
	for {
		ok, err := p.confirm("Send phase 2?", failed != nil)
		if err != nil {
			a.printUnfinished(wf)
			return errors.Wrap(err, "phase 2 was not sent")
		}
		if !ok {
			fmt.Fprintln(out, "Phase 1 is done and can not be undone. Phase 2 completes the membership.")
			continue
		}
		err = wf.ConfirmPhase2(ctx)
		if err == nil {
			break
		}
		if _, isTransfer := payment.IsTransferError(err); isTransfer {
			failed = err
			fmt.Fprintf(out, "Phase 2 failed: %v\n", err)
			continue
		}
		if errors.Cause(err) == payment.ErrCommitFailed {
			a.printCommitFailure(wf)
		}
		return err
	}

	snap = wf.Snapshot()
	fmt.Fprintf(out, "Phase 2 sent: %s\n", snap.Phase2TxID)
	fmt.Fprintf(out, "Membership completed. Report: %s\n", snap.Link)
	return nil
}

func (a *App) printUnfinished(wf *payment.Workflow) {
	snap := wf.Snapshot()
	fmt.Fprintln(a.Out, "!!! Phase 1 was sent but phase 2 was not.")
	fmt.Fprintf(a.Out, "!!! Workflow %s, phase 1 transaction %s\n", snap.ID, snap.Phase1TxID)
	fmt.Fprintln(a.Out, "!!! Contact support to complete the membership.")
}

func (a *App) printCommitFailure(wf *payment.Workflow) {
	snap := wf.Snapshot()
	fmt.Fprintln(a.Out, "!!! Both transfers succeeded but the membership record was NOT saved.")
	fmt.Fprintln(a.Out, "!!! Do not pay again. Send the following to support:")
	data, err := json.MarshalIndent(struct {
		WorkflowID string      `json:"workflowId"`
		Wallet     string      `json:"wallet"`
		Referrer   string      `json:"referrer"`
		PlanA      interface{} `json:"plan_a"`
		Error      string      `json:"error"`
	}{snap.ID, snap.Request.Wallet, snap.Request.Referrer, snap.PlanA, snap.Error}, "", "  ")
	if err == nil {
		fmt.Fprintln(a.Out, string(data))
	}
}

func describe(info *membership.ReferrerInfo) string {
	var parts []string
	if info.Name != nil && *info.Name != "" {
		parts = append(parts, *info.Name)
	}
	if info.Email != nil && *info.Email != "" {
		parts = append(parts, *info.Email)
	}
	if info.IsRoot {
		parts = append(parts, "root")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
