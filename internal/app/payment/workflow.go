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

package payment

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/internal/app/audit"
	"github.com/dproject/membership/internal/app/ledger"
	"github.com/dproject/membership/internal/app/oracle"
	"github.com/dproject/membership/internal/models"
)

// Snapshot is a copy of the workflow state handed to observers.
type Snapshot struct {
	ID         string
	State      State
	Request    Request
	Quote      oracle.Quote
	Amounts    Amounts
	Phase1TxID string
	Phase2TxID string
	// Last failure message, cleared on the next attempt.
	Error string
	Link  string
	PlanA *models.PlanA
}

type Observer func(Snapshot)

// Workflow is one membership payment. Amounts are fixed when it begins.
// Each phase's transfer is invoked at most until it succeeds once.
type Workflow struct {
	engine *Engine
	log    logrus.FieldLogger

	mu         sync.Mutex
	id         string
	state      State
	req        Request
	quote      oracle.Quote
	amounts    Amounts
	phase1TxID string
	phase2TxID string
	lastErr    string
	link       string
	planA      *models.PlanA
	observers  []Observer
}

func (e *Engine) NewWorkflow(req Request) *Workflow {
	id := uuid.New().String()
	return &Workflow{
		engine: e,
		id:     id,
		state:  Idle,
		req:    req,
		log:    e.log.WithField("workflow_id", id),
	}
}

func (w *Workflow) ID() string {
	return w.id
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Observe registers fn to be called after every transition.
func (w *Workflow) Observe(fn Observer) {
	w.mu.Lock()
	w.observers = append(w.observers, fn)
	w.mu.Unlock()
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Workflow) snapshot() Snapshot {
	var planA *models.PlanA
	if w.planA != nil {
		p := *w.planA
		planA = &p
	}
	return Snapshot{
		ID:         w.id,
		State:      w.state,
		Request:    w.req,
		Quote:      w.quote,
		Amounts:    w.amounts.copy(),
		Phase1TxID: w.phase1TxID,
		Phase2TxID: w.phase2TxID,
		Error:      w.lastErr,
		Link:       w.link,
		PlanA:      planA,
	}
}

// setState must be called with mu held. It returns the notification to run after unlock.
func (w *Workflow) setState(s State) func() {
	w.state = s
	snap := w.snapshot()
	observers := append([]Observer(nil), w.observers...)
	w.log.WithField("state", s.String()).Debug("workflow transition")
	return func() {
		for _, fn := range observers {
			fn(snap)
		}
	}
}

// Begin checks membership, the referrer and the rate, then sizes the payment.
// Failed checks leave the workflow in Idle, except an existing membership
// which ends it in AlreadyMember. No transfer happens here.
func (w *Workflow) Begin(ctx context.Context) error {
	e := w.engine

	w.mu.Lock()
	if w.state != Idle {
		defer w.mu.Unlock()
		return invalidTransition("begin", w.state)
	}
	req, err := e.normalize(w.req)
	if err != nil {
		w.lastErr = err.Error()
		w.mu.Unlock()
		return err
	}
	w.req = req
	w.mu.Unlock()

	log := w.log.WithFields(logrus.Fields{"wallet": req.Wallet, "referrer": req.Referrer})

	isMember, err := e.store.IsMember(ctx, req.Wallet)
	if err != nil {
		return w.failBegin(errors.Wrap(err, "failed to check membership"))
	}
	if isMember {
		e.metrics.AlreadyMember.Inc()
		log.Info("wallet is already a member")
		w.mu.Lock()
		notify := w.setState(AlreadyMember)
		w.mu.Unlock()
		notify()
		return ErrAlreadyMember
	}

	quote, err := e.rates.Rate(ctx)
	if err != nil {
		return w.failBegin(precondition("rate is unavailable: %v", err))
	}
	amounts, err := Split(e.cfg.Fee, quote.Adjusted, e.cfg.PlatformShare, e.cfg.Decimals)
	if err != nil {
		return w.failBegin(err)
	}
	if quote.Degraded {
		log.WithField("rate", quote.Raw.String()).Warn("payment sized with fallback rate")
	}

	w.mu.Lock()
	if w.state != Idle {
		defer w.mu.Unlock()
		return invalidTransition("begin", w.state)
	}
	w.quote = quote
	w.amounts = amounts
	w.lastErr = ""
	notify := w.setState(AwaitingPhase1Confirm)
	w.mu.Unlock()
	notify()

	e.metrics.Started.Inc()
	log.WithFields(logrus.Fields{
		"rate":   quote.Adjusted.String(),
		"total":  amounts.Total.String(),
		"phase1": amounts.Phase1.String(),
		"phase2": amounts.Phase2.String(),
	}).Info("payment workflow started")
	return nil
}

func (w *Workflow) failBegin(err error) error {
	w.mu.Lock()
	w.lastErr = err.Error()
	w.mu.Unlock()
	w.log.Warn(err)
	return err
}

// ConfirmPhase1 sends the platform share. It is rejected once phase 1 succeeded.
func (w *Workflow) ConfirmPhase1(ctx context.Context) error {
	e := w.engine

	w.mu.Lock()
	switch w.state {
	case AwaitingPhase1Confirm, Phase1Failed:
	case Phase1InFlight:
		w.mu.Unlock()
		return ErrPhaseInFlight
	default:
		defer w.mu.Unlock()
		return invalidTransition("confirm phase 1", w.state)
	}
	amount := copyInt(w.amounts.Phase1)
	w.lastErr = ""
	notify := w.setState(Phase1InFlight)
	w.mu.Unlock()
	notify()

	txID, err := e.ledger.Transfer(ctx, e.cfg.PlatformAddress, amount)

	w.mu.Lock()
	if err != nil {
		w.lastErr = err.Error()
		notify = w.setState(Phase1Failed)
		w.mu.Unlock()
		notify()

		e.metrics.Phase1Failures.Inc()
		w.log.WithField("phase", 1).Error(errors.Wrap(err, "transfer failed"))
		return &TransferError{Phase: 1, Err: err}
	}
	w.phase1TxID = txID
	notify = w.setState(Phase1Done)
	w.mu.Unlock()
	notify()

	e.metrics.Phase1Success.Inc()
	w.log.WithFields(logrus.Fields{"phase": 1, "tx_id": txID}).Info("phase 1 transfer submitted")
	return nil
}

// ConfirmPhase2 sends the referrer share, stores the audit report and
// commits the membership record exactly once.
func (w *Workflow) ConfirmPhase2(ctx context.Context) error {
	e := w.engine

	w.mu.Lock()
	switch w.state {
	case Phase1Done, Phase2Failed:
	case Phase2InFlight, Committing:
		w.mu.Unlock()
		return ErrPhaseInFlight
	default:
		defer w.mu.Unlock()
		return invalidTransition("confirm phase 2", w.state)
	}
	referrer := w.req.Referrer
	amount := copyInt(w.amounts.Phase2)
	w.lastErr = ""
	notify := w.setState(Phase2InFlight)
	w.mu.Unlock()
	notify()

	txID, err := e.ledger.Transfer(ctx, referrer, amount)

	w.mu.Lock()
	if err != nil {
		w.lastErr = err.Error()
		notify = w.setState(Phase2Failed)
		w.mu.Unlock()
		notify()

		e.metrics.Phase2Failures.Inc()
		w.log.WithField("phase", 2).Error(errors.Wrap(err, "transfer failed"))
		return &TransferError{Phase: 2, Err: err}
	}
	w.phase2TxID = txID
	notify = w.setState(Committing)
	report := w.report()
	w.mu.Unlock()
	notify()

	e.metrics.Phase2Success.Inc()
	w.log.WithFields(logrus.Fields{"phase": 2, "tx_id": txID}).Info("phase 2 transfer submitted")

	return w.commit(ctx, report)
}

func (w *Workflow) commit(ctx context.Context, report audit.Report) error {
	e := w.engine

	link := e.auditor.Record(ctx, report)
	if link == "" {
		link = audit.Unavailable
	}
	if link == audit.Unavailable {
		e.metrics.AuditFailures.Inc()
	}

	w.mu.Lock()
	w.link = link
	planA := w.buildPlanA(report.DateTime, link)
	w.planA = planA
	wallet, referrer := w.req.Wallet, w.req.Referrer
	w.mu.Unlock()

	stored := *planA
	_, err := e.store.Upsert(ctx, wallet, referrer, &stored)

	w.mu.Lock()
	if err != nil {
		w.lastErr = err.Error()
		notify := w.setState(CommitFailed)
		w.mu.Unlock()
		notify()

		e.metrics.CommitFailures.Inc()
		w.log.WithFields(logrus.Fields{
			"wallet":   wallet,
			"referrer": referrer,
			"plan_a":   planA,
			"report":   report,
		}).Error(errors.Wrap(err, "funds moved but membership was not recorded"))
		return errors.Wrap(ErrCommitFailed, err.Error())
	}
	notify := w.setState(Completed)
	w.mu.Unlock()
	notify()

	e.metrics.Commits.Inc()
	w.log.WithField("wallet", wallet).Info("membership committed")
	return nil
}

// Cancel ends the workflow before any transfer succeeded.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	if !w.state.Cancellable() {
		defer w.mu.Unlock()
		return invalidTransition("cancel", w.state)
	}
	notify := w.setState(Cancelled)
	w.mu.Unlock()
	notify()

	w.engine.metrics.Cancelled.Inc()
	w.log.Info("workflow cancelled")
	return nil
}

func (w *Workflow) amountTHB(percent int64) string {
	return w.engine.cfg.Fee.Mul(decimal.New(percent, -2)).StringFixed(2)
}

// report must be called with mu held.
func (w *Workflow) report() audit.Report {
	e := w.engine
	decimals := e.cfg.Decimals
	return audit.Report{
		WorkflowID:           w.id,
		SenderAddress:        w.req.Wallet,
		DateTime:             audit.FormatDateTime(e.now(), e.cfg.Zone),
		Timezone:             e.cfg.Zone.String(),
		Referrer:             w.req.Referrer,
		CurrentExchangeRate:  json.Number(w.quote.Raw.String()),
		AdjustedExchangeRate: json.Number(w.quote.Adjusted.String()),
		ExchangeRateBuffer:   json.Number(w.quote.Buffer.String()),
		Transactions: []audit.Transaction{
			{
				Recipient:       e.cfg.PlatformAddress,
				AmountPOL:       ledger.FormatUnits(w.amounts.Phase1, decimals, amountPlaces),
				AmountTHB:       w.amountTHB(e.cfg.PlatformShare),
				TransactionHash: w.phase1TxID,
			},
			{
				Recipient:       w.req.Referrer,
				AmountPOL:       ledger.FormatUnits(w.amounts.Phase2, decimals, amountPlaces),
				AmountTHB:       w.amountTHB(100 - e.cfg.PlatformShare),
				TransactionHash: w.phase2TxID,
			},
		},
		TotalAmountPOL: ledger.FormatUnits(w.amounts.Total, decimals, amountPlaces),
		TotalAmountTHB: json.Number(e.cfg.Fee.String()),
	}
}

// buildPlanA must be called with mu held.
func (w *Workflow) buildPlanA(dateTime, link string) *models.PlanA {
	decimals := w.engine.cfg.Decimals
	return &models.PlanA{
		DateTime:      dateTime,
		POL:           ledger.FormatUnits(w.amounts.Total, decimals, amountPlaces),
		RateTHBPOL:    w.quote.Adjusted.StringFixed(amountPlaces),
		SeventyPOL:    ledger.FormatUnits(w.amounts.Phase1, decimals, amountPlaces),
		ThirtyPOL:     ledger.FormatUnits(w.amounts.Phase2, decimals, amountPlaces),
		SeventyTxHash: w.phase1TxID,
		ThirtyTxHash:  w.phase2TxID,
		LinkIPFS:      link,
	}
}
