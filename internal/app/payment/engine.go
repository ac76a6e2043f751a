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
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/internal/app/audit"
	"github.com/dproject/membership/internal/app/ledger"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/app/oracle"
	"github.com/dproject/membership/observability"
)

// Auditor records completed payments and returns a link to the record,
// or a placeholder when it could not be stored.
type Auditor interface {
	Record(ctx context.Context, report audit.Report) string
}

type Config struct {
	Fee             decimal.Decimal
	PlatformAddress string
	// Percent of the total sent to the platform in phase 1.
	PlatformShare int64
	Decimals      int32
	Zone          *time.Location
}

func ConfigFrom(pay configuration.Payment, decimals int32) Config {
	return Config{
		Fee:             decimal.NewFromInt(pay.FeeTHB),
		PlatformAddress: pay.PlatformAddress,
		PlatformShare:   pay.PlatformShare,
		Decimals:        decimals,
		Zone:            audit.Zone(pay.ReportZoneOffset),
	}
}

// Engine creates payment workflows sharing one set of collaborators.
type Engine struct {
	cfg     Config
	rates   oracle.RateSource
	ledger  ledger.Client
	store   membership.Store
	auditor Auditor

	log     logrus.FieldLogger
	metrics *observability.PaymentMetrics
	now     func() time.Time
}

func NewEngine(
	cfg Config,
	rates oracle.RateSource,
	ledgerClient ledger.Client,
	store membership.Store,
	auditor Auditor,
	obs *observability.Observability,
) *Engine {
	if cfg.Zone == nil {
		cfg.Zone = time.UTC
	}
	return &Engine{
		cfg:     cfg,
		rates:   rates,
		ledger:  ledgerClient,
		store:   store,
		auditor: auditor,
		log:     obs.Log().WithField("component", "payment"),
		metrics: observability.MakePaymentMetrics(obs),
		now:     time.Now,
	}
}

// Request is the workflow context collected before payment.
type Request struct {
	// Paying wallet. Defaults to the ledger sender.
	Wallet   string
	Referrer string
	// Package is shown to the user only. The fee does not depend on it.
	Package string

	ReferrerEmail string
	ReferrerName  string
}

func (e *Engine) Sender() string {
	return e.ledger.Sender()
}

func (e *Engine) normalize(req Request) (Request, error) {
	sender := e.ledger.Sender()
	req.Wallet = strings.TrimSpace(req.Wallet)
	req.Referrer = strings.TrimSpace(req.Referrer)
	if req.Wallet == "" {
		req.Wallet = sender
	}
	if !strings.EqualFold(req.Wallet, sender) {
		return req, precondition("wallet %s does not match ledger sender %s", req.Wallet, sender)
	}
	if req.Referrer == "" {
		return req, precondition("referrer is required")
	}
	if !ledger.IsAddress(req.Referrer) {
		return req, precondition("invalid referrer address %q", req.Referrer)
	}
	if strings.EqualFold(req.Referrer, req.Wallet) {
		return req, precondition("wallet can not refer itself")
	}
	return req, nil
}
