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

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/configuration"
)

// Unavailable replaces the report link when the sink could not store it.
const Unavailable = "N/A"

const dateTimeLayout = "02/01/2006 15:04:05"

var ErrDisabled = errors.New("audit sink is disabled")

type Transaction struct {
	Recipient       string `json:"recipient"`
	AmountPOL       string `json:"amountPOL"`
	AmountTHB       string `json:"amountTHB"`
	TransactionHash string `json:"transactionHash"`
}

// Report describes one completed membership payment.
type Report struct {
	WorkflowID           string        `json:"workflowId,omitempty"`
	SenderAddress        string        `json:"senderAddress"`
	DateTime             string        `json:"dateTime"`
	Timezone             string        `json:"timezone"`
	Referrer             string        `json:"referrer"`
	CurrentExchangeRate  json.Number   `json:"currentExchangeRate"`
	AdjustedExchangeRate json.Number   `json:"adjustedExchangeRate"`
	ExchangeRateBuffer   json.Number   `json:"exchangeRateBuffer"`
	Transactions         []Transaction `json:"transactions"`
	TotalAmountPOL       string        `json:"totalAmountPOL"`
	TotalAmountTHB       json.Number   `json:"totalAmountTHB"`
}

// Sink stores a report and returns its content id.
type Sink interface {
	Store(ctx context.Context, report Report) (string, error)
}

func NewSink(cfg configuration.Audit) Sink {
	if cfg.JWT == "" {
		return Disabled{}
	}
	return NewPinata(cfg)
}

type Disabled struct{}

func (Disabled) Store(context.Context, Report) (string, error) {
	return "", ErrDisabled
}

// Zone is the fixed reporting zone for the given offset from UTC in hours.
func Zone(offsetHours int) *time.Location {
	return time.FixedZone(ZoneName(offsetHours), offsetHours*60*60)
}

func ZoneName(offsetHours int) string {
	if offsetHours == 0 {
		return "UTC"
	}
	return fmt.Sprintf("UTC%+d", offsetHours)
}

// FormatDateTime renders t as dd/mm/yyyy HH:MM:SS in loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateTimeLayout)
}

// Recorder stores reports on a best effort basis.
type Recorder struct {
	sink    Sink
	gateway string
	log     logrus.FieldLogger
}

func NewRecorder(sink Sink, gateway string, log logrus.FieldLogger) *Recorder {
	return &Recorder{
		sink:    sink,
		gateway: gateway,
		log:     log.WithField("component", "audit"),
	}
}

// Record returns the gateway link of the stored report, or Unavailable.
func (r *Recorder) Record(ctx context.Context, report Report) (link string) {
	log := r.log.WithField("workflow_id", report.WorkflowID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Warnf("audit sink panicked: %v", rec)
			link = Unavailable
		}
	}()

	id, err := r.sink.Store(ctx, report)
	if err != nil {
		log.Warn(errors.Wrap(err, "failed to store audit report"))
		return Unavailable
	}
	if id == "" {
		log.Warn("audit sink returned empty id")
		return Unavailable
	}
	log.WithField("ipfs_hash", id).Info("audit report stored")
	return r.gateway + id
}
