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
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dproject/membership/configuration"
)

const gateway = "https://gateway.pinata.cloud/ipfs/"

func testReport() Report {
	return Report{
		WorkflowID:           "wf-1",
		SenderAddress:        "0x1111111111111111111111111111111111111111",
		DateTime:             "01/02/2025 13:04:05",
		Timezone:             "UTC+7",
		Referrer:             "0x2222222222222222222222222222222222222222",
		CurrentExchangeRate:  "10",
		AdjustedExchangeRate: "9.9",
		ExchangeRateBuffer:   "0.1",
		Transactions: []Transaction{
			{Recipient: "0x3BBf139420A8Ecc2D06c64049fE6E7aE09593944", AmountPOL: "28.2828", AmountTHB: "280.00", TransactionHash: "0xaa"},
			{Recipient: "0x2222222222222222222222222222222222222222", AmountPOL: "12.1212", AmountTHB: "120.00", TransactionHash: "0xbb"},
		},
		TotalAmountPOL: "40.4040",
		TotalAmountTHB: "400",
	}
}

func TestPinata_Store(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got, _ = ioutil.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"IpfsHash":"QmHash","PinSize":10}`))
	}))
	defer srv.Close()

	p := NewPinata(configuration.Audit{Endpoint: srv.URL, JWT: "secret", Timeout: time.Second})
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	id, err := p.Store(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "QmHash", id)

	assert.Equal(t, "membership-payment-1700000000000.json", gjson.GetBytes(got, "pinataMetadata.name").String())
	content := gjson.GetBytes(got, "pinataContent")
	assert.Equal(t, "0x1111111111111111111111111111111111111111", content.Get("senderAddress").String())
	assert.Equal(t, gjson.Number, content.Get("currentExchangeRate").Type)
	assert.Equal(t, 9.9, content.Get("adjustedExchangeRate").Float())
	assert.Equal(t, "28.2828", content.Get("transactions.0.amountPOL").String())
	assert.Equal(t, "0xbb", content.Get("transactions.1.transactionHash").String())
	assert.Equal(t, "40.4040", content.Get("totalAmountPOL").String())
	assert.Equal(t, int64(400), content.Get("totalAmountTHB").Int())
}

func TestPinata_StoreFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad jwt"}`},
		{"no hash", http.StatusOK, `{}`},
		{"not json", http.StatusOK, `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewPinata(configuration.Audit{Endpoint: srv.URL, JWT: "secret", Timeout: time.Second})
			_, err := p.Store(context.Background(), testReport())
			require.Error(t, err)
		})
	}
}

func TestNewSink_DisabledWithoutJWT(t *testing.T) {
	sink := NewSink(configuration.Audit{})
	_, err := sink.Store(context.Background(), testReport())
	assert.Equal(t, ErrDisabled, err)

	_, ok := NewSink(configuration.Audit{JWT: "x"}).(*Pinata)
	assert.True(t, ok)
}

type sinkFunc func(ctx context.Context, report Report) (string, error)

func (f sinkFunc) Store(ctx context.Context, report Report) (string, error) {
	return f(ctx, report)
}

func TestRecorder_Record(t *testing.T) {
	log := logrus.New()

	ok := NewRecorder(sinkFunc(func(context.Context, Report) (string, error) {
		return "QmHash", nil
	}), gateway, log)
	assert.Equal(t, gateway+"QmHash", ok.Record(context.Background(), testReport()))

	failing := NewRecorder(sinkFunc(func(context.Context, Report) (string, error) {
		return "", errors.New("boom")
	}), gateway, log)
	assert.Equal(t, Unavailable, failing.Record(context.Background(), testReport()))

	empty := NewRecorder(sinkFunc(func(context.Context, Report) (string, error) {
		return "", nil
	}), gateway, log)
	assert.Equal(t, Unavailable, empty.Record(context.Background(), testReport()))

	panicking := NewRecorder(sinkFunc(func(context.Context, Report) (string, error) {
		panic("sink exploded")
	}), gateway, log)
	assert.Equal(t, Unavailable, panicking.Record(context.Background(), testReport()))

	disabled := NewRecorder(Disabled{}, gateway, log)
	assert.Equal(t, Unavailable, disabled.Record(context.Background(), testReport()))
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2025, time.February, 1, 20, 4, 5, 0, time.UTC)
	assert.Equal(t, "02/02/2025 03:04:05", FormatDateTime(ts, Zone(7)))
	assert.Equal(t, "UTC+7", ZoneName(7))
	assert.Equal(t, "UTC-3", ZoneName(-3))
	assert.Equal(t, "UTC", ZoneName(0))
}

func TestReport_JSONKeys(t *testing.T) {
	data, err := json.Marshal(testReport())
	require.NoError(t, err)
	for _, key := range []string{
		"senderAddress", "dateTime", "timezone", "referrer", "currentExchangeRate",
		"adjustedExchangeRate", "exchangeRateBuffer", "transactions", "totalAmountPOL", "totalAmountTHB",
	} {
		assert.True(t, gjson.GetBytes(data, key).Exists(), key)
	}
}
