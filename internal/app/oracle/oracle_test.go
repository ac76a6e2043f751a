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

package oracle

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/observability"
)

func testObs() *observability.Observability {
	return observability.Make(configuration.Log{Level: logrus.PanicLevel.String()})
}

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(feeds ...configuration.Feed) configuration.Oracle {
	return configuration.Oracle{
		Feeds:    feeds,
		Buffer:   0.1,
		Floor:    0.01,
		Fallback: 6.31,
		Timeout:  time.Second,
		Refresh:  "@every 5m",
	}
}

func newOracle(t *testing.T, cfg configuration.Oracle) *Oracle {
	o, err := New(cfg, testObs())
	require.NoError(t, err)
	return o
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		path    string
		want    string
		wantErr bool
	}{
		{"number", `{"matic-network":{"thb":10.5}}`, "matic-network.thb", "10.5", false},
		{"string", `{"symbol":"MATICTHB","price":"18.2300"}`, "price", "18.23", false},
		{"nested key with underscore", `{"THB_MATIC":{"last":7}}`, "THB_MATIC.last", "7", false},
		{"missing", `{"price":"1"}`, "last", "", true},
		{"zero", `{"price":0}`, "price", "", true},
		{"negative", `{"price":-3}`, "price", "", true},
		{"not numeric", `{"price":"abc"}`, "price", "", true},
		{"object", `{"price":{}}`, "price", "", true},
		{"invalid json", `{"price":`, "price", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRate([]byte(tt.body), tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestAdjust(t *testing.T) {
	buffer := decimal.RequireFromString("0.1")
	floor := decimal.RequireFromString("0.01")

	assert.Equal(t, "9.9", Adjust(decimal.NewFromInt(10), buffer, floor).String())
	assert.Equal(t, "0.01", Adjust(decimal.RequireFromString("0.05"), buffer, floor).String())
	assert.Equal(t, "0.01", Adjust(decimal.RequireFromString("0.11"), buffer, floor).String())
}

func TestOracle_FirstHealthyFeedWins(t *testing.T) {
	limited := feedServer(t, http.StatusTooManyRequests, `{}`)
	broken := feedServer(t, http.StatusOK, `{"price":"nope"}`)
	good := feedServer(t, http.StatusOK, `{"price":"10"}`)
	unused := feedServer(t, http.StatusOK, `{"price":"99"}`)

	o := newOracle(t, testConfig(
		configuration.Feed{Name: "limited", URL: limited.URL, Path: "price"},
		configuration.Feed{Name: "broken", URL: broken.URL, Path: "price"},
		configuration.Feed{Name: "good", URL: good.URL, Path: "price"},
		configuration.Feed{Name: "unused", URL: unused.URL, Path: "price"},
	))

	q, err := o.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", q.Source)
	assert.False(t, q.Degraded)
	assert.Equal(t, "10", q.Raw.String())
	assert.Equal(t, "9.9", q.Adjusted.String())
	assert.Equal(t, "0.1", q.Buffer.String())
}

func TestOracle_FallbackWhenAllFeedsFail(t *testing.T) {
	down := feedServer(t, http.StatusInternalServerError, ``)
	o := newOracle(t, testConfig(
		configuration.Feed{Name: "down", URL: down.URL, Path: "price"},
		configuration.Feed{Name: "unreachable", URL: "http://127.0.0.1:1", Path: "price"},
	))

	q, err := o.Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, q.Degraded)
	assert.Equal(t, "fallback", q.Source)
	assert.Equal(t, "6.31", q.Raw.String())
	assert.Equal(t, "6.21", q.Adjusted.String())
}

func TestOracle_FeedTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)

	cfg := testConfig(configuration.Feed{Name: "slow", URL: slow.URL, Path: "price"})
	cfg.Timeout = 50 * time.Millisecond
	o := newOracle(t, cfg)

	q, err := o.Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, q.Degraded)
}

func TestOracle_CancelledContext(t *testing.T) {
	o := newOracle(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Rate(ctx)
	require.Error(t, err)
}

func TestNew_RejectsUnusableConstants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*configuration.Oracle)
	}{
		{"zero fallback", func(c *configuration.Oracle) { c.Fallback = 0 }},
		{"negative fallback", func(c *configuration.Oracle) { c.Fallback = -6.31 }},
		{"NaN fallback", func(c *configuration.Oracle) { c.Fallback = math.NaN() }},
		{"infinite fallback", func(c *configuration.Oracle) { c.Fallback = math.Inf(1) }},
		{"zero floor", func(c *configuration.Oracle) { c.Floor = 0 }},
		{"NaN floor", func(c *configuration.Oracle) { c.Floor = math.NaN() }},
		{"negative buffer", func(c *configuration.Oracle) { c.Buffer = -0.1 }},
		{"infinite buffer", func(c *configuration.Oracle) { c.Buffer = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			o, err := New(cfg, testObs())
			require.Error(t, err)
			assert.Nil(t, o)
		})
	}

	cfg := testConfig()
	cfg.Buffer = 0
	_, err := New(cfg, testObs())
	require.NoError(t, err)
}

func TestOracle_FallbackNeverBelowFloor(t *testing.T) {
	down := feedServer(t, http.StatusBadGateway, ``)
	cfg := testConfig(configuration.Feed{Name: "down", URL: down.URL, Path: "price"})
	cfg.Fallback = 0.05

	q, err := newOracle(t, cfg).Rate(context.Background())
	require.NoError(t, err)
	assert.True(t, q.Degraded)
	assert.True(t, q.Raw.IsPositive())
	assert.Equal(t, "0.01", q.Adjusted.String())
}

type countingSource struct {
	calls int32
	rate  decimal.Decimal
}

func (s *countingSource) Rate(ctx context.Context) (Quote, error) {
	atomic.AddInt32(&s.calls, 1)
	return Quote{Raw: s.rate, Adjusted: s.rate, Source: "test"}, nil
}

func TestRefresher_LatestAfterStart(t *testing.T) {
	src := &countingSource{rate: decimal.NewFromInt(5)}
	r := NewRefresher(src, "@every 1h", logrus.New())

	_, ok := r.Latest()
	assert.False(t, ok)

	require.NoError(t, r.Start(context.Background()))
	defer func() { require.NoError(t, r.Stop(context.Background())) }()

	q, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, "5", q.Raw.String())

	q, err := r.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5", q.Adjusted.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestRefresher_RateWithoutStart(t *testing.T) {
	src := &countingSource{rate: decimal.NewFromInt(3)}
	r := NewRefresher(src, "@every 1h", logrus.New())

	_, err := r.Rate(context.Background())
	require.NoError(t, err)
	_, err = r.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestRefresher_FiresOnScheduleUntilStopped(t *testing.T) {
	src := &countingSource{rate: decimal.NewFromInt(5)}
	r := NewRefresher(src, "@every 1s", logrus.New())

	require.NoError(t, r.Start(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&src.calls))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&src.calls) >= 3
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, r.Stop(context.Background()))
	stopped := atomic.LoadInt32(&src.calls)
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&src.calls))
}

func TestRefresher_BadSchedule(t *testing.T) {
	r := NewRefresher(&countingSource{}, "every now and then", logrus.New())
	require.Error(t, r.Start(context.Background()))
	require.NoError(t, r.Stop(context.Background()))
}
