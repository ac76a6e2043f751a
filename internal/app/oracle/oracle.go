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
	"io"
	"io/ioutil"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/observability"
)

const maxBodySize = 1 << 20

var ErrRateLimited = errors.New("feed request limits are exceeded")

// Quote is a fiat/token conversion rate. Adjusted is what payments are sized with.
type Quote struct {
	Raw       decimal.Decimal `json:"rate"`
	Adjusted  decimal.Decimal `json:"adjustedRate"`
	Buffer    decimal.Decimal `json:"buffer"`
	Degraded  bool            `json:"degraded"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// RateSource yields a usable quote. An error is returned only when ctx is done.
type RateSource interface {
	Rate(ctx context.Context) (Quote, error)
}

type Feed struct {
	Name string
	URL  string
	Path string
}

type Oracle struct {
	feeds    []Feed
	buffer   decimal.Decimal
	floor    decimal.Decimal
	fallback decimal.Decimal

	http    *http.Client
	log     logrus.FieldLogger
	metrics *observability.OracleMetrics
	now     func() time.Time
}

// New checks the rate constants so that any quote it serves is positive and finite.
func New(cfg configuration.Oracle, obs *observability.Observability) (*Oracle, error) {
	if err := checkConstants(cfg); err != nil {
		return nil, err
	}
	feeds := make([]Feed, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, Feed{Name: f.Name, URL: f.URL, Path: f.Path})
	}
	return &Oracle{
		feeds:    feeds,
		buffer:   decimal.NewFromFloat(cfg.Buffer),
		floor:    decimal.NewFromFloat(cfg.Floor),
		fallback: decimal.NewFromFloat(cfg.Fallback),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log:     obs.Log().WithField("component", "oracle"),
		metrics: observability.MakeOracleMetrics(obs),
		now:     time.Now,
	}, nil
}

func checkConstants(cfg configuration.Oracle) error {
	switch {
	case !finite(cfg.Fallback) || cfg.Fallback <= 0:
		return errors.Errorf("fallback rate must be positive, got %v", cfg.Fallback)
	case !finite(cfg.Floor) || cfg.Floor <= 0:
		return errors.Errorf("rate floor must be positive, got %v", cfg.Floor)
	case !finite(cfg.Buffer) || cfg.Buffer < 0:
		return errors.Errorf("rate buffer must not be negative, got %v", cfg.Buffer)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Rate asks the feeds in order and takes the first positive rate. When every
// feed fails the fallback constant is used and the quote is marked degraded.
func (o *Oracle) Rate(ctx context.Context) (Quote, error) {
	for _, feed := range o.feeds {
		if err := ctx.Err(); err != nil {
			return Quote{}, err
		}
		raw, err := o.fetch(ctx, feed)
		if err != nil {
			o.metrics.FeedFailures.Inc()
			o.log.WithField("feed", feed.Name).Warn(errors.Wrap(err, "feed failed"))
			continue
		}
		o.log.WithField("feed", feed.Name).Debugf("got rate %s", raw)
		return o.quote(raw, feed.Name, false), nil
	}

	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	o.metrics.Degraded.Inc()
	o.log.WithField("fallback", o.fallback.String()).Warn("all price feeds failed, using fallback rate")
	return o.quote(o.fallback, "fallback", true), nil
}

func (o *Oracle) quote(raw decimal.Decimal, source string, degraded bool) Quote {
	adjusted := Adjust(raw, o.buffer, o.floor)
	f, _ := adjusted.Float64()
	o.metrics.Rate.Set(f)
	return Quote{
		Raw:       raw,
		Adjusted:  adjusted,
		Buffer:    o.buffer,
		Degraded:  degraded,
		Source:    source,
		FetchedAt: o.now().UTC(),
	}
}

// Adjust lowers the rate by buffer but never below floor.
func Adjust(raw, buffer, floor decimal.Decimal) decimal.Decimal {
	return decimal.Max(floor, raw.Sub(buffer))
}

func (o *Oracle) fetch(ctx context.Context, feed Feed) (decimal.Decimal, error) {
	req, err := http.NewRequest(http.MethodGet, feed.URL, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to build request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.Errorf("responded with status: %d", resp.StatusCode)
	}
	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read body")
	}
	return ParseRate(body, feed.Path)
}

// ParseRate extracts a positive finite rate at path. Numbers and numeric
// strings are accepted.
func ParseRate(body []byte, path string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, errors.New("invalid json")
	}
	res := gjson.GetBytes(body, path)

	var rate float64
	switch res.Type {
	case gjson.Number:
		rate = res.Float()
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(res.Str), 64)
		if err != nil {
			return decimal.Zero, errors.Errorf("invalid rate %q", res.Str)
		}
		rate = v
	default:
		return decimal.Zero, errors.Errorf("invalid rate at %s: %s", path, res.Raw)
	}

	if !finite(rate) || rate <= 0 {
		return decimal.Zero, errors.Errorf("invalid rate %v", rate)
	}
	return decimal.NewFromFloat(rate), nil
}
