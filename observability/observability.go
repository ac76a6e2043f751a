//
// Copyright 2019 Insolar Technologies GmbH
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

package observability

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/configuration"
)

func Make(cfg configuration.Log) *Observability {
	return &Observability{
		log:      NewLogger(cfg),
		metrics:  prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(cfg configuration.Log) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

type Observability struct {
	log      *logrus.Logger
	metrics  *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

func (o *Observability) Log() *logrus.Logger {
	return o.log
}

func (o *Observability) Metrics() *prometheus.Registry {
	return o.metrics
}

func (o *Observability) Counter(opts prometheus.CounterOpts) prometheus.Counter {
	c, ok := o.counters[opts.Name]
	if ok {
		return c
	}
	c = prometheus.NewCounter(opts)
	err := o.metrics.Register(c)
	if err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return c
	}
	o.counters[opts.Name] = c
	return c
}

func (o *Observability) Gauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g, ok := o.gauges[opts.Name]
	if ok {
		return g
	}
	g = prometheus.NewGauge(opts)
	err := o.metrics.Register(g)
	if err != nil {
		o.log.WithField("metric_collector", opts.Name).
			Errorf("failed to register metric")
		return g
	}
	o.gauges[opts.Name] = g
	return g
}

// MakePaymentMetrics registers one counter per field, named
// membership_payment_<field>_total.
func MakePaymentMetrics(obs *Observability) *PaymentMetrics {
	counters := &PaymentMetrics{}
	v := reflect.ValueOf(counters).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := toSnake(t.Field(i).Name)
		name := fmt.Sprintf("membership_payment_%s_total", field)
		help := fmt.Sprintf("Number of payment workflow events: %s.", strings.Replace(field, "_", " ", -1))
		collector := obs.Counter(prometheus.CounterOpts{
			Name: name,
			Help: help,
		})
		v.Field(i).Set(reflect.ValueOf(collector))
	}
	return counters
}

type PaymentMetrics struct {
	Started        prometheus.Counter
	AlreadyMember  prometheus.Counter
	Phase1Success  prometheus.Counter
	Phase1Failures prometheus.Counter
	Phase2Success  prometheus.Counter
	Phase2Failures prometheus.Counter
	AuditFailures  prometheus.Counter
	Commits        prometheus.Counter
	CommitFailures prometheus.Counter
	Cancelled      prometheus.Counter
}

type OracleMetrics struct {
	FeedFailures prometheus.Counter
	Degraded     prometheus.Counter
	Rate         prometheus.Gauge
}

func MakeOracleMetrics(obs *Observability) *OracleMetrics {
	return &OracleMetrics{
		FeedFailures: obs.Counter(prometheus.CounterOpts{
			Name: "membership_oracle_feed_failures_total",
			Help: "Number of failed price feed requests",
		}),
		Degraded: obs.Counter(prometheus.CounterOpts{
			Name: "membership_oracle_degraded_total",
			Help: "Number of quotes served from the fallback rate",
		}),
		Rate: obs.Gauge(prometheus.GaugeOpts{
			Name: "membership_oracle_adjusted_rate",
			Help: "Last adjusted fiat/token rate",
		}),
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
