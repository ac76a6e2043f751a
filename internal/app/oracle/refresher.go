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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const refreshTimeout = 30 * time.Second

// Refresher keeps the latest quote of a source fresh on a cron schedule.
// It must be stopped explicitly to release the schedule.
type Refresher struct {
	source RateSource
	spec   string
	log    logrus.FieldLogger

	mu      sync.RWMutex
	latest  *Quote
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

func NewRefresher(source RateSource, spec string, log logrus.FieldLogger) *Refresher {
	return &Refresher{
		source: source,
		spec:   spec,
		log:    log.WithField("component", "rate-refresher"),
	}
}

// Start refreshes once synchronously, then on schedule.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.refresh(runCtx) }); err != nil {
		r.mu.Unlock()
		cancel()
		return errors.Wrapf(err, "invalid refresh schedule %q", r.spec)
	}
	r.cron = c
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.refresh(runCtx)
	c.Start()
	r.log.WithField("schedule", r.spec).Info("rate refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c, cancel := r.cron, r.cancel
	r.running = false
	r.cron = nil
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.log.Info("rate refresher stopped")
	return nil
}

func (r *Refresher) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	q, err := r.source.Rate(ctx)
	if err != nil {
		r.log.Warn(errors.Wrap(err, "rate refresh aborted"))
		return
	}
	r.mu.Lock()
	r.latest = &q
	r.mu.Unlock()
}

func (r *Refresher) Latest() (Quote, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return Quote{}, false
	}
	return *r.latest, true
}

// Rate serves the latest quote, asking the source directly when nothing was fetched yet.
func (r *Refresher) Rate(ctx context.Context) (Quote, error) {
	if q, ok := r.Latest(); ok {
		return q, nil
	}
	q, err := r.source.Rate(ctx)
	if err != nil {
		return Quote{}, err
	}
	r.mu.Lock()
	r.latest = &q
	r.mu.Unlock()
	return q, nil
}
