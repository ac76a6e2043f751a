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

package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/component"
	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/app/membership/postgres"
	"github.com/dproject/membership/internal/dbconn"
	"github.com/dproject/membership/observability"
)

// storage is the membership directory the API serves from, with its health
// check (nil when there is nothing to check) and release func.
type storage struct {
	dir   membership.Directory
	check component.HealthCheck
	close func()
}

func openStorage(cfg *configuration.APIConfiguration, obs *observability.Observability) (*storage, error) {
	logger := obs.Log()
	switch cfg.Membership.Storage {
	case configuration.StorageMemory:
		logger.Warn("membership records are kept in memory and are lost on restart")
		return &storage{dir: membership.NewMemoryDirectory(), close: func() {}}, nil
	case configuration.StoragePostgres, "":
		db, err := dbconn.ConnectAndPing(cfg.DB, logger)
		if err != nil {
			return nil, err
		}
		dir, err := membership.NewCachedDirectory(postgres.NewDirectory(obs, db), cfg.Membership.CacheSize)
		if err != nil {
			closeQuietly(db.Close, logger)
			return nil, err
		}
		return &storage{
			dir: dir,
			check: func(ctx context.Context) error {
				_, err := db.ExecContext(ctx, "select 1")
				return err
			},
			close: func() { closeQuietly(db.Close, logger) },
		}, nil
	}
	return nil, errors.Errorf("unknown membership storage %q", cfg.Membership.Storage)
}

func closeQuietly(closeFn func() error, logger logrus.FieldLogger) {
	if err := closeFn(); err != nil {
		logger.Error(errors.Wrap(err, "failed to close db connection"))
	}
}
