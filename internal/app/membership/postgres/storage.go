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

package postgres

import (
	"context"
	"time"

	"github.com/go-pg/pg"
	"github.com/go-pg/pg/orm"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/models"
	"github.com/dproject/membership/observability"
)

type UserStorage struct {
	log          logrus.FieldLogger
	errorCounter prometheus.Counter
	db           orm.DB
	now          func() time.Time
}

func NewUserStorage(obs *observability.Observability, db orm.DB) *UserStorage {
	errorCounter := obs.Counter(prometheus.CounterOpts{
		Name: "membership_user_storage_error_counter",
		Help: "Number of failed writes to the users table",
	})
	return &UserStorage{
		log:          obs.Log(),
		errorCounter: errorCounter,
		db:           db,
		now:          time.Now,
	}
}

func (s *UserStorage) Get(ctx context.Context, wallet string) (*models.User, error) {
	user := &models.User{}
	err := s.db.ModelContext(ctx, user).
		Where("user_id = ?", wallet).
		Select()
	if err == pg.ErrNoRows {
		return nil, membership.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select user %s", wallet)
	}
	return user, nil
}

func (s *UserStorage) IsMember(ctx context.Context, wallet string) (bool, error) {
	ok, err := s.db.ModelContext(ctx, (*models.User)(nil)).
		Where("user_id = ?", wallet).
		Where("plan_a IS NOT NULL").
		Exists()
	if err != nil {
		return false, errors.Wrapf(err, "failed to check membership of %s", wallet)
	}
	return ok, nil
}

// Upsert writes plan_a and the referral link of a wallet. Profile columns of
// an existing row are left untouched.
func (s *UserStorage) Upsert(ctx context.Context, wallet, referrer string, planA *models.PlanA) (*models.User, error) {
	if planA == nil {
		return nil, membership.ErrMissingPlan
	}
	now := s.now().UTC()
	row := &models.User{
		UserID:    wallet,
		PlanA:     planA,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if referrer != "" {
		row.ReferrerID = &referrer
	}

	res, err := s.db.ModelContext(ctx, row).
		OnConflict("(user_id) DO UPDATE").
		Set("referrer_id = EXCLUDED.referrer_id").
		Set("plan_a = EXCLUDED.plan_a").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Insert()
	if err != nil {
		s.errorCounter.Inc()
		return nil, errors.Wrapf(err, "failed to upsert user %s", wallet)
	}
	if res.RowsAffected() == 0 {
		s.errorCounter.Inc()
		s.log.WithField("user_id", wallet).Errorf("failed to upsert user")
		return nil, errors.New("failed to upsert, affected is 0")
	}
	return row, nil
}

func (s *UserStorage) List(ctx context.Context, withWalletOnly bool) ([]models.User, error) {
	users := []models.User{}
	query := s.db.ModelContext(ctx, &users)
	if withWalletOnly {
		query = query.
			Where("user_id IS NOT NULL").
			Where("user_id != ''")
	}
	err := query.Order("created_at DESC").Select()
	if err != nil {
		return nil, errors.Wrap(err, "failed to select users")
	}
	return users, nil
}

type PlanBStorage struct {
	db orm.DB
}

func NewPlanBStorage(db orm.DB) *PlanBStorage {
	return &PlanBStorage{db: db}
}

func (s *PlanBStorage) Latest(ctx context.Context, wallet string) (*models.PlanB, error) {
	row := &models.PlanB{}
	err := s.db.ModelContext(ctx, row).
		Where("user_id = ?", wallet).
		Order("created_at DESC").
		Limit(1).
		Select()
	if err == pg.ErrNoRows {
		return nil, membership.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select plan b of %s", wallet)
	}
	return row, nil
}

type BonusStorage struct {
	db orm.DB
}

func NewBonusStorage(db orm.DB) *BonusStorage {
	return &BonusStorage{db: db}
}

func (s *BonusStorage) ByUser(ctx context.Context, wallet string) ([]models.Bonus, error) {
	bonuses := []models.Bonus{}
	err := s.db.ModelContext(ctx, &bonuses).
		Where("user_id = ?", wallet).
		Order("bonus_date DESC", "id DESC").
		Select()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select bonuses of %s", wallet)
	}
	return bonuses, nil
}

// Directory joins the storages into membership.Directory.
type Directory struct {
	*UserStorage
	planB   *PlanBStorage
	bonuses *BonusStorage
}

var _ membership.Directory = (*Directory)(nil)

func NewDirectory(obs *observability.Observability, db orm.DB) *Directory {
	return &Directory{
		UserStorage: NewUserStorage(obs, db),
		planB:       NewPlanBStorage(db),
		bonuses:     NewBonusStorage(db),
	}
}

func (d *Directory) LatestPlanB(ctx context.Context, wallet string) (*models.PlanB, error) {
	return d.planB.Latest(ctx, wallet)
}

func (d *Directory) Bonuses(ctx context.Context, wallet string) ([]models.Bonus, error) {
	return d.bonuses.ByUser(ctx, wallet)
}
