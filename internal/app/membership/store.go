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

package membership

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dproject/membership/internal/models"
)

var (
	ErrNotFound    = errors.New("membership record not found")
	ErrMissingPlan = errors.New("plan_a is required")
)

// Store is the durable membership boundary the payment workflow commits to.
// Upsert is idempotent by wallet address.
type Store interface {
	Get(ctx context.Context, wallet string) (*models.User, error)
	IsMember(ctx context.Context, wallet string) (bool, error)
	Upsert(ctx context.Context, wallet, referrer string, planA *models.PlanA) (*models.User, error)
}

// Directory adds the read-only views served over REST.
type Directory interface {
	Store
	List(ctx context.Context, withWalletOnly bool) ([]models.User, error)
	LatestPlanB(ctx context.Context, wallet string) (*models.PlanB, error)
	Bonuses(ctx context.Context, wallet string) ([]models.Bonus, error)
}

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
