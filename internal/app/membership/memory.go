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
	"sort"
	"sync"
	"time"

	"github.com/dproject/membership/internal/models"
)

// MemoryDirectory keeps records in process memory. The API serves from it
// when membership storage is set to memory.
type MemoryDirectory struct {
	mu      sync.RWMutex
	nextID  int64
	now     func() time.Time
	users   map[string]*models.User
	planB   map[string][]models.PlanB
	bonuses map[string][]models.Bonus
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		now:     time.Now,
		users:   make(map[string]*models.User),
		planB:   make(map[string][]models.PlanB),
		bonuses: make(map[string][]models.Bonus),
	}
}

// Put stores a record as is. Meant for seeding.
func (m *MemoryDirectory) Put(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if user.ID == 0 {
		user.ID = m.nextID
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now().UTC()
		user.UpdatedAt = user.CreatedAt
	}
	m.users[user.UserID] = &user
}

func (m *MemoryDirectory) AddPlanB(row models.PlanB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planB[row.UserID] = append(m.planB[row.UserID], row)
}

func (m *MemoryDirectory) AddBonus(row models.Bonus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bonuses[row.UserID] = append(m.bonuses[row.UserID], row)
}

func (m *MemoryDirectory) Get(_ context.Context, wallet string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[wallet]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryDirectory) IsMember(_ context.Context, wallet string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[wallet].IsMember(), nil
}

func (m *MemoryDirectory) Upsert(_ context.Context, wallet, referrer string, planA *models.PlanA) (*models.User, error) {
	if planA == nil {
		return nil, ErrMissingPlan
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	u, ok := m.users[wallet]
	if !ok {
		m.nextID++
		u = &models.User{ID: m.nextID, UserID: wallet, CreatedAt: now}
		m.users[wallet] = u
	}
	if referrer != "" {
		ref := referrer
		u.ReferrerID = &ref
	} else {
		u.ReferrerID = nil
	}
	plan := *planA
	u.PlanA = &plan
	u.UpdatedAt = now

	cp := *u
	return &cp, nil
}

func (m *MemoryDirectory) List(_ context.Context, withWalletOnly bool) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if withWalletOnly && u.UserID == "" {
			continue
		}
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryDirectory) LatestPlanB(_ context.Context, wallet string) (*models.PlanB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.planB[wallet]
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	latest := rows[0]
	for _, r := range rows[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *MemoryDirectory) Bonuses(_ context.Context, wallet string) ([]models.Bonus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.Bonus, len(m.bonuses[wallet]))
	copy(res, m.bonuses[wallet])
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].BonusDate.After(res[j].BonusDate)
	})
	return res, nil
}
