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

	"github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/dproject/membership/internal/models"
)

// CachedDirectory remembers confirmed members. Membership never goes back to
// false (records are not deleted and plan_a is never cleared), so positive
// answers can be served from memory.
type CachedDirectory struct {
	Directory
	members *lru.Cache
}

func NewCachedDirectory(backend Directory, size int) (*CachedDirectory, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init cache")
	}
	return &CachedDirectory{
		Directory: backend,
		members:   cache,
	}, nil
}

func (c *CachedDirectory) IsMember(ctx context.Context, wallet string) (bool, error) {
	if c.members.Contains(wallet) {
		return true, nil
	}
	ok, err := c.Directory.IsMember(ctx, wallet)
	if err != nil {
		return false, err
	}
	if ok {
		c.members.Add(wallet, struct{}{})
	}
	return ok, nil
}

func (c *CachedDirectory) Upsert(ctx context.Context, wallet, referrer string, planA *models.PlanA) (*models.User, error) {
	user, err := c.Directory.Upsert(ctx, wallet, referrer, planA)
	if err != nil {
		return nil, err
	}
	if user.IsMember() {
		c.members.Add(wallet, struct{}{})
	}
	return user, nil
}
