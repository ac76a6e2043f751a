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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dproject/membership/internal/models"
)

type countingDirectory struct {
	*MemoryDirectory
	isMemberCalls int
}

func (c *countingDirectory) IsMember(ctx context.Context, wallet string) (bool, error) {
	c.isMemberCalls++
	return c.MemoryDirectory.IsMember(ctx, wallet)
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()
	backend := &countingDirectory{MemoryDirectory: NewMemoryDirectory()}
	backend.Put(member(alice, root))
	cached, err := NewCachedDirectory(backend, 16)
	require.NoError(t, err)

	t.Run("positive answers are cached", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := cached.IsMember(ctx, alice)
			require.NoError(t, err)
			require.True(t, ok)
		}
		require.Equal(t, 1, backend.isMemberCalls)
	})

	t.Run("negative answers are not cached", func(t *testing.T) {
		backend.isMemberCalls = 0
		for i := 0; i < 2; i++ {
			ok, err := cached.IsMember(ctx, bob)
			require.NoError(t, err)
			require.False(t, ok)
		}
		require.Equal(t, 2, backend.isMemberCalls)
	})

	t.Run("upsert marks member", func(t *testing.T) {
		backend.isMemberCalls = 0
		_, err := cached.Upsert(ctx, bob, alice, &models.PlanA{POL: "2.0000"})
		require.NoError(t, err)
		ok, err := cached.IsMember(ctx, bob)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 0, backend.isMemberCalls)
	})

	t.Run("reads pass through", func(t *testing.T) {
		u, err := cached.Get(ctx, bob)
		require.NoError(t, err)
		require.Equal(t, alice, u.Referrer())
	})
}

func TestNewCachedDirectory_BadSize(t *testing.T) {
	_, err := NewCachedDirectory(NewMemoryDirectory(), 0)
	require.Error(t, err)
}

func TestMemoryDirectory_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()
	plan := &models.PlanA{POL: "40.4040", LinkIPFS: "N/A"}

	first, err := dir.Upsert(ctx, bob, alice, plan)
	require.NoError(t, err)
	second, err := dir.Upsert(ctx, bob, alice, plan)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, *plan, *second.PlanA)

	users, err := dir.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, err = dir.Upsert(ctx, carol, alice, nil)
	require.Equal(t, ErrMissingPlan, err)
}
