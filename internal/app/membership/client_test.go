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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dproject/membership/internal/models"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	var added AddUserRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("user_id") {
		case alice:
			_ = json.NewEncoder(w).Encode(member(alice, root))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":["User not found"]}`))
		}
	})
	mux.HandleFunc("/api/check-membership", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(MembershipStatus{IsMember: r.URL.Query().Get("walletAddress") == alice})
	})
	mux.HandleFunc("/api/add-user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&added))
		if added.ReferrerID == carol {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":["referrer has not completed membership payment"]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(member(added.UserID, added.ReferrerID))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)

	t.Run("get", func(t *testing.T) {
		u, err := c.Get(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, alice, u.UserID)
		require.Equal(t, root, u.Referrer())

		_, err = c.Get(ctx, bob)
		require.True(t, IsNotFound(err))
	})

	t.Run("is member", func(t *testing.T) {
		ok, err := c.IsMember(ctx, alice)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = c.IsMember(ctx, bob)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("upsert", func(t *testing.T) {
		plan := &models.PlanA{POL: "40.4040", LinkIPFS: "N/A"}
		u, err := c.Upsert(ctx, bob, alice, plan)
		require.NoError(t, err)
		require.Equal(t, bob, u.UserID)
		require.Equal(t, bob, added.UserID)
		require.Equal(t, alice, added.ReferrerID)
		require.Equal(t, "40.4040", added.PlanA.POL)
	})

	t.Run("upsert rejected", func(t *testing.T) {
		_, err := c.Upsert(ctx, bob, carol, &models.PlanA{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "422")
		require.Contains(t, err.Error(), "not completed membership payment")
	})

	t.Run("unreachable", func(t *testing.T) {
		dead := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
		_, err := dead.IsMember(ctx, alice)
		require.Error(t, err)
	})
}
