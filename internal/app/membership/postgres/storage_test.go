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
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-pg/migrations"
	"github.com/go-pg/pg"
	"github.com/ory/dockertest/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dproject/membership/configuration"
	"github.com/dproject/membership/internal/app/membership"
	"github.com/dproject/membership/internal/models"
	"github.com/dproject/membership/observability"
)

const (
	database      = "test_membership_db"
	migrationsDir = "../../../../scripts/migrations"
	password      = "secret"
)

var (
	db *pg.DB

	pgOptions = &pg.Options{
		Addr:            "localhost",
		User:            "postgres",
		Password:        password,
		Database:        database,
		ApplicationName: "membership",
	}
)

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

// runWithPostgres leaves db nil when docker is not available; the tests skip then.
func runWithPostgres(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("Could not connect to docker: %s", err)
		return m.Run()
	}

	resource, err := pool.Run("postgres", "11", []string{"POSTGRES_PASSWORD=" + password, "POSTGRES_DB=" + database})
	if err != nil {
		log.Printf("Could not start resource: %s", err)
		return m.Run()
	}
	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Printf("failed to purge docker pool: %s", err)
		}
	}()

	if err = pool.Retry(func() error {
		options := *pgOptions
		options.Addr = fmt.Sprintf("%s:%s", options.Addr, resource.GetPort("5432/tcp"))
		db = pg.Connect(&options)
		_, err := db.Exec("select 1")
		return err
	}); err != nil {
		log.Printf("Could not connect to docker: %s", err)
		db = nil
		return m.Run()
	}
	defer db.Close()

	migrationCollection := migrations.NewCollection()
	if _, _, err = migrationCollection.Run(db, "init"); err != nil {
		log.Panicf("Could not init migrations: %s", err)
	}
	if err = migrationCollection.DiscoverSQLMigrations(migrationsDir); err != nil {
		log.Panicf("Failed to read migrations: %s", err)
	}
	if _, _, err = migrationCollection.Run(db, "up"); err != nil {
		log.Panicf("Could not migrate: %s", err)
	}

	return m.Run()
}

func requireDB(t *testing.T) {
	if db == nil {
		t.Skip("postgres container is not available")
	}
	_, err := db.Exec("TRUNCATE TABLE users, plan_b, bonus RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}

func makeDirectory() *Directory {
	return NewDirectory(observability.Make(configuration.Log{Level: "error"}), db)
}

const (
	alice = "0xA11ce00000000000000000000000000000000001"
	bob   = "0xB0b0000000000000000000000000000000000001"
)

func TestUserStorage_UpsertAndGet(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	dir := makeDirectory()

	_, err := dir.Get(ctx, bob)
	require.True(t, membership.IsNotFound(err))

	ok, err := dir.IsMember(ctx, bob)
	require.NoError(t, err)
	require.False(t, ok)

	plan := &models.PlanA{
		DateTime:      "15/10/2026 10:00:00",
		POL:           "40.4040",
		RateTHBPOL:    "9.9000",
		SeventyPOL:    "28.2828",
		ThirtyPOL:     "12.1212",
		SeventyTxHash: "0x01",
		ThirtyTxHash:  "0x02",
		LinkIPFS:      "N/A",
	}
	user, err := dir.Upsert(ctx, bob, alice, plan)
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	got, err := dir.Get(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, alice, got.Referrer())
	require.Equal(t, *plan, *got.PlanA)
	require.Nil(t, got.PlanB)

	ok, err = dir.IsMember(ctx, bob)
	require.NoError(t, err)
	require.True(t, ok)

	// second commit for the same wallet updates in place
	plan.LinkIPFS = "https://gateway.pinata.cloud/ipfs/Qm"
	again, err := dir.Upsert(ctx, bob, alice, plan)
	require.NoError(t, err)
	require.Equal(t, user.ID, again.ID)

	users, err := dir.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, plan.LinkIPFS, users[0].PlanA.LinkIPFS)
}

func TestUserStorage_ListOrderAndFilter(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	dir := makeDirectory()

	now := time.Now().UTC()
	require.NoError(t, db.Insert(&models.User{UserID: alice, CreatedAt: now.Add(-time.Hour), UpdatedAt: now}))
	require.NoError(t, db.Insert(&models.User{UserID: bob, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, db.Insert(&models.User{UserID: "", CreatedAt: now.Add(time.Hour), UpdatedAt: now}))

	all, err := dir.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "", all[0].UserID)

	filtered, err := dir.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	require.Equal(t, bob, filtered[0].UserID)
	require.Equal(t, alice, filtered[1].UserID)
}

func TestPlanBAndBonus(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	dir := makeDirectory()

	_, err := dir.LatestPlanB(ctx, alice)
	require.True(t, membership.IsNotFound(err))

	now := time.Now().UTC()
	require.NoError(t, db.Insert(&models.PlanB{UserID: alice, CumulativePOL: decimal.New(10, 0), CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, db.Insert(&models.PlanB{UserID: alice, CumulativePOL: decimal.New(25, 0), CreatedAt: now}))

	latest, err := dir.LatestPlanB(ctx, alice)
	require.NoError(t, err)
	require.True(t, decimal.New(25, 0).Equal(latest.CumulativePOL))

	day := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Insert(&models.Bonus{UserID: alice, PrA: decimal.New(1, 0), AR: decimal.New(-5, -1), BonusDate: day}))
	require.NoError(t, db.Insert(&models.Bonus{UserID: alice, PrB: decimal.New(3, 0), BonusDate: day.AddDate(0, 0, 1)}))

	bonuses, err := dir.Bonuses(ctx, alice)
	require.NoError(t, err)
	require.Len(t, bonuses, 2)
	summary := membership.SummarizeBonuses(alice, bonuses)
	require.True(t, decimal.RequireFromString("3.5").Equal(summary.Total))

	none, err := dir.Bonuses(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, none)
}
