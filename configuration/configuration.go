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

package configuration

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dproject/membership/internal/pkg/cycle"
)

type DB struct {
	URL      string
	PoolSize int
	Attempts cycle.Limit
	// Interval between connection attempts on startup
	AttemptInterval time.Duration
}

type Log struct {
	Level string
	// json or text
	Format string
}

type API struct {
	Addr string
}

// Admin serves health check and metrics.
type Admin struct {
	Listen string
}

type Feed struct {
	Name string
	URL  string
	// gjson path of the rate inside the response body
	Path string
}

type Oracle struct {
	Feeds    []Feed
	Buffer   float64
	Floor    float64
	Fallback float64
	Timeout  time.Duration
	// cron spec of the rate refresher
	Refresh string
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Membership struct {
	// postgres or memory. Memory records live only as long as the process.
	Storage string
	// Seed accounts allowed to exist without a referrer and to refer others without paying.
	RootWallets []string
	CacheSize   int
}

type Ledger struct {
	RPC        string
	ChainID    int64
	PrivateKey string
	Decimals   int32
}

type Audit struct {
	Endpoint string
	Gateway  string
	JWT      string
	Timeout  time.Duration
}

type Payment struct {
	FeeTHB          int64
	PlatformAddress string
	// Percent of the total that goes to the platform in phase 1.
	PlatformShare int64
	// Reporting zone offset from UTC, hours.
	ReportZoneOffset int
}

type APIConfiguration struct {
	Log        Log
	API        API
	Admin      Admin
	DB         DB
	Membership Membership
	Oracle     Oracle
}

type MigrateConfiguration struct {
	Log           Log
	DB            DB
	MigrationsDir string
}

type PayConfiguration struct {
	Log     Log
	APIURL  string
	Oracle  Oracle
	Ledger  Ledger
	Audit   Audit
	Payment Payment
}

func defaultLog() Log {
	return Log{
		Level:  logrus.InfoLevel.String(),
		Format: "json",
	}
}

func defaultDB() DB {
	return DB{
		URL:             "postgres://postgres@localhost/postgres?sslmode=disable",
		PoolSize:        20,
		Attempts:        5,
		AttemptInterval: 3 * time.Second,
	}
}

func defaultOracle() Oracle {
	return Oracle{
		Feeds: []Feed{
			{
				Name: "CoinGecko",
				URL:  "https://api.coingecko.com/api/v3/simple/price?ids=matic-network&vs_currencies=thb",
				Path: "matic-network.thb",
			},
			{
				Name: "Binance",
				URL:  "https://api.binance.com/api/v3/ticker/price?symbol=MATICTHB",
				Path: "price",
			},
			{
				Name: "Bitkub",
				URL:  "https://api.bitkub.com/api/market/ticker?s=THB_MATIC",
				Path: "THB_MATIC.last",
			},
		},
		Buffer:   0.1,
		Floor:    0.01,
		Fallback: 6.31,
		Timeout:  10 * time.Second,
		Refresh:  "@every 5m",
	}
}

func APIDefault() *APIConfiguration {
	return &APIConfiguration{
		Log: defaultLog(),
		API: API{
			Addr: ":8080",
		},
		Admin: Admin{
			Listen: ":8081",
		},
		DB: defaultDB(),
		Membership: Membership{
			Storage:   StoragePostgres,
			CacheSize: 10000,
		},
		Oracle: defaultOracle(),
	}
}

func MigrateDefault() *MigrateConfiguration {
	return &MigrateConfiguration{
		Log:           defaultLog(),
		DB:            defaultDB(),
		MigrationsDir: "scripts/migrations",
	}
}

func PayDefault() *PayConfiguration {
	return &PayConfiguration{
		Log: Log{
			Level:  logrus.WarnLevel.String(),
			Format: "text",
		},
		APIURL: "http://localhost:8080",
		Oracle: defaultOracle(),
		Ledger: Ledger{
			RPC:      "https://polygon-rpc.com",
			ChainID:  137,
			Decimals: 18,
		},
		Audit: Audit{
			Endpoint: "https://api.pinata.cloud/pinning/pinJSONToIPFS",
			Gateway:  "https://gateway.pinata.cloud/ipfs/",
			Timeout:  15 * time.Second,
		},
		Payment: Payment{
			FeeTHB:           400,
			PlatformAddress:  "0x3BBf139420A8Ecc2D06c64049fE6E7aE09593944",
			PlatformShare:    70,
			ReportZoneOffset: 7,
		},
	}
}
