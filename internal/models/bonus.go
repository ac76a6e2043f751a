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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanB is one accumulation row of the plan_b table.
type PlanB struct {
	tableName struct{} `sql:"plan_b"` //nolint: unused,structcheck

	ID            int64           `sql:"id,pk" json:"id"`
	UserID        string          `sql:"user_id,notnull" json:"user_id"`
	POL           decimal.Decimal `sql:"pol,type:numeric" json:"pol"`
	DateTime      string          `sql:"date_time" json:"date_time"`
	LinkIPFS      string          `sql:"link_ipfs" json:"link_ipfs"`
	RateTHBPOL    decimal.Decimal `sql:"rate_thb_pol,type:numeric" json:"rate_thb_pol"`
	CumulativePOL decimal.Decimal `sql:"cumulative_pol,type:numeric" json:"cumulative_pol"`
	AppendPOL     decimal.Decimal `sql:"append_pol,type:numeric" json:"append_pol"`
	AppendTxHash  string          `sql:"append_tx_hash" json:"append_tx_hash"`
	CreatedAt     time.Time       `sql:"created_at,notnull,default:now()" json:"created_at"`
}

// Bonus is a commission ledger entry produced by the external calculation job.
type Bonus struct {
	tableName struct{} `sql:"bonus"` //nolint: unused,structcheck

	ID           int64           `sql:"id,pk" json:"id"`
	UserID       string          `sql:"user_id,notnull" json:"user_id"`
	PrA          decimal.Decimal `sql:"pr_a,type:numeric" json:"pr_a"`
	PrB          decimal.Decimal `sql:"pr_b,type:numeric" json:"pr_b"`
	CR           decimal.Decimal `sql:"cr,type:numeric" json:"cr"`
	RT           decimal.Decimal `sql:"rt,type:numeric" json:"rt"`
	AR           decimal.Decimal `sql:"ar,type:numeric" json:"ar"`
	BonusDate    time.Time       `sql:"bonus_date" json:"bonus_date"`
	CalculatedAt time.Time       `sql:"calculated_at,default:now()" json:"calculated_at"`
	CreatedAt    time.Time       `sql:"created_at,default:now()" json:"created_at"`
	UpdatedAt    time.Time       `sql:"updated_at,default:now()" json:"updated_at"`
}

func (b Bonus) Total() decimal.Decimal {
	return b.PrA.Add(b.PrB).Add(b.CR).Add(b.RT).Add(b.AR)
}
