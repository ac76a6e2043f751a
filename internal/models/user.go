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
)

// User is a membership record, one per wallet.
// PlanA is set iff the wallet completed the membership payment.
type User struct {
	tableName struct{} `sql:"users"` //nolint: unused,structcheck

	ID         int64         `sql:"id,pk" json:"id"`
	UserID     string        `sql:"user_id,notnull,unique" json:"user_id"`
	ReferrerID *string       `sql:"referrer_id" json:"referrer_id"`
	Email      *string       `sql:"email" json:"email"`
	Name       *string       `sql:"name" json:"name"`
	TokenID    *string       `sql:"token_id" json:"token_id"`
	PlanA      *PlanA        `sql:"plan_a,type:jsonb" json:"plan_a"`
	PlanB      *PlanBSummary `sql:"plan_b,type:jsonb" json:"plan_b"`
	CreatedAt  time.Time     `sql:"created_at,notnull,default:now()" json:"created_at"`
	UpdatedAt  time.Time     `sql:"updated_at,notnull,default:now()" json:"updated_at"`
}

func (u *User) IsMember() bool {
	return u != nil && u.PlanA != nil
}

func (u *User) Referrer() string {
	if u == nil || u.ReferrerID == nil {
		return ""
	}
	return *u.ReferrerID
}

// PlanA is the receipt of a completed two-phase membership payment.
// Token amounts are decimal strings with 4 fractional digits.
type PlanA struct {
	DateTime      string `json:"dateTime"`
	POL           string `json:"POL"`
	RateTHBPOL    string `json:"rateTHBPOL"`
	SeventyPOL    string `json:"seventyPOL"`
	ThirtyPOL     string `json:"thirtyPOL"`
	SeventyTxHash string `json:"seventyTxHash"`
	ThirtyTxHash  string `json:"thirtyTxHash"`
	LinkIPFS      string `json:"linkIPFS"`
}

type PlanBSummary struct {
	DateTime      string `json:"dateTime"`
	CumulativePOL string `json:"cumulativePOL"`
	AppendPOL     string `json:"appendPOL"`
	AppendTxHash  string `json:"appendTxHash"`
	LinkIPFS      string `json:"linkIPFS"`
}
