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
	"github.com/shopspring/decimal"

	"github.com/dproject/membership/internal/models"
)

// NetShare is the claimable part of the accumulated bonus.
var NetShare = decimal.New(5, -2)

type BonusSummary struct {
	UserID  string          `json:"user_id"`
	Entries int             `json:"entries"`
	PrA     decimal.Decimal `json:"pr_a"`
	PrB     decimal.Decimal `json:"pr_b"`
	CR      decimal.Decimal `json:"cr"`
	RT      decimal.Decimal `json:"rt"`
	AR      decimal.Decimal `json:"ar"`
	Total   decimal.Decimal `json:"total"`
	Net     decimal.Decimal `json:"net"`
}

func SummarizeBonuses(wallet string, entries []models.Bonus) BonusSummary {
	s := BonusSummary{UserID: wallet, Entries: len(entries)}
	for _, e := range entries {
		s.PrA = s.PrA.Add(e.PrA)
		s.PrB = s.PrB.Add(e.PrB)
		s.CR = s.CR.Add(e.CR)
		s.RT = s.RT.Add(e.RT)
		s.AR = s.AR.Add(e.AR)
	}
	s.Total = s.PrA.Add(s.PrB).Add(s.CR).Add(s.RT).Add(s.AR)
	s.Net = s.Total.Mul(NetShare)
	return s
}
