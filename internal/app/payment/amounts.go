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

package payment

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/dproject/membership/internal/app/ledger"
)

// amountPlaces is the precision of the token total before conversion.
const amountPlaces = 4

// Amounts are in token minor units. Phase1 + Phase2 == Total.
type Amounts struct {
	Total  *big.Int
	Phase1 *big.Int
	Phase2 *big.Int
}

func (a Amounts) copy() Amounts {
	return Amounts{
		Total:  copyInt(a.Total),
		Phase1: copyInt(a.Phase1),
		Phase2: copyInt(a.Phase2),
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Split sizes the payment: total = fee / rate rounded to 4 places, phase 1
// takes floor(total * share / 100) and phase 2 the remainder.
func Split(fee, rate decimal.Decimal, share int64, decimals int32) (Amounts, error) {
	if fee.Sign() <= 0 {
		return Amounts{}, precondition("fee must be positive, got %s", fee)
	}
	if rate.Sign() <= 0 {
		return Amounts{}, precondition("unusable rate %s", rate)
	}
	if share < 0 || share > 100 {
		return Amounts{}, precondition("share must be within 0..100, got %d", share)
	}

	total, err := ledger.ToMinorUnits(fee.DivRound(rate, amountPlaces), decimals)
	if err != nil {
		return Amounts{}, precondition("%v", err)
	}
	if total.Sign() <= 0 {
		return Amounts{}, precondition("payment amount rounds to zero")
	}

	phase1 := new(big.Int).Mul(total, big.NewInt(share))
	phase1.Quo(phase1, big.NewInt(100))
	phase2 := new(big.Int).Sub(total, phase1)
	return Amounts{Total: total, Phase1: phase1, Phase2: phase2}, nil
}
