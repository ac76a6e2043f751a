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

package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// Client moves the payment token. Transfer returns once the transfer is
// submitted and never retries on its own.
type Client interface {
	Transfer(ctx context.Context, to string, amount *big.Int) (txID string, err error)
	Balance(ctx context.Context) (*big.Int, error)
	Sender() string
}

func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ToMinorUnits converts a token amount into integer minor units. Amounts with
// more fractional digits than decimals are rejected instead of truncated.
func ToMinorUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "negative amount %s", amount)
	}
	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, errors.Wrapf(ErrInvalidAmount, "%s has more than %d decimals", amount, decimals)
	}
	return shifted.BigInt(), nil
}

func FromMinorUnits(units *big.Int, decimals int32) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -decimals)
}

// FormatUnits renders minor units as a token amount with fixed places.
func FormatUnits(units *big.Int, decimals int32, places int32) string {
	return FromMinorUnits(units, decimals).StringFixed(places)
}
