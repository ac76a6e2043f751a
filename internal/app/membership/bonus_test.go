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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dproject/membership/internal/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSummarizeBonuses(t *testing.T) {
	entries := []models.Bonus{
		{UserID: alice, PrA: dec(t, "10.5"), PrB: dec(t, "2"), CR: dec(t, "0.25"), RT: dec(t, "1"), AR: dec(t, "-0.75")},
		{UserID: alice, PrA: dec(t, "4.5"), PrB: dec(t, "0"), CR: dec(t, "0.75"), RT: dec(t, "0"), AR: dec(t, "0.75")},
	}

	s := SummarizeBonuses(alice, entries)
	require.Equal(t, 2, s.Entries)
	require.True(t, dec(t, "15").Equal(s.PrA))
	require.True(t, dec(t, "2").Equal(s.PrB))
	require.True(t, dec(t, "1").Equal(s.CR))
	require.True(t, dec(t, "1").Equal(s.RT))
	require.True(t, dec(t, "0").Equal(s.AR))
	require.True(t, dec(t, "19").Equal(s.Total))
	require.True(t, dec(t, "0.95").Equal(s.Net))

	var sum decimal.Decimal
	for _, e := range entries {
		sum = sum.Add(e.Total())
	}
	require.True(t, sum.Equal(s.Total))
}

func TestSummarizeBonuses_Empty(t *testing.T) {
	s := SummarizeBonuses(bob, nil)
	require.Equal(t, 0, s.Entries)
	require.True(t, s.Total.IsZero())
	require.True(t, s.Net.IsZero())
}
