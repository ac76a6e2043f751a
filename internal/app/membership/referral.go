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

	"github.com/pkg/errors"
)

var (
	ErrMissingReferrer   = errors.New("referrer is required")
	ErrSelfReferral      = errors.New("wallet can not refer itself")
	ErrUnknownReferrer   = errors.New("referrer is not registered")
	ErrReferrerNotMember = errors.New("referrer has not completed membership payment")
	ErrReferralCycle     = errors.New("referral would create a cycle")
)

// Chains deeper than this are treated as broken data and stop the walk.
const maxReferralDepth = 10000

// Verifier re-checks a referrer against the stored records before a commit,
// so that a client can not attach itself to a forged or foreign referrer.
type Verifier struct {
	store Store
	roots map[string]struct{}
}

func NewVerifier(store Store, rootWallets []string) *Verifier {
	roots := make(map[string]struct{}, len(rootWallets))
	for _, w := range rootWallets {
		roots[w] = struct{}{}
	}
	return &Verifier{store: store, roots: roots}
}

func (v *Verifier) IsRoot(wallet string) bool {
	_, ok := v.roots[wallet]
	return ok
}

// VerifyReferrer checks that referrer may refer wallet. Root wallets may go
// without a referrer.
func (v *Verifier) VerifyReferrer(ctx context.Context, wallet, referrer string) error {
	if referrer == "" {
		if v.IsRoot(wallet) {
			return nil
		}
		return ErrMissingReferrer
	}
	if referrer == wallet {
		return ErrSelfReferral
	}

	ref, err := v.store.Get(ctx, referrer)
	if err != nil {
		if IsNotFound(err) {
			if v.IsRoot(referrer) {
				return nil
			}
			return ErrUnknownReferrer
		}
		return errors.Wrap(err, "failed to load referrer")
	}
	if !ref.IsMember() && !v.IsRoot(referrer) {
		return ErrReferrerNotMember
	}

	visited := map[string]struct{}{referrer: {}}
	current := ref.Referrer()
	for depth := 0; current != "" && depth < maxReferralDepth; depth++ {
		if current == wallet {
			return ErrReferralCycle
		}
		if _, seen := visited[current]; seen {
			// the stored chain is already looping; wallet is not on it
			return nil
		}
		visited[current] = struct{}{}

		ancestor, err := v.store.Get(ctx, current)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return errors.Wrapf(err, "failed to load ancestor %s", current)
		}
		current = ancestor.Referrer()
	}
	return nil
}
