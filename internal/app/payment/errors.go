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
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyMember      = errors.New("wallet is already a member")
	ErrPreconditionFailed = errors.New("payment precondition failed")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrCommitFailed       = errors.New("membership commit failed after both transfers")
	ErrInvalidTransition  = errors.New("invalid workflow transition")
	ErrPhaseInFlight      = errors.New("phase is in flight")
)

// TransferError reports a failed chain call of one phase. The phase can be
// confirmed again.
type TransferError struct {
	Phase int
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("phase %d transfer failed: %v", e.Phase, e.Err)
}

// Cause lets errors.Cause match ErrTransferFailed.
func (e *TransferError) Cause() error {
	return ErrTransferFailed
}

func IsTransferError(err error) (*TransferError, bool) {
	te, ok := err.(*TransferError)
	return te, ok
}

func precondition(format string, args ...interface{}) error {
	return errors.Wrapf(ErrPreconditionFailed, format, args...)
}

func invalidTransition(action string, from State) error {
	return errors.Wrapf(ErrInvalidTransition, "can not %s in state %s", action, from)
}
