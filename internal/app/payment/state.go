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

type State int

const (
	Idle State = iota
	AwaitingPhase1Confirm
	Phase1InFlight
	Phase1Failed
	// Phase1Done waits for the phase 2 confirmation.
	Phase1Done
	Phase2InFlight
	Phase2Failed
	Committing
	Completed
	CommitFailed
	AlreadyMember
	Cancelled
)

var stateNames = map[State]string{
	Idle:                  "Idle",
	AwaitingPhase1Confirm: "AwaitingPhase1Confirm",
	Phase1InFlight:        "Phase1InFlight",
	Phase1Failed:          "Phase1Failed",
	Phase1Done:            "Phase1Done",
	Phase2InFlight:        "Phase2InFlight",
	Phase2Failed:          "Phase2Failed",
	Committing:            "Committing",
	Completed:             "Completed",
	CommitFailed:          "CommitFailed",
	AlreadyMember:         "AlreadyMember",
	Cancelled:             "Cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s State) Terminal() bool {
	switch s {
	case Completed, CommitFailed, AlreadyMember, Cancelled:
		return true
	}
	return false
}

// Cancellable is true before any transfer succeeded.
func (s State) Cancellable() bool {
	switch s {
	case Idle, AwaitingPhase1Confirm, Phase1Failed:
		return true
	}
	return false
}

func (s State) inFlight() bool {
	return s == Phase1InFlight || s == Phase2InFlight || s == Committing
}
