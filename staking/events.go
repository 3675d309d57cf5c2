// Copyright 2026 Blink Labs Software
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

package staking

import "github.com/blinklabs-io/stakevault/event"

const (
	EventTypeStake           event.EventType = "staking.stake"
	EventTypeUnstakeRequest  event.EventType = "staking.unstake_request"
	EventTypeUnstakeComplete event.EventType = "staking.unstake_complete"
)

type StakeEvent struct {
	Vault       string `json:"vault"`
	User        string `json:"user"`
	Amount      uint64 `json:"amount"`
	TotalStaked uint64 `json:"total_staked"`
	Timestamp   int64  `json:"timestamp"`
}

type UnstakeRequestEvent struct {
	Vault           string `json:"vault"`
	User            string `json:"user"`
	Amount          uint64 `json:"amount"`
	UnlockTimestamp int64  `json:"unlock_timestamp"`
	PenaltyApplied  bool   `json:"penalty_applied"`
	Timestamp       int64  `json:"timestamp"`
}

type UnstakeCompleteEvent struct {
	Vault      string `json:"vault"`
	User       string `json:"user"`
	AmountPaid uint64 `json:"amount_paid"`
	Penalty    uint64 `json:"penalty"`
	// PenaltyTo is the account that received the penalty, empty when it
	// stayed in escrow
	PenaltyTo string `json:"penalty_to,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
