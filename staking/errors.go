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

import "errors"

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrOverflow             = errors.New("arithmetic overflow")
	ErrStakeNotActive       = errors.New("stake is not active")
	ErrNoStakeFound         = errors.New("no stake found")
	ErrNotUnstaking         = errors.New("stake is not unstaking")
	ErrNoUnstakeRequest     = errors.New("no unstake request")
	ErrLockPeriodNotOver    = errors.New("lock period not over")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrCustodyViolation     = errors.New("total staked exceeds escrow balance")
	ErrInvalidPenaltyPolicy = errors.New("invalid penalty policy")
	ErrNoTreasuryAccount    = errors.New("treasury penalty policy requires a treasury account")
)
