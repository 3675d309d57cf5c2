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

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	// EarlyExitWindow is how long a stake must be held before an unstake
	// request avoids the penalty
	EarlyExitWindow int64 = 3 * 24 * 60 * 60
	// UnstakeLock is the delay between requesting and completing an unstake
	UnstakeLock int64 = 2 * 24 * 60 * 60
	// PenaltyPercent is withheld from the principal on an early exit
	PenaltyPercent uint64 = 5
)

// Penalty returns floor(amount * PenaltyPercent / 100)
func Penalty(amount uint64) uint64 {
	hi, lo := bits.Mul64(amount, PenaltyPercent)
	// hi < 100 always holds, so Div64 cannot panic
	quo, _ := bits.Div64(hi, lo, 100)
	return quo
}

// PenaltyPolicy decides where withheld penalties go
type PenaltyPolicy string

const (
	// PenaltyPolicyRetain leaves penalties in the vault escrow
	PenaltyPolicyRetain PenaltyPolicy = "retain"
	// PenaltyPolicyTreasury moves penalties to the treasury account
	PenaltyPolicyTreasury PenaltyPolicy = "treasury"
)

func ParsePenaltyPolicy(s string) (PenaltyPolicy, error) {
	switch p := PenaltyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PenaltyPolicyRetain, nil
	case PenaltyPolicyRetain, PenaltyPolicyTreasury:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPenaltyPolicy, s)
	}
}
