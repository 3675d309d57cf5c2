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

package models

import (
	"errors"

	"github.com/blinklabs-io/stakevault/database/types"
)

var ErrStakeEntryNotFound = errors.New("stake entry not found")

// StakeStatus is the lifecycle state of a stake entry. The zero value marks
// an entry that has never received a deposit.
type StakeStatus uint8

const (
	StakeStatusNone StakeStatus = iota
	StakeStatusActive
	StakeStatusUnstaking
	StakeStatusUnstaked
)

func (s StakeStatus) String() string {
	switch s {
	case StakeStatusNone:
		return "none"
	case StakeStatusActive:
		return "active"
	case StakeStatusUnstaking:
		return "unstaking"
	case StakeStatusUnstaked:
		return "unstaked"
	default:
		return "unknown"
	}
}

// StakeEntry tracks one user's locked balance in one vault. Entries are
// zeroed on withdrawal and never deleted.
type StakeEntry struct {
	ID                 uint   `gorm:"primarykey"`
	Address            []byte `gorm:"uniqueIndex;size:32;not null"`
	Vault              []byte `gorm:"uniqueIndex:idx_stake_vault_user,priority:1;size:32;not null"`
	User               string `gorm:"uniqueIndex:idx_stake_vault_user,priority:2;size:128;not null"`
	Amount             types.Uint64
	StakedAt           int64
	UnstakeRequestedAt *int64
	Status             StakeStatus `gorm:"index;not null"`
	PenaltyApplied     bool
	Bump               uint8
}

func (StakeEntry) TableName() string {
	return "stake_entry"
}
