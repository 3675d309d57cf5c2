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

var ErrProposalNotFound = errors.New("proposal not found")

// ProposalStatus is the lifecycle state of a proposal
type ProposalStatus uint8

const (
	ProposalStatusOpen ProposalStatus = iota
	ProposalStatusFinalized
	// ProposalStatusCancelled is never reached by any operation
	ProposalStatusCancelled
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusOpen:
		return "open"
	case ProposalStatusFinalized:
		return "finalized"
	case ProposalStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Proposal is a time-boxed yes/no vote within a vault.
// Lifecycle: open -> finalized.
type Proposal struct {
	ID          uint         `gorm:"primarykey"`
	Address     []byte       `gorm:"uniqueIndex;size:32;not null"`
	Vault       []byte       `gorm:"uniqueIndex:idx_proposal_vault_id,priority:1;size:32;not null"`
	ProposalID  types.Uint64 `gorm:"uniqueIndex:idx_proposal_vault_id,priority:2;not null"`
	AssetID     string       `gorm:"size:128;not null"`
	Authority   string       `gorm:"size:128;not null"`
	VotingStart int64        `gorm:"not null"`
	VotingEnd   int64        `gorm:"index;not null"`
	YesVotes    types.Uint64
	NoVotes     types.Uint64
	Status      ProposalStatus `gorm:"index;not null"`
	FinalizedAt *int64
	Bump        uint8
}

func (Proposal) TableName() string {
	return "proposal"
}
