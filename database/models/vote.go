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

var ErrVoteRecordNotFound = errors.New("vote record not found")

// VoteRecord is the immutable receipt of a single vote. Its unique
// (proposal, voter) index is the double-vote guard.
type VoteRecord struct {
	ID       uint         `gorm:"primarykey"`
	Address  []byte       `gorm:"uniqueIndex;size:32;not null"`
	Proposal []byte       `gorm:"uniqueIndex:idx_vote_proposal_voter,priority:1;size:32;not null"`
	Voter    string       `gorm:"uniqueIndex:idx_vote_proposal_voter,priority:2;size:128;not null"`
	Weight   types.Uint64 `gorm:"not null"`
	Choice   bool         // true = yes
	VotedAt  int64        `gorm:"not null"`
	Bump     uint8
}

func (VoteRecord) TableName() string {
	return "vote_record"
}
