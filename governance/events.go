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

package governance

import "github.com/blinklabs-io/stakevault/event"

const (
	EventTypeProposalCreated   event.EventType = "governance.proposal_created"
	EventTypeVoteCast          event.EventType = "governance.vote_cast"
	EventTypeProposalFinalized event.EventType = "governance.proposal_finalized"
	EventTypeSweepCompleted    event.EventType = "governance.sweep_completed"
)

type ProposalCreatedEvent struct {
	Vault       string `json:"vault"`
	Proposal    string `json:"proposal"`
	ProposalID  uint64 `json:"proposal_id"`
	AssetID     string `json:"asset_id"`
	Authority   string `json:"authority"`
	VotingStart int64  `json:"voting_start"`
	VotingEnd   int64  `json:"voting_end"`
	Timestamp   int64  `json:"timestamp"`
}

type VoteCastEvent struct {
	Vault      string `json:"vault"`
	Proposal   string `json:"proposal"`
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Weight     uint64 `json:"weight"`
	Choice     bool   `json:"choice"`
	Timestamp  int64  `json:"timestamp"`
}

type ProposalFinalizedEvent struct {
	Vault       string `json:"vault"`
	Proposal    string `json:"proposal"`
	ProposalID  uint64 `json:"proposal_id"`
	YesVotes    uint64 `json:"yes_votes"`
	NoVotes     uint64 `json:"no_votes"`
	FinalizedAt int64  `json:"finalized_at"`
	FinalizedBy string `json:"finalized_by"`
}

// SweepCompletedEvent is published after a sweep that found at least one
// ended proposal
type SweepCompletedEvent struct {
	Candidates int   `json:"candidates"`
	Finalized  int   `json:"finalized"`
	Failed     int   `json:"failed"`
	Timestamp  int64 `json:"timestamp"`
}
