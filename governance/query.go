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

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/stakevault/address"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/vault"
)

// ProposalInfo is the read view of a proposal
type ProposalInfo struct {
	Address     string `json:"address"`
	Vault       string `json:"vault"`
	AssetID     string `json:"asset_id"`
	ProposalID  uint64 `json:"proposal_id"`
	Authority   string `json:"authority"`
	VotingStart int64  `json:"voting_start"`
	VotingEnd   int64  `json:"voting_end"`
	YesVotes    uint64 `json:"yes_votes"`
	NoVotes     uint64 `json:"no_votes"`
	Status      string `json:"status"`
	FinalizedAt *int64 `json:"finalized_at,omitempty"`
}

// VoteInfo is the read view of a vote record
type VoteInfo struct {
	Address    string `json:"address"`
	Proposal   string `json:"proposal"`
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	Weight     uint64 `json:"weight"`
	Choice     bool   `json:"choice"`
	VotedAt    int64  `json:"voted_at"`
}

func newProposalInfo(v *vault.Vault, p *models.Proposal) *ProposalInfo {
	return &ProposalInfo{
		Address:     addressString(p.Address),
		Vault:       v.Address.String(),
		AssetID:     p.AssetID,
		ProposalID:  uint64(p.ProposalID),
		Authority:   p.Authority,
		VotingStart: p.VotingStart,
		VotingEnd:   p.VotingEnd,
		YesVotes:    uint64(p.YesVotes),
		NoVotes:     uint64(p.NoVotes),
		Status:      p.Status.String(),
		FinalizedAt: p.FinalizedAt,
	}
}

func newVoteInfo(proposalID uint64, r *models.VoteRecord) *VoteInfo {
	return &VoteInfo{
		Address:    addressString(r.Address),
		Proposal:   addressString(r.Proposal),
		ProposalID: proposalID,
		Voter:      r.Voter,
		Weight:     uint64(r.Weight),
		Choice:     r.Choice,
		VotedAt:    r.VotedAt,
	}
}

func addressString(b []byte) string {
	var addr address.Address
	copy(addr[:], b)
	return addr.String()
}

func (e *Engine) readTxn(txn *database.Txn) (*database.Txn, func()) {
	if txn != nil {
		return txn, func() {}
	}
	txn = e.config.DB.Transaction(false)
	return txn, txn.Release
}

// GetProposal returns a proposal of a vault
func (e *Engine) GetProposal(
	assetID string,
	proposalID uint64,
	txn *database.Txn,
) (*ProposalInfo, error) {
	txn, release := e.readTxn(txn)
	defer release()
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	p, err := e.getProposal(v, proposalID, txn)
	if err != nil {
		return nil, err
	}
	return newProposalInfo(v, p), nil
}

// ListProposals returns the proposals of a vault ordered by creation
func (e *Engine) ListProposals(
	assetID string,
	txn *database.Txn,
) ([]*ProposalInfo, error) {
	txn, release := e.readTxn(txn)
	defer release()
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	proposals, err := e.config.DB.GetProposals(v.Address.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	ret := make([]*ProposalInfo, 0, len(proposals))
	for i := range proposals {
		ret = append(ret, newProposalInfo(v, &proposals[i]))
	}
	return ret, nil
}

// ListVotes returns the vote records of a proposal
func (e *Engine) ListVotes(
	assetID string,
	proposalID uint64,
	txn *database.Txn,
) ([]*VoteInfo, error) {
	txn, release := e.readTxn(txn)
	defer release()
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	p, err := e.getProposal(v, proposalID, txn)
	if err != nil {
		return nil, err
	}
	records, err := e.config.DB.GetVoteRecords(p.Address, txn)
	if err != nil {
		return nil, err
	}
	ret := make([]*VoteInfo, 0, len(records))
	for i := range records {
		ret = append(ret, newVoteInfo(proposalID, &records[i]))
	}
	return ret, nil
}

// GetVote returns the vote of a voter on a proposal
func (e *Engine) GetVote(
	assetID string,
	proposalID uint64,
	voter string,
	txn *database.Txn,
) (*VoteInfo, error) {
	txn, release := e.readTxn(txn)
	defer release()
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	p, err := e.getProposal(v, proposalID, txn)
	if err != nil {
		return nil, err
	}
	record, err := e.config.DB.GetVoteRecord(p.Address, voter, txn)
	if err != nil {
		if errors.Is(err, models.ErrVoteRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrVoteNotFound, voter)
		}
		return nil, err
	}
	return newVoteInfo(proposalID, record), nil
}
