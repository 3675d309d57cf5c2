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

package database

import (
	"github.com/blinklabs-io/stakevault/database/models"
)

// CreateProposal inserts a proposal. It fails with types.ErrAlreadyExists
// when the vault already has a proposal with the same id.
func (d *Database) CreateProposal(proposal *models.Proposal, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.CreateProposal(proposal, txn.Metadata())
	})
}

// GetProposal returns a proposal by vault and proposal id
func (d *Database) GetProposal(
	vault []byte,
	proposalID uint64,
	txn *Txn,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposal(vault, proposalID, txn.Metadata())
		return err
	})
	return ret, err
}

// GetProposals returns all proposals of a vault
func (d *Database) GetProposals(
	vault []byte,
	txn *Txn,
) ([]models.Proposal, error) {
	var ret []models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposals(vault, txn.Metadata())
		return err
	})
	return ret, err
}

// GetEndedOpenProposals returns open proposals whose window ended before now
func (d *Database) GetEndedOpenProposals(
	now int64,
	txn *Txn,
) ([]models.Proposal, error) {
	var ret []models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetEndedOpenProposals(now, txn.Metadata())
		return err
	})
	return ret, err
}

// UpdateProposal persists the tallies and status of a proposal
func (d *Database) UpdateProposal(proposal *models.Proposal, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.UpdateProposal(proposal, txn.Metadata())
	})
}

// CreateVoteRecord inserts a vote record. It fails with
// types.ErrAlreadyExists when the voter already voted on the proposal.
func (d *Database) CreateVoteRecord(vote *models.VoteRecord, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.CreateVoteRecord(vote, txn.Metadata())
	})
}

// GetVoteRecord returns a voter's vote on a proposal
func (d *Database) GetVoteRecord(
	proposal []byte,
	voter string,
	txn *Txn,
) (*models.VoteRecord, error) {
	var ret *models.VoteRecord
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVoteRecord(proposal, voter, txn.Metadata())
		return err
	})
	return ret, err
}

// GetVoteRecords returns all votes on a proposal
func (d *Database) GetVoteRecords(
	proposal []byte,
	txn *Txn,
) ([]models.VoteRecord, error) {
	var ret []models.VoteRecord
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVoteRecords(proposal, txn.Metadata())
		return err
	})
	return ret, err
}
