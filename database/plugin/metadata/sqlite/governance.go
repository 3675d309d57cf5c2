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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
	"gorm.io/gorm"
)

// CreateProposal inserts a proposal, failing with types.ErrAlreadyExists if
// the vault already has a proposal with the same id
func (d *MetadataStoreSqlite) CreateProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return translateCreateError(db.Create(proposal).Error)
}

// GetProposal retrieves a proposal by vault and proposal id
func (d *MetadataStoreSqlite) GetProposal(
	vault []byte,
	proposalID uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Proposal{}
	result := db.Where(
		"vault = ? AND proposal_id = ?",
		vault,
		types.Uint64(proposalID),
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetProposals returns all proposals of a vault in creation order
func (d *MetadataStoreSqlite) GetProposals(
	vault []byte,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	if result := db.Where("vault = ?", vault).Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetEndedOpenProposals returns open proposals across all vaults whose
// voting window ended before now
func (d *MetadataStoreSqlite) GetEndedOpenProposals(
	now int64,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	result := db.Where(
		"status = ? AND voting_end < ?",
		models.ProposalStatusOpen,
		now,
	).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// UpdateProposal writes the tallies and status of an existing proposal
func (d *MetadataStoreSqlite) UpdateProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if proposal.ID == 0 {
		return models.ErrProposalNotFound
	}
	result := db.Model(proposal).
		Select("yes_votes", "no_votes", "status", "finalized_at").
		Updates(proposal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrProposalNotFound
	}
	return nil
}

// CreateVoteRecord inserts a vote record. A second record for the same
// (proposal, voter) pair fails with types.ErrAlreadyExists.
func (d *MetadataStoreSqlite) CreateVoteRecord(
	vote *models.VoteRecord,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return translateCreateError(db.Create(vote).Error)
}

// GetVoteRecord returns the vote of a voter on a proposal
func (d *MetadataStoreSqlite) GetVoteRecord(
	proposal []byte,
	voter string,
	txn types.Txn,
) (*models.VoteRecord, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.VoteRecord{}
	result := db.Where("proposal = ? AND voter = ?", proposal, voter).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrVoteRecordNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetVoteRecords returns all votes on a proposal in the order they were cast
func (d *MetadataStoreSqlite) GetVoteRecords(
	proposal []byte,
	txn types.Txn,
) ([]models.VoteRecord, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.VoteRecord
	if result := db.Where("proposal = ?", proposal).Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
