// Copyright 2025 Blink Labs Software
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

package metadata

import (
	"log/slog"

	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/stakevault/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// MetadataStore holds the relational entity records. Every accessor takes an
// optional transaction; a nil txn runs against the store directly.
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Vaults
	CreateVault(*models.Vault, types.Txn) error
	GetVault(
		string, // assetID
		types.Txn,
	) (*models.Vault, error)
	GetVaultByAddress(
		[]byte, // vault address
		types.Txn,
	) (*models.Vault, error)
	GetVaults(types.Txn) ([]models.Vault, error)

	// Stake entries
	CreateStakeEntry(*models.StakeEntry, types.Txn) error
	GetStakeEntry(
		[]byte, // vault address
		string, // user
		types.Txn,
	) (*models.StakeEntry, error)
	GetStakeEntries(
		[]byte, // vault address
		types.Txn,
	) ([]models.StakeEntry, error)
	UpdateStakeEntry(*models.StakeEntry, types.Txn) error

	// Proposals and votes
	CreateProposal(*models.Proposal, types.Txn) error
	GetProposal(
		[]byte, // vault address
		uint64, // proposal id
		types.Txn,
	) (*models.Proposal, error)
	GetProposals(
		[]byte, // vault address
		types.Txn,
	) ([]models.Proposal, error)
	GetEndedOpenProposals(
		int64, // now
		types.Txn,
	) ([]models.Proposal, error)
	UpdateProposal(*models.Proposal, types.Txn) error
	CreateVoteRecord(*models.VoteRecord, types.Txn) error
	GetVoteRecord(
		[]byte, // proposal address
		string, // voter
		types.Txn,
	) (*models.VoteRecord, error)
	GetVoteRecords(
		[]byte, // proposal address
		types.Txn,
	) ([]models.VoteRecord, error)

	// Token accounts
	CreateTokenAccount(*models.TokenAccount, types.Txn) error
	GetTokenAccount(
		string, // account name
		types.Txn,
	) (*models.TokenAccount, error)
	GetTokenAccounts(
		string, // owner
		types.Txn,
	) ([]models.TokenAccount, error)
	SetTokenBalance(
		string, // account name
		uint64, // balance
		types.Txn,
	) error
}

// New returns a started sqlite metadata store
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	return sqlite.New(
		sqlite.WithDataDir(dataDir),
		sqlite.WithLogger(logger),
		sqlite.WithPromRegistry(promRegistry),
	)
}
