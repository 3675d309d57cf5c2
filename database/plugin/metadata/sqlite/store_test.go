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
	"bytes"
	"testing"

	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func testAddr(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	store1 := setupTestStore(t)
	store2 := setupTestStore(t)
	require.NoError(t, store1.CreateVault(&models.Vault{
		Address:   testAddr(1),
		AssetID:   "zoo",
		Authority: "admin",
		Escrow:    testAddr(2),
	}, nil))
	_, err := store2.GetVault("zoo", nil)
	require.ErrorIs(t, err, models.ErrVaultNotFound)
}

func TestCreateVaultDuplicate(t *testing.T) {
	store := setupTestStore(t)
	vault := &models.Vault{
		Address:   testAddr(1),
		AssetID:   "zoo",
		Authority: "admin",
		Escrow:    testAddr(2),
	}
	require.NoError(t, store.CreateVault(vault, nil))
	err := store.CreateVault(&models.Vault{
		Address:   testAddr(1),
		AssetID:   "zoo",
		Authority: "someone-else",
		Escrow:    testAddr(2),
	}, nil)
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	got, err := store.GetVault("zoo", nil)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Authority)
	byAddr, err := store.GetVaultByAddress(testAddr(1), nil)
	require.NoError(t, err)
	assert.Equal(t, got.ID, byAddr.ID)
	vaults, err := store.GetVaults(nil)
	require.NoError(t, err)
	assert.Len(t, vaults, 1)
}

func TestStakeEntryRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	vault := testAddr(1)
	_, err := store.GetStakeEntry(vault, "alice", nil)
	require.ErrorIs(t, err, models.ErrStakeEntryNotFound)

	entry := &models.StakeEntry{
		Address:  testAddr(3),
		Vault:    vault,
		User:     "alice",
		Amount:   types.Uint64(^uint64(0)),
		StakedAt: 100,
		Status:   models.StakeStatusActive,
	}
	require.NoError(t, store.CreateStakeEntry(entry, nil))
	err = store.CreateStakeEntry(&models.StakeEntry{
		Address: testAddr(4),
		Vault:   vault,
		User:    "alice",
	}, nil)
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	requested := int64(200)
	entry.Status = models.StakeStatusUnstaking
	entry.UnstakeRequestedAt = &requested
	entry.PenaltyApplied = true
	require.NoError(t, store.UpdateStakeEntry(entry, nil))

	got, err := store.GetStakeEntry(vault, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, types.Uint64(^uint64(0)), got.Amount)
	assert.Equal(t, models.StakeStatusUnstaking, got.Status)
	require.NotNil(t, got.UnstakeRequestedAt)
	assert.Equal(t, int64(200), *got.UnstakeRequestedAt)
	assert.True(t, got.PenaltyApplied)

	// Clearing the request writes NULL and a zero amount
	got.Amount = 0
	got.Status = models.StakeStatusUnstaked
	got.UnstakeRequestedAt = nil
	require.NoError(t, store.UpdateStakeEntry(got, nil))
	got, err = store.GetStakeEntry(vault, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, types.Uint64(0), got.Amount)
	assert.Nil(t, got.UnstakeRequestedAt)

	entries, err := store.GetStakeEntries(vault, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProposalAndVotes(t *testing.T) {
	store := setupTestStore(t)
	vault := testAddr(1)
	proposal := &models.Proposal{
		Address:     testAddr(5),
		Vault:       vault,
		ProposalID:  7,
		AssetID:     "zoo",
		Authority:   "admin",
		VotingStart: 10,
		VotingEnd:   20,
	}
	require.NoError(t, store.CreateProposal(proposal, nil))
	err := store.CreateProposal(&models.Proposal{
		Address:    testAddr(6),
		Vault:      vault,
		ProposalID: 7,
	}, nil)
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	_, err = store.GetProposal(vault, 8, nil)
	require.ErrorIs(t, err, models.ErrProposalNotFound)

	vote := &models.VoteRecord{
		Address:  testAddr(7),
		Proposal: proposal.Address,
		Voter:    "alice",
		Weight:   50,
		Choice:   true,
		VotedAt:  11,
	}
	require.NoError(t, store.CreateVoteRecord(vote, nil))
	err = store.CreateVoteRecord(&models.VoteRecord{
		Address:  testAddr(8),
		Proposal: proposal.Address,
		Voter:    "alice",
		Weight:   50,
		VotedAt:  12,
	}, nil)
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	proposal.YesVotes = 50
	require.NoError(t, store.UpdateProposal(proposal, nil))
	got, err := store.GetProposal(vault, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Uint64(50), got.YesVotes)

	ended, err := store.GetEndedOpenProposals(20, nil)
	require.NoError(t, err)
	assert.Empty(t, ended)
	ended, err = store.GetEndedOpenProposals(21, nil)
	require.NoError(t, err)
	require.Len(t, ended, 1)

	votes, err := store.GetVoteRecords(proposal.Address, nil)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "alice", votes[0].Voter)
	_, err = store.GetVoteRecord(proposal.Address, "bob", nil)
	require.ErrorIs(t, err, models.ErrVoteRecordNotFound)
}

func TestTransactionRollback(t *testing.T) {
	store := setupTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.CreateTokenAccount(&models.TokenAccount{
		Name:    "alice",
		AssetID: "zoo",
		Owner:   "alice",
	}, txn))
	require.NoError(t, txn.Rollback())
	_, err := store.GetTokenAccount("alice", nil)
	require.ErrorIs(t, err, models.ErrTokenAccountNotFound)

	// A finished transaction can no longer be used
	_, err = store.GetTokenAccount("alice", txn)
	require.Error(t, err)
}

func TestTokenBalance(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.CreateTokenAccount(&models.TokenAccount{
		Name:    "alice",
		AssetID: "zoo",
		Owner:   "alice",
	}, nil))
	require.NoError(t, store.SetTokenBalance("alice", 1234, nil))
	acct, err := store.GetTokenAccount("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, types.Uint64(1234), acct.Balance)
	err = store.SetTokenBalance("bob", 1, nil)
	require.ErrorIs(t, err, models.ErrTokenAccountNotFound)
	accts, err := store.GetTokenAccounts("alice", nil)
	require.NoError(t, err)
	assert.Len(t, accts, 1)
}

func TestCommitTimestamp(t *testing.T) {
	store := setupTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	require.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)
	txn := store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(12345, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ts)
}
