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

package token_test

import (
	"context"
	"errors"
	"testing"

	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedger(t *testing.T) (*database.Database, *token.Ledger) {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	ledger := token.NewLedger(db, nil)
	ctx := context.Background()
	for _, acct := range []struct{ name, asset, owner string }{
		{"alice:zoo", "zoo", "alice"},
		{"bob:zoo", "zoo", "bob"},
		{"alice:ape", "ape", "alice"},
	} {
		_, err := ledger.OpenAccount(ctx, nil, acct.name, acct.asset, acct.owner)
		require.NoError(t, err)
	}
	require.NoError(t, ledger.Mint(ctx, nil, "alice:zoo", 100))
	return db, ledger
}

func TestAccountName(t *testing.T) {
	assert.Equal(t, "alice:zoo", token.AccountName("alice", "zoo"))
}

func TestTransfer(t *testing.T) {
	_, ledger := setupLedger(t)
	err := ledger.Transfer(context.Background(), nil, token.TransferRequest{
		From:      "alice:zoo",
		To:        "bob:zoo",
		Authority: "alice",
		Amount:    40,
	})
	require.NoError(t, err)
	bal, err := ledger.Balance("alice:zoo", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), bal)
	bal, err = ledger.Balance("bob:zoo", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), bal)
}

func TestTransferErrors(t *testing.T) {
	_, ledger := setupLedger(t)
	ctx := context.Background()
	testDefs := []struct {
		name string
		req  token.TransferRequest
		err  error
	}{
		{
			name: "insufficient",
			req:  token.TransferRequest{From: "alice:zoo", To: "bob:zoo", Authority: "alice", Amount: 101},
			err:  token.ErrInsufficientFunds,
		},
		{
			name: "unauthorized",
			req:  token.TransferRequest{From: "alice:zoo", To: "bob:zoo", Authority: "bob", Amount: 1},
			err:  token.ErrUnauthorizedTransfer,
		},
		{
			name: "asset mismatch",
			req:  token.TransferRequest{From: "alice:zoo", To: "alice:ape", Authority: "alice", Amount: 1},
			err:  token.ErrAssetMismatch,
		},
		{
			name: "missing account",
			req:  token.TransferRequest{From: "alice:zoo", To: "carol:zoo", Authority: "alice", Amount: 1},
			err:  token.ErrAccountNotFound,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := ledger.Transfer(ctx, nil, testDef.req)
			require.ErrorIs(t, err, testDef.err)
			bal, err := ledger.Balance("alice:zoo", nil)
			require.NoError(t, err)
			assert.Equal(t, uint64(100), bal)
		})
	}
}

func TestTransferRolledBackWithTxn(t *testing.T) {
	db, ledger := setupLedger(t)
	errBoom := errors.New("boom")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := ledger.Transfer(context.Background(), txn, token.TransferRequest{
			From:      "alice:zoo",
			To:        "bob:zoo",
			Authority: "alice",
			Amount:    100,
		}); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	bal, err := ledger.Balance("alice:zoo", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bal)
}

func TestMintOverflow(t *testing.T) {
	_, ledger := setupLedger(t)
	err := ledger.Mint(context.Background(), nil, "alice:zoo", ^uint64(0))
	require.ErrorIs(t, err, token.ErrBalanceOverflow)
}

func TestOpenAccountDuplicate(t *testing.T) {
	_, ledger := setupLedger(t)
	_, err := ledger.OpenAccount(context.Background(), nil, "alice:zoo", "zoo", "alice")
	require.ErrorIs(t, err, token.ErrAccountExists)
}
