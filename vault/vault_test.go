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

package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/stakevault/address"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *database.Database
	ledger  *token.Ledger
	bus     *event.EventBus
	manager *vault.Manager
}

func setupManager(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(func() {
		bus.Stop()
		db.Close() //nolint:errcheck
	})
	ledger := token.NewLedger(db, nil)
	clock := func() time.Time { return time.Unix(1000, 0) }
	return &testEnv{
		db:      db,
		ledger:  ledger,
		bus:     bus,
		manager: vault.NewManager(db, ledger, bus, nil, clock),
	}
}

func TestInitialize(t *testing.T) {
	env := setupManager(t)
	_, evtCh := env.bus.Subscribe(vault.EventTypeVaultInitialized)
	v, err := env.manager.Initialize(context.Background(), "zoo", "admin")
	require.NoError(t, err)

	expected, bump, err := address.FindAddress(address.VaultSeeds("zoo")...)
	require.NoError(t, err)
	assert.Equal(t, expected, v.Address)
	assert.Equal(t, bump, v.Bump)
	assert.Equal(t, int64(1000), v.CreatedAt)

	got, err := env.manager.Get("zoo", nil)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	// Escrow account exists, is empty and is owned by the vault
	acct, err := env.ledger.Account(v.EscrowAccount(), nil)
	require.NoError(t, err)
	assert.Equal(t, v.Principal(), acct.Owner)
	assert.Equal(t, "zoo", acct.AssetID)

	select {
	case evt := <-evtCh:
		data, ok := evt.Data.(vault.VaultInitializedEvent)
		require.True(t, ok)
		assert.Equal(t, "admin", data.Authority)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	records, err := env.db.Journal(v.Address.Bytes(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(vault.EventTypeVaultInitialized), records[0].Type)
}

func TestInitializeTwice(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	_, err := env.manager.Initialize(ctx, "zoo", "admin")
	require.NoError(t, err)
	_, err = env.manager.Initialize(ctx, "zoo", "other")
	require.ErrorIs(t, err, vault.ErrAlreadyInitialized)

	// The first authority is kept
	v, err := env.manager.Get("zoo", nil)
	require.NoError(t, err)
	assert.Equal(t, "admin", v.Authority)
}

func TestInitializeValidation(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	_, err := env.manager.Initialize(ctx, "", "admin")
	require.ErrorIs(t, err, vault.ErrInvalidAsset)
	_, err = env.manager.Initialize(ctx, "zoo", "")
	require.ErrorIs(t, err, vault.ErrInvalidAuthority)
	_, err = env.manager.Get("zoo", nil)
	require.ErrorIs(t, err, vault.ErrVaultNotFound)
}

func TestList(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	for _, asset := range []string{"zoo", "ape"} {
		_, err := env.manager.Initialize(ctx, asset, "admin")
		require.NoError(t, err)
	}
	vaults, err := env.manager.List(nil)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, "zoo", vaults[0].AssetID)
	assert.Equal(t, "ape", vaults[1].AssetID)
}

func TestTransferOut(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	v, err := env.manager.Initialize(ctx, "zoo", "admin")
	require.NoError(t, err)
	_, err = env.ledger.OpenAccount(ctx, nil, "alice:zoo", "zoo", "alice")
	require.NoError(t, err)
	require.NoError(t, env.ledger.Mint(ctx, nil, v.EscrowAccount(), 10))

	err = env.db.Transaction(true).Do(func(txn *database.Txn) error {
		return v.TransferOut(ctx, txn, env.ledger, "alice:zoo", 4)
	})
	require.NoError(t, err)
	bal, err := env.manager.EscrowBalance(v, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), bal)

	// A tampered bump no longer derives the stored address
	tampered := *v
	tampered.Bump--
	err = tampered.TransferOut(ctx, nil, env.ledger, "alice:zoo", 1)
	require.ErrorIs(t, err, vault.ErrDerivationMismatch)
}

func TestLockSerializes(t *testing.T) {
	env := setupManager(t)
	addr, _, err := address.FindAddress(address.VaultSeeds("zoo")...)
	require.NoError(t, err)
	unlock := env.manager.Lock(addr)
	acquired := make(chan struct{})
	go func() {
		release := env.manager.Lock(addr)
		close(acquired)
		release()
	}()
	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not acquired after release")
	}
}
