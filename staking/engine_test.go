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

package staking_test

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAsset = "zoo"
	startTime = int64(1_700_000_000)
)

type testEnv struct {
	db     *database.Database
	ledger *token.Ledger
	vaults *vault.Manager
	vault  *vault.Vault
	engine *staking.Engine
	bus    *event.EventBus
	reg    *prometheus.Registry
	now    *atomic.Int64
}

func (e *testEnv) advance(seconds int64) {
	e.now.Add(seconds)
}

func (e *testEnv) fund(t *testing.T, user string, amount uint64) {
	t.Helper()
	ctx := context.Background()
	name := token.AccountName(user, testAsset)
	if _, err := e.ledger.Account(name, nil); err != nil {
		_, err = e.ledger.OpenAccount(ctx, nil, name, testAsset, user)
		require.NoError(t, err)
	}
	require.NoError(t, e.ledger.Mint(ctx, nil, name, amount))
}

func (e *testEnv) balance(t *testing.T, user string) uint64 {
	t.Helper()
	bal, err := e.ledger.Balance(token.AccountName(user, testAsset), nil)
	require.NoError(t, err)
	return bal
}

func (e *testEnv) escrow(t *testing.T) uint64 {
	t.Helper()
	bal, err := e.vaults.EscrowBalance(e.vault, nil)
	require.NoError(t, err)
	return bal
}

func setup(t *testing.T, mutate ...func(*staking.Config)) *testEnv {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(func() {
		bus.Stop()
		db.Close() //nolint:errcheck
	})
	now := &atomic.Int64{}
	now.Store(startTime)
	clock := func() time.Time { return time.Unix(now.Load(), 0) }
	ledger := token.NewLedger(db, nil)
	vaults := vault.NewManager(db, ledger, bus, nil, clock)
	v, err := vaults.Initialize(context.Background(), testAsset, "admin")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	cfg := staking.Config{
		DB:           db,
		Vaults:       vaults,
		Ledger:       ledger,
		EventBus:     bus,
		PromRegistry: reg,
		Clock:        clock,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	engine, err := staking.NewEngine(cfg)
	require.NoError(t, err)
	return &testEnv{
		db:     db,
		ledger: ledger,
		vaults: vaults,
		vault:  v,
		engine: engine,
		bus:    bus,
		reg:    reg,
		now:    now,
	}
}

func TestEarlyExitScenario(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 100)

	stakeEvt, err := env.engine.Stake(ctx, testAsset, "alice", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stakeEvt.TotalStaked)
	assert.Equal(t, uint64(0), env.balance(t, "alice"))
	assert.Equal(t, uint64(100), env.escrow(t))

	reqEvt, err := env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	assert.True(t, reqEvt.PenaltyApplied)
	assert.Equal(t, startTime+staking.UnstakeLock, reqEvt.UnlockTimestamp)

	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StakeStatusUnstaking.String(), info.Status)
	require.NotNil(t, info.UnlockTimestamp)
	assert.Equal(t, startTime+staking.UnstakeLock, *info.UnlockTimestamp)

	env.advance(staking.UnstakeLock)
	doneEvt, err := env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(95), doneEvt.AmountPaid)
	assert.Equal(t, uint64(5), doneEvt.Penalty)
	assert.Empty(t, doneEvt.PenaltyTo)
	assert.Equal(t, uint64(95), env.balance(t, "alice"))
	assert.Equal(t, uint64(5), env.escrow(t))

	info, err = env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), info.Amount)
	assert.Equal(t, models.StakeStatusUnstaked.String(), info.Status)
	assert.Nil(t, info.UnstakeTimestamp)
	assert.Nil(t, info.UnlockTimestamp)

	records, err := env.db.Journal(env.vault.Address.Bytes(), nil)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, string(staking.EventTypeUnstakeComplete), records[3].Type)
	var journaled staking.UnstakeCompleteEvent
	require.NoError(t, records[3].DecodePayload(&journaled))
	assert.Equal(t, *doneEvt, journaled)

	assert.InDelta(t, 5, gatherCounter(t, env.reg, "staking_penalty_units_total"), 0)
	assert.InDelta(t, 1, gatherCounter(t, env.reg, "staking_unstake_completed_total"), 0)
}

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestNoPenaltyAfterWindow(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 1000)
	require.NoError(t, err)
	env.advance(staking.EarlyExitWindow)
	evt, err := env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	assert.False(t, evt.PenaltyApplied)
	env.advance(staking.UnstakeLock)
	done, err := env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), done.AmountPaid)
	assert.Equal(t, uint64(0), done.Penalty)
	assert.Equal(t, uint64(0), env.escrow(t))
}

func TestPenaltyJustBeforeWindow(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 1000)
	require.NoError(t, err)
	env.advance(staking.EarlyExitWindow - 1)
	evt, err := env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	assert.True(t, evt.PenaltyApplied)
}

func TestLockBoundary(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 100)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 100)
	require.NoError(t, err)
	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)

	env.advance(staking.UnstakeLock - 1)
	_, err = env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.ErrorIs(t, err, staking.ErrLockPeriodNotOver)

	// A failed completion changes nothing
	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.True(t, info.PenaltyApplied)
	assert.Equal(t, uint64(100), info.Amount)
	assert.Equal(t, models.StakeStatusUnstaking.String(), info.Status)
	assert.Equal(t, uint64(100), env.escrow(t))

	env.advance(1)
	_, err = env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
}

func TestDepositsAccumulate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 1_000)
	deposits := []uint64{1, 10, 100, 250, 39}
	var sum uint64
	for _, amount := range deposits {
		env.advance(10)
		evt, err := env.engine.Stake(ctx, testAsset, "alice", amount)
		require.NoError(t, err)
		sum += amount
		assert.Equal(t, sum, evt.TotalStaked)
	}
	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, sum, info.Amount)
	// Top-ups keep the original stake start
	assert.Equal(t, startTime+10, info.Timestamp)
	assert.Equal(t, 1_000-sum, env.balance(t, "alice"))
	assert.Equal(t, sum, env.escrow(t))
}

func TestStakeOverflow(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", math.MaxUint64)
	_, err := env.engine.Stake(ctx, testAsset, "alice", math.MaxUint64-5)
	require.NoError(t, err)
	_, err = env.engine.Stake(ctx, testAsset, "alice", 6)
	require.ErrorIs(t, err, staking.ErrOverflow)

	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-5), info.Amount)
	assert.Equal(t, uint64(5), env.balance(t, "alice"))
}

func TestTopUpCancelsUnstake(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 101)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 100)
	require.NoError(t, err)
	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)

	env.advance(60)
	_, err = env.engine.Stake(ctx, testAsset, "alice", 1)
	require.NoError(t, err)
	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StakeStatusActive.String(), info.Status)
	assert.Nil(t, info.UnstakeTimestamp)
	assert.Equal(t, uint64(101), info.Amount)
	assert.Equal(t, startTime, info.Timestamp)
	// The early exit flag is sticky across a top-up
	assert.True(t, info.PenaltyApplied)

	env.advance(staking.UnstakeLock)
	_, err = env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.ErrorIs(t, err, staking.ErrNotUnstaking)
}

func TestRestakeResetsEntry(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 100)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 100)
	require.NoError(t, err)
	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	env.advance(staking.UnstakeLock)
	_, err = env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)

	env.advance(100)
	_, err = env.engine.Stake(ctx, testAsset, "alice", 50)
	require.NoError(t, err)
	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StakeStatusActive.String(), info.Status)
	assert.False(t, info.PenaltyApplied)
	assert.Equal(t, env.now.Load(), info.Timestamp)
	assert.Equal(t, uint64(50), info.Amount)
}

func TestStakeErrors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.engine.Stake(ctx, testAsset, "alice", 0)
	require.ErrorIs(t, err, staking.ErrInvalidAmount)
	_, err = env.engine.Stake(ctx, testAsset, "", 10)
	require.ErrorIs(t, err, staking.ErrUnauthorized)
	_, err = env.engine.Stake(ctx, "ape", "alice", 10)
	require.ErrorIs(t, err, vault.ErrVaultNotFound)

	env.fund(t, "alice", 5)
	_, err = env.engine.Stake(ctx, testAsset, "alice", 10)
	require.ErrorIs(t, err, token.ErrInsufficientFunds)
	_, err = env.engine.StakeInfo(testAsset, "alice", nil)
	require.ErrorIs(t, err, staking.ErrNoStakeFound)
	assert.Equal(t, uint64(5), env.balance(t, "alice"))

	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.ErrorIs(t, err, staking.ErrNoStakeFound)
	_, err = env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.ErrorIs(t, err, staking.ErrNoStakeFound)

	_, err = env.engine.Stake(ctx, testAsset, "alice", 5)
	require.NoError(t, err)
	_, err = env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.ErrorIs(t, err, staking.ErrNotUnstaking)
	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.ErrorIs(t, err, staking.ErrStakeNotActive)
}

func TestStakeNeedsOwnAccount(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.fund(t, "alice", 100)
	// bob has no account for this asset
	_, err := env.engine.Stake(ctx, testAsset, "bob", 10)
	require.ErrorIs(t, err, token.ErrAccountNotFound)
}

func TestTierScenario(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	amount := 1000 * staking.UnitsPerToken
	env.fund(t, "alice", amount)
	_, err := env.engine.Stake(ctx, testAsset, "alice", amount)
	require.NoError(t, err)
	info, err := env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, staking.TierPremium, info.Tier)
	perks := info.Perks()
	assert.Equal(t, uint8(20), perks.DiscountPercent)
	assert.True(t, perks.ExclusiveAccess)

	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	info, err = env.engine.StakeInfo(testAsset, "alice", nil)
	require.NoError(t, err)
	// Tier is still computed but perks are revoked while unstaking
	assert.Equal(t, staking.TierPremium, info.Tier)
	assert.True(t, info.Perks().AccessRevoked)
	assert.Equal(t, uint8(0), info.Perks().DiscountPercent)
}

func TestTreasuryPolicy(t *testing.T) {
	env := setup(t, func(cfg *staking.Config) {
		cfg.PenaltyPolicy = staking.PenaltyPolicyTreasury
		cfg.TreasuryOwner = "treasury"
	})
	ctx := context.Background()
	env.fund(t, "alice", 1000)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 1000)
	require.NoError(t, err)
	_, err = env.engine.RequestUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	env.advance(staking.UnstakeLock)
	evt, err := env.engine.CompleteUnstake(ctx, testAsset, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(950), evt.AmountPaid)
	assert.Equal(t, uint64(50), evt.Penalty)
	assert.Equal(t, token.AccountName("treasury", testAsset), evt.PenaltyTo)
	assert.Equal(t, uint64(50), env.balance(t, "treasury"))
	assert.Equal(t, uint64(0), env.escrow(t))
}

func TestTreasuryPolicyRequiresOwner(t *testing.T) {
	db, err := database.New(nil)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	ledger := token.NewLedger(db, nil)
	_, err = staking.NewEngine(staking.Config{
		DB:            db,
		Vaults:        vault.NewManager(db, ledger, nil, nil, nil),
		Ledger:        ledger,
		PenaltyPolicy: staking.PenaltyPolicyTreasury,
	})
	require.ErrorIs(t, err, staking.ErrNoTreasuryAccount)
	_, err = staking.NewEngine(staking.Config{
		DB:            db,
		Vaults:        vault.NewManager(db, ledger, nil, nil, nil),
		Ledger:        ledger,
		PenaltyPolicy: "burn",
	})
	require.ErrorIs(t, err, staking.ErrInvalidPenaltyPolicy)
}

func TestEventsPublished(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	_, stakeCh := env.bus.Subscribe(staking.EventTypeStake)
	env.fund(t, "alice", 10)
	_, err := env.engine.Stake(ctx, testAsset, "alice", 10)
	require.NoError(t, err)
	select {
	case evt := <-stakeCh:
		data, ok := evt.Data.(staking.StakeEvent)
		require.True(t, ok)
		assert.Equal(t, "alice", data.User)
		assert.Equal(t, uint64(10), data.Amount)
		assert.Equal(t, time.Unix(startTime, 0), evt.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for stake event")
	}
}
