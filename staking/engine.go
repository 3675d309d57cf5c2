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

// Package staking implements the stake lifecycle of a vault: deposits,
// time-locked withdrawal requests and their completion, with an early exit
// penalty.
package staking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/blinklabs-io/stakevault/address"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/stakevault/staking"

type Config struct {
	DB           *database.Database
	Vaults       *vault.Manager
	Ledger       *token.Ledger
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Clock        func() time.Time
	// PenaltyPolicy defaults to PenaltyPolicyRetain
	PenaltyPolicy PenaltyPolicy
	// TreasuryOwner owns the per-asset account receiving penalties under
	// PenaltyPolicyTreasury
	TreasuryOwner string
}

type Engine struct {
	config  Config
	logger  *slog.Logger
	metrics *stakingMetrics
	tracer  trace.Tracer
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.DB == nil || cfg.Vaults == nil || cfg.Ledger == nil {
		return nil, errors.New("staking engine requires a database, vault manager and ledger")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	policy, err := ParsePenaltyPolicy(string(cfg.PenaltyPolicy))
	if err != nil {
		return nil, err
	}
	cfg.PenaltyPolicy = policy
	if policy == PenaltyPolicyTreasury && cfg.TreasuryOwner == "" {
		return nil, ErrNoTreasuryAccount
	}
	e := &Engine{
		config: cfg,
		logger: cfg.Logger.With("component", "staking"),
		tracer: otel.Tracer(tracerName),
	}
	if cfg.PromRegistry != nil {
		e.metrics = initMetrics(cfg.PromRegistry)
	}
	return e, nil
}

// StakeInfo is a read-only projection of a stake entry
type StakeInfo struct {
	Vault            string `json:"vault"`
	User             string `json:"user"`
	Amount           uint64 `json:"amount"`
	Timestamp        int64  `json:"timestamp"`
	UnstakeTimestamp *int64 `json:"unstake_timestamp,omitempty"`
	UnlockTimestamp  *int64 `json:"unlock_timestamp,omitempty"`
	Status           string `json:"status"`
	Tier             Tier   `json:"tier"`
	PenaltyApplied   bool   `json:"penalty_applied"`

	status models.StakeStatus
}

// Perks returns the storefront perks the stake currently grants
func (s *StakeInfo) Perks() Perks {
	return PerksFor(s.Amount, s.status)
}

func newStakeInfo(v *vault.Vault, entry *models.StakeEntry) *StakeInfo {
	info := &StakeInfo{
		Vault:          v.Address.String(),
		User:           entry.User,
		Amount:         uint64(entry.Amount),
		Timestamp:      entry.StakedAt,
		Status:         entry.Status.String(),
		Tier:           TierFor(uint64(entry.Amount)),
		PenaltyApplied: entry.PenaltyApplied,
		status:         entry.Status,
	}
	if entry.UnstakeRequestedAt != nil {
		ts := *entry.UnstakeRequestedAt
		info.UnstakeTimestamp = &ts
		if entry.Status == models.StakeStatusUnstaking {
			unlock := ts + UnstakeLock
			info.UnlockTimestamp = &unlock
		}
	}
	return info
}

// Stake moves amount from the caller's account into the vault escrow and
// credits the caller's stake entry. A deposit on an unstaking entry cancels
// the pending withdrawal.
func (e *Engine) Stake(
	ctx context.Context,
	assetID string,
	caller string,
	amount uint64,
) (_ *StakeEvent, err error) {
	ctx, span := e.startSpan(ctx, "Stake", assetID, caller)
	defer func() { e.endSpan(span, "stake", err) }()
	if caller == "" {
		return nil, ErrUnauthorized
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	now := e.config.Clock().Unix()
	v, err := e.config.Vaults.Get(assetID, nil)
	if err != nil {
		return nil, err
	}
	unlock := e.config.Vaults.Lock(v.Address)
	defer unlock()
	var evt *StakeEvent
	err = e.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		entry, isNew, err := e.loadOrNewEntry(v, caller, txn)
		if err != nil {
			return err
		}
		total := uint64(entry.Amount) + amount
		if total < amount {
			return fmt.Errorf(
				"%w: staked %d plus deposit %d",
				ErrOverflow,
				uint64(entry.Amount),
				amount,
			)
		}
		if err := e.config.Ledger.Transfer(ctx, txn, token.TransferRequest{
			From:      token.AccountName(caller, assetID),
			To:        v.EscrowAccount(),
			Authority: caller,
			Amount:    amount,
		}); err != nil {
			return err
		}
		if entry.Amount == 0 {
			// First deposit, or a fresh start after a completed withdrawal
			entry.StakedAt = now
			entry.PenaltyApplied = false
		}
		entry.Amount = types.Uint64(total)
		entry.Status = models.StakeStatusActive
		entry.UnstakeRequestedAt = nil
		if isNew {
			err = e.config.DB.CreateStakeEntry(entry, txn)
		} else {
			err = e.config.DB.UpdateStakeEntry(entry, txn)
		}
		if err != nil {
			return err
		}
		evt = &StakeEvent{
			Vault:       v.Address.String(),
			User:        caller,
			Amount:      amount,
			TotalStaked: total,
			Timestamp:   now,
		}
		return e.record(txn, v, EventTypeStake, now, *evt)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(
		ctx,
		"stake deposited",
		"asset", assetID,
		"user", caller,
		"amount", amount,
		"total", evt.TotalStaked,
	)
	if e.metrics != nil {
		e.metrics.deposits.WithLabelValues(assetID).Inc()
		e.metrics.depositedUnits.WithLabelValues(assetID).Add(float64(amount))
	}
	return evt, nil
}

// RequestUnstake starts the withdrawal lock of the caller's stake. The
// penalty flag is set when the stake is younger than EarlyExitWindow and is
// never cleared here.
func (e *Engine) RequestUnstake(
	ctx context.Context,
	assetID string,
	caller string,
) (_ *UnstakeRequestEvent, err error) {
	ctx, span := e.startSpan(ctx, "RequestUnstake", assetID, caller)
	defer func() { e.endSpan(span, "request_unstake", err) }()
	if caller == "" {
		return nil, ErrUnauthorized
	}
	now := e.config.Clock().Unix()
	v, err := e.config.Vaults.Get(assetID, nil)
	if err != nil {
		return nil, err
	}
	unlock := e.config.Vaults.Lock(v.Address)
	defer unlock()
	var evt *UnstakeRequestEvent
	err = e.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		entry, err := e.getEntry(v, caller, txn)
		if err != nil {
			return err
		}
		if entry.Status != models.StakeStatusActive {
			return fmt.Errorf("%w: status %s", ErrStakeNotActive, entry.Status)
		}
		if entry.Amount == 0 {
			return ErrNoStakeFound
		}
		if now-entry.StakedAt < EarlyExitWindow {
			entry.PenaltyApplied = true
		}
		requestedAt := now
		entry.UnstakeRequestedAt = &requestedAt
		entry.Status = models.StakeStatusUnstaking
		if err := e.config.DB.UpdateStakeEntry(entry, txn); err != nil {
			return err
		}
		evt = &UnstakeRequestEvent{
			Vault:           v.Address.String(),
			User:            caller,
			Amount:          uint64(entry.Amount),
			UnlockTimestamp: now + UnstakeLock,
			PenaltyApplied:  entry.PenaltyApplied,
			Timestamp:       now,
		}
		return e.record(txn, v, EventTypeUnstakeRequest, now, *evt)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(
		ctx,
		"unstake requested",
		"asset", assetID,
		"user", caller,
		"amount", evt.Amount,
		"unlock", evt.UnlockTimestamp,
		"penalty", evt.PenaltyApplied,
	)
	if e.metrics != nil {
		e.metrics.unstakeRequests.WithLabelValues(
			assetID,
			strconv.FormatBool(evt.PenaltyApplied),
		).Inc()
	}
	return evt, nil
}

// CompleteUnstake pays out the caller's stake once the lock has elapsed,
// withholding the penalty if flagged, and zeroes the entry
func (e *Engine) CompleteUnstake(
	ctx context.Context,
	assetID string,
	caller string,
) (_ *UnstakeCompleteEvent, err error) {
	ctx, span := e.startSpan(ctx, "CompleteUnstake", assetID, caller)
	defer func() { e.endSpan(span, "complete_unstake", err) }()
	if caller == "" {
		return nil, ErrUnauthorized
	}
	now := e.config.Clock().Unix()
	v, err := e.config.Vaults.Get(assetID, nil)
	if err != nil {
		return nil, err
	}
	unlock := e.config.Vaults.Lock(v.Address)
	defer unlock()
	var evt *UnstakeCompleteEvent
	err = e.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		entry, err := e.getEntry(v, caller, txn)
		if err != nil {
			return err
		}
		if entry.Status != models.StakeStatusUnstaking {
			return fmt.Errorf("%w: status %s", ErrNotUnstaking, entry.Status)
		}
		if entry.UnstakeRequestedAt == nil {
			return ErrNoUnstakeRequest
		}
		unlockAt := *entry.UnstakeRequestedAt + UnstakeLock
		if now < unlockAt {
			return fmt.Errorf(
				"%w: unlocks at %d, now %d",
				ErrLockPeriodNotOver,
				unlockAt,
				now,
			)
		}
		amount := uint64(entry.Amount)
		var penalty uint64
		if entry.PenaltyApplied {
			penalty = Penalty(amount)
		}
		if penalty > amount {
			return ErrOverflow
		}
		payout := amount - penalty
		if err := v.TransferOut(
			ctx,
			txn,
			e.config.Ledger,
			token.AccountName(caller, assetID),
			payout,
		); err != nil {
			return err
		}
		penaltyTo, err := e.disposePenalty(ctx, v, penalty, txn)
		if err != nil {
			return err
		}
		entry.Amount = 0
		entry.Status = models.StakeStatusUnstaked
		entry.UnstakeRequestedAt = nil
		if err := e.config.DB.UpdateStakeEntry(entry, txn); err != nil {
			return err
		}
		evt = &UnstakeCompleteEvent{
			Vault:      v.Address.String(),
			User:       caller,
			AmountPaid: payout,
			Penalty:    penalty,
			PenaltyTo:  penaltyTo,
			Timestamp:  now,
		}
		return e.record(txn, v, EventTypeUnstakeComplete, now, *evt)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(
		ctx,
		"unstake completed",
		"asset", assetID,
		"user", caller,
		"paid", evt.AmountPaid,
		"penalty", evt.Penalty,
	)
	if e.metrics != nil {
		e.metrics.unstakeCompleted.WithLabelValues(assetID).Inc()
		e.metrics.paidOutUnits.WithLabelValues(assetID).Add(float64(evt.AmountPaid))
		e.metrics.penaltyUnits.WithLabelValues(assetID).Add(float64(evt.Penalty))
	}
	return evt, nil
}

// StakeInfo returns the stake of a user. Anyone may inspect any stake.
func (e *Engine) StakeInfo(
	assetID string,
	user string,
	txn *database.Txn,
) (*StakeInfo, error) {
	if txn == nil {
		txn = e.config.DB.Transaction(false)
		defer txn.Release()
	}
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	entry, err := e.getEntry(v, user, txn)
	if err != nil {
		return nil, err
	}
	return newStakeInfo(v, entry), nil
}

// StakeInfos lists every stake entry of a vault
func (e *Engine) StakeInfos(assetID string) ([]*StakeInfo, error) {
	txn := e.config.DB.Transaction(false)
	defer txn.Release()
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	entries, err := e.config.DB.GetStakeEntries(v.Address.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	ret := make([]*StakeInfo, 0, len(entries))
	for i := range entries {
		ret = append(ret, newStakeInfo(v, &entries[i]))
	}
	return ret, nil
}

// disposePenalty applies the penalty policy and returns the receiving
// account, or an empty string when the penalty stays in escrow
func (e *Engine) disposePenalty(
	ctx context.Context,
	v *vault.Vault,
	penalty uint64,
	txn *database.Txn,
) (string, error) {
	if penalty == 0 || e.config.PenaltyPolicy != PenaltyPolicyTreasury {
		return "", nil
	}
	name := token.AccountName(e.config.TreasuryOwner, v.AssetID)
	if _, err := e.config.Ledger.Account(name, txn); err != nil {
		if !errors.Is(err, token.ErrAccountNotFound) {
			return "", err
		}
		if _, err := e.config.Ledger.OpenAccount(
			ctx,
			txn,
			name,
			v.AssetID,
			e.config.TreasuryOwner,
		); err != nil {
			return "", err
		}
	}
	if err := v.TransferOut(ctx, txn, e.config.Ledger, name, penalty); err != nil {
		return "", fmt.Errorf("transfer penalty to treasury: %w", err)
	}
	return name, nil
}

func (e *Engine) getEntry(
	v *vault.Vault,
	user string,
	txn *database.Txn,
) (*models.StakeEntry, error) {
	entry, err := e.config.DB.GetStakeEntry(v.Address.Bytes(), user, txn)
	if err != nil {
		if errors.Is(err, models.ErrStakeEntryNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoStakeFound, user)
		}
		return nil, err
	}
	return entry, nil
}

func (e *Engine) loadOrNewEntry(
	v *vault.Vault,
	user string,
	txn *database.Txn,
) (*models.StakeEntry, bool, error) {
	entry, err := e.config.DB.GetStakeEntry(v.Address.Bytes(), user, txn)
	if err == nil {
		return entry, false, nil
	}
	if !errors.Is(err, models.ErrStakeEntryNotFound) {
		return nil, false, err
	}
	addr, bump, err := address.FindAddress(address.StakeSeeds(v.Address, user)...)
	if err != nil {
		return nil, false, err
	}
	return &models.StakeEntry{
		Address: addr.Bytes(),
		Vault:   v.Address.Bytes(),
		User:    user,
		Status:  models.StakeStatusNone,
		Bump:    bump,
	}, true, nil
}

// record journals an event and publishes it on the bus once the
// transaction commits
func (e *Engine) record(
	txn *database.Txn,
	v *vault.Vault,
	eventType event.EventType,
	ts int64,
	data any,
) error {
	if _, err := e.config.DB.AppendJournal(
		v.Address.Bytes(),
		string(eventType),
		ts,
		data,
		txn,
	); err != nil {
		return err
	}
	if bus := e.config.EventBus; bus != nil {
		txn.OnCommit(func() {
			bus.Publish(eventType, event.NewEventAt(eventType, time.Unix(ts, 0), data))
		})
	}
	return nil
}

func (e *Engine) startSpan(
	ctx context.Context,
	name string,
	assetID string,
	caller string,
) (context.Context, trace.Span) {
	return e.tracer.Start(
		ctx,
		"staking."+name,
		trace.WithAttributes(
			attribute.String("asset", assetID),
			attribute.String("caller", caller),
		),
	)
}

func (e *Engine) endSpan(span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.metrics != nil {
			e.metrics.operationFailures.WithLabelValues(op).Inc()
		}
	}
	span.End()
}
