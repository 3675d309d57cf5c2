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

// Package governance implements time-boxed yes/no proposals within a vault,
// with votes weighted by the voter's live staked balance.
package governance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/stakevault/address"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/vault"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/stakevault/governance"

type Config struct {
	DB           *database.Database
	Vaults       *vault.Manager
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Clock        func() time.Time
}

type Engine struct {
	config  Config
	logger  *slog.Logger
	metrics *governanceMetrics
	tracer  trace.Tracer
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.DB == nil || cfg.Vaults == nil {
		return nil, errors.New("governance engine requires a database and vault manager")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	e := &Engine{
		config: cfg,
		logger: cfg.Logger.With("component", "governance"),
		tracer: otel.Tracer(tracerName),
	}
	if cfg.PromRegistry != nil {
		e.metrics = initMetrics(cfg.PromRegistry)
	}
	return e, nil
}

// CreateProposal opens a proposal in the vault of an asset. Only the vault
// authority may create proposals. The window may start in the past but must
// end in the future.
func (e *Engine) CreateProposal(
	ctx context.Context,
	assetID string,
	caller string,
	proposalID uint64,
	votingStart int64,
	votingEnd int64,
) (_ *ProposalCreatedEvent, err error) {
	ctx, span := e.startSpan(ctx, "CreateProposal", assetID, proposalID)
	defer func() { e.endSpan(span, "create_proposal", err) }()
	now := e.config.Clock().Unix()
	v, err := e.config.Vaults.Get(assetID, nil)
	if err != nil {
		return nil, err
	}
	if caller == "" || caller != v.Authority {
		return nil, fmt.Errorf("%w: %q", ErrUnauthorized, caller)
	}
	if votingEnd <= votingStart {
		return nil, ErrInvalidVotingWindow
	}
	if votingEnd <= now {
		return nil, fmt.Errorf("%w: ends at %d, now %d", ErrVotingClosed, votingEnd, now)
	}
	addr, bump, err := address.FindAddress(address.ProposalSeeds(v.Address, proposalID)...)
	if err != nil {
		return nil, err
	}
	unlock := e.config.Vaults.Lock(v.Address)
	defer unlock()
	evt := &ProposalCreatedEvent{
		Vault:       v.Address.String(),
		Proposal:    addr.String(),
		ProposalID:  proposalID,
		AssetID:     assetID,
		Authority:   caller,
		VotingStart: votingStart,
		VotingEnd:   votingEnd,
		Timestamp:   now,
	}
	err = e.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		err := e.config.DB.CreateProposal(&models.Proposal{
			Address:     addr.Bytes(),
			Vault:       v.Address.Bytes(),
			ProposalID:  types.Uint64(proposalID),
			AssetID:     assetID,
			Authority:   caller,
			VotingStart: votingStart,
			VotingEnd:   votingEnd,
			Status:      models.ProposalStatusOpen,
			Bump:        bump,
		}, txn)
		if err != nil {
			if errors.Is(err, types.ErrAlreadyExists) {
				return fmt.Errorf("%w: %d", ErrProposalExists, proposalID)
			}
			return err
		}
		return e.record(txn, v, EventTypeProposalCreated, now, *evt)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(
		ctx,
		"proposal created",
		"asset", assetID,
		"proposal_id", proposalID,
		"voting_start", votingStart,
		"voting_end", votingEnd,
	)
	if e.metrics != nil {
		e.metrics.proposalsCreated.WithLabelValues(assetID).Inc()
	}
	return evt, nil
}

// CastVote records a vote weighted by the voter's stake at the time of the
// vote. The weight is not revisited if the stake changes afterwards.
func (e *Engine) CastVote(
	ctx context.Context,
	assetID string,
	proposalID uint64,
	voter string,
	choice bool,
) (_ *VoteCastEvent, err error) {
	ctx, span := e.startSpan(ctx, "CastVote", assetID, proposalID)
	defer func() { e.endSpan(span, "cast_vote", err) }()
	if voter == "" {
		return nil, fmt.Errorf("%w: missing voter", ErrNoStakeForVote)
	}
	now := e.config.Clock().Unix()
	v, err := e.config.Vaults.Get(assetID, nil)
	if err != nil {
		return nil, err
	}
	unlock := e.config.Vaults.Lock(v.Address)
	defer unlock()
	var evt *VoteCastEvent
	err = e.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		proposal, err := e.getProposal(v, proposalID, txn)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusOpen {
			return fmt.Errorf("%w: status %s", ErrProposalNotOpen, proposal.Status)
		}
		if now < proposal.VotingStart {
			return fmt.Errorf("%w: starts at %d", ErrVotingNotStarted, proposal.VotingStart)
		}
		if now > proposal.VotingEnd {
			return fmt.Errorf("%w: ended at %d", ErrVotingClosed, proposal.VotingEnd)
		}
		entry, err := e.config.DB.GetStakeEntry(v.Address.Bytes(), voter, txn)
		if err != nil {
			if errors.Is(err, models.ErrStakeEntryNotFound) {
				return fmt.Errorf("%w: %s", ErrNoStakeForVote, voter)
			}
			return err
		}
		if entry.Status != models.StakeStatusActive || entry.Amount == 0 {
			return fmt.Errorf("%w: %s is %s", ErrNoStakeForVote, voter, entry.Status)
		}
		weight := uint64(entry.Amount)
		var proposalAddr address.Address
		copy(proposalAddr[:], proposal.Address)
		voteAddr, bump, err := address.FindAddress(address.VoteSeeds(proposalAddr, voter)...)
		if err != nil {
			return err
		}
		err = e.config.DB.CreateVoteRecord(&models.VoteRecord{
			Address:  voteAddr.Bytes(),
			Proposal: proposal.Address,
			Voter:    voter,
			Weight:   types.Uint64(weight),
			Choice:   choice,
			VotedAt:  now,
			Bump:     bump,
		}, txn)
		if err != nil {
			if errors.Is(err, types.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrAlreadyVoted, voter)
			}
			return err
		}
		tally := &proposal.NoVotes
		if choice {
			tally = &proposal.YesVotes
		}
		newTally := uint64(*tally) + weight
		if newTally < weight {
			return ErrOverflow
		}
		*tally = types.Uint64(newTally)
		if err := e.config.DB.UpdateProposal(proposal, txn); err != nil {
			return err
		}
		evt = &VoteCastEvent{
			Vault:      v.Address.String(),
			Proposal:   proposalAddr.String(),
			ProposalID: proposalID,
			Voter:      voter,
			Weight:     weight,
			Choice:     choice,
			Timestamp:  now,
		}
		return e.record(txn, v, EventTypeVoteCast, now, *evt)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(
		ctx,
		"vote cast",
		"asset", assetID,
		"proposal_id", proposalID,
		"voter", voter,
		"weight", evt.Weight,
		"choice", choiceLabel(choice),
	)
	if e.metrics != nil {
		e.metrics.votes.WithLabelValues(assetID, choiceLabel(choice)).Inc()
		e.metrics.voteWeight.WithLabelValues(assetID, choiceLabel(choice)).Add(float64(evt.Weight))
	}
	return evt, nil
}

// FinalizeProposal closes an open proposal whose window has ended. Anyone
// may finalize.
func (e *Engine) FinalizeProposal(
	ctx context.Context,
	assetID string,
	proposalID uint64,
	caller string,
) (_ *ProposalFinalizedEvent, err error) {
	ctx, span := e.startSpan(ctx, "FinalizeProposal", assetID, proposalID)
	defer func() { e.endSpan(span, "finalize_proposal", err) }()
	now := e.config.Clock().Unix()
	v, err := e.config.Vaults.Get(assetID, nil)
	if err != nil {
		return nil, err
	}
	unlock := e.config.Vaults.Lock(v.Address)
	defer unlock()
	var evt *ProposalFinalizedEvent
	err = e.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		proposal, err := e.getProposal(v, proposalID, txn)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusOpen {
			return fmt.Errorf("%w: status %s", ErrProposalNotOpen, proposal.Status)
		}
		if now <= proposal.VotingEnd {
			return fmt.Errorf("%w: ends at %d", ErrVotingNotEnded, proposal.VotingEnd)
		}
		finalizedAt := now
		proposal.Status = models.ProposalStatusFinalized
		proposal.FinalizedAt = &finalizedAt
		if err := e.config.DB.UpdateProposal(proposal, txn); err != nil {
			return err
		}
		var proposalAddr address.Address
		copy(proposalAddr[:], proposal.Address)
		evt = &ProposalFinalizedEvent{
			Vault:       v.Address.String(),
			Proposal:    proposalAddr.String(),
			ProposalID:  proposalID,
			YesVotes:    uint64(proposal.YesVotes),
			NoVotes:     uint64(proposal.NoVotes),
			FinalizedAt: now,
			FinalizedBy: caller,
		}
		return e.record(txn, v, EventTypeProposalFinalized, now, *evt)
	})
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(
		ctx,
		"proposal finalized",
		"asset", assetID,
		"proposal_id", proposalID,
		"yes", evt.YesVotes,
		"no", evt.NoVotes,
		"by", caller,
	)
	if e.metrics != nil {
		e.metrics.proposalsFinalized.WithLabelValues(assetID).Inc()
	}
	return evt, nil
}

func (e *Engine) getProposal(
	v *vault.Vault,
	proposalID uint64,
	txn *database.Txn,
) (*models.Proposal, error) {
	proposal, err := e.config.DB.GetProposal(v.Address.Bytes(), proposalID, txn)
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
		}
		return nil, err
	}
	return proposal, nil
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
	proposalID uint64,
) (context.Context, trace.Span) {
	return e.tracer.Start(
		ctx,
		"governance."+name,
		trace.WithAttributes(
			attribute.String("asset", assetID),
			attribute.Int64("proposal_id", int64(proposalID)), //nolint:gosec
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
