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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/robfig/cron/v3"
)

const (
	// SweeperPrincipal is recorded as the finalizer of proposals closed by
	// the sweeper
	SweeperPrincipal = "sweeper"

	DefaultSweepWorkers = 4
	DefaultSweepTimeout = 30 * time.Second
)

type SweeperConfig struct {
	// Schedule is a cron spec with an optional seconds field, or a
	// descriptor such as "@every 1m"
	Schedule string
	Workers  int
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Sweeper periodically finalizes open proposals whose voting window has
// ended
type Sweeper struct {
	engine  *Engine
	config  SweeperConfig
	logger  *slog.Logger
	cron    *cron.Cron
	pool    pond.Pool
	running atomic.Bool
}

func NewSweeper(engine *Engine, cfg SweeperConfig) (*Sweeper, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultSweepWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSweepTimeout
	}
	s := &Sweeper{
		engine: engine,
		config: cfg,
		logger: cfg.Logger.With("component", "sweeper"),
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid finalize schedule %q: %w", cfg.Schedule, err)
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(
			cron.Recover(cronLogger{s.logger}),
			cron.SkipIfStillRunning(cronLogger{s.logger}),
		),
	)
	return s, nil
}

// Start schedules sweeps until Stop is called. ctx bounds every sweep.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("sweeper already running")
	}
	s.pool = pond.NewPool(s.config.Workers)
	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		if _, err := s.Sweep(runCtx); err != nil {
			s.logger.Warn("sweep finished with errors", "error", err)
		}
	}); err != nil {
		s.pool.StopAndWait()
		s.running.Store(false)
		return err
	}
	s.cron.Start()
	s.logger.Info("sweeper started", "schedule", s.config.Schedule, "workers", s.config.Workers)
	return nil
}

// Stop waits for a running sweep and releases the worker pool
func (s *Sweeper) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	<-s.cron.Stop().Done()
	s.pool.StopAndWait()
	s.pool = nil
	s.logger.Info("sweeper stopped")
}

// Sweep finalizes every ended open proposal across all vaults and returns
// how many it finalized. Proposals finalized concurrently by someone else
// are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.engine.config.Clock().Unix()
	proposals, err := s.engine.config.DB.GetEndedOpenProposals(now, nil)
	if err != nil {
		return 0, err
	}
	if s.engine.metrics != nil {
		s.engine.metrics.sweeps.Inc()
	}
	if len(proposals) == 0 {
		return 0, nil
	}
	pool := s.pool
	if pool == nil {
		pool = pond.NewPool(s.config.Workers)
		defer pool.StopAndWait()
	}
	var (
		finalized atomic.Int64
		errsMu    sync.Mutex
		errs      []error
	)
	group := pool.NewGroupContext(ctx)
	for _, p := range proposals {
		assetID := p.AssetID
		proposalID := uint64(p.ProposalID)
		group.Submit(func() {
			_, err := s.engine.FinalizeProposal(
				group.Context(),
				assetID,
				proposalID,
				SweeperPrincipal,
			)
			if err != nil {
				if errors.Is(err, ErrProposalNotOpen) {
					return
				}
				if s.engine.metrics != nil {
					s.engine.metrics.sweepErrors.Inc()
				}
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("finalize %s/%d: %w", assetID, proposalID, err))
				errsMu.Unlock()
				return
			}
			finalized.Add(1)
			if s.engine.metrics != nil {
				s.engine.metrics.sweepFinalized.Inc()
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		errs = append(errs, err)
	}
	count := int(finalized.Load())
	s.logger.Debug("sweep complete", "candidates", len(proposals), "finalized", count)
	if bus := s.engine.config.EventBus; bus != nil {
		queued := bus.PublishAsync(
			EventTypeSweepCompleted,
			event.NewEventAt(EventTypeSweepCompleted, time.Unix(now, 0), SweepCompletedEvent{
				Candidates: len(proposals),
				Finalized:  count,
				Failed:     len(errs),
				Timestamp:  now,
			}),
		)
		if !queued {
			s.logger.Debug("sweep event dropped")
		}
	}
	return count, errors.Join(errs...)
}

// cronLogger adapts slog to the cron logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
