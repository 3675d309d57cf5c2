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

package stakevault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/blinklabs-io/stakevault/api"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
)

type Node struct {
	db            *database.Database
	eventBus      *event.EventBus
	ledger        *token.Ledger
	vaults        *vault.Manager
	staking       *staking.Engine
	governance    *governance.Engine
	sweeper       *governance.Sweeper
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	openOnce      sync.Once
	openErr       error
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	return n, nil
}

// Open loads the database and builds the engines without starting any
// listener. Run calls it implicitly.
func (n *Node) Open(ctx context.Context) error {
	n.openOnce.Do(func() {
		n.openErr = n.open(ctx)
	})
	return n.openErr
}

func (n *Node) open(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		DataDir:      n.config.dataDir,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		n.config.logger.Error(
			"failed to create database",
			"error",
			"empty database returned",
		)
		return errors.New("empty database returned")
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		if err := n.db.RecoverCommitTimestamp(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	n.ledger = token.NewLedger(n.db, n.config.logger)
	n.vaults = vault.NewManager(
		n.db,
		n.ledger,
		n.eventBus,
		n.config.logger,
		n.config.clock,
	)
	n.staking, err = staking.NewEngine(staking.Config{
		DB:            n.db,
		Vaults:        n.vaults,
		Ledger:        n.ledger,
		EventBus:      n.eventBus,
		Logger:        n.config.logger,
		PromRegistry:  n.config.promRegistry,
		Clock:         n.config.clock,
		PenaltyPolicy: n.config.penaltyPolicy,
		TreasuryOwner: n.config.treasuryAccount,
	})
	if err != nil {
		return fmt.Errorf("failed to load staking engine: %w", err)
	}
	n.governance, err = governance.NewEngine(governance.Config{
		DB:           n.db,
		Vaults:       n.vaults,
		EventBus:     n.eventBus,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
		Clock:        n.config.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to load governance engine: %w", err)
	}
	if n.config.finalizeSchedule != "" {
		n.sweeper, err = governance.NewSweeper(
			n.governance,
			governance.SweeperConfig{
				Schedule: n.config.finalizeSchedule,
				Workers:  n.config.finalizeWorkers,
				Logger:   n.config.logger,
			},
		)
		if err != nil {
			return err
		}
		n.eventBus.SubscribeFunc(governance.EventTypeSweepCompleted, n.logSweep)
	}
	return nil
}

// logSweep only follows sweep results, which are published from the async
// queue rather than under a vault lock
func (n *Node) logSweep(evt event.Event) {
	data, ok := evt.Data.(governance.SweepCompletedEvent)
	if !ok {
		return
	}
	level := slog.LevelInfo
	if data.Failed > 0 {
		level = slog.LevelWarn
	}
	n.config.logger.Log(
		context.Background(),
		level,
		"proposals finalized by sweep",
		"candidates", data.Candidates,
		"finalized", data.Finalized,
		"failed", data.Failed,
	)
}

// Run starts the API server and the finalization sweeper, then blocks until
// ctx is cancelled or Stop is called
func (n *Node) Run(ctx context.Context) error {
	if len(n.config.jwtSecret) == 0 {
		return ErrNoJWTSecret
	}
	if err := n.Open(ctx); err != nil {
		return err
	}
	if n.sweeper != nil {
		if err := n.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start finalize sweeper: %w", err)
		}
	}
	n.api = api.New(
		api.Config{
			ListenAddress:    n.config.apiListenAddress(),
			JWTSecret:        n.config.jwtSecret,
			Version:          n.config.version,
			MaxInFlightPerIP: n.config.maxInFlightPerIP,
		},
		n.Services(),
		n.config.logger,
	)
	if err := n.api.Start(ctx); err != nil {
		return err
	}

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

// Services returns the components backing the API
func (n *Node) Services() api.Services {
	return api.Services{
		DB:         n.db,
		Vaults:     n.vaults,
		Ledger:     n.ledger,
		Staking:    n.staking,
		Governance: n.governance,
		Bus:        n.eventBus,
	}
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// APIAddr returns the bound API address while the node is running
func (n *Node) APIAddr() net.Addr {
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	if n.sweeper != nil {
		n.sweeper.Stop()
	}

	// Phase 2: Cleanup resources
	n.config.logger.Debug("shutdown phase 2: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
