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

// Package api serves the vault, staking and governance operations over a
// JSON HTTP interface.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
	"github.com/google/uuid"
)

const (
	DefaultListenAddress = ":8080"
	requestIDHeader      = "X-Request-Id"
)

type Config struct {
	ListenAddress string
	// JWTSecret verifies the HS256 bearer tokens of mutating requests
	JWTSecret []byte
	Version   string
	// MaxInFlightPerIP bounds concurrent requests per client, 0 disables
	MaxInFlightPerIP int
}

// Services are the components the API exposes
type Services struct {
	DB         *database.Database
	Vaults     *vault.Manager
	Ledger     *token.Ledger
	Staking    *staking.Engine
	Governance *governance.Engine
	// Bus feeds the event stream, which is only served when set
	Bus *event.EventBus
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	services   Services
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
	limiter    *ipLimiter
	listenAddr net.Addr
	// closed on shutdown so open event streams end
	streamStop chan struct{}
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg Config,
	services Services,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	s := &Server{
		config:   cfg,
		services: services,
		logger:   logger.With("component", "api"),
	}
	if cfg.MaxInFlightPerIP > 0 {
		s.limiter = newIPLimiter(cfg.MaxInFlightPerIP)
	}
	s.handler = s.withRequestID(s.withIPLimit(s.routes()))
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/health", s.handleHealth)
	mux.HandleFunc("GET /api/v0/vaults", s.handleListVaults)
	mux.HandleFunc("POST /api/v0/vaults", s.requireAuth(s.handleCreateVault))
	mux.HandleFunc("GET /api/v0/vaults/{asset}", s.handleGetVault)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/audit", s.handleAudit)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/journal", s.handleJournal)
	mux.HandleFunc("POST /api/v0/vaults/{asset}/stake", s.requireAuth(s.handleStake))
	mux.HandleFunc(
		"POST /api/v0/vaults/{asset}/unstake/request",
		s.requireAuth(s.handleRequestUnstake),
	)
	mux.HandleFunc(
		"POST /api/v0/vaults/{asset}/unstake/complete",
		s.requireAuth(s.handleCompleteUnstake),
	)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/stakes", s.handleListStakes)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/stakes/{user}", s.handleGetStake)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/stakes/{user}/perks", s.handleGetPerks)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/proposals", s.handleListProposals)
	mux.HandleFunc(
		"POST /api/v0/vaults/{asset}/proposals",
		s.requireAuth(s.handleCreateProposal),
	)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/proposals/{id}", s.handleGetProposal)
	mux.HandleFunc("GET /api/v0/vaults/{asset}/proposals/{id}/votes", s.handleListVotes)
	mux.HandleFunc(
		"POST /api/v0/vaults/{asset}/proposals/{id}/votes",
		s.requireAuth(s.handleCastVote),
	)
	mux.HandleFunc(
		"POST /api/v0/vaults/{asset}/proposals/{id}/finalize",
		s.requireAuth(s.handleFinalize),
	)
	if s.services.Bus != nil {
		mux.HandleFunc("GET /api/v0/events", s.handleEvents)
	}
	return mux
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.handler
}

// withRequestID tags each request with an id, reusing the client's if given
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(
			"handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", reqID,
			"duration", time.Since(start),
		)
	})
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	streamStop := make(chan struct{})
	server.RegisterOnShutdown(func() { close(streamStop) })
	s.streamStop = streamStop
	s.httpServer = server
	s.mu.Unlock()

	// Bind first so port conflicts surface immediately
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	s.mu.Lock()
	s.listenAddr = ln.Addr()
	s.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	s.logger.Info("API listener started on " + ln.Addr().String())

	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listen address while the server is running
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listenAddr = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
