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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/stakevault"
	"github.com/blinklabs-io/stakevault/internal/config"
	"github.com/blinklabs-io/stakevault/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NodeConfig builds the root package options from the loaded config
func NodeConfig(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (stakevault.Config, error) {
	shutdownTimeout, err := cfg.ShutdownDuration()
	if err != nil {
		return stakevault.Config{}, err
	}
	penaltyPolicy, err := cfg.Penalty()
	if err != nil {
		return stakevault.Config{}, err
	}
	return stakevault.NewConfig(
		stakevault.WithLogger(logger),
		stakevault.WithDatabasePath(cfg.DatabasePath),
		stakevault.WithBindAddr(cfg.BindAddr),
		stakevault.WithApiPort(cfg.ApiPort),
		stakevault.WithJWTSecret([]byte(cfg.JWTSecret)),
		stakevault.WithPenaltyPolicy(penaltyPolicy),
		stakevault.WithTreasuryAccount(cfg.TreasuryAccount),
		stakevault.WithFinalizeSchedule(cfg.FinalizeSchedule),
		stakevault.WithFinalizeWorkers(cfg.FinalizeWorkers),
		stakevault.WithMaxInFlightPerIP(cfg.MaxInFlightPerIP),
		stakevault.WithTracing(cfg.Tracing),
		stakevault.WithTracingStdout(cfg.TracingStdout),
		stakevault.WithShutdownTimeout(shutdownTimeout),
		stakevault.WithVersion(version.GetVersionString()),
		stakevault.WithPrometheusRegistry(promRegistry),
	), nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(
		fmt.Sprintf(
			"config: databasePath=%s bindAddr=%s apiPort=%d metricsPort=%d finalizeSchedule=%q",
			cfg.DatabasePath,
			cfg.BindAddr,
			cfg.ApiPort,
			cfg.MetricsPort,
			cfg.FinalizeSchedule,
		),
		"component", "node",
	)
	// Enable metrics with default prometheus registry
	nodeCfg, err := NodeConfig(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownDuration()
	if err != nil {
		return err
	}
	n, err := stakevault.New(nodeCfg)
	if err != nil {
		return err
	}
	// A zero metrics port leaves the listener off
	var metricsServer *http.Server
	metricsErrChan := make(chan error, 1)
	if cfg.MetricsPort > 0 {
		metricsServer = newMetricsServer(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort),
		)
		logger.Info(
			"serving prometheus metrics on "+metricsServer.Addr,
			"component", "node",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				metricsErrChan <- fmt.Errorf("failed to start metrics listener: %w", err)
			}
		}()
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Run(signalCtx)
	}()

	shutdownMetrics := func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Wait for signal or error
	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("node error", "error", runErr)
		}
	case runErr = <-metricsErrChan:
		logger.Error("metrics error", "error", runErr)
	}
	signalCtxStop()
	shutdownMetrics()
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return errors.Join(runErr, err)
	}
	logger.Info("shutdown complete")
	return runErr
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
