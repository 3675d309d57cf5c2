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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultApiPort         = 8080
	DefaultShutdownTimeout = 30 * time.Second
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	clock            func() time.Time
	dataDir          string
	bindAddr         string
	treasuryAccount  string
	finalizeSchedule string
	version          string
	jwtSecret        []byte
	penaltyPolicy    staking.PenaltyPolicy
	apiPort          uint
	finalizeWorkers  int
	maxInFlightPerIP int
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new stakevault config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		clock:           time.Now,
		apiPort:         DefaultApiPort,
		penaltyPolicy:   staking.PenaltyPolicyRetain,
		finalizeWorkers: governance.DefaultSweepWorkers,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *Config) validate() error {
	switch c.penaltyPolicy {
	case staking.PenaltyPolicyRetain:
	case staking.PenaltyPolicyTreasury:
		if c.treasuryAccount == "" {
			return fmt.Errorf(
				"penalty policy %q requires a treasury account",
				c.penaltyPolicy,
			)
		}
	default:
		return fmt.Errorf("unknown penalty policy: %q", c.penaltyPolicy)
	}
	if c.finalizeWorkers < 0 {
		return fmt.Errorf("invalid finalize worker count: %d", c.finalizeWorkers)
	}
	return nil
}

func (c *Config) apiListenAddress() string {
	return fmt.Sprintf("%s:%d", c.bindAddr, c.apiPort)
}

// ErrNoJWTSecret is returned by Run when no secret was configured to
// authenticate API callers
var ErrNoJWTSecret = errors.New("a JWT secret is required to serve the API")

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. By default, metrics are not collected
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock replaces the wall clock used to timestamp operations. Mostly useful for tests
func WithClock(clock func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithPenaltyPolicy specifies where early-exit penalties go. The default leaves them in escrow
func WithPenaltyPolicy(policy staking.PenaltyPolicy) ConfigOptionFunc {
	return func(c *Config) {
		c.penaltyPolicy = policy
	}
}

// WithTreasuryAccount specifies the owner of the account receiving penalties under the treasury policy
func WithTreasuryAccount(owner string) ConfigOptionFunc {
	return func(c *Config) {
		c.treasuryAccount = owner
	}
}

// WithJWTSecret specifies the HMAC secret used to verify API bearer tokens
func WithJWTSecret(secret []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.jwtSecret = secret
	}
}

// WithBindAddr specifies the address the API listens on. The default is all interfaces
func WithBindAddr(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.bindAddr = addr
	}
}

// WithApiPort specifies the API listen port. A value of 0 picks a free port
func WithApiPort(port uint) ConfigOptionFunc {
	return func(c *Config) {
		c.apiPort = port
	}
}

// WithMaxInFlightPerIP limits concurrent API requests per client address. The default of 0 disables the limit
func WithMaxInFlightPerIP(limit int) ConfigOptionFunc {
	return func(c *Config) {
		c.maxInFlightPerIP = limit
	}
}

// WithFinalizeSchedule specifies the cron schedule of the proposal
// finalization sweeper. An empty schedule disables the sweeper
func WithFinalizeSchedule(schedule string) ConfigOptionFunc {
	return func(c *Config) {
		c.finalizeSchedule = schedule
	}
}

// WithFinalizeWorkers specifies how many proposals the sweeper finalizes in parallel
func WithFinalizeWorkers(workers int) ConfigOptionFunc {
	return func(c *Config) {
		c.finalizeWorkers = workers
	}
}

// WithVersion specifies the version reported by the API health endpoint
func WithVersion(version string) ConfigOptionFunc {
	return func(c *Config) {
		c.version = version
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
