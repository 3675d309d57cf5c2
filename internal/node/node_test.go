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

package node

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/stakevault"
	"github.com/blinklabs-io/stakevault/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath:    t.TempDir(),
		BindAddr:        "127.0.0.1",
		ShutdownTimeout: "5s",
		PenaltyPolicy:   "retain",
		ApiPort:         0,
	}
}

func TestNodeConfig(t *testing.T) {
	cfg := testConfig(t)
	_, err := NodeConfig(cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)

	cfg.PenaltyPolicy = "burn"
	_, err = NodeConfig(cfg, nil, nil)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.ShutdownTimeout = "soon"
	_, err = NodeConfig(cfg, nil, nil)
	require.Error(t, err)
}

func TestRunWithoutSecret(t *testing.T) {
	cfg := testConfig(t)
	// No metrics listener, so the run fails on the missing secret alone
	cfg.MetricsPort = 0
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	err := Run(cfg, logger)
	require.ErrorIs(t, err, stakevault.ErrNoJWTSecret)
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/other", nil)
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
