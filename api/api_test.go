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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/stakevault/api"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testSecret = []byte("test-secret")

const t0 = int64(1_700_000_000)

type testEnv struct {
	server *api.Server
	ledger *token.Ledger
	now    *atomic.Int64
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	now := &atomic.Int64{}
	now.Store(t0)
	clock := func() time.Time { return time.Unix(now.Load(), 0) }
	ledger := token.NewLedger(db, nil)
	vaults := vault.NewManager(db, ledger, nil, nil, clock)
	stakingEngine, err := staking.NewEngine(staking.Config{
		DB:     db,
		Vaults: vaults,
		Ledger: ledger,
		Clock:  clock,
	})
	require.NoError(t, err)
	gov, err := governance.NewEngine(governance.Config{
		DB:     db,
		Vaults: vaults,
		Clock:  clock,
	})
	require.NoError(t, err)
	server := api.New(
		api.Config{JWTSecret: testSecret, Version: "test"},
		api.Services{
			DB:         db,
			Vaults:     vaults,
			Ledger:     ledger,
			Staking:    stakingEngine,
			Governance: gov,
		},
		nil,
	)
	return &testEnv{server: server, ledger: ledger, now: now}
}

func (e *testEnv) do(
	t *testing.T,
	method string,
	path string,
	principal string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	if principal != "" {
		tok, err := api.IssueToken(testSecret, principal, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) fund(t *testing.T, user string, amount uint64) {
	t.Helper()
	ctx := context.Background()
	name := token.AccountName(user, "zoo")
	_, err := e.ledger.OpenAccount(ctx, nil, name, "zoo", user)
	require.NoError(t, err)
	require.NoError(t, e.ledger.Mint(ctx, nil, name, amount))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var ret T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ret))
	return ret
}

func TestHealth(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodGet, "/api/v0/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	resp := decode[api.HealthResponse](t, w)
	assert.True(t, resp.IsHealthy)
	assert.Equal(t, "test", resp.Version)
}

func TestRequestIDPassthrough(t *testing.T) {
	env := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v0/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

func TestAuthRequired(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/api/v0/vaults", "", api.CreateVaultRequest{AssetID: "zoo"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v0/vaults", bytes.NewBufferString(`{"asset_id":"zoo"}`))
	other, err := api.IssueToken([]byte("other-secret"), "admin", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+other)
	w = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decode[api.ErrorResponse](t, w)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStakingFlow(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/api/v0/vaults", "admin", api.CreateVaultRequest{AssetID: "zoo"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[api.VaultResponse](t, w)
	assert.Equal(t, "admin", created.Authority)

	w = env.do(t, http.MethodPost, "/api/v0/vaults", "admin", api.CreateVaultRequest{AssetID: "zoo"})
	assert.Equal(t, http.StatusConflict, w.Code)

	env.fund(t, "alice", 100)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/stake", "alice", api.StakeRequest{Amount: 100})
	require.Equal(t, http.StatusOK, w.Code)
	stakeEvt := decode[staking.StakeEvent](t, w)
	assert.Equal(t, uint64(100), stakeEvt.TotalStaked)

	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/stake", "alice", api.StakeRequest{Amount: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/stake", "alice", api.StakeRequest{Amount: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/unstake/request", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/unstake/complete", "alice", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env.now.Add(staking.UnstakeLock)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/unstake/complete", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[staking.UnstakeCompleteEvent](t, w)
	assert.Equal(t, uint64(95), done.AmountPaid)
	assert.Equal(t, uint64(5), done.Penalty)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/stakes/alice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[staking.StakeInfo](t, w)
	assert.Equal(t, "unstaked", info.Status)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/stakes/bob", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/stakes/bob/perks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	perks := decode[api.PerksResponse](t, w)
	assert.Equal(t, staking.TierNone, perks.Tier)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	vaultResp := decode[api.VaultResponse](t, w)
	require.NotNil(t, vaultResp.EscrowBalance)
	assert.Equal(t, uint64(5), *vaultResp.EscrowBalance)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/audit", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	audit := decode[api.AuditResponse](t, w)
	assert.True(t, audit.CustodyOK)
	assert.Equal(t, uint64(5), audit.Surplus)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/journal?order=desc&count=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("X-Pagination-Count-Total"))
	assert.Equal(t, "2", w.Header().Get("X-Pagination-Page-Total"))
	entries := decode[[]api.JournalEntryResponse](t, w)
	require.Len(t, entries, 2)
	assert.Equal(t, string(staking.EventTypeUnstakeComplete), entries[0].Type)
	assert.Equal(t, uint64(4), entries[0].Sequence)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/ape", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGovernanceFlow(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/api/v0/vaults", "admin", api.CreateVaultRequest{AssetID: "zoo"})
	require.Equal(t, http.StatusCreated, w.Code)
	env.fund(t, "alice", 50)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/stake", "alice", api.StakeRequest{Amount: 50})
	require.Equal(t, http.StatusOK, w.Code)

	proposal := api.CreateProposalRequest{ProposalID: 1, VotingStart: t0, VotingEnd: t0 + 100}
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals", "alice", proposal)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals", "admin", proposal)
	require.Equal(t, http.StatusCreated, w.Code)

	yes := true
	env.now.Store(t0 + 1)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals/1/votes", "alice", api.VoteRequest{Choice: &yes})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals/1/votes", "alice", api.VoteRequest{Choice: &yes})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals/1/votes", "bob", api.VoteRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals/x/votes", "bob", api.VoteRequest{Choice: &yes})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals/1/finalize", "bob", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env.now.Store(t0 + 101)
	w = env.do(t, http.MethodPost, "/api/v0/vaults/zoo/proposals/1/finalize", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/proposals/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[governance.ProposalInfo](t, w)
	assert.Equal(t, "finalized", p.Status)
	assert.Equal(t, uint64(50), p.YesVotes)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/proposals", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]governance.ProposalInfo](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/proposals/1/votes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	votes := decode[[]governance.VoteInfo](t, w)
	require.Len(t, votes, 1)
	assert.Equal(t, "alice", votes[0].Voter)

	w = env.do(t, http.MethodGet, "/api/v0/vaults/zoo/proposals/"+strconv.Itoa(9), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server := api.New(api.Config{ListenAddress: "127.0.0.1:0"}, api.Services{}, nil)
	require.NoError(t, server.Start(ctx))
	err := server.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
	addr := server.Addr()
	require.NotNil(t, addr)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr.String() + "/api/v0/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, server.Stop(stopCtx))
	require.NoError(t, server.Stop(stopCtx))
	assert.Nil(t, server.Addr())
}

func TestStopOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	server := api.New(api.Config{ListenAddress: "127.0.0.1:0"}, api.Services{}, nil)
	require.NoError(t, server.Start(ctx))
	cancel()
	require.Eventually(t, func() bool {
		return server.Addr() == nil
	}, 5*time.Second, 10*time.Millisecond)
}
