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
	"testing"
	"time"

	"github.com/blinklabs-io/stakevault/staking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.NotNil(t, cfg.clock)
	assert.Equal(t, staking.PenaltyPolicyRetain, cfg.penaltyPolicy)
	assert.Equal(t, uint(DefaultApiPort), cfg.apiPort)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Empty(t, cfg.finalizeSchedule)
}

func TestConfigOptions(t *testing.T) {
	fixed := time.Unix(42, 0)
	cfg := NewConfig(
		WithDatabasePath("/tmp/sv"),
		WithBindAddr("127.0.0.1"),
		WithApiPort(9000),
		WithClock(func() time.Time { return fixed }),
		WithPenaltyPolicy(staking.PenaltyPolicyTreasury),
		WithTreasuryAccount("treasury"),
		WithFinalizeSchedule("@every 1m"),
		WithFinalizeWorkers(2),
		WithShutdownTimeout(5*time.Second),
	)
	assert.Equal(t, "/tmp/sv", cfg.dataDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.apiListenAddress())
	assert.Equal(t, fixed, cfg.clock())
	assert.Equal(t, "treasury", cfg.treasuryAccount)
	assert.Equal(t, "@every 1m", cfg.finalizeSchedule)
	assert.Equal(t, 2, cfg.finalizeWorkers)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
}

func TestConfigValidate(t *testing.T) {
	secret := WithJWTSecret([]byte("secret"))
	tests := []struct {
		name    string
		opts    []ConfigOptionFunc
		wantErr bool
	}{
		{name: "defaults with secret", opts: []ConfigOptionFunc{secret}},
		{name: "no secret"},
		{
			name: "treasury without account",
			opts: []ConfigOptionFunc{
				secret,
				WithPenaltyPolicy(staking.PenaltyPolicyTreasury),
			},
			wantErr: true,
		},
		{
			name: "treasury with account",
			opts: []ConfigOptionFunc{
				secret,
				WithPenaltyPolicy(staking.PenaltyPolicyTreasury),
				WithTreasuryAccount("treasury"),
			},
		},
		{
			name: "unknown policy",
			opts: []ConfigOptionFunc{
				secret,
				WithPenaltyPolicy("burn"),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(tt.opts...)
			err := cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
