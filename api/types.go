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

package api

import (
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/vault"
)

type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type HealthResponse struct {
	IsHealthy bool   `json:"is_healthy"`
	Version   string `json:"version"`
}

type CreateVaultRequest struct {
	AssetID string `json:"asset_id"`
}

type VaultResponse struct {
	AssetID       string  `json:"asset_id"`
	Address       string  `json:"address"`
	Authority     string  `json:"authority"`
	Escrow        string  `json:"escrow"`
	Bump          uint8   `json:"bump"`
	CreatedAt     int64   `json:"created_at"`
	EscrowBalance *uint64 `json:"escrow_balance,omitempty"`
}

func NewVaultResponse(v *vault.Vault) VaultResponse {
	return VaultResponse{
		AssetID:   v.AssetID,
		Address:   v.Address.String(),
		Authority: v.Authority,
		Escrow:    v.EscrowAccount(),
		Bump:      v.Bump,
		CreatedAt: v.CreatedAt,
	}
}

type AuditResponse struct {
	*staking.AuditReport
	CustodyOK bool   `json:"custody_ok"`
	Violation string `json:"violation,omitempty"`
}

type StakeRequest struct {
	Amount uint64 `json:"amount"`
}

type PerksResponse struct {
	User string `json:"user"`
	staking.Perks
}

type CreateProposalRequest struct {
	ProposalID  uint64 `json:"proposal_id"`
	VotingStart int64  `json:"voting_start"`
	VotingEnd   int64  `json:"voting_end"`
}

type VoteRequest struct {
	// Choice is true for yes
	Choice *bool `json:"choice"`
}

type JournalEntryResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Sequence  uint64 `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}
