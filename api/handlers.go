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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/vault"
)

// journalPayloads maps journal record types to their payload types
var journalPayloads = map[string]func() any{
	string(vault.EventTypeVaultInitialized):        func() any { return &vault.VaultInitializedEvent{} },
	string(staking.EventTypeStake):                 func() any { return &staking.StakeEvent{} },
	string(staking.EventTypeUnstakeRequest):        func() any { return &staking.UnstakeRequestEvent{} },
	string(staking.EventTypeUnstakeComplete):       func() any { return &staking.UnstakeCompleteEvent{} },
	string(governance.EventTypeProposalCreated):    func() any { return &governance.ProposalCreatedEvent{} },
	string(governance.EventTypeVoteCast):           func() any { return &governance.VoteCastEvent{} },
	string(governance.EventTypeProposalFinalized): func() any { return &governance.ProposalFinalizedEvent{} },
}

const maxRequestBody = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func proposalIDParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid proposal id", ErrBadRequest)
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
		Version:   s.config.Version,
	})
}

func (s *Server) handleListVaults(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vaults, err := s.services.Vaults.List(nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]VaultResponse, 0, len(vaults))
	for _, v := range vaults {
		resp = append(resp, NewVaultResponse(v))
	}
	writeJSON(w, http.StatusOK, Paginate(w, resp, params))
}

func (s *Server) handleCreateVault(w http.ResponseWriter, r *http.Request) {
	var req CreateVaultRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.services.Vaults.Initialize(r.Context(), req.AssetID, Principal(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewVaultResponse(v))
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	txn := s.services.DB.Transaction(false)
	defer txn.Release()
	v, err := s.services.Vaults.Get(r.PathValue("asset"), txn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.services.Vaults.EscrowBalance(v, txn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := NewVaultResponse(v)
	resp.EscrowBalance = &balance
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.services.Staking.Audit(r.Context(), r.PathValue("asset"))
	if err != nil && !errors.Is(err, staking.ErrCustodyViolation) {
		s.writeError(w, r, err)
		return
	}
	resp := AuditResponse{AuditReport: report, CustodyOK: err == nil}
	if err != nil {
		resp.Violation = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	txn := s.services.DB.Transaction(false)
	defer txn.Release()
	v, err := s.services.Vaults.Get(r.PathValue("asset"), txn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.services.DB.Journal(v.Address.Bytes(), txn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page := Paginate(w, records, params)
	resp := make([]JournalEntryResponse, 0, len(page))
	for i := range page {
		entry, err := NewJournalEntry(&page[i])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

// NewJournalEntry decodes a journal record into its typed event payload
func NewJournalEntry(rec *database.JournalRecord) (JournalEntryResponse, error) {
	entry := JournalEntryResponse{
		ID:        rec.ID,
		Type:      rec.Type,
		Sequence:  rec.Sequence,
		Timestamp: rec.Timestamp,
	}
	newPayload, ok := journalPayloads[rec.Type]
	if !ok {
		entry.Payload = rec.Payload
		return entry, nil
	}
	payload := newPayload()
	if err := rec.DecodePayload(payload); err != nil {
		return entry, err
	}
	entry.Payload = payload
	return entry, nil
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	evt, err := s.services.Staking.Stake(
		r.Context(),
		r.PathValue("asset"),
		Principal(r.Context()),
		req.Amount,
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleRequestUnstake(w http.ResponseWriter, r *http.Request) {
	evt, err := s.services.Staking.RequestUnstake(
		r.Context(),
		r.PathValue("asset"),
		Principal(r.Context()),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleCompleteUnstake(w http.ResponseWriter, r *http.Request) {
	evt, err := s.services.Staking.CompleteUnstake(
		r.Context(),
		r.PathValue("asset"),
		Principal(r.Context()),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleListStakes(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	infos, err := s.services.Staking.StakeInfos(r.PathValue("asset"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Paginate(w, infos, params))
}

func (s *Server) handleGetStake(w http.ResponseWriter, r *http.Request) {
	info, err := s.services.Staking.StakeInfo(
		r.PathValue("asset"),
		r.PathValue("user"),
		nil,
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetPerks(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	resp := PerksResponse{User: user}
	info, err := s.services.Staking.StakeInfo(r.PathValue("asset"), user, nil)
	switch {
	case err == nil:
		resp.Perks = info.Perks()
	case errors.Is(err, staking.ErrNoStakeFound):
		// Users who never staked simply have no perks
		resp.Perks = staking.TierPerks(staking.TierNone)
	default:
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	proposals, err := s.services.Governance.ListProposals(r.PathValue("asset"), nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Paginate(w, proposals, params))
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	evt, err := s.services.Governance.CreateProposal(
		r.Context(),
		r.PathValue("asset"),
		Principal(r.Context()),
		req.ProposalID,
		req.VotingStart,
		req.VotingEnd,
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	proposal, err := s.services.Governance.GetProposal(r.PathValue("asset"), id, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := proposalIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	votes, err := s.services.Governance.ListVotes(r.PathValue("asset"), id, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Paginate(w, votes, params))
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	id, err := proposalIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Choice == nil {
		s.writeError(w, r, fmt.Errorf("%w: choice is required", ErrBadRequest))
		return
	}
	evt, err := s.services.Governance.CastVote(
		r.Context(),
		r.PathValue("asset"),
		id,
		Principal(r.Context()),
		*req.Choice,
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, err := proposalIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	evt, err := s.services.Governance.FinalizeProposal(
		r.Context(),
		r.PathValue("asset"),
		id,
		Principal(r.Context()),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}
