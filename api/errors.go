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
	"net/http"

	"github.com/blinklabs-io/stakevault/governance"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/blinklabs-io/stakevault/vault"
)

var ErrBadRequest = errors.New("bad request")

var errorStatus = []struct {
	status int
	errs   []error
}{
	{http.StatusUnauthorized, []error{ErrMissingToken, ErrInvalidToken}},
	{http.StatusTooManyRequests, []error{ErrTooManyRequests}},
	{http.StatusForbidden, []error{
		staking.ErrUnauthorized,
		governance.ErrUnauthorized,
		token.ErrUnauthorizedTransfer,
	}},
	{http.StatusNotFound, []error{
		vault.ErrVaultNotFound,
		staking.ErrNoStakeFound,
		governance.ErrProposalNotFound,
		governance.ErrVoteNotFound,
		token.ErrAccountNotFound,
	}},
	{http.StatusConflict, []error{
		vault.ErrAlreadyInitialized,
		governance.ErrProposalExists,
		governance.ErrAlreadyVoted,
		token.ErrAccountExists,
	}},
	{http.StatusBadRequest, []error{
		ErrBadRequest,
		ErrInvalidPaginationParameters,
		staking.ErrInvalidAmount,
		governance.ErrInvalidVotingWindow,
		vault.ErrInvalidAsset,
		vault.ErrInvalidAuthority,
		token.ErrAssetMismatch,
	}},
	{http.StatusUnprocessableEntity, []error{
		staking.ErrOverflow,
		staking.ErrStakeNotActive,
		staking.ErrNotUnstaking,
		staking.ErrNoUnstakeRequest,
		staking.ErrLockPeriodNotOver,
		governance.ErrVotingClosed,
		governance.ErrVotingNotStarted,
		governance.ErrVotingNotEnded,
		governance.ErrProposalNotOpen,
		governance.ErrNoStakeForVote,
		governance.ErrOverflow,
		token.ErrInsufficientFunds,
		token.ErrBalanceOverflow,
	}},
}

// StatusForError maps an operation error to an HTTP status code
func StatusForError(err error) int {
	for _, entry := range errorStatus {
		for _, target := range entry.errs {
			if errors.Is(err, target) {
				return entry.status
			}
		}
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", w.Header().Get(requestIDHeader),
			"error", err,
		)
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}
