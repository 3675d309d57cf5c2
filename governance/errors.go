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

package governance

import "errors"

var (
	ErrUnauthorized        = errors.New("caller is not the vault authority")
	ErrInvalidVotingWindow = errors.New("voting end must be after voting start")
	ErrVotingClosed        = errors.New("voting period has ended")
	ErrVotingNotStarted    = errors.New("voting period has not started")
	ErrVotingNotEnded      = errors.New("voting period has not ended")
	ErrProposalNotOpen     = errors.New("proposal is not open")
	ErrProposalExists      = errors.New("proposal already exists")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrAlreadyVoted        = errors.New("voter has already voted on this proposal")
	ErrVoteNotFound        = errors.New("vote not found")
	ErrNoStakeForVote      = errors.New("voter has no active stake")
	ErrOverflow            = errors.New("vote tally overflow")
)
