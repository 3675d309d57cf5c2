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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blinklabs-io/stakevault/api"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/governance"
	"github.com/spf13/cobra"
)

type proposalOutput struct {
	*governance.ProposalInfo
	Votes []*governance.VoteInfo `json:"votes"`
}

func parseChoice(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "true":
		return true, nil
	case "no", "n", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid vote choice %q, expected yes or no", s)
}

func proposalCreateCommand() *cobra.Command {
	var start int64
	var end int64
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "create <asset> <id>",
		Short: "Open a proposal as the vault authority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := principal()
			if err != nil {
				return err
			}
			id, err := parseProposalID(args[1])
			if err != nil {
				return err
			}
			if start == 0 {
				start = time.Now().Unix()
			}
			if end == 0 {
				if duration <= 0 {
					return errors.New("one of --end or --duration is required")
				}
				end = start + int64(duration/time.Second)
			}
			return withServices(cmd, func(ctx context.Context, svc api.Services) error {
				evt, err := svc.Governance.CreateProposal(ctx, args[0], caller, id, start, end)
				if err != nil {
					return err
				}
				return printJSON(cmd, evt)
			})
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "voting start, unix seconds (default now)")
	cmd.Flags().Int64Var(&end, "end", 0, "voting end, unix seconds")
	cmd.Flags().DurationVar(&duration, "duration", 0, "voting window length when --end is not set")
	return cmd
}

func proposalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposal",
		Short: "Create, vote on and finalize governance proposals",
	}
	cmd.AddCommand(
		proposalCreateCommand(),
		&cobra.Command{
			Use:   "vote <asset> <id> <yes|no>",
			Short: "Vote as the principal, weighted by active stake",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				voter, err := principal()
				if err != nil {
					return err
				}
				id, err := parseProposalID(args[1])
				if err != nil {
					return err
				}
				choice, err := parseChoice(args[2])
				if err != nil {
					return err
				}
				return withServices(cmd, func(ctx context.Context, svc api.Services) error {
					evt, err := svc.Governance.CastVote(ctx, args[0], id, voter, choice)
					if err != nil {
						return err
					}
					return printJSON(cmd, evt)
				})
			},
		},
		&cobra.Command{
			Use:   "finalize <asset> <id>",
			Short: "Close a proposal whose voting window has ended",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				caller, err := principal()
				if err != nil {
					return err
				}
				id, err := parseProposalID(args[1])
				if err != nil {
					return err
				}
				return withServices(cmd, func(ctx context.Context, svc api.Services) error {
					evt, err := svc.Governance.FinalizeProposal(ctx, args[0], id, caller)
					if err != nil {
						return err
					}
					return printJSON(cmd, evt)
				})
			},
		},
		&cobra.Command{
			Use:   "show <asset> [id]",
			Short: "Show a proposal and its votes, or list the proposals of a vault",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd, func(_ context.Context, svc api.Services) error {
					txn := svc.DB.Transaction(false)
					defer txn.Release()
					if len(args) == 1 {
						proposals, err := svc.Governance.ListProposals(args[0], txn)
						if err != nil {
							return err
						}
						return printJSON(cmd, proposals)
					}
					id, err := parseProposalID(args[1])
					if err != nil {
						return err
					}
					return showProposal(cmd, svc, txn, args[0], id)
				})
			},
		},
	)
	return cmd
}

func showProposal(
	cmd *cobra.Command,
	svc api.Services,
	txn *database.Txn,
	asset string,
	id uint64,
) error {
	proposal, err := svc.Governance.GetProposal(asset, id, txn)
	if err != nil {
		return err
	}
	votes, err := svc.Governance.ListVotes(asset, id, txn)
	if err != nil {
		return err
	}
	return printJSON(cmd, proposalOutput{ProposalInfo: proposal, Votes: votes})
}
