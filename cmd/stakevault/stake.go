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

	"github.com/blinklabs-io/stakevault/api"
	"github.com/blinklabs-io/stakevault/staking"
	"github.com/spf13/cobra"
)

type stakeInfoOutput struct {
	*staking.StakeInfo
	Perks staking.Perks `json:"perks"`
}

// stakeAction wraps an engine call made by the principal on an asset
func stakeAction(
	use string,
	short string,
	fn func(ctx context.Context, svc api.Services, asset, caller string) (any, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <asset>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := principal()
			if err != nil {
				return err
			}
			return withServices(cmd, func(ctx context.Context, svc api.Services) error {
				out, err := fn(ctx, svc, args[0], caller)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
}

func stakeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Stake and unstake tokens as the principal",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "deposit <asset> <amount>",
			Short: "Move tokens from the principal's account into the vault escrow",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				caller, err := principal()
				if err != nil {
					return err
				}
				amount, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				return withServices(cmd, func(ctx context.Context, svc api.Services) error {
					evt, err := svc.Staking.Stake(ctx, args[0], caller, amount)
					if err != nil {
						return err
					}
					return printJSON(cmd, evt)
				})
			},
		},
		stakeAction(
			"request-unstake",
			"Start the unstake lock period",
			func(ctx context.Context, svc api.Services, asset, caller string) (any, error) {
				evt, err := svc.Staking.RequestUnstake(ctx, asset, caller)
				return evt, err
			},
		),
		stakeAction(
			"complete-unstake",
			"Withdraw the stake once the lock period is over",
			func(ctx context.Context, svc api.Services, asset, caller string) (any, error) {
				evt, err := svc.Staking.CompleteUnstake(ctx, asset, caller)
				return evt, err
			},
		),
		&cobra.Command{
			Use:   "info <asset> [user]",
			Short: "Show a stake entry and its tier perks, for the principal by default",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				user := globalFlags.principal
				if len(args) == 2 {
					user = args[1]
				}
				if user == "" {
					return errNoPrincipal
				}
				return withServices(cmd, func(_ context.Context, svc api.Services) error {
					info, err := svc.Staking.StakeInfo(args[0], user, nil)
					if err != nil {
						return err
					}
					return printJSON(cmd, stakeInfoOutput{StakeInfo: info, Perks: info.Perks()})
				})
			},
		},
		&cobra.Command{
			Use:   "list <asset>",
			Short: "List the stake entries of a vault",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd, func(_ context.Context, svc api.Services) error {
					infos, err := svc.Staking.StakeInfos(args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd, infos)
				})
			},
		},
	)
	return cmd
}
