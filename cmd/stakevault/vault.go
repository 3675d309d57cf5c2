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

	"github.com/blinklabs-io/stakevault/api"
	"github.com/spf13/cobra"
)

func vaultCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage asset vaults",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init <asset>",
			Short: "Initialize the vault of an asset with the principal as authority",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				authority, err := principal()
				if err != nil {
					return err
				}
				return withServices(cmd, func(ctx context.Context, svc api.Services) error {
					v, err := svc.Vaults.Initialize(ctx, args[0], authority)
					if err != nil {
						return err
					}
					return printJSON(cmd, api.NewVaultResponse(v))
				})
			},
		},
		&cobra.Command{
			Use:   "show <asset>",
			Short: "Show a vault and its escrow balance",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd, func(_ context.Context, svc api.Services) error {
					v, err := svc.Vaults.Get(args[0], nil)
					if err != nil {
						return err
					}
					balance, err := svc.Vaults.EscrowBalance(v, nil)
					if err != nil {
						return err
					}
					resp := api.NewVaultResponse(v)
					resp.EscrowBalance = &balance
					return printJSON(cmd, resp)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List vaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd, func(_ context.Context, svc api.Services) error {
					vaults, err := svc.Vaults.List(nil)
					if err != nil {
						return err
					}
					resp := make([]api.VaultResponse, 0, len(vaults))
					for _, v := range vaults {
						resp = append(resp, api.NewVaultResponse(v))
					}
					return printJSON(cmd, resp)
				})
			},
		},
		&cobra.Command{
			Use:   "audit [asset]",
			Short: "Check that escrow balances cover all recorded stakes",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd, func(ctx context.Context, svc api.Services) error {
					if len(args) == 1 {
						report, err := svc.Staking.Audit(ctx, args[0])
						if report != nil {
							if printErr := printJSON(cmd, report); printErr != nil {
								return printErr
							}
						}
						return err
					}
					reports, err := svc.Staking.AuditAll(ctx)
					if printErr := printJSON(cmd, reports); printErr != nil {
						return errors.Join(err, printErr)
					}
					return err
				})
			},
		},
	)
	return cmd
}
