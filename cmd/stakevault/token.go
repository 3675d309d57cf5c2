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
	"time"

	"github.com/blinklabs-io/stakevault/api"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/spf13/cobra"
)

type balanceOutput struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and fund ledger accounts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "mint <asset> <owner> <amount>",
			Short: "Credit new tokens to an owner's account, opening it if needed",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := parseAmount(args[2])
				if err != nil {
					return err
				}
				name := token.AccountName(args[1], args[0])
				return withServices(cmd, func(ctx context.Context, svc api.Services) error {
					var balance uint64
					err := svc.DB.Transaction(true).Do(func(txn *database.Txn) error {
						_, err := svc.Ledger.OpenAccount(ctx, txn, name, args[0], args[1])
						if err != nil && !errors.Is(err, token.ErrAccountExists) {
							return err
						}
						if err := svc.Ledger.Mint(ctx, txn, name, amount); err != nil {
							return err
						}
						balance, err = svc.Ledger.Balance(name, txn)
						return err
					})
					if err != nil {
						return err
					}
					return printJSON(cmd, balanceOutput{Account: name, Balance: balance})
				})
			},
		},
		&cobra.Command{
			Use:   "balance <asset> <owner>",
			Short: "Show the balance of an owner's account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := token.AccountName(args[1], args[0])
				return withServices(cmd, func(_ context.Context, svc api.Services) error {
					balance, err := svc.Ledger.Balance(name, nil)
					if err != nil {
						return err
					}
					return printJSON(cmd, balanceOutput{Account: name, Balance: balance})
				})
			},
		},
	)
	return cmd
}

func authCommand() *cobra.Command {
	var ttl time.Duration
	issueCmd := &cobra.Command{
		Use:   "issue <subject>",
		Short: "Issue an API bearer token for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}
			tok, err := api.IssueToken([]byte(cfg.JWTSecret), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issueCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "API authentication helpers",
	}
	cmd.AddCommand(issueCmd)
	return cmd
}
