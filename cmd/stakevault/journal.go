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
	"github.com/spf13/cobra"
)

func journalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal <asset>",
		Short: "Print the event journal of a vault in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(_ context.Context, svc api.Services) error {
				txn := svc.DB.Transaction(false)
				defer txn.Release()
				v, err := svc.Vaults.Get(args[0], txn)
				if err != nil {
					return err
				}
				records, err := svc.DB.Journal(v.Address.Bytes(), txn)
				if err != nil {
					return err
				}
				entries := make([]api.JournalEntryResponse, 0, len(records))
				for i := range records {
					entry, err := api.NewJournalEntry(&records[i])
					if err != nil {
						return err
					}
					entries = append(entries, entry)
				}
				return printJSON(cmd, entries)
			})
		},
	}
	return cmd
}
