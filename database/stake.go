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

package database

import (
	"github.com/blinklabs-io/stakevault/database/models"
)

// CreateStakeEntry inserts the stake entry for a (vault, user) pair
func (d *Database) CreateStakeEntry(entry *models.StakeEntry, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.CreateStakeEntry(entry, txn.Metadata())
	})
}

// GetStakeEntry returns a user's stake entry in a vault
func (d *Database) GetStakeEntry(
	vault []byte,
	user string,
	txn *Txn,
) (*models.StakeEntry, error) {
	var ret *models.StakeEntry
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetStakeEntry(vault, user, txn.Metadata())
		return err
	})
	return ret, err
}

// GetStakeEntries returns all stake entries of a vault
func (d *Database) GetStakeEntries(
	vault []byte,
	txn *Txn,
) ([]models.StakeEntry, error) {
	var ret []models.StakeEntry
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetStakeEntries(vault, txn.Metadata())
		return err
	})
	return ret, err
}

// UpdateStakeEntry persists the mutable fields of a stake entry
func (d *Database) UpdateStakeEntry(entry *models.StakeEntry, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.UpdateStakeEntry(entry, txn.Metadata())
	})
}
