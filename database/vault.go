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

// CreateVault inserts a vault. It fails with types.ErrAlreadyExists when the
// asset already has a vault.
func (d *Database) CreateVault(vault *models.Vault, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.CreateVault(vault, txn.Metadata())
	})
}

// GetVault returns the vault for an asset
func (d *Database) GetVault(assetID string, txn *Txn) (*models.Vault, error) {
	var ret *models.Vault
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVault(assetID, txn.Metadata())
		return err
	})
	return ret, err
}

// GetVaultByAddress returns the vault with the given address
func (d *Database) GetVaultByAddress(
	addr []byte,
	txn *Txn,
) (*models.Vault, error) {
	var ret *models.Vault
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVaultByAddress(addr, txn.Metadata())
		return err
	})
	return ret, err
}

// GetVaults returns all vaults
func (d *Database) GetVaults(txn *Txn) ([]models.Vault, error) {
	var ret []models.Vault
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVaults(txn.Metadata())
		return err
	})
	return ret, err
}
