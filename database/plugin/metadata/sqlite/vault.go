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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
	"gorm.io/gorm"
)

// CreateVault inserts a vault, failing with types.ErrAlreadyExists if the
// asset already has one
func (d *MetadataStoreSqlite) CreateVault(
	vault *models.Vault,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return translateCreateError(db.Create(vault).Error)
}

// GetVault returns the vault for an asset
func (d *MetadataStoreSqlite) GetVault(
	assetID string,
	txn types.Txn,
) (*models.Vault, error) {
	return d.getVault("asset_id = ?", assetID, txn)
}

// GetVaultByAddress returns the vault with the given address
func (d *MetadataStoreSqlite) GetVaultByAddress(
	addr []byte,
	txn types.Txn,
) (*models.Vault, error) {
	return d.getVault("address = ?", addr, txn)
}

func (d *MetadataStoreSqlite) getVault(
	query string,
	arg any,
	txn types.Txn,
) (*models.Vault, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Vault{}
	if result := db.Where(query, arg).First(ret); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrVaultNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetVaults returns all vaults in creation order
func (d *MetadataStoreSqlite) GetVaults(
	txn types.Txn,
) ([]models.Vault, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vault
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
