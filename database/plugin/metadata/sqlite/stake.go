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

// CreateStakeEntry inserts a stake entry for a (vault, user) pair
func (d *MetadataStoreSqlite) CreateStakeEntry(
	entry *models.StakeEntry,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return translateCreateError(db.Create(entry).Error)
}

// GetStakeEntry returns the stake entry of a user in a vault
func (d *MetadataStoreSqlite) GetStakeEntry(
	vault []byte,
	user string,
	txn types.Txn,
) (*models.StakeEntry, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.StakeEntry{}
	result := db.Where("vault = ? AND user = ?", vault, user).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrStakeEntryNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetStakeEntries returns every stake entry of a vault, including zeroed ones
func (d *MetadataStoreSqlite) GetStakeEntries(
	vault []byte,
	txn types.Txn,
) ([]models.StakeEntry, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.StakeEntry
	if result := db.Where("vault = ?", vault).Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// UpdateStakeEntry writes all mutable fields of an existing stake entry
func (d *MetadataStoreSqlite) UpdateStakeEntry(
	entry *models.StakeEntry,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if entry.ID == 0 {
		return models.ErrStakeEntryNotFound
	}
	result := db.Model(entry).
		Select("amount", "staked_at", "unstake_requested_at", "status", "penalty_applied").
		Updates(entry)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrStakeEntryNotFound
	}
	return nil
}
