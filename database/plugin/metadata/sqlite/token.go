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

// CreateTokenAccount opens a token account
func (d *MetadataStoreSqlite) CreateTokenAccount(
	account *models.TokenAccount,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return translateCreateError(db.Create(account).Error)
}

// GetTokenAccount returns a token account by name
func (d *MetadataStoreSqlite) GetTokenAccount(
	name string,
	txn types.Txn,
) (*models.TokenAccount, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.TokenAccount{}
	if result := db.Where("name = ?", name).First(ret); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrTokenAccountNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetTokenAccounts returns all token accounts held by an owner
func (d *MetadataStoreSqlite) GetTokenAccounts(
	owner string,
	txn types.Txn,
) ([]models.TokenAccount, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TokenAccount
	if result := db.Where("owner = ?", owner).Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetTokenBalance overwrites the balance of a token account
func (d *MetadataStoreSqlite) SetTokenBalance(
	name string,
	balance uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.TokenAccount{}).
		Where("name = ?", name).
		Update("balance", types.Uint64(balance))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTokenAccountNotFound
	}
	return nil
}
