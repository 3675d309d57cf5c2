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

// CreateTokenAccount opens a token account
func (d *Database) CreateTokenAccount(
	account *models.TokenAccount,
	txn *Txn,
) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.CreateTokenAccount(account, txn.Metadata())
	})
}

// GetTokenAccount returns a token account by name
func (d *Database) GetTokenAccount(
	name string,
	txn *Txn,
) (*models.TokenAccount, error) {
	var ret *models.TokenAccount
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTokenAccount(name, txn.Metadata())
		return err
	})
	return ret, err
}

// GetTokenAccounts returns all token accounts held by an owner
func (d *Database) GetTokenAccounts(
	owner string,
	txn *Txn,
) ([]models.TokenAccount, error) {
	var ret []models.TokenAccount
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTokenAccounts(owner, txn.Metadata())
		return err
	})
	return ret, err
}

// SetTokenBalance overwrites the balance of a token account
func (d *Database) SetTokenBalance(name string, balance uint64, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetTokenBalance(name, balance, txn.Metadata())
	})
}
