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

package models

import (
	"errors"

	"github.com/blinklabs-io/stakevault/database/types"
)

var ErrTokenAccountNotFound = errors.New("token account not found")

// TokenAccount is a value-holding account in the reference ledger. Owner is
// the principal allowed to authorize debits.
type TokenAccount struct {
	ID      uint   `gorm:"primarykey"`
	Name    string `gorm:"uniqueIndex;size:128;not null"`
	AssetID string `gorm:"index;size:128;not null"`
	Owner   string `gorm:"index;size:128;not null"`
	Balance types.Uint64
}

func (TokenAccount) TableName() string {
	return "token_account"
}
