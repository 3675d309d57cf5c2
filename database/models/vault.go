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

import "errors"

var ErrVaultNotFound = errors.New("vault not found")

// Vault is the per-asset singleton that owns the escrow account
type Vault struct {
	ID         uint   `gorm:"primarykey"`
	Address    []byte `gorm:"uniqueIndex;size:32;not null"`
	AssetID    string `gorm:"uniqueIndex;size:128;not null"`
	Authority  string `gorm:"size:128;not null"`
	Escrow     []byte `gorm:"uniqueIndex;size:32;not null"`
	Bump       uint8
	EscrowBump uint8
	CreatedAt  int64 `gorm:"not null"`
}

func (Vault) TableName() string {
	return "vault"
}
