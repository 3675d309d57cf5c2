// Copyright 2025 Blink Labs Software
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
	"github.com/blinklabs-io/stakevault/database/types"
)

const commitStampRow = 1

// commitStamp is the single row recording the time of the last commit that
// spanned both stores
type commitStamp struct {
	ID        uint `gorm:"primarykey"`
	UnixMilli int64
}

func (commitStamp) TableName() string {
	return "commit_stamp"
}

// GetCommitTimestamp returns the last commit timestamp, or zero on a fresh
// store
func (d *MetadataStoreSqlite) GetCommitTimestamp() (int64, error) {
	var row commitStamp
	result := d.DB().Where("id = ?", commitStampRow).Limit(1).Find(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	return row.UnixMilli, nil
}

func (d *MetadataStoreSqlite) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Save(&commitStamp{ID: commitStampRow, UnixMilli: timestamp}).Error
}
