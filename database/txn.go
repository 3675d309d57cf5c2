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

package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/stakevault/database/types"
)

// Txn spans one transaction on each store. Entity records and the journal
// are committed together or not at all, barring a crash between the two
// store commits, which the commit timestamp check catches on the next open.
type Txn struct {
	db        *Database
	records   types.Txn
	journal   types.Txn
	onCommit  []func()
	mu        sync.Mutex
	done      bool
	readWrite bool
}

// NewTxn starts a transaction on both stores. The record store transaction
// is begun first since it serializes writers, so the journal snapshot taken
// after it always includes every earlier commit.
func NewTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if ms := db.Metadata(); ms != nil {
		t.records = ms.Transaction()
	}
	if bs := db.Blob(); bs != nil {
		t.journal = bs.NewTransaction(readWrite)
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the record store transaction handle
func (t *Txn) Metadata() types.Txn {
	return t.records
}

// Blob returns the journal store transaction handle
func (t *Txn) Blob() types.Txn {
	return t.journal
}

// ReadWrite reports whether the transaction may write
func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// OnCommit registers fn to run once the transaction has committed on both
// stores. Hooks are dropped on rollback.
func (t *Txn) OnCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

// Do runs fn inside the transaction, rolling back if it returns an error and
// committing otherwise
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				rbErr,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	if !t.readWrite {
		err := t.abort()
		t.mu.Unlock()
		return err
	}
	err := t.commitStores()
	hooks := t.onCommit
	t.onCommit = nil
	t.mu.Unlock()
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook()
	}
	return nil
}

// commitStores stamps and commits both stores. The journal goes first so a
// failure there leaves the records untouched.
func (t *Txn) commitStores() error {
	defer func() { t.done = true }()
	if t.records == nil && t.journal == nil {
		return types.ErrNoStoreAvailable
	}
	if t.records != nil && t.journal != nil {
		stamp := time.Now().UnixMilli()
		if err := t.db.updateCommitTimestamp(t, stamp); err != nil {
			_ = t.journal.Rollback()
			_ = t.records.Rollback()
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	if t.journal != nil {
		if err := t.journal.Commit(); err != nil {
			if t.records != nil {
				_ = t.records.Rollback()
			}
			return fmt.Errorf("journal commit failed: %w", err)
		}
	}
	if t.records == nil {
		return nil
	}
	if err := t.records.Commit(); err != nil {
		t.db.logger.Error(
			"journal committed but records did not",
			"component", "database",
			"error", err,
		)
		_ = t.records.Rollback()
		return fmt.Errorf("record commit failed after journal commit: %w", err)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.abort()
}

func (t *Txn) abort() error {
	if t.done {
		return nil
	}
	t.done = true
	t.onCommit = nil
	var errs []error
	if t.journal != nil {
		if err := t.journal.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("journal rollback: %w", err))
		}
	}
	if t.records != nil {
		if err := t.records.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("record rollback: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Release ends the transaction without committing. Errors are logged rather
// than returned so it can be deferred.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"read_write", t.readWrite,
			"error", err,
		)
	}
}
