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

package badger

import (
	"errors"

	"github.com/blinklabs-io/stakevault/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

var (
	errForeignTxn  = errors.New("transaction belongs to a different store")
	errTxnFinished = errors.New("transaction already finished")
)

// journalTxn is a badger transaction that tolerates repeated
// commit/rollback calls
type journalTxn struct {
	*badger.Txn
	store *BlobStoreBadger
	done  bool
}

func (t *journalTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.Txn.Commit()
}

func (t *journalTxn) Rollback() error {
	if !t.done {
		t.done = true
		t.Discard()
	}
	return nil
}

func (d *BlobStoreBadger) asJournalTxn(txn types.Txn) (*journalTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	jt, ok := txn.(*journalTxn)
	switch {
	case !ok:
		return nil, types.ErrTxnWrongType
	case jt.store != d:
		return nil, errForeignTxn
	case jt.done:
		return nil, errTxnFinished
	case jt.Txn == nil:
		return nil, types.ErrBlobStoreUnavailable
	}
	return jt, nil
}

type journalIterator struct {
	*badger.Iterator
}

func (it journalIterator) Item() types.BlobItem {
	return journalItem{it.Iterator.Item()}
}

func (journalIterator) Err() error {
	return nil
}

// journalItem copies keys out so they outlive the iterator position
type journalItem struct {
	*badger.Item
}

func (i journalItem) Key() []byte {
	return i.KeyCopy(nil)
}

// failedIterator is returned when the iterator's transaction is unusable
type failedIterator struct {
	err error
}

func (failedIterator) Rewind()                    {}
func (failedIterator) Seek([]byte)                {}
func (failedIterator) Valid() bool                { return false }
func (failedIterator) ValidForPrefix([]byte) bool { return false }
func (failedIterator) Next()                      {}
func (failedIterator) Item() types.BlobItem       { return nil }
func (failedIterator) Close()                     {}
func (it failedIterator) Err() error              { return it.err }
