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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/stakevault/database/types"
	"github.com/google/uuid"
)

// JournalRecord is the persisted form of an emitted event. Records are
// appended inside the transaction that produced them and never deleted.
type JournalRecord struct {
	cbor.StructAsArray
	ID        string
	Type      string
	Vault     []byte
	Sequence  uint64
	Timestamp int64
	Payload   []byte // CBOR encoded event body
}

// DecodePayload decodes the event body into dest
func (r *JournalRecord) DecodePayload(dest any) error {
	if _, err := cbor.Decode(r.Payload, dest); err != nil {
		return fmt.Errorf("decode journal payload: %w", err)
	}
	return nil
}

// AppendJournal encodes payload and appends it to the vault's journal under
// the next sequence number
func (d *Database) AppendJournal(
	vault []byte,
	eventType string,
	timestamp int64,
	payload any,
	txn *Txn,
) (*JournalRecord, error) {
	payloadCbor, err := cbor.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("encode journal payload: %w", err)
	}
	rec := &JournalRecord{
		ID:        uuid.NewString(),
		Type:      eventType,
		Vault:     vault,
		Timestamp: timestamp,
		Payload:   payloadCbor,
	}
	err = d.withTxn(txn, true, func(txn *Txn) error {
		if txn.Blob() == nil {
			return types.ErrBlobStoreUnavailable
		}
		seq, err := d.journalSequence(vault, txn)
		if err != nil {
			return err
		}
		rec.Sequence = seq + 1
		recCbor, err := cbor.Encode(rec)
		if err != nil {
			return fmt.Errorf("encode journal record: %w", err)
		}
		if err := d.blob.Set(
			txn.Blob(),
			types.JournalKey(vault, rec.Sequence),
			recCbor,
		); err != nil {
			return err
		}
		return d.blob.Set(
			txn.Blob(),
			types.JournalSequenceKey(vault),
			types.Uint64ToBytes(rec.Sequence),
		)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Journal returns a vault's journal records in sequence order
func (d *Database) Journal(vault []byte, txn *Txn) ([]JournalRecord, error) {
	var ret []JournalRecord
	err := d.withTxn(txn, false, func(txn *Txn) error {
		if txn.Blob() == nil {
			return types.ErrBlobStoreUnavailable
		}
		prefix := types.JournalPrefix(vault)
		iter := d.blob.NewIterator(
			txn.Blob(),
			types.BlobIteratorOptions{Prefix: prefix},
		)
		defer iter.Close()
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			val, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec JournalRecord
			if _, err := cbor.Decode(val, &rec); err != nil {
				return fmt.Errorf("decode journal record: %w", err)
			}
			ret = append(ret, rec)
		}
		return iter.Err()
	})
	return ret, err
}

func (d *Database) journalSequence(vault []byte, txn *Txn) (uint64, error) {
	val, err := d.blob.Get(txn.Blob(), types.JournalSequenceKey(vault))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid journal sequence length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}
