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

package types

import (
	"encoding/binary"
	"slices"
)

const (
	JournalKeyPrefix         = "jr"
	JournalSequenceKeyPrefix = "jn"
)

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// JournalPrefix returns the key prefix for all journal records of a vault
func JournalPrefix(vault []byte) []byte {
	return slices.Concat([]byte(JournalKeyPrefix), vault)
}

// JournalKey returns the key for a single journal record. The big-endian
// sequence keeps records ordered by iteration.
func JournalKey(vault []byte, seq uint64) []byte {
	return slices.Concat(JournalPrefix(vault), Uint64ToBytes(seq))
}

// JournalSequenceKey returns the key holding the last journal sequence
// number used for a vault
func JournalSequenceKey(vault []byte) []byte {
	return slices.Concat([]byte(JournalSequenceKeyPrefix), vault)
}
