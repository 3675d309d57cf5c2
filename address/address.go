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

package address

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

const (
	// Size is the length of an address in bytes
	Size = 32
	// HumanReadablePart is the bech32 prefix used for address strings
	HumanReadablePart = "sv"
	// MaxSeedLength is the maximum length of a single seed
	MaxSeedLength = 32
	// MaxSeeds is the maximum number of seeds, not counting the bump
	MaxSeeds = 15
)

const (
	vaultSeedPrefix    = "vault"
	escrowSeedPrefix   = "escrow"
	stakeSeedPrefix    = "stake"
	proposalSeedPrefix = "proposal"
	voteSeedPrefix     = "vote"
	derivedAddrMarker  = "derived-address"
)

// ProgramID namespaces every derived address so that the same seeds used by
// another system never produce a colliding address
var ProgramID = []byte("stakevault")

var (
	ErrOnCurve         = errors.New("derived address is a valid curve point")
	ErrNoViableBump    = errors.New("unable to find a viable bump for seeds")
	ErrSeedTooLong     = errors.New("seed exceeds maximum length")
	ErrTooManySeeds    = errors.New("too many seeds")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrWrongPrefix     = errors.New("address has unexpected prefix")
	ErrAddressMismatch = errors.New("seeds do not derive the expected address")
)

// Address identifies a stored entity
type Address [Size]byte

// String returns the bech32 encoding of the address
func (a Address) String() string {
	convData, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(HumanReadablePart, convData)
	if err != nil {
		return ""
	}
	return encoded
}

// Bytes returns a copy of the raw address bytes
func (a Address) Bytes() []byte {
	return bytes.Clone(a[:])
}

// IsZero returns true for the all-zero address
func (a Address) IsZero() bool {
	return a == Address{}
}

// Parse decodes a bech32 address string
func Parse(s string) (Address, error) {
	var ret Address
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return ret, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if hrp != HumanReadablePart {
		return ret, fmt.Errorf("%w: %s", ErrWrongPrefix, hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return ret, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(decoded) != Size {
		return ret, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidAddress,
			Size,
			len(decoded),
		)
	}
	copy(ret[:], decoded)
	return ret, nil
}

// CreateAddress derives the address for the given seeds and bump. The digest
// must not be a valid ed25519 point, so no private key can ever sign for it.
func CreateAddress(seeds [][]byte, bump uint8) (Address, error) {
	var ret Address
	if len(seeds) > MaxSeeds {
		return ret, ErrTooManySeeds
	}
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return ret, err
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return ret, ErrSeedTooLong
		}
		hasher.Write(seed)
	}
	hasher.Write([]byte{bump})
	hasher.Write(ProgramID)
	hasher.Write([]byte(derivedAddrMarker))
	digest := hasher.Sum(nil)
	if isOnCurve(digest) {
		return ret, ErrOnCurve
	}
	copy(ret[:], digest)
	return ret, nil
}

// FindAddress searches bumps from 255 downward and returns the first
// off-curve address along with the bump that produced it
func FindAddress(seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(seeds, uint8(bump)) //nolint:gosec
		if err != nil {
			if errors.Is(err, ErrOnCurve) {
				continue
			}
			return Address{}, 0, err
		}
		return addr, uint8(bump), nil //nolint:gosec
	}
	return Address{}, 0, ErrNoViableBump
}

// Verify checks that the seeds and bump derive the expected address
func Verify(expected Address, seeds [][]byte, bump uint8) error {
	addr, err := CreateAddress(seeds, bump)
	if err != nil {
		return err
	}
	if addr != expected {
		return ErrAddressMismatch
	}
	return nil
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// VaultSeeds returns the seeds for the vault of an asset
func VaultSeeds(assetID string) [][]byte {
	return [][]byte{[]byte(vaultSeedPrefix), seedFromString(assetID)}
}

// EscrowSeeds returns the seeds for the escrow account of a vault
func EscrowSeeds(vault Address) [][]byte {
	return [][]byte{[]byte(escrowSeedPrefix), vault[:]}
}

// StakeSeeds returns the seeds for a user's stake entry in a vault
func StakeSeeds(vault Address, user string) [][]byte {
	return [][]byte{[]byte(stakeSeedPrefix), vault[:], seedFromString(user)}
}

// ProposalSeeds returns the seeds for a proposal in a vault
func ProposalSeeds(vault Address, proposalID uint64) [][]byte {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, proposalID)
	return [][]byte{[]byte(proposalSeedPrefix), vault[:], idBytes}
}

// VoteSeeds returns the seeds for a voter's record on a proposal
func VoteSeeds(proposal Address, voter string) [][]byte {
	return [][]byte{[]byte(voteSeedPrefix), proposal[:], seedFromString(voter)}
}

// seedFromString keeps short identifiers verbatim and hashes anything longer
// than the seed limit
func seedFromString(s string) []byte {
	if len(s) <= MaxSeedLength {
		return []byte(s)
	}
	sum := blake2b.Sum256([]byte(s))
	return sum[:]
}
