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

package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/stakevault/address"
	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
	"github.com/blinklabs-io/stakevault/event"
	"github.com/blinklabs-io/stakevault/token"
	"github.com/puzpuzpuz/xsync/v4"
)

var (
	ErrAlreadyInitialized = errors.New("vault already initialized")
	ErrVaultNotFound      = errors.New("vault not found")
	ErrInvalidAsset       = errors.New("invalid asset identifier")
	ErrInvalidAuthority   = errors.New("invalid authority")
	ErrDerivationMismatch = errors.New("vault address derivation mismatch")
)

const EventTypeVaultInitialized event.EventType = "vault.initialized"

type VaultInitializedEvent struct {
	Vault     string
	AssetID   string
	Authority string
	Escrow    string
	Timestamp int64
}

// Vault is the per-asset custody singleton
type Vault struct {
	Address    address.Address
	AssetID    string
	Authority  string
	Escrow     address.Address
	Bump       uint8
	EscrowBump uint8
	CreatedAt  int64
}

// FromModel converts a stored vault record
func FromModel(m *models.Vault) (*Vault, error) {
	if len(m.Address) != address.Size || len(m.Escrow) != address.Size {
		return nil, fmt.Errorf("%w: bad stored address length", address.ErrInvalidAddress)
	}
	v := &Vault{
		AssetID:    m.AssetID,
		Authority:  m.Authority,
		Bump:       m.Bump,
		EscrowBump: m.EscrowBump,
		CreatedAt:  m.CreatedAt,
	}
	copy(v.Address[:], m.Address)
	copy(v.Escrow[:], m.Escrow)
	return v, nil
}

// EscrowAccount returns the name of the token account custodying the
// vault's staked value
func (v *Vault) EscrowAccount() string {
	return v.Escrow.String()
}

// Principal is the identity the vault signs with when moving escrowed funds
func (v *Vault) Principal() string {
	return v.Address.String()
}

// verify re-derives the vault and escrow addresses from their seeds
func (v *Vault) verify() error {
	if err := address.Verify(v.Address, address.VaultSeeds(v.AssetID), v.Bump); err != nil {
		return fmt.Errorf("%w: %w", ErrDerivationMismatch, err)
	}
	if err := address.Verify(v.Escrow, address.EscrowSeeds(v.Address), v.EscrowBump); err != nil {
		return fmt.Errorf("%w: %w", ErrDerivationMismatch, err)
	}
	return nil
}

// TransferOut moves amount from escrow to the named account, signing as the
// vault. The stored derivation is checked first and the transfer is refused
// if it does not hold.
func (v *Vault) TransferOut(
	ctx context.Context,
	txn *database.Txn,
	ledger token.Transferer,
	to string,
	amount uint64,
) error {
	if err := v.verify(); err != nil {
		return err
	}
	return ledger.Transfer(ctx, txn, token.TransferRequest{
		From:      v.EscrowAccount(),
		To:        to,
		Authority: v.Principal(),
		Amount:    amount,
	})
}

// Manager creates and looks up vaults and serializes operations per vault
type Manager struct {
	db     *database.Database
	ledger *token.Ledger
	bus    *event.EventBus
	logger *slog.Logger
	clock  func() time.Time
	locks  *xsync.Map[address.Address, *sync.Mutex]
}

func NewManager(
	db *database.Database,
	ledger *token.Ledger,
	bus *event.EventBus,
	logger *slog.Logger,
	clock func() time.Time,
) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		db:     db,
		ledger: ledger,
		bus:    bus,
		logger: logger.With("component", "vault"),
		clock:  clock,
		locks:  xsync.NewMap[address.Address, *sync.Mutex](),
	}
}

// Lock acquires the operation lock of a vault and returns its release func
func (m *Manager) Lock(vault address.Address) func() {
	mu, _ := m.locks.LoadOrStore(vault, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// Initialize creates the vault for an asset along with its escrow account
func (m *Manager) Initialize(
	ctx context.Context,
	assetID string,
	authority string,
) (*Vault, error) {
	if assetID == "" {
		return nil, ErrInvalidAsset
	}
	if authority == "" {
		return nil, ErrInvalidAuthority
	}
	now := m.clock().Unix()
	vaultAddr, bump, err := address.FindAddress(address.VaultSeeds(assetID)...)
	if err != nil {
		return nil, err
	}
	escrowAddr, escrowBump, err := address.FindAddress(address.EscrowSeeds(vaultAddr)...)
	if err != nil {
		return nil, err
	}
	v := &Vault{
		Address:    vaultAddr,
		AssetID:    assetID,
		Authority:  authority,
		Escrow:     escrowAddr,
		Bump:       bump,
		EscrowBump: escrowBump,
		CreatedAt:  now,
	}
	evt := VaultInitializedEvent{
		Vault:     v.Address.String(),
		AssetID:   assetID,
		Authority: authority,
		Escrow:    v.EscrowAccount(),
		Timestamp: now,
	}
	unlock := m.Lock(vaultAddr)
	defer unlock()
	err = m.db.Transaction(true).Do(func(txn *database.Txn) error {
		err := m.db.CreateVault(&models.Vault{
			Address:    v.Address.Bytes(),
			AssetID:    assetID,
			Authority:  authority,
			Escrow:     v.Escrow.Bytes(),
			Bump:       bump,
			EscrowBump: escrowBump,
			CreatedAt:  now,
		}, txn)
		if err != nil {
			if errors.Is(err, types.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrAlreadyInitialized, assetID)
			}
			return err
		}
		if _, err := m.ledger.OpenAccount(
			ctx,
			txn,
			v.EscrowAccount(),
			assetID,
			v.Principal(),
		); err != nil {
			return err
		}
		if _, err := m.db.AppendJournal(
			v.Address.Bytes(),
			string(EventTypeVaultInitialized),
			now,
			evt,
			txn,
		); err != nil {
			return err
		}
		if m.bus != nil {
			txn.OnCommit(func() {
				m.bus.Publish(
					EventTypeVaultInitialized,
					event.NewEventAt(EventTypeVaultInitialized, time.Unix(now, 0), evt),
				)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(
		ctx,
		"vault initialized",
		"asset", assetID,
		"vault", evt.Vault,
		"authority", authority,
	)
	return v, nil
}

// Get returns the vault of an asset
func (m *Manager) Get(assetID string, txn *database.Txn) (*Vault, error) {
	rec, err := m.db.GetVault(assetID, txn)
	if err != nil {
		if errors.Is(err, models.ErrVaultNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, assetID)
		}
		return nil, err
	}
	return FromModel(rec)
}

// List returns all vaults
func (m *Manager) List(txn *database.Txn) ([]*Vault, error) {
	recs, err := m.db.GetVaults(txn)
	if err != nil {
		return nil, err
	}
	ret := make([]*Vault, 0, len(recs))
	for i := range recs {
		v, err := FromModel(&recs[i])
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, nil
}

// EscrowBalance returns the token balance held in a vault's escrow
func (m *Manager) EscrowBalance(v *Vault, txn *database.Txn) (uint64, error) {
	return m.ledger.Balance(v.EscrowAccount(), txn)
}
