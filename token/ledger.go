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

// Package token holds the Ledger Transfer Service contract and the
// database-backed reference ledger that implements it.
package token

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/stakevault/database"
	"github.com/blinklabs-io/stakevault/database/models"
	"github.com/blinklabs-io/stakevault/database/types"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAccountNotFound      = errors.New("token account not found")
	ErrAccountExists        = errors.New("token account already exists")
	ErrAssetMismatch        = errors.New("token accounts hold different assets")
	ErrUnauthorizedTransfer = errors.New("authority does not own source account")
	ErrBalanceOverflow      = errors.New("token balance overflow")
)

// TransferRequest moves Amount from one account to another. Authority must
// own the From account.
type TransferRequest struct {
	From      string
	To        string
	Authority string
	Amount    uint64
}

// Transferer is the atomic debit/credit primitive the engines depend on.
// The transfer is applied inside txn and is undone if txn rolls back.
type Transferer interface {
	Transfer(ctx context.Context, txn *database.Txn, req TransferRequest) error
}

// AccountName returns the name of an owner's account for an asset
func AccountName(owner, assetID string) string {
	return owner + ":" + assetID
}

// Ledger is a Transferer backed by the token_account table
type Ledger struct {
	db     *database.Database
	logger *slog.Logger
}

func NewLedger(db *database.Database, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ledger{
		db:     db,
		logger: logger.With("component", "token"),
	}
}

// OpenAccount creates an empty account owned by owner
func (l *Ledger) OpenAccount(
	ctx context.Context,
	txn *database.Txn,
	name string,
	assetID string,
	owner string,
) (*models.TokenAccount, error) {
	acct := &models.TokenAccount{
		Name:    name,
		AssetID: assetID,
		Owner:   owner,
	}
	if err := l.db.CreateTokenAccount(acct, txn); err != nil {
		if errors.Is(err, types.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
		}
		return nil, err
	}
	l.logger.DebugContext(
		ctx,
		"opened token account",
		"account", name,
		"asset", assetID,
		"owner", owner,
	)
	return acct, nil
}

// Account returns an account by name
func (l *Ledger) Account(
	name string,
	txn *database.Txn,
) (*models.TokenAccount, error) {
	acct, err := l.db.GetTokenAccount(name, txn)
	if err != nil {
		if errors.Is(err, models.ErrTokenAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
		}
		return nil, err
	}
	return acct, nil
}

// Balance returns the balance of an account
func (l *Ledger) Balance(name string, txn *database.Txn) (uint64, error) {
	acct, err := l.Account(name, txn)
	if err != nil {
		return 0, err
	}
	return uint64(acct.Balance), nil
}

// Mint credits new tokens to an account. It is the faucet used by the CLI
// and tests to fund accounts.
func (l *Ledger) Mint(
	ctx context.Context,
	txn *database.Txn,
	name string,
	amount uint64,
) error {
	if txn == nil {
		return l.db.Transaction(true).Do(func(txn *database.Txn) error {
			return l.Mint(ctx, txn, name, amount)
		})
	}
	acct, err := l.Account(name, txn)
	if err != nil {
		return err
	}
	newBalance := uint64(acct.Balance) + amount
	if newBalance < uint64(acct.Balance) {
		return ErrBalanceOverflow
	}
	if err := l.db.SetTokenBalance(name, newBalance, txn); err != nil {
		return err
	}
	l.logger.InfoContext(
		ctx,
		"minted tokens",
		"account", name,
		"amount", amount,
	)
	return nil
}

// Transfer debits req.From and credits req.To within txn. Failures leave
// both balances untouched.
func (l *Ledger) Transfer(
	ctx context.Context,
	txn *database.Txn,
	req TransferRequest,
) error {
	if txn == nil {
		return l.db.Transaction(true).Do(func(txn *database.Txn) error {
			return l.Transfer(ctx, txn, req)
		})
	}
	from, err := l.Account(req.From, txn)
	if err != nil {
		return err
	}
	to, err := l.Account(req.To, txn)
	if err != nil {
		return err
	}
	if from.Owner != req.Authority {
		return fmt.Errorf(
			"%w: %s does not own %s",
			ErrUnauthorizedTransfer,
			req.Authority,
			req.From,
		)
	}
	if from.AssetID != to.AssetID {
		return fmt.Errorf(
			"%w: %s != %s",
			ErrAssetMismatch,
			from.AssetID,
			to.AssetID,
		)
	}
	if uint64(from.Balance) < req.Amount {
		return fmt.Errorf(
			"%w: %s holds %d, needs %d",
			ErrInsufficientFunds,
			req.From,
			uint64(from.Balance),
			req.Amount,
		)
	}
	if req.From == req.To || req.Amount == 0 {
		return nil
	}
	newTo := uint64(to.Balance) + req.Amount
	if newTo < uint64(to.Balance) {
		return ErrBalanceOverflow
	}
	if err := l.db.SetTokenBalance(
		req.From,
		uint64(from.Balance)-req.Amount,
		txn,
	); err != nil {
		return err
	}
	if err := l.db.SetTokenBalance(req.To, newTo, txn); err != nil {
		return err
	}
	l.logger.DebugContext(
		ctx,
		"transferred tokens",
		"from", req.From,
		"to", req.To,
		"amount", req.Amount,
	)
	return nil
}
