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

package staking

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"go.opentelemetry.io/otel/attribute"
)

// AuditReport compares a vault's escrow balance with the sum of its stakes
type AuditReport struct {
	AssetID       string `json:"asset_id"`
	Vault         string `json:"vault"`
	Escrow        string `json:"escrow"`
	EscrowBalance uint64 `json:"escrow_balance"`
	TotalStaked   uint64 `json:"total_staked"`
	// Surplus is escrow not owed to any staker, such as retained penalties
	Surplus uint64 `json:"surplus"`
	Entries int    `json:"entries"`
	Active  int    `json:"active"`
}

// Audit checks the custody invariant of a vault. The report is returned
// along with ErrCustodyViolation when stakes exceed the escrow balance.
func (e *Engine) Audit(ctx context.Context, assetID string) (_ *AuditReport, err error) {
	_, span := e.tracer.Start(ctx, "staking.Audit")
	span.SetAttributes(attribute.String("asset", assetID))
	defer func() { e.endSpan(span, "audit", err) }()
	txn := e.config.DB.Transaction(false)
	defer txn.Release()
	v, err := e.config.Vaults.Get(assetID, txn)
	if err != nil {
		return nil, err
	}
	balance, err := e.config.Vaults.EscrowBalance(v, txn)
	if err != nil {
		return nil, err
	}
	entries, err := e.config.DB.GetStakeEntries(v.Address.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{
		AssetID:       assetID,
		Vault:         v.Address.String(),
		Escrow:        v.EscrowAccount(),
		EscrowBalance: balance,
		Entries:       len(entries),
	}
	var carry uint64
	for _, entry := range entries {
		report.TotalStaked, carry = bits.Add64(
			report.TotalStaked,
			uint64(entry.Amount),
			0,
		)
		if carry != 0 {
			return report, fmt.Errorf("%w: total staked overflows", ErrCustodyViolation)
		}
		if entry.Amount > 0 && !AccessRevoked(entry.Status) {
			report.Active++
		}
	}
	if report.TotalStaked > balance {
		e.logger.ErrorContext(
			ctx,
			"custody violation",
			"asset", assetID,
			"escrow_balance", balance,
			"total_staked", report.TotalStaked,
		)
		return report, fmt.Errorf(
			"%w: staked %d, escrow %d",
			ErrCustodyViolation,
			report.TotalStaked,
			balance,
		)
	}
	report.Surplus = balance - report.TotalStaked
	return report, nil
}

// AuditAll audits every vault and returns the reports of the vaults that
// passed together with the joined violations
func (e *Engine) AuditAll(ctx context.Context) ([]*AuditReport, error) {
	vaults, err := e.config.Vaults.List(nil)
	if err != nil {
		return nil, err
	}
	ret := make([]*AuditReport, 0, len(vaults))
	var errs []error
	for _, v := range vaults {
		report, err := e.Audit(ctx, v.AssetID)
		if err != nil {
			errs = append(errs, fmt.Errorf("vault %s: %w", v.AssetID, err))
			continue
		}
		ret = append(ret, report)
	}
	return ret, errors.Join(errs...)
}
