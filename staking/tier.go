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

import "github.com/blinklabs-io/stakevault/database/models"

// UnitsPerToken is the number of raw units in one whole token
const UnitsPerToken uint64 = 1_000_000_000

// Tier classifies a stake by size. It is informational only.
type Tier uint8

const (
	TierNone Tier = iota
	TierBase
	TierFull
	TierPremium
)

var tierThresholds = []struct {
	tier Tier
	min  uint64
}{
	{TierPremium, 1000 * UnitsPerToken},
	{TierFull, 500 * UnitsPerToken},
	{TierBase, 250 * UnitsPerToken},
}

// TierFor returns the tier for a raw staked amount
func TierFor(amount uint64) Tier {
	for _, t := range tierThresholds {
		if amount >= t.min {
			return t.tier
		}
	}
	return TierNone
}

// Perks describes what a tier unlocks for storefront integrations
type Perks struct {
	Tier            Tier   `json:"tier"`
	Name            string `json:"name"`
	DiscountPercent uint8  `json:"discount_percent"`
	ProductsVisible bool   `json:"products_visible"`
	CanCheckout     bool   `json:"can_checkout"`
	ExclusiveAccess bool   `json:"exclusive_access"`
	AccessRevoked   bool   `json:"access_revoked"`
}

// TierPerks returns the perks of a tier
func TierPerks(tier Tier) Perks {
	p := Perks{
		Tier:            tier,
		ProductsVisible: tier >= TierFull,
		CanCheckout:     tier >= TierFull,
		ExclusiveAccess: tier >= TierPremium,
	}
	switch tier {
	case TierPremium:
		p.Name = "Premium Access"
		p.DiscountPercent = 20
	case TierFull:
		p.Name = "Full Access"
		p.DiscountPercent = 10
	case TierBase:
		p.Name = "Base Access"
		p.DiscountPercent = 5
	default:
		p.Name = "No Access"
	}
	return p
}

// AccessRevoked reports whether perks are withdrawn for a stake status.
// Access ends as soon as an unstake is requested.
func AccessRevoked(status models.StakeStatus) bool {
	return status == models.StakeStatusUnstaking ||
		status == models.StakeStatusUnstaked
}

// PerksFor returns the effective perks for a stake. A revoked stake gets
// the perks of TierNone.
func PerksFor(amount uint64, status models.StakeStatus) Perks {
	if AccessRevoked(status) || status == models.StakeStatusNone {
		p := TierPerks(TierNone)
		p.AccessRevoked = AccessRevoked(status)
		return p
	}
	return TierPerks(TierFor(amount))
}
