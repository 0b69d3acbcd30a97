package pricing

import (
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// ShippingRule computes shipping for a subtotal and destination.
// Implementations must be deterministic and never return a negative amount.
type ShippingRule interface {
	Cost(subtotal decimal.Decimal, dest models.Address) decimal.Decimal
}

// ZoneShipping charges BaseRate scaled by a zone multiplier taken from the
// first digit of the postal code, and nothing at or above FreeThreshold.
type ZoneShipping struct {
	BaseRate      decimal.Decimal
	FreeThreshold decimal.Decimal
}

var (
	multiplierZone0   = decimal.RequireFromString("1.5")
	multiplierZone1   = decimal.NewFromInt(1)
	multiplierDefault = decimal.RequireFromString("1.2")
)

// Cost implements ShippingRule.
func (z ZoneShipping) Cost(subtotal decimal.Decimal, dest models.Address) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(z.FreeThreshold) {
		return decimal.Zero
	}

	cost := z.BaseRate.Mul(ZoneMultiplier(dest.PostalDigits())).Round(2)
	if cost.IsNegative() {
		return decimal.Zero
	}
	return cost
}

// ZoneMultiplier maps a digits-only postal code to its distance multiplier.
func ZoneMultiplier(postal string) decimal.Decimal {
	switch {
	case len(postal) > 0 && postal[0] == '0':
		return multiplierZone0
	case len(postal) > 0 && postal[0] == '1':
		return multiplierZone1
	default:
		return multiplierDefault
	}
}
