package pricing

import (
	"time"

	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Breakdown holds the money figures for an order, all rounded to cents.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator prices resolved cart lines. It has no side effects.
type Calculator struct {
	shipping ShippingRule
	taxRate  decimal.Decimal
}

// NewCalculator creates a calculator. taxRate is a fraction (0.05 = 5%).
func NewCalculator(shipping ShippingRule, taxRate decimal.Decimal) *Calculator {
	return &Calculator{
		shipping: shipping,
		taxRate:  taxRate,
	}
}

// LineSubtotal is unit price times quantity, rounded to cents.
func LineSubtotal(line models.LineItem) decimal.Decimal {
	return line.Subtotal().Round(2)
}

// Subtotal sums the rounded line subtotals, so it always equals the sum
// of the order item snapshots built from the same lines.
func Subtotal(lines []models.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(LineSubtotal(line))
	}
	return sum
}

// Compute prices lines for dest. The coupon, when non-nil, is discounted
// only if it validates against the subtotal at now.
func (c *Calculator) Compute(lines []models.LineItem, dest models.Address, cp *models.Coupon, now time.Time) Breakdown {
	subtotal := Subtotal(lines)
	shipping := c.shipping.Cost(subtotal, dest)
	tax := subtotal.Mul(c.taxRate).Round(2)

	discount := decimal.Zero
	if cp != nil && coupon.Validate(cp, subtotal, now).Valid {
		if amount, err := coupon.Apply(cp, subtotal); err == nil {
			discount = amount
		}
	}

	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    total.Round(2),
	}
}
