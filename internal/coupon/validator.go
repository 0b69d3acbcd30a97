package coupon

import (
	"fmt"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Reason explains why a coupon cannot be applied.
type Reason string

// Reasons are listed in the order they are checked; the first failing one wins.
const (
	ReasonInactive          Reason = "coupon is inactive"
	ReasonNotYetValid       Reason = "coupon is not yet valid"
	ReasonExpired           Reason = "coupon has expired"
	ReasonUsageLimitReached Reason = "usage limit reached"
	ReasonMinimumPurchase   Reason = "minimum purchase not met"
	ReasonUnsupportedType   Reason = "unsupported coupon type"
)

// Result is the outcome of Validate.
type Result struct {
	Valid   bool   `json:"valid"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
}

func invalid(reason Reason, message string) Result {
	return Result{Valid: false, Reason: reason, Message: message}
}

// Validate checks whether c can be applied to an order with the given
// subtotal at time now. It reads c and never mutates it, so repeated
// calls with the same arguments return the same result.
func Validate(c *models.Coupon, subtotal decimal.Decimal, now time.Time) Result {
	if !c.IsActive {
		return invalid(ReasonInactive, "Coupon is inactive")
	}

	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return invalid(ReasonNotYetValid, "Coupon is not yet valid")
	}

	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return invalid(ReasonExpired, "Coupon has expired")
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return invalid(ReasonUsageLimitReached, "Coupon usage limit reached")
	}

	if subtotal.LessThan(c.MinPurchase) {
		return invalid(ReasonMinimumPurchase,
			fmt.Sprintf("Minimum purchase of %s required", c.MinPurchase.StringFixed(2)))
	}

	if _, err := c.Discount(); err != nil {
		return invalid(ReasonUnsupportedType, "Coupon type is not supported")
	}

	return Result{Valid: true, Message: "Coupon is valid"}
}

// Apply returns the discount c grants on subtotal, rounded to cents.
// Percent coupons take subtotal*value/100; fixed coupons take their value
// even when it exceeds the subtotal. The result is never negative.
func Apply(c *models.Coupon, subtotal decimal.Decimal) (decimal.Decimal, error) {
	d, err := c.Discount()
	if err != nil {
		return decimal.Zero, err
	}

	amount := d.Amount(subtotal).Round(2)
	if amount.IsNegative() {
		return decimal.Zero, nil
	}
	return amount, nil
}
