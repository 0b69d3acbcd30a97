package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CouponType is the stored discount kind.
type CouponType string

const (
	CouponTypePercent CouponType = "percent"
	CouponTypeFixed   CouponType = "fixed"
)

// Coupon is a discount code. UsedCount only moves forward, and only
// inside a checkout commit that applied the coupon.
type Coupon struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description string          `gorm:"type:varchar(255)" json:"description,omitempty"`
	Type        CouponType      `gorm:"type:varchar(20);not null" json:"type"`
	Value       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"value"`
	MinPurchase decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"min_purchase"`
	UsageLimit  *int            `json:"usage_limit,omitempty"`
	UsedCount   int             `gorm:"not null" json:"used_count"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	ValidFrom   time.Time       `gorm:"not null" json:"valid_from"`
	ValidTo     *time.Time      `json:"valid_to,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// Discount is the closed set of discount behaviours a coupon can carry.
// Percent and Fixed are the only implementations.
type Discount interface {
	Amount(subtotal decimal.Decimal) decimal.Decimal
	discount()
}

// Percent takes Value percent off the subtotal.
type Percent struct {
	Value decimal.Decimal
}

// Amount returns subtotal * value / 100.
func (p Percent) Amount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.Value).Div(decimal.NewFromInt(100))
}

func (Percent) discount() {}

// Fixed takes a flat Value off the order. It is not capped to the subtotal.
type Fixed struct {
	Value decimal.Decimal
}

// Amount returns the fixed value regardless of subtotal.
func (f Fixed) Amount(decimal.Decimal) decimal.Decimal {
	return f.Value
}

func (Fixed) discount() {}

// Discount maps the stored type onto its variant. Unknown types are an
// error rather than a silent zero discount.
func (c Coupon) Discount() (Discount, error) {
	switch c.Type {
	case CouponTypePercent:
		return Percent{Value: c.Value}, nil
	case CouponTypeFixed:
		return Fixed{Value: c.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported coupon type %q", c.Type)
	}
}
