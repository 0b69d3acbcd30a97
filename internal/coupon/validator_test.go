package coupon

import (
	"testing"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func baseCoupon() *models.Coupon {
	return &models.Coupon{
		Code:        "SAVE10",
		Type:        models.CouponTypePercent,
		Value:       dec("10"),
		MinPurchase: dec("20.00"),
		IsActive:    true,
		ValidFrom:   now.Add(-24 * time.Hour),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *models.Coupon)
		subtotal string
		want     Reason
		valid    bool
	}{
		{
			name:     "valid coupon",
			mutate:   func(c *models.Coupon) {},
			subtotal: "30.00",
			valid:    true,
		},
		{
			name:     "inactive",
			mutate:   func(c *models.Coupon) { c.IsActive = false },
			subtotal: "30.00",
			want:     ReasonInactive,
		},
		{
			name:     "not yet valid",
			mutate:   func(c *models.Coupon) { c.ValidFrom = now.Add(time.Hour) },
			subtotal: "30.00",
			want:     ReasonNotYetValid,
		},
		{
			name:     "expired",
			mutate:   func(c *models.Coupon) { c.ValidTo = timePtr(now.Add(-time.Minute)) },
			subtotal: "30.00",
			want:     ReasonExpired,
		},
		{
			name:     "usage limit reached",
			mutate:   func(c *models.Coupon) { c.UsageLimit = intPtr(1); c.UsedCount = 1 },
			subtotal: "30.00",
			want:     ReasonUsageLimitReached,
		},
		{
			name:     "usage below limit",
			mutate:   func(c *models.Coupon) { c.UsageLimit = intPtr(2); c.UsedCount = 1 },
			subtotal: "30.00",
			valid:    true,
		},
		{
			name:     "minimum purchase not met",
			mutate:   func(c *models.Coupon) {},
			subtotal: "19.99",
			want:     ReasonMinimumPurchase,
		},
		{
			name:     "minimum purchase met exactly",
			mutate:   func(c *models.Coupon) {},
			subtotal: "20.00",
			valid:    true,
		},
		{
			name:     "unsupported type",
			mutate:   func(c *models.Coupon) { c.Type = "bogus" },
			subtotal: "30.00",
			want:     ReasonUnsupportedType,
		},
		{
			name: "inactive wins over expired and usage",
			mutate: func(c *models.Coupon) {
				c.IsActive = false
				c.ValidTo = timePtr(now.Add(-time.Minute))
				c.UsageLimit = intPtr(1)
				c.UsedCount = 5
			},
			subtotal: "1.00",
			want:     ReasonInactive,
		},
		{
			name: "expired wins over usage limit",
			mutate: func(c *models.Coupon) {
				c.ValidTo = timePtr(now.Add(-time.Minute))
				c.UsageLimit = intPtr(1)
				c.UsedCount = 1
			},
			subtotal: "1.00",
			want:     ReasonExpired,
		},
		{
			name: "usage limit wins over minimum purchase",
			mutate: func(c *models.Coupon) {
				c.UsageLimit = intPtr(1)
				c.UsedCount = 1
			},
			subtotal: "1.00",
			want:     ReasonUsageLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCoupon()
			tt.mutate(c)

			got := Validate(c, dec(tt.subtotal), now)

			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (reason %q)", got.Valid, tt.valid, got.Reason)
			}
			if got.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.want)
			}
			if got.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	c := baseCoupon()
	c.UsageLimit = intPtr(3)
	c.UsedCount = 2

	first := Validate(c, dec("30.00"), now)
	second := Validate(c, dec("30.00"), now)

	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	if c.UsedCount != 2 {
		t.Errorf("UsedCount mutated to %d", c.UsedCount)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		typ      models.CouponType
		value    string
		subtotal string
		want     string
	}{
		{"percent of 30", models.CouponTypePercent, "10", "30.00", "3.00"},
		{"percent rounds to cents", models.CouponTypePercent, "15", "0.99", "0.15"},
		{"percent 100 equals subtotal", models.CouponTypePercent, "100", "45.67", "45.67"},
		{"fixed", models.CouponTypeFixed, "5.00", "30.00", "5.00"},
		{"fixed above subtotal not capped", models.CouponTypeFixed, "50.00", "30.00", "50.00"},
		{"negative value clamps to zero", models.CouponTypeFixed, "-5.00", "30.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Coupon{Type: tt.typ, Value: dec(tt.value)}
			got, err := Apply(c, dec(tt.subtotal))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Apply() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApply_PercentNeverExceedsSubtotal(t *testing.T) {
	subtotals := []string{"0.01", "0.99", "1.00", "19.99", "123.45", "9999.99"}
	for v := 0; v <= 100; v += 7 {
		for _, s := range subtotals {
			c := &models.Coupon{Type: models.CouponTypePercent, Value: decimal.NewFromInt(int64(v))}
			got, err := Apply(c, dec(s))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.IsNegative() || got.GreaterThan(dec(s)) {
				t.Errorf("value %d subtotal %s: discount %s out of range", v, s, got)
			}
		}
	}
}

func TestApply_UnknownType(t *testing.T) {
	c := &models.Coupon{Type: "bogus", Value: dec("10")}
	if _, err := Apply(c, dec("30.00")); err == nil {
		t.Error("expected error for unknown coupon type")
	}
}
