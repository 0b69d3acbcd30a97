package pricing

import (
	"testing"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCalculator() *Calculator {
	return NewCalculator(ZoneShipping{
		BaseRate:      dec("15.00"),
		FreeThreshold: dec("200.00"),
	}, decimal.Zero)
}

func productA(qty int) []models.LineItem {
	return []models.LineItem{
		{Product: models.Product{ID: 1, Title: "Product A", Price: dec("10.00"), Stock: 10, IsActive: true}, Quantity: qty},
	}
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "%s = %s, want %s", field, got, want)
}

func TestCompute_BasicScenario(t *testing.T) {
	b := newTestCalculator().Compute(productA(3), models.Address{PostalCode: "11111"}, nil, now)

	assertDec(t, "30.00", b.Subtotal, "subtotal")
	assertDec(t, "15.00", b.Shipping, "shipping")
	assertDec(t, "0", b.Tax, "tax")
	assertDec(t, "0", b.Discount, "discount")
	assertDec(t, "45.00", b.Total, "total")
}

func TestCompute_FreeShippingAtThreshold(t *testing.T) {
	b := newTestCalculator().Compute(productA(20), models.Address{PostalCode: "11111"}, nil, now)

	assertDec(t, "200.00", b.Subtotal, "subtotal")
	assertDec(t, "0", b.Shipping, "shipping")
	assertDec(t, "200.00", b.Total, "total")
}

func TestCompute_PercentCoupon(t *testing.T) {
	cp := &models.Coupon{
		Code:        "SAVE10",
		Type:        models.CouponTypePercent,
		Value:       dec("10"),
		MinPurchase: dec("20.00"),
		IsActive:    true,
		ValidFrom:   now.Add(-time.Hour),
	}

	b := newTestCalculator().Compute(productA(3), models.Address{PostalCode: "11111"}, cp, now)

	assertDec(t, "3.00", b.Discount, "discount")
	assertDec(t, "42.00", b.Total, "total")
}

func TestCompute_InvalidCouponIgnored(t *testing.T) {
	limit := 1
	cp := &models.Coupon{
		Type:       models.CouponTypePercent,
		Value:      dec("10"),
		IsActive:   true,
		UsageLimit: &limit,
		UsedCount:  1,
	}

	b := newTestCalculator().Compute(productA(3), models.Address{PostalCode: "11111"}, cp, now)

	assertDec(t, "0", b.Discount, "discount")
	assertDec(t, "45.00", b.Total, "total")
}

func TestCompute_FixedCouponClampsTotal(t *testing.T) {
	cp := &models.Coupon{
		Type:     models.CouponTypeFixed,
		Value:    dec("100.00"),
		IsActive: true,
	}

	b := newTestCalculator().Compute(productA(3), models.Address{PostalCode: "11111"}, cp, now)

	assertDec(t, "100.00", b.Discount, "discount")
	assertDec(t, "0", b.Total, "total")
}

func TestCompute_TaxRateHook(t *testing.T) {
	calc := NewCalculator(ZoneShipping{BaseRate: dec("15.00"), FreeThreshold: dec("200.00")}, dec("0.05"))

	b := calc.Compute(productA(3), models.Address{PostalCode: "11111"}, nil, now)

	assertDec(t, "1.50", b.Tax, "tax")
	assertDec(t, "46.50", b.Total, "total")
}

func TestCompute_NoCentDrift(t *testing.T) {
	lines := []models.LineItem{
		{Product: models.Product{Price: dec("0.10")}, Quantity: 3},
		{Product: models.Product{Price: dec("0.20")}, Quantity: 1},
	}
	calc := newTestCalculator()

	first := calc.Compute(lines, models.Address{PostalCode: "22222"}, nil, now)
	for i := 0; i < 1000; i++ {
		b := calc.Compute(lines, models.Address{PostalCode: "22222"}, nil, now)
		assertDec(t, first.Total.String(), b.Total, "total")
	}
	assertDec(t, "0.50", first.Subtotal, "subtotal")
}

func TestSubtotal_RoundsEachLine(t *testing.T) {
	lines := []models.LineItem{
		{Product: models.Product{Price: dec("0.333")}, Quantity: 3},
		{Product: models.Product{Price: dec("0.335")}, Quantity: 1},
	}

	assertDec(t, "1.00", LineSubtotal(lines[0]), "line 0")
	assertDec(t, "0.34", LineSubtotal(lines[1]), "line 1")
	assertDec(t, "1.34", Subtotal(lines), "subtotal")
}

func TestZoneShipping_Cost(t *testing.T) {
	rule := ZoneShipping{BaseRate: dec("15.00"), FreeThreshold: dec("200.00")}

	tests := []struct {
		postal string
		want   string
	}{
		{"01310-100", "22.50"},
		{"11111", "15.00"},
		{"22222", "18.00"},
		{"9", "18.00"},
		{"", "18.00"},
	}

	for _, tt := range tests {
		t.Run(tt.postal, func(t *testing.T) {
			got := rule.Cost(dec("30.00"), models.Address{PostalCode: tt.postal})
			assertDec(t, tt.want, got, "shipping")
		})
	}
}
