package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoupon_Discount(t *testing.T) {
	subtotal := decimal.RequireFromString("30.00")

	t.Run("percent", func(t *testing.T) {
		c := Coupon{Type: CouponTypePercent, Value: decimal.NewFromInt(10)}
		d, err := c.Discount()
		require.NoError(t, err)
		assert.IsType(t, Percent{}, d)
		assert.True(t, d.Amount(subtotal).Equal(decimal.RequireFromString("3")))
	})

	t.Run("fixed is not capped", func(t *testing.T) {
		c := Coupon{Type: CouponTypeFixed, Value: decimal.NewFromInt(50)}
		d, err := c.Discount()
		require.NoError(t, err)
		assert.True(t, d.Amount(subtotal).Equal(decimal.NewFromInt(50)))
	})

	t.Run("unknown type", func(t *testing.T) {
		c := Coupon{Type: "freeshipping", Value: decimal.NewFromInt(5)}
		_, err := c.Discount()
		assert.Error(t, err)
	})
}

func TestAddress_PostalDigits(t *testing.T) {
	assert.Equal(t, "01310100", Address{PostalCode: "01310-100"}.PostalDigits())
	assert.Equal(t, "", Address{PostalCode: " - "}.PostalDigits())
}

func TestOrder_ItemsSubtotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Subtotal: decimal.RequireFromString("10.10")},
		{Subtotal: decimal.RequireFromString("0.20")},
	}}
	assert.True(t, o.ItemsSubtotal().Equal(decimal.RequireFromString("10.30")))
}

func TestLineItem_Subtotal(t *testing.T) {
	l := LineItem{Product: Product{Price: decimal.RequireFromString("0.10")}, Quantity: 3}
	assert.Equal(t, "0.30", l.Subtotal().StringFixed(2))
}
