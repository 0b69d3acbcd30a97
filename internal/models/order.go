package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus is reported by the payment gateway callback.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Address is a shipping destination. Orders embed a copy of it.
type Address struct {
	Street       string `gorm:"type:varchar(255)" json:"street"`
	Number       string `gorm:"type:varchar(20)" json:"number"`
	Complement   string `gorm:"type:varchar(100)" json:"complement,omitempty"`
	Neighborhood string `gorm:"type:varchar(100)" json:"neighborhood"`
	City         string `gorm:"type:varchar(100)" json:"city"`
	State        string `gorm:"type:varchar(2)" json:"state"`
	PostalCode   string `gorm:"column:zipcode;type:varchar(10)" json:"postal_code"`
}

// PostalDigits returns the postal code with every non-digit removed.
func (a Address) PostalDigits() string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, a.PostalCode)
}

// Order is the durable result of a checkout. Only Status and PaymentStatus
// change after creation.
type Order struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"order_number"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	PaymentMethod   string          `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Tax             decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"tax"`
	Shipping        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"shipping"`
	Discount        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	Total           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	CouponCode      *string         `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// ItemsSubtotal sums the frozen line subtotals.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal)
	}
	return sum
}

// OrderItem is a snapshot of a catalog product at time of sale.
type OrderItem struct {
	ID           int64           `gorm:"primaryKey" json:"id"`
	OrderID      int64           `gorm:"not null;index" json:"order_id"`
	ProductID    int64           `gorm:"not null;index" json:"product_id"`
	ProductTitle string          `gorm:"type:varchar(200);not null" json:"product_title"`
	ProductSKU   string          `gorm:"type:varchar(50)" json:"product_sku,omitempty"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Subtotal     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
}
