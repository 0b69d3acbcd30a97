package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is only ever decremented by checkout.
type Product struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	Title     string          `gorm:"type:varchar(200);not null" json:"title"`
	SKU       string          `gorm:"type:varchar(50);index" json:"sku"`
	Category  string          `gorm:"type:varchar(100)" json:"category,omitempty"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock     int             `gorm:"not null;check:stock >= 0" json:"stock"`
	IsActive  bool            `gorm:"not null" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// LineItem is a cart line joined against the catalog.
type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
