package repository

import (
	"context"
	"errors"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateCoupon = errors.New("coupon code already exists")

	ErrDuplicateOrderNumber = errors.New("order number already exists")

	// ErrStockConflict is returned when a conditional stock decrement
	// matched no row: the product went inactive or stock fell below the
	// requested quantity after it was read, or the row was locked past the
	// lock timeout.
	ErrStockConflict = errors.New("stock changed concurrently")

	// ErrCouponConflict is the coupon usage counterpart of ErrStockConflict.
	ErrCouponConflict = errors.New("coupon usage changed concurrently")
)

// ProductRepository is the read side of the catalog.
type ProductRepository interface {
	// GetAll returns active products ordered by id.
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

// CouponRepository reads and creates coupons. Codes match case-insensitively.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
}

// OrderRepository reads committed orders.
type OrderRepository interface {
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
}

// CheckoutStore runs the write half of a checkout as one unit of work.
// If fn returns an error nothing it wrote is kept.
type CheckoutStore interface {
	WithinTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}

// CheckoutTx is the set of writes a checkout performs. Each write checks
// its precondition at write time.
type CheckoutTx interface {
	// CreateOrder inserts order and its items, assigning ids.
	CreateOrder(ctx context.Context, order *models.Order) error
	// DecrementStock subtracts qty from an active product's stock, or
	// returns ErrStockConflict if that would make it negative.
	DecrementStock(ctx context.Context, productID int64, qty int) error
	// RedeemCoupon increments used_count, or returns ErrCouponConflict if
	// the coupon is inactive or its usage limit is already reached.
	RedeemCoupon(ctx context.Context, couponID int64) error
}
