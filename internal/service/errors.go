package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrProductUnavailable = errors.New("product is unavailable")
	ErrInvalidCoupon      = errors.New("coupon is not valid")
)

// ErrorKind classifies a failed checkout.
type ErrorKind string

const (
	KindEmptyCart                ErrorKind = "empty_cart"
	KindOutOfStock               ErrorKind = "out_of_stock"
	KindInactiveProduct          ErrorKind = "inactive_product"
	KindInvalidAddress           ErrorKind = "invalid_address"
	KindConcurrentStockConflict  ErrorKind = "concurrent_stock_conflict"
	KindConcurrentCouponConflict ErrorKind = "concurrent_coupon_conflict"
	KindPersistenceFailure       ErrorKind = "persistence_failure"
)

// CheckoutError is returned for every failed checkout. Nothing the attempt
// wrote survives it.
type CheckoutError struct {
	Kind      ErrorKind
	ProductID int64
	Available int
	Err       error
}

// Targets for errors.Is; they match any CheckoutError of the same kind.
var (
	ErrEmptyCart                = &CheckoutError{Kind: KindEmptyCart}
	ErrOutOfStock               = &CheckoutError{Kind: KindOutOfStock}
	ErrInactiveProduct          = &CheckoutError{Kind: KindInactiveProduct}
	ErrInvalidAddress           = &CheckoutError{Kind: KindInvalidAddress}
	ErrConcurrentStockConflict  = &CheckoutError{Kind: KindConcurrentStockConflict}
	ErrConcurrentCouponConflict = &CheckoutError{Kind: KindConcurrentCouponConflict}
	ErrPersistenceFailure       = &CheckoutError{Kind: KindPersistenceFailure}
)

func (e *CheckoutError) Error() string {
	switch e.Kind {
	case KindEmptyCart:
		return "cart is empty"
	case KindOutOfStock:
		return fmt.Sprintf("product %d is out of stock: %d available", e.ProductID, e.Available)
	case KindInactiveProduct:
		return fmt.Sprintf("product %d is not available", e.ProductID)
	case KindInvalidAddress:
		return "shipping address has no valid postal code"
	case KindConcurrentStockConflict:
		return fmt.Sprintf("stock for product %d changed during checkout", e.ProductID)
	case KindConcurrentCouponConflict:
		return "coupon usage changed during checkout"
	case KindPersistenceFailure:
		if e.Err != nil {
			return "could not save order: " + e.Err.Error()
		}
		return "could not save order"
	}
	return string(e.Kind)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

func (e *CheckoutError) Is(target error) bool {
	t, ok := target.(*CheckoutError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether repeating the same checkout may succeed.
func (e *CheckoutError) Retryable() bool {
	switch e.Kind {
	case KindConcurrentStockConflict, KindConcurrentCouponConflict, KindPersistenceFailure:
		return true
	}
	return false
}

// AsCheckoutError unwraps err to a CheckoutError.
func AsCheckoutError(err error) (*CheckoutError, bool) {
	var ce *CheckoutError
	ok := errors.As(err, &ce)
	return ce, ok
}
