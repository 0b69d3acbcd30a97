package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/pricing"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

// DefaultPreviewPostalCode prices the cart view when the shopper has not
// supplied a destination yet.
const DefaultPreviewPostalCode = "01310-100"

// CartView is the resolved cart with a price preview.
type CartView struct {
	SessionID string            `json:"session_id"`
	Items     []models.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Pricing   pricing.Breakdown `json:"pricing"`
}

// CouponPreview reports what a coupon would do for the current cart.
type CouponPreview struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Reason   coupon.Reason   `json:"reason,omitempty"`
	Message  string          `json:"message"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
}

// CartService applies the storefront's add/update policy on top of the
// plain cart operations.
type CartService struct {
	catalog    cart.Catalog
	coupons    repository.CouponRepository
	calculator *pricing.Calculator
	now        func() time.Time
}

func NewCartService(catalog cart.Catalog, coupons repository.CouponRepository, calculator *pricing.Calculator) *CartService {
	return &CartService{
		catalog:    catalog,
		coupons:    coupons,
		calculator: calculator,
		now:        time.Now,
	}
}

// AddItem adds qty units of productID, treating qty < 1 as 1. Inactive or
// sold-out products are refused. If the resulting quantity exceeds stock
// it is clamped and a warning is returned.
func (s *CartService) AddItem(ctx context.Context, c *cart.Cart, productID int64, qty int) (string, error) {
	if qty < 1 {
		qty = 1
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return "", err
	}
	if !product.IsActive || !product.InStock() {
		return "", ErrProductUnavailable
	}

	want := c.Quantity(productID) + qty
	if want > product.Stock {
		c.Update(productID, product.Stock)
		return stockWarning(product), nil
	}
	if err := c.Add(productID, qty); err != nil {
		return "", err
	}
	return "", nil
}

// UpdateItem sets the quantity of productID, clamped to stock. A
// quantity of zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, c *cart.Cart, productID int64, qty int) (string, error) {
	if qty <= 0 {
		c.Remove(productID)
		return "", nil
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return "", err
	}
	if qty > product.Stock {
		c.Update(productID, product.Stock)
		return stockWarning(product), nil
	}
	c.Update(productID, qty)
	return "", nil
}

func stockWarning(p *models.Product) string {
	return fmt.Sprintf("Only %d units of %s available", p.Stock, p.Title)
}

// View resolves c and prices it for postalCode, or for the default
// preview code when postalCode is empty. No coupon is applied.
func (s *CartService) View(ctx context.Context, c *cart.Cart, postalCode string) (*CartView, error) {
	lines, err := c.Resolve(ctx, s.catalog)
	if err != nil {
		return nil, err
	}
	if postalCode == "" {
		postalCode = DefaultPreviewPostalCode
	}

	count := 0
	for _, line := range lines {
		count += line.Quantity
	}

	return &CartView{
		SessionID: c.SessionID,
		Items:     lines,
		ItemCount: count,
		Pricing:   s.calculator.Compute(lines, models.Address{PostalCode: postalCode}, nil, s.now()),
	}, nil
}

// PreviewCoupon validates code against the cart subtotal. It never
// redeems. Unknown codes return repository.ErrCouponNotFound.
func (s *CartService) PreviewCoupon(ctx context.Context, c *cart.Cart, code string) (*CouponPreview, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidCoupon
	}

	cp, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	subtotal, err := c.Subtotal(ctx, s.catalog)
	if err != nil {
		return nil, err
	}

	result := coupon.Validate(cp, subtotal, s.now())
	preview := &CouponPreview{
		Code:     cp.Code,
		Valid:    result.Valid,
		Reason:   result.Reason,
		Message:  result.Message,
		Subtotal: subtotal,
		Discount: decimal.Zero,
	}
	if !result.Valid {
		return preview, nil
	}

	discount, err := coupon.Apply(cp, subtotal)
	if err != nil {
		return nil, err
	}
	preview.Discount = discount
	preview.Message = fmt.Sprintf("Coupon applied: %s off", discount.StringFixed(2))
	return preview, nil
}
