package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/coupon"
	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/notify"
	"github.com/Lixing-Zhang/storefront/internal/pricing"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// orderNumberAttempts bounds retries after an order number collision.
const orderNumberAttempts = 3

// CheckoutRequest carries what the shopper submits with a checkout.
type CheckoutRequest struct {
	Address       models.Address `json:"address"`
	CouponCode    string         `json:"coupon_code,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// CheckoutResult is a committed order plus any non-fatal warnings, such
// as a coupon that was supplied but not applied.
type CheckoutResult struct {
	Order    *models.Order `json:"order"`
	Warnings []string      `json:"warnings"`
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	catalog    cart.Catalog
	coupons    repository.CouponRepository
	store      repository.CheckoutStore
	calculator *pricing.Calculator
	notifier   notify.Notifier
	logger     *zap.Logger

	now         func() time.Time
	orderNumber func(time.Time) string
}

// NewCheckoutService creates a checkout service. notifier may be nil.
func NewCheckoutService(
	catalog cart.Catalog,
	coupons repository.CouponRepository,
	store repository.CheckoutStore,
	calculator *pricing.Calculator,
	notifier notify.Notifier,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		catalog:     catalog,
		coupons:     coupons,
		store:       store,
		calculator:  calculator,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}
}

// NewOrderNumber returns "FM", the UTC timestamp to the second, and eight
// random upper-case hex digits.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "FM" + now.UTC().Format("20060102150405") + strings.ToUpper(suffix)
}

// Checkout validates c against the catalog, prices it, and commits the
// order, stock decrements and coupon redemption as one unit. The cart is
// cleared only after the commit. On error nothing is written and c is
// left untouched.
func (s *CheckoutService) Checkout(ctx context.Context, c *cart.Cart, req CheckoutRequest) (*CheckoutResult, error) {
	if c == nil || c.IsEmpty() {
		return nil, &CheckoutError{Kind: KindEmptyCart}
	}
	if req.Address.PostalDigits() == "" {
		return nil, &CheckoutError{Kind: KindInvalidAddress}
	}

	lines, err := s.checkStock(ctx, c)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var warnings []string

	applied, warning, err := s.resolveCoupon(ctx, req.CouponCode, pricing.Subtotal(lines), now)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		warnings = append(warnings, warning)
	}

	breakdown := s.calculator.Compute(lines, req.Address, applied, now)
	order := buildOrder(lines, breakdown, req, applied, now)

	if err := s.commit(ctx, order, applied); err != nil {
		return nil, err
	}

	c.Clear()

	s.logger.Info("order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("session_id", c.SessionID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	if s.notifier != nil {
		if err := s.notifier.OrderCreated(ctx, order); err != nil {
			s.logger.Warn("order notification failed",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
		}
	}

	if warnings == nil {
		warnings = []string{}
	}
	return &CheckoutResult{Order: order, Warnings: warnings}, nil
}

// checkStock resolves every stored line. Unlike the cart view, lines for
// missing or inactive products fail the checkout instead of being dropped.
func (s *CheckoutService) checkStock(ctx context.Context, c *cart.Cart) ([]models.LineItem, error) {
	lines := make([]models.LineItem, 0, c.Len())
	for _, id := range c.ProductIDs() {
		qty := c.Quantity(id)
		product, err := s.catalog.GetByID(ctx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &CheckoutError{Kind: KindInactiveProduct, ProductID: id}
		}
		if err != nil {
			return nil, &CheckoutError{Kind: KindPersistenceFailure, Err: fmt.Errorf("load product %d: %w", id, err)}
		}
		if !product.IsActive {
			return nil, &CheckoutError{Kind: KindInactiveProduct, ProductID: id}
		}
		if qty > product.Stock {
			return nil, &CheckoutError{Kind: KindOutOfStock, ProductID: id, Available: product.Stock}
		}
		lines = append(lines, models.LineItem{Product: *product, Quantity: qty})
	}
	return lines, nil
}

// resolveCoupon looks code up and validates it. A coupon that cannot be
// applied yields a warning, not an error.
func (s *CheckoutService) resolveCoupon(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*models.Coupon, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", nil
	}

	cp, err := s.coupons.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrCouponNotFound) {
		return nil, fmt.Sprintf("Coupon %s not found", strings.ToUpper(code)), nil
	}
	if err != nil {
		return nil, "", &CheckoutError{Kind: KindPersistenceFailure, Err: fmt.Errorf("load coupon: %w", err)}
	}

	if result := coupon.Validate(cp, subtotal, now); !result.Valid {
		return nil, result.Message, nil
	}
	return cp, "", nil
}

func buildOrder(lines []models.LineItem, b pricing.Breakdown, req CheckoutRequest, applied *models.Coupon, now time.Time) *models.Order {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID:    line.Product.ID,
			ProductTitle: line.Product.Title,
			ProductSKU:   line.Product.SKU,
			Price:        line.Product.Price,
			Quantity:     line.Quantity,
			Subtotal:     pricing.LineSubtotal(line),
		})
	}

	order := &models.Order{
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        b.Subtotal,
		Tax:             b.Tax,
		Shipping:        b.Shipping,
		Discount:        b.Discount,
		Total:           b.Total,
		ShippingAddress: req.Address,
		Notes:           req.Notes,
		CreatedAt:       now.UTC(),
		Items:           items,
	}
	if applied != nil {
		code := applied.Code
		order.CouponCode = &code
	}
	return order
}

// commit writes order and its side effects in one transaction, drawing a
// fresh order number if the previous one collided.
func (s *CheckoutService) commit(ctx context.Context, order *models.Order, applied *models.Coupon) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = s.orderNumber(order.CreatedAt)
		err = s.store.WithinTx(ctx, func(tx repository.CheckoutTx) error {
			return s.write(ctx, tx, order, applied)
		})
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		order.ID = 0
		for i := range order.Items {
			order.Items[i].ID = 0
			order.Items[i].OrderID = 0
		}
	}
	if err == nil {
		return nil
	}

	if _, ok := AsCheckoutError(err); ok {
		return err
	}
	s.logger.Error("checkout commit failed", zap.Error(err))
	return &CheckoutError{Kind: KindPersistenceFailure, Err: err}
}

func (s *CheckoutService) write(ctx context.Context, tx repository.CheckoutTx, order *models.Order, applied *models.Coupon) error {
	if err := tx.CreateOrder(ctx, order); err != nil {
		return err
	}

	// Items are in product id order, so concurrent checkouts lock rows in
	// the same order.
	for _, item := range order.Items {
		err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, repository.ErrStockConflict) {
			return &CheckoutError{Kind: KindConcurrentStockConflict, ProductID: item.ProductID, Err: err}
		}
		if err != nil {
			return err
		}
	}

	// A coupon that took nothing off is recorded on the order but not
	// counted as a use.
	if applied != nil && order.Discount.IsPositive() {
		err := tx.RedeemCoupon(ctx, applied.ID)
		if errors.Is(err, repository.ErrCouponConflict) {
			return &CheckoutError{Kind: KindConcurrentCouponConflict, Err: err}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
