package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CreateCouponRequest is the admin payload for a new coupon.
type CreateCouponRequest struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Type        models.CouponType `json:"type"`
	Value       decimal.Decimal   `json:"value"`
	MinPurchase decimal.Decimal   `json:"min_purchase"`
	UsageLimit  *int              `json:"usage_limit"`
	IsActive    *bool             `json:"is_active"`
	ValidFrom   *time.Time        `json:"valid_from"`
	ValidTo     *time.Time        `json:"valid_to"`
}

// CouponService manages coupon definitions.
type CouponService struct {
	repo repository.CouponRepository
	now  func() time.Time
}

func NewCouponService(repo repository.CouponRepository) *CouponService {
	return &CouponService{
		repo: repo,
		now:  time.Now,
	}
}

// CreateCoupon validates req and stores it. Codes are stored upper-case.
// Validation failures wrap ErrInvalidCoupon; a taken code returns
// repository.ErrDuplicateCoupon.
func (s *CouponService) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}

	switch req.Type {
	case models.CouponTypePercent:
		if req.Value.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: percent value must not exceed 100", ErrInvalidCoupon)
		}
	case models.CouponTypeFixed:
	default:
		return nil, fmt.Errorf("%w: type must be percent or fixed", ErrInvalidCoupon)
	}

	if req.Value.IsNegative() || req.MinPurchase.IsNegative() {
		return nil, fmt.Errorf("%w: value and min_purchase must not be negative", ErrInvalidCoupon)
	}
	if req.UsageLimit != nil && *req.UsageLimit < 1 {
		return nil, fmt.Errorf("%w: usage_limit must be at least 1", ErrInvalidCoupon)
	}

	validFrom := s.now().UTC()
	if req.ValidFrom != nil {
		validFrom = req.ValidFrom.UTC()
	}
	if req.ValidTo != nil && !req.ValidTo.After(validFrom) {
		return nil, fmt.Errorf("%w: valid_to must be after valid_from", ErrInvalidCoupon)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	c := &models.Coupon{
		Code:        code,
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value.Round(2),
		MinPurchase: req.MinPurchase.Round(2),
		UsageLimit:  req.UsageLimit,
		IsActive:    active,
		ValidFrom:   validFrom,
		ValidTo:     req.ValidTo,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
