package handlers

import (
	"errors"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"go.uber.org/zap"
)

// CouponHandler handles coupon administration
type CouponHandler struct {
	service *service.CouponService
	logger  *zap.Logger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(service *service.CouponService, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger,
	}
}

// CreateCoupon handles POST /api/admin/coupons
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", h.logger)
		return
	}

	c, err := h.service.CreateCoupon(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidCoupon):
		WriteError(w, http.StatusBadRequest, err.Error(), "invalid_coupon", h.logger)
		return
	case errors.Is(err, repository.ErrDuplicateCoupon):
		WriteError(w, http.StatusConflict, "Coupon code already exists", "duplicate_coupon", h.logger)
		return
	case err != nil:
		h.logger.Error("failed to create coupon", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}

	h.logger.Info("coupon created", zap.String("code", c.Code), zap.String("type", string(c.Type)))
	WriteJSON(w, http.StatusCreated, c, h.logger)
}
