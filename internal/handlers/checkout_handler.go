package handlers

import (
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/middleware"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"go.uber.org/zap"
)

// CheckoutHandler turns the session cart into an order.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *zap.Logger
}

func NewCheckoutHandler(service *service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger,
	}
}

// Checkout handles POST /api/checkout
// - 201: order created, with coupon warnings if any
// - 400: empty cart, invalid address, inactive product
// - 409: out of stock, or a concurrent change (retryable)
// - 503: the order could not be saved (retryable)
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := middleware.CartFromContext(r.Context())
	if !ok {
		h.logger.Error("checkout handler mounted without session middleware")
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}

	var req service.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", h.logger)
		return
	}

	result, err := h.service.Checkout(r.Context(), c, req)
	if err != nil {
		h.writeCheckoutError(w, err, c.SessionID)
		return
	}

	WriteJSON(w, http.StatusCreated, result, h.logger)
}

func checkoutStatus(kind service.ErrorKind) int {
	switch kind {
	case service.KindEmptyCart, service.KindInvalidAddress, service.KindInactiveProduct:
		return http.StatusBadRequest
	case service.KindOutOfStock, service.KindConcurrentStockConflict, service.KindConcurrentCouponConflict:
		return http.StatusConflict
	case service.KindPersistenceFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error, sessionID string) {
	ce, ok := service.AsCheckoutError(err)
	if !ok {
		h.logger.Error("checkout failed", zap.String("session_id", sessionID), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}

	status := checkoutStatus(ce.Kind)
	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.String("kind", string(ce.Kind)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("checkout failed", fields...)
	} else {
		h.logger.Info("checkout rejected", fields...)
	}

	body := ErrorResponse{
		Error:     ce.Error(),
		Code:      string(ce.Kind),
		ProductID: ce.ProductID,
		Retryable: ce.Retryable(),
	}
	if ce.Kind == service.KindOutOfStock {
		available := ce.Available
		body.Available = &available
	}
	if ce.Kind == service.KindPersistenceFailure {
		// storage details stay in the log
		body.Error = "Could not save order, please retry"
	}
	WriteJSON(w, status, body, h.logger)
}
