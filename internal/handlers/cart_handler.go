package handlers

import (
	"errors"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/cart"
	"github.com/Lixing-Zhang/storefront/internal/middleware"
	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"go.uber.org/zap"
)

// CartHandler serves the session cart. It expects middleware.Session.
type CartHandler struct {
	service *service.CartService
	logger  *zap.Logger
}

func NewCartHandler(service *service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger,
	}
}

// CartResponse is the cart view plus any clamping warnings.
type CartResponse struct {
	Cart     *service.CartView `json:"cart"`
	Warnings []string          `json:"warnings"`
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandler) sessionCart(w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	c, ok := middleware.CartFromContext(r.Context())
	if !ok {
		h.logger.Error("cart handler mounted without session middleware")
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
	}
	return c, ok
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, c *cart.Cart, status int, warning string) {
	view, err := h.service.View(r.Context(), c, r.URL.Query().Get("postal_code"))
	if err != nil {
		h.logger.Error("failed to resolve cart", zap.String("session_id", c.SessionID), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}
	warnings := []string{}
	if warning != "" {
		warnings = append(warnings, warning)
	}
	WriteJSON(w, status, CartResponse{Cart: view, Warnings: warnings}, h.logger)
}

// GetCart handles GET /api/cart[?postal_code=]
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	h.respond(w, r, c, http.StatusOK, "")
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", h.logger)
		return
	}
	if req.ProductID < 1 {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", "invalid_id", h.logger)
		return
	}

	warning, err := h.service.AddItem(r.Context(), c, req.ProductID, req.Quantity)
	if err != nil {
		h.writeCartError(w, err, req.ProductID)
		return
	}
	h.respond(w, r, c, http.StatusOK, warning)
}

// UpdateItem handles PUT /api/cart/items/{productId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	productID, err := productIDParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", "invalid_id", h.logger)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", h.logger)
		return
	}

	warning, err := h.service.UpdateItem(r.Context(), c, productID, req.Quantity)
	if err != nil {
		h.writeCartError(w, err, productID)
		return
	}
	h.respond(w, r, c, http.StatusOK, warning)
}

// RemoveItem handles DELETE /api/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	productID, err := productIDParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", "invalid_id", h.logger)
		return
	}

	c.Remove(productID)
	h.respond(w, r, c, http.StatusOK, "")
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	c.Clear()
	h.respond(w, r, c, http.StatusOK, "")
}

// PreviewCoupon handles POST /api/cart/coupon. The coupon is checked
// against the current cart and never redeemed.
func (h *CartHandler) PreviewCoupon(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}

	var req couponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", h.logger)
		return
	}

	preview, err := h.service.PreviewCoupon(r.Context(), c, req.Code)
	switch {
	case errors.Is(err, service.ErrInvalidCoupon):
		WriteError(w, http.StatusBadRequest, "Coupon code is required", "invalid_coupon", h.logger)
		return
	case errors.Is(err, repository.ErrCouponNotFound):
		WriteError(w, http.StatusNotFound, "Coupon not found", "not_found", h.logger)
		return
	case err != nil:
		h.logger.Error("failed to preview coupon", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}

	status := http.StatusOK
	if !preview.Valid {
		status = http.StatusUnprocessableEntity
	}
	WriteJSON(w, status, preview, h.logger)
}

func (h *CartHandler) writeCartError(w http.ResponseWriter, err error, productID int64) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		WriteError(w, http.StatusNotFound, "Product not found", "not_found", h.logger)
	case errors.Is(err, service.ErrProductUnavailable):
		WriteError(w, http.StatusConflict, "Product is unavailable", "product_unavailable", h.logger)
	default:
		h.logger.Error("failed to update cart", zap.Int64("productId", productID), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
	}
}
