package handlers

import (
	"errors"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// GetOrder handles GET /api/orders/{orderNumber}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.orderService.GetOrder(r.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			WriteError(w, http.StatusNotFound, "Order not found", "not_found", h.log)
			return
		}
		h.log.Error("failed to get order", zap.String("order_number", orderNumber), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}
