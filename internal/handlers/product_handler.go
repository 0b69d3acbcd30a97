package handlers

import (
	"errors"
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/repository"
	"github.com/Lixing-Zhang/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /api/product
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, products, h.logger)
}

// GetProduct handles GET /api/product/{productId}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := productIDParam(r)
	if err != nil {
		h.logger.Warn("invalid product ID", zap.String("productId", chi.URLParam(r, "productId")))
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", "invalid_id", h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.logger.Info("product not found", zap.Int64("productId", productID))
			WriteError(w, http.StatusNotFound, "Product not found", "not_found", h.logger)
			return
		}

		h.logger.Error("failed to get product", zap.Int64("productId", productID), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Internal server error", "internal", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, product, h.logger)
}
