package service

import (
	"context"
	"strings"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/Lixing-Zhang/storefront/internal/repository"
)

// OrderService reads committed orders.
type OrderService struct {
	repo repository.OrderRepository
}

// NewOrderService creates a new order service
func NewOrderService(repo repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// GetOrder returns an order and its item snapshots by order number.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, repository.ErrOrderNotFound
	}
	return s.repo.FindByNumber(ctx, orderNumber)
}
