package service

import (
	"context"

	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/repo"
)

type OrderService struct {
	Orders *repo.OrderRepo
}

// ListByUser returns the caller's orders, newest first, items included.
func (s *OrderService) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders, err := s.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
