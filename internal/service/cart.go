package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/events"
	"github.com/dkotelnikov/storefront/internal/logging"
	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/repo"
)

type CartService struct {
	Carts    *repo.CartRepo
	Products *repo.ProductRepo
	Producer events.Publisher
}

// CartLine joins a cart item with current product data for display. The
// price here is read-time only; checkout re-derives totals on its own.
type CartLine struct {
	Product  models.Product `json:"product"`
	Quantity uint           `json:"quantity"`
}

type CartView struct {
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	if _, err := s.Products.ByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product does not exist", ErrValidation)
		}
		return nil, err
	}

	cart, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.Carts.ItemByProduct(ctx, cart.ID, productID)
	switch {
	case err == nil:
		item.Quantity += uint(quantity)
		if err := s.Carts.SaveItem(ctx, item); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: uint(quantity)}
		if err := s.Carts.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})

	return s.Get(ctx, userID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) (*CartView, error) {
	cart, err := s.Carts.ByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no such cart item", ErrNotFound)
		}
		return nil, err
	}

	item, err := s.Carts.ItemByProduct(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no such cart item", ErrNotFound)
		}
		return nil, err
	}

	if quantity <= 0 {
		if err := s.Carts.DeleteItem(ctx, cart.ID, productID); err != nil {
			return nil, err
		}
	} else {
		item.Quantity = uint(quantity)
		if err := s.Carts.SaveItem(ctx, item); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "cart_item_updated",
		"userID":    userID,
		"productID": productID,
		"quantity":  quantity,
	})

	return s.Get(ctx, userID)
}

// RemoveItem is idempotent: removing something that is not there is fine.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*CartView, error) {
	cart, err := s.Carts.ByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartView{Items: []CartLine{}, Total: decimal.Zero}, nil
		}
		return nil, err
	}

	if err := s.Carts.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})

	return s.Get(ctx, userID)
}

// Get returns the cart joined with current product data. An absent cart is
// an empty cart, not an error.
func (s *CartService) Get(ctx context.Context, userID uint) (*CartView, error) {
	view := &CartView{Items: []CartLine{}, Total: decimal.Zero}

	cart, err := s.Carts.ByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		return nil, err
	}

	for _, item := range cart.Items {
		product, err := s.Products.ByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logging.FromContext(ctx).Warn("cart references missing product",
					"cartID", cart.ID, "productID", item.ProductID)
				continue
			}
			return nil, err
		}
		view.Items = append(view.Items, CartLine{Product: *product, Quantity: item.Quantity})
		line := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Total = view.Total.Add(line)
	}

	return view, nil
}

func (s *CartService) publish(ctx context.Context, userID uint, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicCartEvents, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
