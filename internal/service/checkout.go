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
	"github.com/dkotelnikov/storefront/internal/payment"
	"github.com/dkotelnikov/storefront/internal/repo"
)

// DefaultPendingWindow bounds the double-submit guard: a pending order newer
// than this short-circuits checkout instead of creating a second session.
const DefaultPendingWindow = 10 * time.Minute

var centFactor = decimal.NewFromInt(100)

type CheckoutService struct {
	Carts    *repo.CartRepo
	Products *repo.ProductRepo
	Orders   *repo.OrderRepo
	Provider payment.Provider
	Producer events.Publisher

	// PendingWindow falls back to DefaultPendingWindow when zero.
	PendingWindow time.Duration
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	OrderID   uint   `json:"orderId"`
	URL       string `json:"url,omitempty"`
}

// Checkout converts the user's cart into a payment session plus a pending
// order, then clears the cart. Totals come from current product prices in
// the store; nothing client-supplied is trusted.
func (s *CheckoutService) Checkout(ctx context.Context, userID uint) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "userID", userID)

	window := s.PendingWindow
	if window == 0 {
		window = DefaultPendingWindow
	}

	// A cart that survived a crash after the order was persisted must not
	// trigger a second charge: hand back the session already in flight.
	if prev, err := s.Orders.RecentPendingByUser(ctx, userID, time.Now().Add(-window)); err == nil {
		l.Info("checkout_reuse_pending", "orderID", prev.ID, "sessionID", prev.SessionID)
		return &CheckoutResult{SessionID: prev.SessionID, OrderID: prev.ID}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart, err := s.Carts.ByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	lineItems := make([]payment.LineItem, 0, len(cart.Items))
	orderItems := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.Products.ByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d no longer available", ErrValidation, item.ProductID)
			}
			return nil, err
		}

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lineItems = append(lineItems, payment.LineItem{
			Name:       product.Name,
			Images:     product.Images,
			UnitAmount: product.Price.Mul(centFactor).Round(0).IntPart(),
			Quantity:   int64(item.Quantity),
		})
		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	// Provider failure leaves the cart untouched; the client may retry.
	session, err := s.Provider.CreateCheckoutSession(ctx, userID, lineItems)
	if err != nil {
		l.Error("checkout_session_error", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	order := &models.Order{
		UserID:    userID,
		SessionID: session.ID,
		Status:    models.OrderStatusPending,
		Total:     total,
		Items:     orderItems,
	}
	if err := s.Orders.CreateWithCartClear(ctx, order, cart.ID); err != nil {
		// The session exists at the processor but no order was stored; the
		// next attempt is caught by the session_id unique index or by the
		// pending-order guard once the insert went through.
		l.Error("checkout_persist_error", "sessionID", session.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "order_created",
		"userID":    userID,
		"orderID":   order.ID,
		"sessionID": order.SessionID,
		"total":     order.Total,
	})
	l.Info("checkout_success", "orderID", order.ID, "sessionID", order.SessionID)

	return &CheckoutResult{SessionID: session.ID, OrderID: order.ID, URL: session.URL}, nil
}

func (s *CheckoutService) publish(ctx context.Context, userID uint, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicOrderEvents, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
