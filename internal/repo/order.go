package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/models"
)

type OrderRepo struct {
	DB *gorm.DB
}

// CreateWithCartClear persists the pending order and removes the cart in one
// transaction, so a crash between the two cannot leave a paid-for cart
// behind.
func (r *OrderRepo) CreateWithCartClear(ctx context.Context, order *models.Order, cartID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Cart{}, cartID).Error; err != nil {
			return err
		}
		return nil
	})
}

// RecentPendingByUser finds a pending order newer than since. Used as the
// double-submit guard before a new checkout session is created.
func (r *OrderRepo) RecentPendingByUser(ctx context.Context, userID uint, since time.Time) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status = ? AND created_at > ?", userID, models.OrderStatusPending, since).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) BySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaidBySession is a conditional write: only a pending order moves to
// paid, so redelivered webhooks are no-ops. Returns rows affected.
func (r *OrderRepo) MarkPaidBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("session_id = ? AND status = ?", sessionID, models.OrderStatusPending).
		Update("status", models.OrderStatusPaid)
	return res.RowsAffected, res.Error
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
