package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"not null"                 json:"name"`
	Description string          `gorm:"not null"                 json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"    json:"price"`
	Images      []string        `gorm:"serializer:json"          json:"images"`
	Category    string          `gorm:"index"                    json:"category"`
	Stock       uint            `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Cart is created lazily on the first add and removed once its items are
// snapshotted into an order. One cart per user.
type Cart struct {
	ID        uint       `gorm:"primaryKey"                  json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"        json:"user_id"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// CartItem holds one (cart, product) pair; repeated adds increment Quantity
// instead of inserting another row.
type CartItem struct {
	ID        uint `gorm:"primaryKey"                            json:"id"`
	CartID    uint `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"            json:"quantity"`
}

// Order keeps the processor session id as the only linkage used by the
// webhook. SessionID is unique so a replayed checkout cannot insert twice.
type Order struct {
	ID        uint            `gorm:"primaryKey"                    json:"id"`
	UserID    uint            `gorm:"index;not null"                json:"user_id"`
	SessionID string          `gorm:"size:128;uniqueIndex;not null" json:"session_id"`
	Status    string          `gorm:"size:32;index;not null"        json:"status"`
	Total     decimal.Decimal `gorm:"type:numeric;not null"         json:"total"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE"   json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem snapshots price at order time; later product price changes never
// touch historical orders.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"            json:"id"`
	OrderID   uint            `gorm:"index;not null"        json:"order_id"`
	ProductID uint            `gorm:"not null"              json:"product_id"`
	Quantity  uint            `gorm:"check:quantity>0"      json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
}
