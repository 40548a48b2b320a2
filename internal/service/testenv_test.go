package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/payment"
	"github.com/dkotelnikov/storefront/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func newCartService(db *gorm.DB) *CartService {
	return &CartService{
		Carts:    &repo.CartRepo{DB: db},
		Products: &repo.ProductRepo{DB: db},
	}
}

func newCheckoutService(db *gorm.DB, provider payment.Provider) *CheckoutService {
	return &CheckoutService{
		Carts:    &repo.CartRepo{DB: db},
		Products: &repo.ProductRepo{DB: db},
		Orders:   &repo.OrderRepo{DB: db},
		Provider: provider,
	}
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "test", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, name, price string) *models.Product {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       p,
		Images:      []string{"https://img.example/" + name + ".png"},
		Category:    "test",
		Stock:       100,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

type fakeProvider struct {
	calls int
	err   error
	items [][]payment.LineItem
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, _ uint, items []payment.LineItem) (*payment.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.items = append(f.items, items)
	id := fmt.Sprintf("cs_test_%d_%s", f.calls, uuid.NewString()[:8])
	return &payment.Session{ID: id, URL: "https://checkout.example/pay/" + id}, nil
}

type fakeVerifier struct {
	event *payment.Event
	err   error
}

func (f *fakeVerifier) VerifyEvent(_ []byte, _ string) (*payment.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}
