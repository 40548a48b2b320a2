package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotelnikov/storefront/internal/models"
)

func TestCheckout_EmptyCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	svc := newCheckoutService(db, provider)
	user := createUser(t, db, "co-empty@example.com")

	_, err := svc.Checkout(context.Background(), user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0, provider.calls)
}

func TestCheckout_SnapshotsServerPrices(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	svc := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "co-ok@example.com")
	a := createProduct(t, db, "co-a", "10.00")
	b := createProduct(t, db, "co-b", "5.00")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)
	_, err = cartSvc.AddItem(ctx, user.ID, b.ID, 1)
	require.NoError(t, err)

	res, err := svc.Checkout(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	require.NotZero(t, res.OrderID)

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, res.OrderID).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, res.SessionID, order.SessionID)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("25.00")), "total %s", order.Total)

	require.Len(t, order.Items, 2)
	byProduct := map[uint]models.OrderItem{}
	for _, it := range order.Items {
		byProduct[it.ProductID] = it
	}
	assert.Equal(t, uint(2), byProduct[a.ID].Quantity)
	assert.True(t, byProduct[a.ID].Price.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, uint(1), byProduct[b.ID].Quantity)
	assert.True(t, byProduct[b.ID].Price.Equal(decimal.RequireFromString("5.00")))

	// Line items went to the processor in minor units.
	require.Equal(t, 1, provider.calls)
	require.Len(t, provider.items[0], 2)
	amounts := map[int64]int64{}
	for _, li := range provider.items[0] {
		amounts[li.UnitAmount] = li.Quantity
	}
	assert.Equal(t, int64(2), amounts[1000])
	assert.Equal(t, int64(1), amounts[500])

	// Cart and its items are gone.
	var cartCount, itemCount int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&cartCount).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Count(&itemCount).Error)
	assert.Equal(t, int64(0), cartCount)
	assert.Equal(t, int64(0), itemCount)
}

func TestCheckout_ProviderErrorLeavesCartIntact(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{err: errors.New("processor unreachable")}
	svc := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "co-fail@example.com")
	product := createProduct(t, db, "co-fail-p", "12.50")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, product.ID, 3)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, user.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentProvider)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)

	// Safe to retry: the cart survived the failed attempt.
	view, err := cartSvc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, uint(3), view.Items[0].Quantity)
}

func TestCheckout_DoubleSubmitReusesPendingOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	svc := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "co-double@example.com")
	product := createProduct(t, db, "co-double-p", "30.00")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)

	first, err := svc.Checkout(ctx, user.ID)
	require.NoError(t, err)

	// A stale cart after the order was persisted must not double-charge.
	_, err = cartSvc.AddItem(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)

	second, err := svc.Checkout(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, provider.calls, "no second processor session")

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestCheckout_LaterPriceChangeDoesNotTouchOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	svc := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "co-price@example.com")
	product := createProduct(t, db, "co-price-p", "10.00")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)

	res, err := svc.Checkout(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price", decimal.RequireFromString("99.99")).Error)

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, res.OrderID).Error)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("10.00")),
		"snapshotted price changed to %s", order.Items[0].Price)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("10.00")))
}
