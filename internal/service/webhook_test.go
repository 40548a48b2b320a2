package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/payment"
	"github.com/dkotelnikov/storefront/internal/repo"
)

func newWebhookService(db *repo.OrderRepo, verifier payment.EventVerifier) *WebhookService {
	return &WebhookService{Orders: db, Verifier: verifier}
}

func TestWebhook_MarksOrderPaid_ReplayIsNoop(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	checkout := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "wh-paid@example.com")
	product := createProduct(t, db, "wh-paid-p", "20.00")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)
	res, err := checkout.Checkout(ctx, user.ID)
	require.NoError(t, err)

	verifier := &fakeVerifier{event: &payment.Event{
		ID:        "evt_1",
		Type:      payment.EventTypeCheckoutCompleted,
		SessionID: res.SessionID,
	}}
	svc := newWebhookService(&repo.OrderRepo{DB: db}, verifier)

	require.NoError(t, svc.HandleEvent(ctx, []byte("{}"), "sig"))

	var order models.Order
	require.NoError(t, db.First(&order, res.OrderID).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	// Processors redeliver; the replay must not error or double-apply.
	require.NoError(t, svc.HandleEvent(ctx, []byte("{}"), "sig"))

	var paidCount int64
	require.NoError(t, db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPaid).Count(&paidCount).Error)
	assert.Equal(t, int64(1), paidCount)
}

func TestWebhook_InvalidSignatureChangesNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	checkout := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "wh-sig@example.com")
	product := createProduct(t, db, "wh-sig-p", "20.00")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, product.ID, 1)
	require.NoError(t, err)
	res, err := checkout.Checkout(ctx, user.ID)
	require.NoError(t, err)

	verifier := &fakeVerifier{err: payment.ErrSignature}
	svc := newWebhookService(&repo.OrderRepo{DB: db}, verifier)

	err = svc.HandleEvent(ctx, []byte("{}"), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrSignature)

	var order models.Order
	require.NoError(t, db.First(&order, res.OrderID).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestWebhook_OtherEventTypesIgnored(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	verifier := &fakeVerifier{event: &payment.Event{ID: "evt_2", Type: "payment_intent.created"}}
	svc := newWebhookService(&repo.OrderRepo{DB: db}, verifier)

	require.NoError(t, svc.HandleEvent(context.Background(), []byte("{}"), "sig"))
}

func TestWebhook_UnknownSessionAcknowledged(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	verifier := &fakeVerifier{event: &payment.Event{
		ID:        "evt_3",
		Type:      payment.EventTypeCheckoutCompleted,
		SessionID: "cs_never_seen",
	}}
	svc := newWebhookService(&repo.OrderRepo{DB: db}, verifier)

	// Desync between store and processor: log it, do not feed the retry loop.
	require.NoError(t, svc.HandleEvent(context.Background(), []byte("{}"), "sig"))
}

// Full reconciliation pass: add A (10.00) x2 and B (5.00) x1, cart total
// 25.00, checkout snapshots the items, the completed webhook flips the order
// to paid and a replay leaves it paid.
func TestReconciliation_EndToEnd(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	provider := &fakeProvider{}
	checkout := newCheckoutService(db, provider)
	cartSvc := newCartService(db)
	user := createUser(t, db, "wh-e2e@example.com")
	a := createProduct(t, db, "e2e-a", "10.00")
	b := createProduct(t, db, "e2e-b", "5.00")

	ctx := context.Background()
	_, err := cartSvc.AddItem(ctx, user.ID, a.ID, 2)
	require.NoError(t, err)
	view, err := cartSvc.AddItem(ctx, user.ID, b.ID, 1)
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("25.00")), "total %s", view.Total)

	res, err := checkout.Checkout(ctx, user.ID)
	require.NoError(t, err)

	verifier := &fakeVerifier{event: &payment.Event{
		ID:        "evt_e2e",
		Type:      payment.EventTypeCheckoutCompleted,
		SessionID: res.SessionID,
	}}
	svc := newWebhookService(&repo.OrderRepo{DB: db}, verifier)
	require.NoError(t, svc.HandleEvent(ctx, []byte("{}"), "sig"))
	require.NoError(t, svc.HandleEvent(ctx, []byte("{}"), "sig"))

	var order models.Order
	require.NoError(t, db.Preload("Items").First(&order, res.OrderID).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Len(t, order.Items, 2)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}
