package payment

import (
	"context"
	"errors"
)

// EventTypeCheckoutCompleted is the only event type that moves an order;
// everything else is acknowledged and ignored.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// ErrSignature means the webhook payload could not be authenticated. The
// event must be dropped without side effects.
var ErrSignature = errors.New("invalid webhook signature")

// LineItem is a cart row priced in minor units, ready for the processor.
type LineItem struct {
	Name       string
	Images     []string
	UnitAmount int64
	Quantity   int64
}

// Session is the opaque handle returned by the processor; ID is the only
// linkage the webhook will later use.
type Session struct {
	ID  string
	URL string
}

// Provider creates hosted checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, userID uint, items []LineItem) (*Session, error)
}

// Event is a verified webhook notification. SessionID is set only for
// checkout-completed events.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

// EventVerifier authenticates a raw webhook payload against the shared
// secret and parses it.
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (*Event, error)
}
