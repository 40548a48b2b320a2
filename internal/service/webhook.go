package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/events"
	"github.com/dkotelnikov/storefront/internal/logging"
	"github.com/dkotelnikov/storefront/internal/payment"
	"github.com/dkotelnikov/storefront/internal/repo"
)

type WebhookService struct {
	Orders   *repo.OrderRepo
	Verifier payment.EventVerifier
	Producer events.Publisher
}

// HandleEvent applies one processor notification. The signature is the trust
// boundary: an unverifiable payload is the only reason to reject. Everything
// verified is acknowledged, even when no order matches, so the processor
// does not redeliver forever.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	l := logging.FromContext(ctx).With("svc", "webhook")

	event, err := s.Verifier.VerifyEvent(payload, sigHeader)
	if err != nil {
		l.Warn("webhook_rejected", "error", err)
		return err
	}

	if event.Type != payment.EventTypeCheckoutCompleted {
		l.Info("webhook_ignored", "eventType", event.Type)
		return nil
	}

	rows, err := s.Orders.MarkPaidBySession(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if rows == 0 {
		order, err := s.Orders.BySession(ctx, event.SessionID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Store and processor disagree; surfacing an error here would
			// only make the processor retry the same event.
			l.Warn("webhook_unmatched_session", "sessionID", event.SessionID)
			return nil
		case err != nil:
			return err
		default:
			l.Info("webhook_replay", "sessionID", event.SessionID, "status", order.Status)
			return nil
		}
	}

	s.publish(ctx, event.SessionID, map[string]any{
		"type":      "order_paid",
		"sessionID": event.SessionID,
	})
	l.Info("order_paid", "sessionID", event.SessionID)
	return nil
}

func (s *WebhookService) publish(ctx context.Context, key string, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicOrderEvents, fmt.Sprint(key), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
