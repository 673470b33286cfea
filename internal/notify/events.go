package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

// EventSource delivers raw event payloads until ctx ends or it fails.
type EventSource interface {
	Consume(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error
}

type Handler interface {
	OnOrderConfirmed(ctx context.Context, orderID int64) (Outcome, error)
	OnStatusChanged(ctx context.Context, orderID int64, oldStatus, newStatus domain.OrderStatus, order *domain.Order) (Outcome, error)
}

// EventHandler adapts lifecycle events to the notifier. It never returns a
// handling error to the event source: notification failures must not stall
// or fail the order platform.
type EventHandler struct {
	notifier Handler
	logger   *slog.Logger
}

func NewEventHandler(notifier Handler, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// Run consumes both subscriptions until ctx is cancelled or one source fails.
func (h *EventHandler) Run(ctx context.Context, confirmed, statusChanged EventSource) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return confirmed.Consume(ctx, h.HandleOrderConfirmed)
	})
	g.Go(func() error {
		return statusChanged.Consume(ctx, h.HandleStatusChanged)
	})

	return g.Wait()
}

func (h *EventHandler) HandleOrderConfirmed(ctx context.Context, payload []byte) error {
	var event domain.OrderConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed order confirmed event", "error", err)
		return nil
	}

	h.logger.Info("processing order confirmed event", "event_id", event.EventID, "order_id", event.OrderID)

	outcome, err := h.notifier.OnOrderConfirmed(ctx, event.OrderID)
	h.report(event.EventID, event.OrderID, outcome, err)
	return nil
}

func (h *EventHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping malformed status changed event", "error", err)
		return nil
	}

	h.logger.Info("processing status changed event",
		"event_id", event.EventID,
		"order_id", event.OrderID,
		"old_status", event.OldStatus,
		"new_status", event.NewStatus,
	)

	outcome, err := h.notifier.OnStatusChanged(ctx, event.OrderID, event.OldStatus, event.NewStatus, event.Order)
	h.report(event.EventID, event.OrderID, outcome, err)
	return nil
}

func (h *EventHandler) report(eventID string, orderID int64, outcome Outcome, err error) {
	switch {
	case err != nil:
		// already logged by the notifier
	case outcome.Skipped != "":
		h.logger.Debug("notification skipped", "event_id", eventID, "order_id", orderID, "reason", outcome.Skipped)
	case outcome.Err() != nil:
		h.logger.Warn("notification partially failed", "event_id", eventID, "order_id", orderID, "error", outcome.Err())
	default:
		h.logger.Info("notification sent", "event_id", eventID, "order_id", orderID, "admins", len(outcome.Admins))
	}
}
