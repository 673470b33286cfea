// Package notify sends SMS notifications in response to order lifecycle
// events.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
	"github.com/joao-fontenele/orderflow-sms/internal/phone"
	"github.com/joao-fontenele/orderflow-sms/internal/settings"
	"github.com/joao-fontenele/orderflow-sms/internal/sms"
)

var meter = otel.Meter("notify")

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrMissingBillingEmail = errors.New("billing email not available")
	ErrMissingTemplate     = errors.New("no template defined for this status")
	ErrInvalidPhone        = errors.New("invalid phone number")
)

type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}

type FirstOrderChecker interface {
	IsFirstOrder(ctx context.Context, email string, orderID int64) (bool, error)
}

type SettingsProvider interface {
	Load(ctx context.Context) (settings.Settings, error)
}

type SentMarker interface {
	IsSent(ctx context.Context, orderID int64) (bool, error)
	MarkSent(ctx context.Context, orderID int64) error
}

type Dispatcher interface {
	Send(ctx context.Context, req sms.Request) error
}

type Renderer interface {
	Render(tmpl string, order *domain.Order) string
}

type SkipReason string

const (
	SkipAlreadySent       SkipReason = "already-sent"
	SkipReturningCustomer SkipReason = "returning-customer"
	SkipNoTemplate        SkipReason = "no-template"
	SkipStatusDisabled    SkipReason = "status-disabled"
)

// Delivery is one dispatch attempt. Err is nil when the gateway was reached.
type Delivery struct {
	Recipient string
	Err       error
}

type Outcome struct {
	Skipped  SkipReason
	Customer *Delivery
	Admins   []Delivery
}

// Err joins the errors of every dispatch attempt in the outcome.
func (o Outcome) Err() error {
	var errs []error
	if o.Customer != nil && o.Customer.Err != nil {
		errs = append(errs, o.Customer.Err)
	}
	for _, d := range o.Admins {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errors.Join(errs...)
}

type Notifier struct {
	orders     OrderStore
	firstOrder FirstOrderChecker
	settings   SettingsProvider
	marker     SentMarker
	dispatcher Dispatcher
	renderer   Renderer
	logger     *slog.Logger
	outcomes   metric.Int64Counter
}

type Deps struct {
	Orders     OrderStore
	FirstOrder FirstOrderChecker
	Settings   SettingsProvider
	Marker     SentMarker
	Dispatcher Dispatcher
	Renderer   Renderer
	Logger     *slog.Logger
}

func NewNotifier(deps Deps) (*Notifier, error) {
	outcomes, err := meter.Int64Counter("notify.outcomes",
		metric.WithDescription("Handled order events by event and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outcome counter: %w", err)
	}

	return &Notifier{
		orders:     deps.Orders,
		firstOrder: deps.FirstOrder,
		settings:   deps.Settings,
		marker:     deps.Marker,
		dispatcher: deps.Dispatcher,
		renderer:   deps.Renderer,
		logger:     deps.Logger,
		outcomes:   outcomes,
	}, nil
}

// OnOrderConfirmed sends the first-order SMS to the customer and, when
// enabled, the new-order SMS to every admin number.
//
// The sent marker is written after the customer dispatch whatever its
// result, so a transport failure is never retried for that order. The
// marker check and write are not atomic: two concurrent events for the same
// order can both send.
func (n *Notifier) OnOrderConfirmed(ctx context.Context, orderID int64) (Outcome, error) {
	outcome, err := n.onOrderConfirmed(ctx, orderID)
	n.record(ctx, "order_confirmed", outcome, err)
	return outcome, err
}

func (n *Notifier) onOrderConfirmed(ctx context.Context, orderID int64) (Outcome, error) {
	order, err := n.orders.GetOrder(ctx, orderID)
	if err != nil {
		return n.fail("first order", orderID, fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return n.fail("first order", orderID, ErrOrderNotFound)
	}

	sent, err := n.marker.IsSent(ctx, orderID)
	if err != nil {
		return n.fail("first order", orderID, fmt.Errorf("check sent marker: %w", err))
	}
	if sent {
		return Outcome{Skipped: SkipAlreadySent}, nil
	}

	if order.Billing.Email == "" {
		return n.fail("first order", orderID, ErrMissingBillingEmail)
	}

	first, err := n.firstOrder.IsFirstOrder(ctx, order.Billing.Email, orderID)
	if err != nil {
		return n.fail("first order", orderID, err)
	}
	if !first {
		return Outcome{Skipped: SkipReturningCustomer}, nil
	}

	cfg, err := n.settings.Load(ctx)
	if err != nil {
		return n.fail("first order", orderID, fmt.Errorf("load settings: %w", err))
	}

	tmpl, enabled := cfg.TemplateFor(order.Status)
	if !enabled {
		return Outcome{Skipped: SkipStatusDisabled}, nil
	}
	if tmpl == "" {
		return n.fail("first order", orderID, ErrMissingTemplate)
	}

	message := n.renderer.Render(tmpl, order)
	recipient := phone.Normalize(order.Billing.Phone)
	if recipient == "" {
		return n.fail("first order", orderID, ErrInvalidPhone)
	}

	outcome := Outcome{Customer: n.send(ctx, cfg, recipient, message)}

	if err := n.marker.MarkSent(ctx, orderID); err != nil {
		n.logger.Error("failed to set sent marker", "error", err, "order_id", orderID)
	}

	outcome.Admins = n.notifyAdmins(ctx, cfg, order)
	return outcome, nil
}

func (n *Notifier) notifyAdmins(ctx context.Context, cfg settings.Settings, order *domain.Order) []Delivery {
	if !cfg.AdminNotificationsEnabled {
		return nil
	}
	numbers := cfg.AdminRecipients()
	if len(numbers) == 0 {
		return nil
	}

	message := n.renderer.Render(cfg.AdminTemplate, order)

	deliveries := make([]Delivery, 0, len(numbers))
	for _, raw := range numbers {
		recipient := phone.Normalize(raw)
		if recipient == "" {
			n.logger.Warn("skipping admin number", "error", ErrInvalidPhone, "number", raw, "order_id", order.ID)
			continue
		}
		deliveries = append(deliveries, *n.send(ctx, cfg, recipient, message))
	}
	return deliveries
}

// OnStatusChanged sends the template for newStatus to the customer. It has
// no sent marker and fires on every transition.
func (n *Notifier) OnStatusChanged(ctx context.Context, orderID int64, oldStatus, newStatus domain.OrderStatus, order *domain.Order) (Outcome, error) {
	outcome, err := n.onStatusChanged(ctx, orderID, newStatus, order)
	n.record(ctx, "status_changed", outcome, err)
	return outcome, err
}

func (n *Notifier) onStatusChanged(ctx context.Context, orderID int64, newStatus domain.OrderStatus, order *domain.Order) (Outcome, error) {
	if order == nil {
		return n.fail("status change", orderID, ErrOrderNotFound)
	}

	cfg, err := n.settings.Load(ctx)
	if err != nil {
		return n.fail("status change", orderID, fmt.Errorf("load settings: %w", err))
	}

	tmpl, enabled := cfg.TemplateFor(newStatus)
	if !enabled {
		return Outcome{Skipped: SkipStatusDisabled}, nil
	}
	if tmpl == "" {
		return Outcome{Skipped: SkipNoTemplate}, nil
	}

	message := n.renderer.Render(tmpl, order)
	recipient := phone.Normalize(order.Billing.Phone)
	if recipient == "" {
		return n.fail("status change", orderID, ErrInvalidPhone)
	}

	return Outcome{Customer: n.send(ctx, cfg, recipient, message)}, nil
}

func (n *Notifier) send(ctx context.Context, cfg settings.Settings, recipient, message string) *Delivery {
	err := n.dispatcher.Send(ctx, sms.Request{
		Recipient: recipient,
		Message:   message,
		SenderID:  cfg.SenderID,
		Token:     cfg.APIToken,
	})
	return &Delivery{Recipient: recipient, Err: err}
}

func (n *Notifier) fail(flow string, orderID int64, err error) (Outcome, error) {
	n.logger.Error(flow+" sms aborted", "error", err, "order_id", orderID)
	return Outcome{}, err
}

func (n *Notifier) record(ctx context.Context, event string, outcome Outcome, err error) {
	result := "sent"
	switch {
	case err != nil:
		result = "error"
	case outcome.Skipped != "":
		result = string(outcome.Skipped)
	case outcome.Err() != nil:
		result = "dispatch_failed"
	}

	n.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("result", result),
	))
}
