package domain

import "time"

const (
	TopicOrderConfirmed     = "order.confirmed"
	TopicOrderStatusChanged = "order.status_changed"
)

type OrderConfirmedEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   int64     `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent carries the order snapshot taken right after the
// transition, so consumers do not need to read the order back.
type OrderStatusChangedEvent struct {
	EventID   string      `json:"event_id"`
	OrderID   int64       `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	Order     *Order      `json:"order"`
	Timestamp time.Time   `json:"timestamp"`
}
