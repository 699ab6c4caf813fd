package domain

import "time"

// OrderEventType represents the type of an order lifecycle event
type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order.created"
	OrderEventCompleted OrderEventType = "order.completed"
	OrderEventFailed    OrderEventType = "order.failed"
	OrderEventCancelled OrderEventType = "order.cancelled"
	OrderEventExpired   OrderEventType = "order.expired"
	OrderEventRefunded  OrderEventType = "order.refunded"
)

// OrderEvent is the envelope published to the event stream for downstream
// consumers (notifications, calendar sync, analytics). Delivery is
// at-least-once; consumers must tolerate duplicates.
type OrderEvent struct {
	EventID   string         `json:"event_id"`
	Type      OrderEventType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Order     *Order         `json:"order"`
	Refund    *RefundRecord  `json:"refund,omitempty"`
	Tickets   []*Ticket      `json:"tickets,omitempty"`
}

// NewOrderEvent creates an event envelope for an order
func NewOrderEvent(eventType OrderEventType, order *Order, eventID string) *OrderEvent {
	return &OrderEvent{
		EventID:   eventID,
		Type:      eventType,
		Timestamp: time.Now(),
		Order:     order,
	}
}

// Key returns the partition key; events for one order stay ordered
func (e *OrderEvent) Key() string {
	if e.Order != nil {
		return e.Order.ID
	}
	return e.EventID
}
