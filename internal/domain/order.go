package domain

import (
	"strings"
	"time"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal checks if the status is terminal. Only pending orders can
// transition; completed, failed and cancelled are absorbing.
func (s OrderStatus) IsFinal() bool {
	return s != OrderStatusPending
}

// OrderItem is one cart line of an order. UnitPrice is the snapshot taken
// at checkout and never changes afterwards. ReservationID names the
// inventory hold backing the line while the order is pending.
type OrderItem struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	TicketTypeID   string    `json:"ticket_type_id"`
	TicketTypeName string    `json:"ticket_type_name"`
	Quantity       int       `json:"quantity"`
	UnitPrice      Money     `json:"unit_price"`
	ReservationID  string    `json:"reservation_id,omitempty"`
	AttendeeName   string    `json:"attendee_name,omitempty"`
	AttendeeEmail  string    `json:"attendee_email,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// LineTotal returns unit price times quantity
func (i *OrderItem) LineTotal() Money {
	return i.UnitPrice.MulQty(i.Quantity)
}

// Order represents a checkout session and its settlement state.
// TotalAmount = Subtotal + Fee; RefundAmount accumulates monotonically and
// never exceeds TotalAmount.
type Order struct {
	ID              string      `json:"id"`
	EventID         string      `json:"event_id"`
	UserID          string      `json:"user_id,omitempty"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerName    string      `json:"customer_name"`
	Status          OrderStatus `json:"status"`
	StatusReason    string      `json:"status_reason,omitempty"`
	Subtotal        Money       `json:"subtotal"`
	Fee             Money       `json:"fee"`
	TotalAmount     Money       `json:"total_amount"`
	RefundAmount    Money       `json:"refund_amount"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	PaymentRef      string      `json:"payment_ref,omitempty"`
	Items           []*OrderItem `json:"items,omitempty"`
	ExpiresAt       time.Time   `json:"expires_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	RefundedAt      *time.Time  `json:"refunded_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Validate validates order fields
func (o *Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return ErrInvalidOrderID
	}
	if strings.TrimSpace(o.EventID) == "" {
		return ErrInvalidEventID
	}
	if err := o.ValidateCustomer(); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if !o.Status.IsValid() {
		return ErrInvalidOrderStatus
	}
	return nil
}

// ValidateCustomer requires either an authenticated user id or a guest
// identity (email + name)
func (o *Order) ValidateCustomer() error {
	if strings.TrimSpace(o.UserID) != "" {
		return nil
	}
	if strings.TrimSpace(o.CustomerEmail) == "" || strings.TrimSpace(o.CustomerName) == "" {
		return ErrMissingCustomer
	}
	return nil
}

// IsPending checks if the order is still awaiting settlement
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsCompleted checks if the order settled successfully
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// IsExpiredAt checks if the reservation hold lapsed at a specific time
func (o *Order) IsExpiredAt(t time.Time) bool {
	return t.After(o.ExpiresAt)
}

// Complete transitions a pending order to completed
func (o *Order) Complete(paymentRef string) error {
	if o.Status != OrderStatusPending {
		return ErrOrderNotPending
	}
	now := time.Now()
	o.Status = OrderStatusCompleted
	o.PaymentRef = paymentRef
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// Fail transitions a pending order to failed with a reason
func (o *Order) Fail(reason string) error {
	if o.Status != OrderStatusPending {
		return ErrOrderNotPending
	}
	o.Status = OrderStatusFailed
	o.StatusReason = reason
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel transitions a pending order to cancelled, used when the hold
// expires without payment
func (o *Order) Cancel(reason string) error {
	if o.Status != OrderStatusPending {
		return ErrOrderNotPending
	}
	o.Status = OrderStatusCancelled
	o.StatusReason = reason
	o.UpdatedAt = time.Now()
	return nil
}

// RemainingBalance returns total minus everything refunded so far
func (o *Order) RemainingBalance() Money {
	return Money{Amount: o.TotalAmount.Amount - o.RefundAmount.Amount, Currency: o.TotalAmount.Currency}
}

// NetAmount is an alias surfaced on read paths
func (o *Order) NetAmount() Money {
	return o.RemainingBalance()
}

// IsFullyRefunded checks if the whole total has been returned
func (o *Order) IsFullyRefunded() bool {
	return o.RefundAmount.Amount >= o.TotalAmount.Amount
}

// ApplyRefund accumulates a refund against the order. Refunds only apply
// to completed orders and can never push refund_amount past total_amount.
func (o *Order) ApplyRefund(amount Money) error {
	if o.Status != OrderStatusCompleted {
		return ErrOrderNotCompleted
	}
	if !amount.SameCurrency(o.TotalAmount) {
		return ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return ErrRefundAmountInvalid
	}
	if o.RefundAmount.Amount+amount.Amount > o.TotalAmount.Amount {
		return ErrRefundExceedsTotal
	}
	now := time.Now()
	o.RefundAmount.Amount += amount.Amount
	o.RefundedAt = &now
	o.UpdatedAt = now
	return nil
}

// TotalQuantity returns the total ticket count across lines
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
