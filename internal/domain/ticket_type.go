package domain

import (
	"strings"
	"time"
)

// TicketType represents a sellable ticket tier for an event.
// Capacity is nil for unlimited tiers; sold_count never exceeds capacity.
type TicketType struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Name      string     `json:"name"`
	Price     Money      `json:"price"`
	Capacity  *int       `json:"capacity,omitempty"`
	SoldCount int        `json:"sold_count"`
	SaleStart *time.Time `json:"sale_start,omitempty"`
	SaleEnd   *time.Time `json:"sale_end,omitempty"`
	SortOrder int        `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate validates ticket type fields
func (t *TicketType) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrInvalidTicketTypeID
	}
	if strings.TrimSpace(t.EventID) == "" {
		return ErrInvalidEventID
	}
	if t.Price.IsNegative() {
		return ErrRefundAmountInvalid
	}
	return nil
}

// IsUnlimited checks if the tier has no capacity cap
func (t *TicketType) IsUnlimited() bool {
	return t.Capacity == nil
}

// Available returns the remaining sellable quantity.
// Unlimited tiers report -1.
func (t *TicketType) Available() int {
	if t.Capacity == nil {
		return -1
	}
	remaining := *t.Capacity - t.SoldCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasCapacityFor checks whether qty more tickets can be sold
func (t *TicketType) HasCapacityFor(qty int) bool {
	if t.Capacity == nil {
		return true
	}
	return t.SoldCount+qty <= *t.Capacity
}

// CheckSaleWindow verifies the tier is on sale at the given instant.
// Nil bounds are open-ended.
func (t *TicketType) CheckSaleWindow(now time.Time) error {
	if t.SaleStart != nil && now.Before(*t.SaleStart) {
		return ErrSaleNotStarted
	}
	if t.SaleEnd != nil && now.After(*t.SaleEnd) {
		return ErrSaleEnded
	}
	return nil
}

// IsOnSale checks if the tier is currently on sale
func (t *TicketType) IsOnSale() bool {
	return t.CheckSaleWindow(time.Now()) == nil
}
