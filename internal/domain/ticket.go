package domain

import "time"

// Ticket is the issued artifact for one order line, created only when the
// order completes. UnitPrice is the checkout-time snapshot and stays fixed
// even if the ticket type is repriced later.
type Ticket struct {
	ID               string     `json:"id"`
	OrderID          string     `json:"order_id"`
	EventID          string     `json:"event_id"`
	TicketTypeID     string     `json:"ticket_type_id"`
	TicketTypeName   string     `json:"ticket_type_name"`
	Quantity         int        `json:"quantity"`
	UnitPrice        Money      `json:"unit_price"`
	TotalPrice       Money      `json:"total_price"`
	ConfirmationCode string     `json:"confirmation_code"`
	AttendeeName     string     `json:"attendee_name,omitempty"`
	AttendeeEmail    string     `json:"attendee_email,omitempty"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsCheckedIn checks if the ticket has been used for entry
func (t *Ticket) IsCheckedIn() bool {
	return t.CheckedInAt != nil
}

// CheckIn stamps the ticket with an entry time
func (t *Ticket) CheckIn() {
	now := time.Now()
	t.CheckedInAt = &now
}
