package dto

import (
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

// CheckoutItemRequest is one cart line in a checkout request
type CheckoutItemRequest struct {
	TicketTypeID  string `json:"ticket_type_id" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1,max=10"`
	AttendeeName  string `json:"attendee_name,omitempty"`
	AttendeeEmail string `json:"attendee_email,omitempty"`
}

// CheckoutRequest represents a request to open a checkout session
type CheckoutRequest struct {
	EventID       string                `json:"event_id" binding:"required"`
	UserID        string                `json:"user_id,omitempty"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	CustomerName  string                `json:"customer_name,omitempty"`
	Items         []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CheckoutResponse represents a created checkout session
type CheckoutResponse struct {
	OrderID       string            `json:"order_id"`
	Status        string            `json:"status"`
	Subtotal      MoneyDTO          `json:"subtotal"`
	Fee           MoneyDTO          `json:"fee"`
	TotalAmount   MoneyDTO          `json:"total_amount"`
	ClientSecret  string            `json:"client_secret,omitempty"`
	PaymentIntent string            `json:"payment_intent_id,omitempty"`
	ExpiresAt     time.Time         `json:"expires_at"`
	Items         []OrderItemDTO    `json:"items"`
	Event         *CheckoutEventDTO `json:"event,omitempty"`
}

// CheckoutEventDTO is the event snapshot embedded in a checkout response
// for confirmation display
type CheckoutEventDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue,omitempty"`
	StartTime time.Time `json:"start_time"`
}

// CheckoutEventFromDomain converts a domain Event to its checkout snapshot
func CheckoutEventFromDomain(e *domain.Event) *CheckoutEventDTO {
	return &CheckoutEventDTO{
		ID:        e.ID,
		Name:      e.Name,
		Venue:     e.Venue,
		StartTime: e.StartTime,
	}
}

// MoneyDTO is the wire representation of an amount
type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

// OrderItemDTO represents one order line in API responses
type OrderItemDTO struct {
	TicketTypeID   string   `json:"ticket_type_id"`
	TicketTypeName string   `json:"ticket_type_name"`
	Quantity       int      `json:"quantity"`
	UnitPrice      MoneyDTO `json:"unit_price"`
	LineTotal      MoneyDTO `json:"line_total"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            string         `json:"id"`
	EventID       string         `json:"event_id"`
	UserID        string         `json:"user_id,omitempty"`
	CustomerEmail string         `json:"customer_email"`
	CustomerName  string         `json:"customer_name"`
	Status        string         `json:"status"`
	StatusReason  string         `json:"status_reason,omitempty"`
	Subtotal      MoneyDTO       `json:"subtotal"`
	Fee           MoneyDTO       `json:"fee"`
	TotalAmount   MoneyDTO       `json:"total_amount"`
	RefundAmount  MoneyDTO       `json:"refund_amount"`
	NetAmount     MoneyDTO       `json:"net_amount"`
	Items         []OrderItemDTO `json:"items"`
	Tickets       []TicketDTO    `json:"tickets,omitempty"`
	ExpiresAt     time.Time      `json:"expires_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	RefundedAt    *time.Time     `json:"refunded_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TicketDTO represents an issued ticket in API responses
type TicketDTO struct {
	ID               string     `json:"id"`
	TicketTypeID     string     `json:"ticket_type_id"`
	TicketTypeName   string     `json:"ticket_type_name"`
	Quantity         int        `json:"quantity"`
	UnitPrice        MoneyDTO   `json:"unit_price"`
	TotalPrice       MoneyDTO   `json:"total_price"`
	ConfirmationCode string     `json:"confirmation_code"`
	AttendeeName     string     `json:"attendee_name,omitempty"`
	AttendeeEmail    string     `json:"attendee_email,omitempty"`
	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
}

// MoneyFromDomain converts a domain Money to its wire form
func MoneyFromDomain(m domain.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.Display(),
	}
}

// ItemFromDomain converts a domain OrderItem to its wire form
func ItemFromDomain(i *domain.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		TicketTypeID:   i.TicketTypeID,
		TicketTypeName: i.TicketTypeName,
		Quantity:       i.Quantity,
		UnitPrice:      MoneyFromDomain(i.UnitPrice),
		LineTotal:      MoneyFromDomain(i.LineTotal()),
	}
}

// TicketFromDomain converts a domain Ticket to its wire form
func TicketFromDomain(t *domain.Ticket) TicketDTO {
	return TicketDTO{
		ID:               t.ID,
		TicketTypeID:     t.TicketTypeID,
		TicketTypeName:   t.TicketTypeName,
		Quantity:         t.Quantity,
		UnitPrice:        MoneyFromDomain(t.UnitPrice),
		TotalPrice:       MoneyFromDomain(t.TotalPrice),
		ConfirmationCode: t.ConfirmationCode,
		AttendeeName:     t.AttendeeName,
		AttendeeEmail:    t.AttendeeEmail,
		CheckedInAt:      t.CheckedInAt,
	}
}

// OrderFromDomain converts a domain Order to its wire form
func OrderFromDomain(o *domain.Order, tickets []*domain.Ticket) *OrderResponse {
	resp := &OrderResponse{
		ID:            o.ID,
		EventID:       o.EventID,
		UserID:        o.UserID,
		CustomerEmail: o.CustomerEmail,
		CustomerName:  o.CustomerName,
		Status:        o.Status.String(),
		StatusReason:  o.StatusReason,
		Subtotal:      MoneyFromDomain(o.Subtotal),
		Fee:           MoneyFromDomain(o.Fee),
		TotalAmount:   MoneyFromDomain(o.TotalAmount),
		RefundAmount:  MoneyFromDomain(o.RefundAmount),
		NetAmount:     MoneyFromDomain(o.NetAmount()),
		ExpiresAt:     o.ExpiresAt,
		CompletedAt:   o.CompletedAt,
		RefundedAt:    o.RefundedAt,
		CreatedAt:     o.CreatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, ItemFromDomain(item))
	}
	for _, ticket := range tickets {
		resp.Tickets = append(resp.Tickets, TicketFromDomain(ticket))
	}
	return resp
}
