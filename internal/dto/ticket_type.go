package dto

import (
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

// TicketTypeResponse represents a ticket tier in API responses.
// Available is -1 for unlimited tiers.
type TicketTypeResponse struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	Name      string     `json:"name"`
	Price     MoneyDTO   `json:"price"`
	Capacity  *int       `json:"capacity,omitempty"`
	SoldCount int        `json:"sold_count"`
	Available int        `json:"available"`
	OnSale    bool       `json:"on_sale"`
	SaleStart *time.Time `json:"sale_start,omitempty"`
	SaleEnd   *time.Time `json:"sale_end,omitempty"`
	SortOrder int        `json:"sort_order"`
}

// TicketTypeFromDomain converts a domain TicketType to its wire form
func TicketTypeFromDomain(t *domain.TicketType) *TicketTypeResponse {
	return &TicketTypeResponse{
		ID:        t.ID,
		EventID:   t.EventID,
		Name:      t.Name,
		Price:     MoneyFromDomain(t.Price),
		Capacity:  t.Capacity,
		SoldCount: t.SoldCount,
		Available: t.Available(),
		OnSale:    t.IsOnSale(),
		SaleStart: t.SaleStart,
		SaleEnd:   t.SaleEnd,
		SortOrder: t.SortOrder,
	}
}

// EventSummaryResponse represents an event with its ticket tiers
type EventSummaryResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Venue       string                `json:"venue,omitempty"`
	StartTime   time.Time             `json:"start_time"`
	EndTime     time.Time             `json:"end_time"`
	Cancelled   bool                  `json:"cancelled"`
	Currency    string                `json:"currency"`
	TicketTypes []*TicketTypeResponse `json:"ticket_types"`
}

// EventSummaryFromDomain converts an event and its tiers to wire form
func EventSummaryFromDomain(e *domain.Event, ticketTypes []*domain.TicketType) *EventSummaryResponse {
	resp := &EventSummaryResponse{
		ID:        e.ID,
		Name:      e.Name,
		Venue:     e.Venue,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Cancelled: e.Cancelled,
		Currency:  e.Currency,
	}
	for _, tt := range ticketTypes {
		resp.TicketTypes = append(resp.TicketTypes, TicketTypeFromDomain(tt))
	}
	return resp
}
