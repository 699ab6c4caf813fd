package repository

import (
	"context"
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

// ReserveParams holds parameters for an inventory reservation
type ReserveParams struct {
	TicketTypeID string
	Quantity     int
	HoldTTL      time.Duration
}

// ReserveResult holds the result of an inventory reservation
type ReserveResult struct {
	Success       bool
	ReservationID string
	Remaining     int64
	ErrorCode     string
	ErrorMessage  string
}

// ConfirmResult holds the result of a reservation confirmation
type ConfirmResult struct {
	Success          bool
	AlreadyConfirmed bool
	ErrorCode        string
	ErrorMessage     string
}

// ReleaseResult holds the result of a reservation release
type ReleaseResult struct {
	Success         bool
	AlreadyReleased bool
	Remaining       int64
	ErrorCode       string
	ErrorMessage    string
}

// Inventory error codes returned by the Lua scripts
const (
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeNotInitialized      = "NOT_INITIALIZED"
	ErrCodeSoldOut             = "SOLD_OUT"
	ErrCodeReservationNotFound = "RESERVATION_NOT_FOUND"
	ErrCodeReservationExpired  = "RESERVATION_EXPIRED"
	ErrCodeAlreadyConfirmed    = "ALREADY_CONFIRMED"
)

// InventoryRepository is the hot-path reservation store. Reserve, Confirm
// and Release are atomic with respect to concurrent callers on the same
// ticket type; Confirm and Release are idempotent.
type InventoryRepository interface {
	Reserve(ctx context.Context, params ReserveParams) (*ReserveResult, error)
	Confirm(ctx context.Context, reservationID string) (*ConfirmResult, error)
	Release(ctx context.Context, reservationID string) (*ReleaseResult, error)
	GetAvailability(ctx context.Context, ticketTypeID string) (int64, error)
	SetAvailability(ctx context.Context, ticketTypeID string, available int64) error
}

// OrderRepository is the durable order store
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	// SetPaymentIntentID records the gateway intent backing a pending order
	SetPaymentIntentID(ctx context.Context, orderID, paymentIntentID string) error
	// CompleteWithTickets flips a pending order to completed and inserts
	// its tickets in one transaction. Returns false when the order was
	// already settled (duplicate signal).
	CompleteWithTickets(ctx context.Context, orderID, paymentRef string, tickets []*domain.Ticket) (bool, error)
	// MarkFailed flips pending -> failed. Returns false when already settled.
	MarkFailed(ctx context.Context, orderID, reason string) (bool, error)
	// MarkCancelled flips pending -> cancelled. Returns false when already settled.
	MarkCancelled(ctx context.Context, orderID, reason string) (bool, error)
	// ApplyRefund accumulates a refund guarded so refund_amount never
	// exceeds total_amount. Returns false when the guard rejects the update.
	ApplyRefund(ctx context.Context, orderID string, amount int64) (bool, error)
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

// TicketRepository reads issued tickets
type TicketRepository interface {
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.Ticket, error)
	GetByConfirmationCode(ctx context.Context, code string) (*domain.Ticket, error)
}

// TicketTypeRepository is the durable inventory store
type TicketTypeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TicketType, error)
	ListByEventID(ctx context.Context, eventID string) ([]*domain.TicketType, error)
	// IncrementSold adds qty to sold_count guarded by capacity. Returns
	// false when the guard rejects the update.
	IncrementSold(ctx context.Context, id string, qty int) (bool, error)
}

// EventRepository reads event state for refund eligibility and display
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// RefundRepository is the append-only refund audit store
type RefundRepository interface {
	Create(ctx context.Context, record *domain.RefundRecord) error
	ListByOrderID(ctx context.Context, orderID string) ([]*domain.RefundRecord, error)
}
