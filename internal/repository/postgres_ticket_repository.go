package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/database"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresTicketRepository implements TicketRepository using PostgreSQL.
// Tickets are inserted by the order repository at completion time; this
// repository only reads them.
type PostgresTicketRepository struct {
	db *database.PostgresDB
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(db *database.PostgresDB) *PostgresTicketRepository {
	return &PostgresTicketRepository{db: db}
}

const ticketColumns = `id, order_id, event_id, ticket_type_id, ticket_type_name, quantity,
	currency, unit_price_cents, total_price_cents, confirmation_code,
	attendee_name, attendee_email, checked_in_at, created_at`

// GetByOrderID retrieves all tickets issued for an order
func (r *PostgresTicketRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_order_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE order_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Pool().Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(tickets)))
	span.SetStatus(codes.Ok, "")
	return tickets, nil
}

// GetByConfirmationCode retrieves a ticket by its unique confirmation code
func (r *PostgresTicketRepository) GetByConfirmationCode(ctx context.Context, code string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_confirmation_code")
	defer span.End()

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE confirmation_code = $1`

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "ticket not found")
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	span.SetAttributes(attribute.String("ticket_id", ticket.ID))
	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var currency string
	var attendeeName, attendeeEmail *string

	err := row.Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.EventID,
		&ticket.TicketTypeID,
		&ticket.TicketTypeName,
		&ticket.Quantity,
		&currency,
		&ticket.UnitPrice.Amount,
		&ticket.TotalPrice.Amount,
		&ticket.ConfirmationCode,
		&attendeeName,
		&attendeeEmail,
		&ticket.CheckedInAt,
		&ticket.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.UnitPrice.Currency = currency
	ticket.TotalPrice.Currency = currency
	if attendeeName != nil {
		ticket.AttendeeName = *attendeeName
	}
	if attendeeEmail != nil {
		ticket.AttendeeEmail = *attendeeEmail
	}

	return &ticket, nil
}

// Ensure PostgresTicketRepository implements TicketRepository
var _ TicketRepository = (*PostgresTicketRepository)(nil)
