package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/database"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresTicketTypeRepository implements TicketTypeRepository using PostgreSQL
type PostgresTicketTypeRepository struct {
	db *database.PostgresDB
}

// NewPostgresTicketTypeRepository creates a new PostgresTicketTypeRepository
func NewPostgresTicketTypeRepository(db *database.PostgresDB) *PostgresTicketTypeRepository {
	return &PostgresTicketTypeRepository{db: db}
}

const ticketTypeColumns = `id, event_id, name, currency, price_cents, capacity, sold_count,
	sale_start, sale_end, sort_order, created_at, updated_at`

// GetByID retrieves a ticket type by ID
func (r *PostgresTicketTypeRepository) GetByID(ctx context.Context, id string) (*domain.TicketType, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket_type.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_type_id", id))

	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	tt, err := scanTicketType(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "ticket type not found")
			return nil, domain.ErrTicketTypeNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return tt, nil
}

// ListByEventID retrieves all ticket types for an event in display order
func (r *PostgresTicketTypeRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket_type.list_by_event_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = $1 ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.db.Pool().Query(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query ticket types: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*domain.TicketType
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, tt)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate ticket types: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(ticketTypes)))
	span.SetStatus(codes.Ok, "")
	return ticketTypes, nil
}

// IncrementSold adds qty to sold_count guarded by capacity. NULL capacity
// means unlimited; a rejected update returns false, which indicates the
// durable count and the reservation counter have diverged.
func (r *PostgresTicketTypeRepository) IncrementSold(ctx context.Context, id string, qty int) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket_type.increment_sold")
	defer span.End()

	span.SetAttributes(
		attribute.String("ticket_type_id", id),
		attribute.Int("quantity", qty),
	)

	query := `
		UPDATE ticket_types
		SET sold_count = sold_count + $2, updated_at = $3
		WHERE id = $1
		  AND (capacity IS NULL OR sold_count + $2 <= capacity)
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, qty, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to increment sold count: %w", err)
	}

	if tag.RowsAffected() == 0 {
		span.SetAttributes(attribute.Bool("rejected", true))
		span.SetStatus(codes.Ok, "guard rejected")
		return false, nil
	}

	span.SetStatus(codes.Ok, "")
	return true, nil
}

func scanTicketType(row pgx.Row) (*domain.TicketType, error) {
	var tt domain.TicketType
	var currency string

	err := row.Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&currency,
		&tt.Price.Amount,
		&tt.Capacity,
		&tt.SoldCount,
		&tt.SaleStart,
		&tt.SaleEnd,
		&tt.SortOrder,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tt.Price.Currency = currency
	return &tt, nil
}

// Ensure PostgresTicketTypeRepository implements TicketTypeRepository
var _ TicketTypeRepository = (*PostgresTicketTypeRepository)(nil)
