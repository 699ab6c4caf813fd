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

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	db *database.PostgresDB
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(db *database.PostgresDB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		SELECT id, name, venue, start_time, end_time, cancelled, cancelled_at,
		       currency, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	var event domain.Event
	var venue *string

	err := r.db.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&venue,
		&event.StartTime,
		&event.EndTime,
		&event.Cancelled,
		&event.CancelledAt,
		&event.Currency,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "event not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if venue != nil {
		event.Venue = *venue
	}

	span.SetStatus(codes.Ok, "")
	return &event, nil
}

// Ensure PostgresEventRepository implements EventRepository
var _ EventRepository = (*PostgresEventRepository)(nil)
