package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/database"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresRefundRepository implements RefundRepository using PostgreSQL.
// Refund rows are append-only; corrections are issued as further refunds.
type PostgresRefundRepository struct {
	db *database.PostgresDB
}

// NewPostgresRefundRepository creates a new PostgresRefundRepository
func NewPostgresRefundRepository(db *database.PostgresDB) *PostgresRefundRepository {
	return &PostgresRefundRepository{db: db}
}

// Create appends a refund audit row
func (r *PostgresRefundRepository) Create(ctx context.Context, record *domain.RefundRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.refund.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("refund_id", record.ID),
		attribute.String("order_id", record.OrderID),
		attribute.String("type", record.Type.String()),
		attribute.Int64("amount", record.Amount.Amount),
	)

	query := `
		INSERT INTO refunds (id, order_id, type, currency, amount_cents, reason, gateway_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := r.db.Pool().Exec(ctx, query,
		record.ID,
		record.OrderID,
		record.Type.String(),
		record.Amount.Currency,
		record.Amount.Amount,
		nullString(record.Reason),
		nullString(record.GatewayRef),
		record.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert refund: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListByOrderID retrieves all refunds for an order, oldest first
func (r *PostgresRefundRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.RefundRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.refund.list_by_order_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	query := `
		SELECT id, order_id, type, currency, amount_cents, reason, gateway_ref, created_at
		FROM refunds
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query refunds: %w", err)
	}
	defer rows.Close()

	var records []*domain.RefundRecord
	for rows.Next() {
		var record domain.RefundRecord
		var refundType string
		var reason, gatewayRef *string

		err := rows.Scan(
			&record.ID,
			&record.OrderID,
			&refundType,
			&record.Amount.Currency,
			&record.Amount.Amount,
			&reason,
			&gatewayRef,
			&record.CreatedAt,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}

		record.Type = domain.RefundType(refundType)
		if reason != nil {
			record.Reason = *reason
		}
		if gatewayRef != nil {
			record.GatewayRef = *gatewayRef
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate refunds: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, nil
}

// Ensure PostgresRefundRepository implements RefundRepository
var _ RefundRepository = (*PostgresRefundRepository)(nil)
