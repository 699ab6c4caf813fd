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

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *database.PostgresDB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *database.PostgresDB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

const orderColumns = `id, event_id, user_id, customer_email, customer_name, status, status_reason,
	currency, subtotal_cents, fee_cents, total_cents, refund_cents,
	payment_intent_id, payment_ref, expires_at, completed_at, refunded_at, created_at, updated_at`

// Create inserts a pending order and its line items in one transaction
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("event_id", order.EventID),
		attribute.Int("item_count", len(order.Items)),
	)

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (
			id, event_id, user_id, customer_email, customer_name, status, status_reason,
			currency, subtotal_cents, fee_cents, total_cents, refund_cents,
			payment_intent_id, payment_ref, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	_, err = tx.Exec(ctx, query,
		order.ID,
		order.EventID,
		nullString(order.UserID),
		order.CustomerEmail,
		order.CustomerName,
		order.Status.String(),
		nullString(order.StatusReason),
		order.TotalAmount.Currency,
		order.Subtotal.Amount,
		order.Fee.Amount,
		order.TotalAmount.Amount,
		order.RefundAmount.Amount,
		nullString(order.PaymentIntentID),
		nullString(order.PaymentRef),
		order.ExpiresAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (
			id, order_id, ticket_type_id, ticket_type_name, quantity,
			currency, unit_price_cents, reservation_id, attendee_name, attendee_email, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, item := range order.Items {
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			order.ID,
			item.TicketTypeID,
			item.TicketTypeName,
			item.Quantity,
			item.UnitPrice.Currency,
			item.UnitPrice.Amount,
			nullString(item.ReservationID),
			nullString(item.AttendeeName),
			nullString(item.AttendeeEmail),
			item.CreatedAt,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an order and its line items
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "order not found")
			return nil, domain.ErrOrderNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.getItems(ctx, order.ID, order.TotalAmount.Currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	order.Items = items

	span.SetStatus(codes.Ok, "")
	return order, nil
}

// GetByPaymentIntentID retrieves an order by its payment intent reference
func (r *PostgresOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_by_payment_intent")
	defer span.End()

	span.SetAttributes(attribute.String("payment_intent_id", paymentIntentID))

	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`

	order, err := r.scanOrder(r.db.QueryRow(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "order not found")
			return nil, domain.ErrOrderNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.getItems(ctx, order.ID, order.TotalAmount.Currency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	order.Items = items

	span.SetStatus(codes.Ok, "")
	return order, nil
}

// CompleteWithTickets flips a pending order to completed and inserts its
// tickets in the same transaction. A duplicate settlement signal finds no
// pending row to update and returns false without touching tickets.
func (r *PostgresOrderRepository) CompleteWithTickets(ctx context.Context, orderID, paymentRef string, tickets []*domain.Ticket) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.complete_with_tickets")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.Int("ticket_count", len(tickets)),
	)

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET status = 'completed', payment_ref = $2, completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	now := time.Now()
	tag, err := tx.Exec(ctx, query, orderID, paymentRef, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to complete order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		span.SetAttributes(attribute.Bool("already_settled", true))
		span.SetStatus(codes.Ok, "already settled")
		return false, nil
	}

	ticketQuery := `
		INSERT INTO tickets (
			id, order_id, event_id, ticket_type_id, ticket_type_name, quantity,
			currency, unit_price_cents, total_price_cents, confirmation_code,
			attendee_name, attendee_email, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	for _, ticket := range tickets {
		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = now
		}
		_, err = tx.Exec(ctx, ticketQuery,
			ticket.ID,
			ticket.OrderID,
			ticket.EventID,
			ticket.TicketTypeID,
			ticket.TicketTypeName,
			ticket.Quantity,
			ticket.UnitPrice.Currency,
			ticket.UnitPrice.Amount,
			ticket.TotalPrice.Amount,
			ticket.ConfirmationCode,
			nullString(ticket.AttendeeName),
			nullString(ticket.AttendeeEmail),
			ticket.CreatedAt,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return false, fmt.Errorf("failed to insert ticket: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return true, nil
}

// SetPaymentIntentID records the gateway intent backing a pending order
func (r *PostgresOrderRepository) SetPaymentIntentID(ctx context.Context, orderID, paymentIntentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.set_payment_intent")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("payment_intent_id", paymentIntentID),
	)

	query := `UPDATE orders SET payment_intent_id = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Pool().Exec(ctx, query, orderID, paymentIntentID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to set payment intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "order not found")
		return domain.ErrOrderNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkFailed flips a pending order to failed
func (r *PostgresOrderRepository) MarkFailed(ctx context.Context, orderID, reason string) (bool, error) {
	return r.settle(ctx, "repo.postgres.order.mark_failed", orderID, domain.OrderStatusFailed, reason)
}

// MarkCancelled flips a pending order to cancelled
func (r *PostgresOrderRepository) MarkCancelled(ctx context.Context, orderID, reason string) (bool, error) {
	return r.settle(ctx, "repo.postgres.order.mark_cancelled", orderID, domain.OrderStatusCancelled, reason)
}

func (r *PostgresOrderRepository) settle(ctx context.Context, spanName, orderID string, status domain.OrderStatus, reason string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("status", status.String()),
	)

	query := `
		UPDATE orders
		SET status = $2, status_reason = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.db.Pool().Exec(ctx, query, orderID, status.String(), nullString(reason), time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		span.SetAttributes(attribute.Bool("already_settled", true))
		span.SetStatus(codes.Ok, "already settled")
		return false, nil
	}

	span.SetStatus(codes.Ok, "")
	return true, nil
}

// ApplyRefund accumulates a refund against a completed order. The guard
// keeps refund_cents from ever exceeding total_cents; a rejected update
// returns false so the caller can re-read and classify.
func (r *PostgresOrderRepository) ApplyRefund(ctx context.Context, orderID string, amount int64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.apply_refund")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.Int64("amount", amount),
	)

	query := `
		UPDATE orders
		SET refund_cents = refund_cents + $2,
		    refunded_at = COALESCE(refunded_at, $3),
		    updated_at = $3
		WHERE id = $1
		  AND status = 'completed'
		  AND refund_cents + $2 <= total_cents
	`

	tag, err := r.db.Pool().Exec(ctx, query, orderID, amount, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to apply refund: %w", err)
	}

	if tag.RowsAffected() == 0 {
		span.SetAttributes(attribute.Bool("rejected", true))
		span.SetStatus(codes.Ok, "guard rejected")
		return false, nil
	}

	span.SetStatus(codes.Ok, "")
	return true, nil
}

// GetExpiredPending returns pending orders whose reservation hold lapsed,
// oldest first, for the expiry sweep
func (r *PostgresOrderRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_expired_pending")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`

	rows, err := r.db.Pool().Query(ctx, query, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query expired orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan expired order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate expired orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.getItems(ctx, order.ID, order.TotalAmount.Currency)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		order.Items = items
	}

	span.SetAttributes(attribute.Int("count", len(orders)))
	span.SetStatus(codes.Ok, "")
	return orders, nil
}

func (r *PostgresOrderRepository) getItems(ctx context.Context, orderID, currency string) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, ticket_type_id, ticket_type_name, quantity,
		       currency, unit_price_cents, reservation_id, attendee_name, attendee_email, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var itemCurrency string
		var reservationID, attendeeName, attendeeEmail *string

		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.TicketTypeID,
			&item.TicketTypeName,
			&item.Quantity,
			&itemCurrency,
			&item.UnitPrice.Amount,
			&reservationID,
			&attendeeName,
			&attendeeEmail,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		if itemCurrency == "" {
			itemCurrency = currency
		}
		item.UnitPrice.Currency = itemCurrency
		if reservationID != nil {
			item.ReservationID = *reservationID
		}
		if attendeeName != nil {
			item.AttendeeName = *attendeeName
		}
		if attendeeEmail != nil {
			item.AttendeeEmail = *attendeeEmail
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return items, nil
}

// scanOrder scans an order row in orderColumns order
func (r *PostgresOrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var status string
	var userID, statusReason, paymentIntentID, paymentRef *string
	var currency string

	err := row.Scan(
		&order.ID,
		&order.EventID,
		&userID,
		&order.CustomerEmail,
		&order.CustomerName,
		&status,
		&statusReason,
		&currency,
		&order.Subtotal.Amount,
		&order.Fee.Amount,
		&order.TotalAmount.Amount,
		&order.RefundAmount.Amount,
		&paymentIntentID,
		&paymentRef,
		&order.ExpiresAt,
		&order.CompletedAt,
		&order.RefundedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	order.Subtotal.Currency = currency
	order.Fee.Currency = currency
	order.TotalAmount.Currency = currency
	order.RefundAmount.Currency = currency
	if userID != nil {
		order.UserID = *userID
	}
	if statusReason != nil {
		order.StatusReason = *statusReason
	}
	if paymentIntentID != nil {
		order.PaymentIntentID = *paymentIntentID
	}
	if paymentRef != nil {
		order.PaymentRef = *paymentRef
	}

	return &order, nil
}

// nullString converts an empty string to nil for nullable columns
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresOrderRepository implements OrderRepository
var _ OrderRepository = (*PostgresOrderRepository)(nil)
