package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/logger"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

// PaymentService settles orders from payment gateway signals. Settlement
// is exactly-once: the first signal for a pending order wins, every later
// duplicate is a logged no-op.
type PaymentService interface {
	// HandlePaymentSucceeded settles a pending order: confirms its holds,
	// materializes tickets and flips the order to completed
	HandlePaymentSucceeded(ctx context.Context, orderID, paymentRef string) error

	// HandlePaymentFailed releases the order's holds and marks it failed
	HandlePaymentFailed(ctx context.Context, orderID, reason string) error

	// HandlePaymentCancelled releases the order's holds and marks it
	// cancelled
	HandlePaymentCancelled(ctx context.Context, orderID, reason string) error

	// FindOrderIDByIntent resolves an order from its payment intent when
	// the webhook carries no order metadata
	FindOrderIDByIntent(ctx context.Context, paymentIntentID string) (string, error)
}

// paymentService implements PaymentService
type paymentService struct {
	orderRepo      repository.OrderRepository
	ticketTypeRepo repository.TicketTypeRepository
	inventoryRepo  repository.InventoryRepository
	publisher      EventPublisher
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	orderRepo repository.OrderRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	inventoryRepo repository.InventoryRepository,
	publisher EventPublisher,
) PaymentService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &paymentService{
		orderRepo:      orderRepo,
		ticketTypeRepo: ticketTypeRepo,
		inventoryRepo:  inventoryRepo,
		publisher:      publisher,
	}
}

// HandlePaymentSucceeded settles a pending order
func (s *paymentService) HandlePaymentSucceeded(ctx context.Context, orderID, paymentRef string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.succeeded")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("payment_ref", paymentRef),
	)

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return domain.ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !order.IsPending() {
		// Duplicate or late signal; the first one already settled the order
		logger.Get().Info("ignoring settlement signal for non-pending order",
			zap.String("order_id", orderID),
			zap.String("status", order.Status.String()),
		)
		span.SetAttributes(attribute.Bool("duplicate", true))
		span.SetStatus(codes.Ok, "already settled")
		return nil
	}

	// Confirm the inventory holds. Confirm is idempotent; a lapsed hold is
	// logged but does not void a captured payment.
	for _, item := range order.Items {
		if item.ReservationID == "" {
			continue
		}
		result, err := s.inventoryRepo.Confirm(ctx, item.ReservationID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if !result.Success {
			logger.Get().Warn("reservation could not be confirmed for paid order",
				zap.String("order_id", orderID),
				zap.String("reservation_id", item.ReservationID),
				zap.String("error_code", result.ErrorCode),
			)
		}
	}

	// Materialize tickets from the snapshotted lines
	now := time.Now()
	tickets := make([]*domain.Ticket, len(order.Items))
	for i, item := range order.Items {
		tickets[i] = &domain.Ticket{
			ID:               uuid.New().String(),
			OrderID:          order.ID,
			EventID:          order.EventID,
			TicketTypeID:     item.TicketTypeID,
			TicketTypeName:   item.TicketTypeName,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalPrice:       item.LineTotal(),
			ConfirmationCode: generateConfirmationCode(),
			AttendeeName:     item.AttendeeName,
			AttendeeEmail:    item.AttendeeEmail,
			CreatedAt:        now,
		}
	}

	completed, err := s.orderRepo.CompleteWithTickets(ctx, orderID, paymentRef, tickets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !completed {
		// Lost the race against another signal for the same order
		logger.Get().Info("order settled concurrently, ignoring duplicate signal",
			zap.String("order_id", orderID),
		)
		span.SetAttributes(attribute.Bool("duplicate", true))
		span.SetStatus(codes.Ok, "already settled")
		return nil
	}

	// Move the durable sold counts. The capacity guard should never reject
	// here because the reservation counter already accounted for the sale.
	for _, item := range order.Items {
		ok, err := s.ticketTypeRepo.IncrementSold(ctx, item.TicketTypeID, item.Quantity)
		if err != nil {
			logger.Get().Error("failed to increment sold count",
				zap.String("order_id", orderID),
				zap.String("ticket_type_id", item.TicketTypeID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			logger.Get().Error("sold count increment rejected by capacity guard",
				zap.String("order_id", orderID),
				zap.String("ticket_type_id", item.TicketTypeID),
				zap.Int("quantity", item.Quantity),
			)
			metrics.RecordError(ctx, "capacity_guard_rejected", "increment_sold")
		}
	}

	order.Status = domain.OrderStatusCompleted
	order.PaymentRef = paymentRef
	order.CompletedAt = &now

	_ = s.publisher.PublishOrderCompleted(ctx, order, tickets)

	metrics.RecordOrderCompleted(ctx, order.EventID, now.Sub(order.CreatedAt).Seconds())

	span.AddEvent("order_completed", trace.WithAttributes(
		attribute.String("order_id", orderID),
		attribute.String("payment_ref", paymentRef),
		attribute.Int("ticket_count", len(tickets)),
	))
	span.SetStatus(codes.Ok, "")
	return nil
}

// HandlePaymentFailed releases the order's holds and marks it failed
func (s *paymentService) HandlePaymentFailed(ctx context.Context, orderID, reason string) error {
	return s.abort(ctx, "service.payment.failed", orderID, reason, domain.OrderStatusFailed)
}

// HandlePaymentCancelled releases the order's holds and marks it cancelled
func (s *paymentService) HandlePaymentCancelled(ctx context.Context, orderID, reason string) error {
	return s.abort(ctx, "service.payment.cancelled", orderID, reason, domain.OrderStatusCancelled)
}

func (s *paymentService) abort(ctx context.Context, spanName, orderID, reason string, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("reason", reason),
	)

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return domain.ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !order.IsPending() {
		logger.Get().Info("ignoring abort signal for non-pending order",
			zap.String("order_id", orderID),
			zap.String("status", order.Status.String()),
		)
		span.SetAttributes(attribute.Bool("duplicate", true))
		span.SetStatus(codes.Ok, "already settled")
		return nil
	}

	// Release holds back to inventory; a missing hold already lapsed
	for _, item := range order.Items {
		if item.ReservationID == "" {
			continue
		}
		if _, err := s.inventoryRepo.Release(ctx, item.ReservationID); err != nil {
			logger.Get().Error("failed to release reservation for aborted order",
				zap.String("order_id", orderID),
				zap.String("reservation_id", item.ReservationID),
				zap.Error(err),
			)
		}
	}
	metrics.RecordRelease(ctx, "payment_"+strings.ToLower(status.String()))

	var updated bool
	if status == domain.OrderStatusFailed {
		updated, err = s.orderRepo.MarkFailed(ctx, orderID, reason)
	} else {
		updated, err = s.orderRepo.MarkCancelled(ctx, orderID, reason)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !updated {
		span.SetAttributes(attribute.Bool("duplicate", true))
		span.SetStatus(codes.Ok, "already settled")
		return nil
	}

	order.Status = status
	order.StatusReason = reason

	if status == domain.OrderStatusFailed {
		_ = s.publisher.PublishOrderFailed(ctx, order)
		metrics.RecordOrderFailed(ctx, order.EventID, reason)
	} else {
		_ = s.publisher.PublishOrderCancelled(ctx, order)
		metrics.RecordOrderCancelled(ctx, order.EventID)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// FindOrderIDByIntent resolves an order from its payment intent
func (s *paymentService) FindOrderIDByIntent(ctx context.Context, paymentIntentID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.find_by_intent")
	defer span.End()

	span.SetAttributes(attribute.String("payment_intent_id", paymentIntentID))

	if paymentIntentID == "" {
		span.SetStatus(codes.Error, "invalid payment intent")
		return "", domain.ErrOrderNotFound
	}

	order, err := s.orderRepo.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	span.SetStatus(codes.Ok, "")
	return order.ID, nil
}

// generateConfirmationCode generates a random confirmation code
func generateConfirmationCode() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()[:8]
	}
	return hex.EncodeToString(bytes)
}
