package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/gateway"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/logger"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/retry"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
	"go.uber.org/zap"
)

// CheckoutService builds checkout sessions: it holds inventory, snapshots
// prices, computes fees and registers a payment intent
type CheckoutService interface {
	// Checkout opens a checkout session for a cart
	Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)

	// GetOrder retrieves an order with its issued tickets
	GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error)
}

// checkoutService implements CheckoutService
type checkoutService struct {
	orderRepo      repository.OrderRepository
	ticketRepo     repository.TicketRepository
	ticketTypeRepo repository.TicketTypeRepository
	eventRepo      repository.EventRepository
	inventoryRepo  repository.InventoryRepository
	paymentGateway gateway.PaymentGateway
	publisher      EventPublisher
	syncer         InventorySyncer
	fees           domain.FeeSchedule
	currency       string
	holdTTL        time.Duration
	gatewayRetry   *retry.Config
}

// CheckoutServiceConfig contains configuration for the checkout service
type CheckoutServiceConfig struct {
	Fees            domain.FeeSchedule
	DefaultCurrency string
	HoldTTL         time.Duration
	GatewayRetries  int
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	ticketRepo repository.TicketRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	eventRepo repository.EventRepository,
	inventoryRepo repository.InventoryRepository,
	paymentGateway gateway.PaymentGateway,
	publisher EventPublisher,
	syncer InventorySyncer,
	cfg *CheckoutServiceConfig,
) CheckoutService {
	holdTTL := 15 * time.Minute
	currency := "USD"
	fees := domain.FeeSchedule{}
	maxRetries := 3
	if cfg != nil {
		if cfg.HoldTTL > 0 {
			holdTTL = cfg.HoldTTL
		}
		if cfg.DefaultCurrency != "" {
			currency = cfg.DefaultCurrency
		}
		if cfg.GatewayRetries > 0 {
			maxRetries = cfg.GatewayRetries
		}
		fees = cfg.Fees
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &checkoutService{
		orderRepo:      orderRepo,
		ticketRepo:     ticketRepo,
		ticketTypeRepo: ticketTypeRepo,
		eventRepo:      eventRepo,
		inventoryRepo:  inventoryRepo,
		paymentGateway: paymentGateway,
		publisher:      publisher,
		syncer:         syncer,
		fees:           fees,
		currency:       currency,
		holdTTL:        holdTTL,
		gatewayRetry: &retry.Config{
			MaxRetries:      maxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}
}

// Checkout opens a checkout session. Every cart line is reserved against
// inventory; if any line cannot be held the ones already taken are
// released and the whole request fails.
func (s *checkoutService) Checkout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.create")
	defer span.End()

	start := time.Now()

	if err := s.validateRequest(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("event_id", req.EventID),
		attribute.Int("line_count", len(req.Items)),
	)

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if event.Cancelled {
		span.SetStatus(codes.Error, "event cancelled")
		return nil, domain.ErrEventCancelled
	}

	currency := event.Currency
	if currency == "" {
		currency = s.currency
	}

	// Load and gate every tier before holding anything
	now := time.Now()
	ticketTypes := make([]*domain.TicketType, len(req.Items))
	for i, line := range req.Items {
		tt, err := s.ticketTypeRepo.GetByID(ctx, line.TicketTypeID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if tt.EventID != req.EventID {
			span.SetStatus(codes.Error, "ticket type mismatch")
			return nil, domain.ErrTicketTypeMismatch
		}
		if err := tt.CheckSaleWindow(now); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		ticketTypes[i] = tt
	}

	// Reserve each line; compensate with releases on any failure
	reservationIDs := make([]string, 0, len(req.Items))
	releaseAll := func() {
		for _, id := range reservationIDs {
			if _, relErr := s.inventoryRepo.Release(ctx, id); relErr != nil {
				logger.Get().Error("failed to release reservation during checkout rollback",
					zap.String("reservation_id", id),
					zap.Error(relErr),
				)
			}
		}
		metrics.RecordRelease(ctx, "checkout_rollback")
	}

	for _, line := range req.Items {
		result, err := s.reserveLine(ctx, line.TicketTypeID, line.Quantity)
		if err != nil {
			releaseAll()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !result.Success {
			releaseAll()
			switch result.ErrorCode {
			case repository.ErrCodeSoldOut:
				metrics.RecordSoldOut(ctx, line.TicketTypeID)
				span.SetStatus(codes.Error, "sold out")
				return nil, domain.ErrSoldOut
			case repository.ErrCodeNotInitialized:
				// Counter still missing after the seed attempt: an
				// infrastructure failure, not a sell-out
				span.SetStatus(codes.Error, "inventory not initialized")
				return nil, domain.ErrInventoryUnavailable
			case repository.ErrCodeInvalidQuantity:
				span.SetStatus(codes.Error, "invalid quantity")
				return nil, domain.ErrInvalidQuantity
			default:
				span.SetStatus(codes.Error, result.ErrorCode)
				return nil, fmt.Errorf("reservation failed: %s", result.ErrorMessage)
			}
		}
		reservationIDs = append(reservationIDs, result.ReservationID)
		metrics.RecordReservation(ctx, line.TicketTypeID, line.Quantity)
	}

	// Snapshot prices and compute totals
	orderID := uuid.New().String()
	subtotal := domain.Zero(currency)
	items := make([]*domain.OrderItem, len(req.Items))
	for i, line := range req.Items {
		tt := ticketTypes[i]
		unitPrice := domain.Money{Amount: tt.Price.Amount, Currency: currency}
		items[i] = &domain.OrderItem{
			ID:             uuid.New().String(),
			OrderID:        orderID,
			TicketTypeID:   tt.ID,
			TicketTypeName: tt.Name,
			Quantity:       line.Quantity,
			UnitPrice:      unitPrice,
			ReservationID:  reservationIDs[i],
			AttendeeName:   line.AttendeeName,
			AttendeeEmail:  line.AttendeeEmail,
			CreatedAt:      now,
		}
		subtotal, _ = subtotal.Add(items[i].LineTotal())
	}

	fee := s.fees.Fee(subtotal)
	total, _ := subtotal.Add(fee)

	order := &domain.Order{
		ID:            orderID,
		EventID:       req.EventID,
		UserID:        req.UserID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Status:        domain.OrderStatusPending,
		Subtotal:      subtotal,
		Fee:           fee,
		TotalAmount:   total,
		RefundAmount:  domain.Zero(currency),
		Items:         items,
		ExpiresAt:     now.Add(s.holdTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		releaseAll()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Register the payment intent, retrying transient gateway failures.
	// Declines and invalid requests are final.
	var intent *gateway.IntentResponse
	result := retry.Do(ctx, s.gatewayRetry, func(ctx context.Context) error {
		resp, err := s.paymentGateway.CreateIntent(ctx, &gateway.IntentRequest{
			OrderID:       orderID,
			Amount:        total.Amount,
			Currency:      strings.ToLower(currency),
			Description:   fmt.Sprintf("Tickets for %s", event.Name),
			CustomerEmail: req.CustomerEmail,
			Metadata:      map[string]string{"event_id": req.EventID},
		})
		if err != nil {
			if domain.IsTransientGatewayError(err) {
				return err
			}
			return retry.Permanent(err)
		}
		intent = resp
		return nil
	})
	if result.Err != nil {
		releaseAll()
		if _, failErr := s.orderRepo.MarkFailed(ctx, orderID, "payment intent creation failed"); failErr != nil {
			logger.Get().Error("failed to mark order failed after gateway exhaustion",
				zap.String("order_id", orderID),
				zap.Error(failErr),
			)
		}
		metrics.RecordOrderFailed(ctx, req.EventID, "gateway_unavailable")
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		return nil, result.Err
	}

	// Persist the intent reference for webhook correlation
	order.PaymentIntentID = intent.IntentID
	if err := s.orderRepo.SetPaymentIntentID(ctx, orderID, intent.IntentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_ = s.publisher.PublishOrderCreated(ctx, order)

	metrics.RecordOrderCreated(ctx, req.EventID, order.TotalQuantity(), time.Since(start).Seconds())

	span.AddEvent("checkout_created", trace.WithAttributes(
		attribute.String("order_id", orderID),
		attribute.Int64("total_cents", total.Amount),
		attribute.Int("quantity", order.TotalQuantity()),
	))
	span.SetAttributes(attribute.String("order_id", orderID))
	span.SetStatus(codes.Ok, "")

	resp := &dto.CheckoutResponse{
		OrderID:       orderID,
		Status:        order.Status.String(),
		Subtotal:      dto.MoneyFromDomain(subtotal),
		Fee:           dto.MoneyFromDomain(fee),
		TotalAmount:   dto.MoneyFromDomain(total),
		ClientSecret:  intent.ClientSecret,
		PaymentIntent: intent.IntentID,
		ExpiresAt:     order.ExpiresAt,
		Event:         dto.CheckoutEventFromDomain(event),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, dto.ItemFromDomain(item))
	}
	return resp, nil
}

// GetOrder retrieves an order with its issued tickets
func (s *checkoutService) GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.get_order")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return nil, domain.ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var tickets []*domain.Ticket
	if order.IsCompleted() {
		tickets, err = s.ticketRepo.GetByOrderID(ctx, orderID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetStatus(codes.Ok, "")
	return dto.OrderFromDomain(order, tickets), nil
}

// reserveLine holds one cart line. An uninitialized availability counter
// is seeded from the durable tier state and the reservation retried once.
func (s *checkoutService) reserveLine(ctx context.Context, ticketTypeID string, quantity int) (*repository.ReserveResult, error) {
	params := repository.ReserveParams{
		TicketTypeID: ticketTypeID,
		Quantity:     quantity,
		HoldTTL:      s.holdTTL,
	}

	result, err := s.inventoryRepo.Reserve(ctx, params)
	if err != nil {
		return nil, err
	}

	if !result.Success && result.ErrorCode == repository.ErrCodeNotInitialized && s.syncer != nil {
		if syncErr := s.syncer.SyncTicketType(ctx, ticketTypeID); syncErr == nil {
			return s.inventoryRepo.Reserve(ctx, params)
		}
	}

	return result, nil
}

func (s *checkoutService) validateRequest(req *dto.CheckoutRequest) error {
	if req == nil || req.EventID == "" {
		return domain.ErrInvalidEventID
	}
	if len(req.Items) == 0 {
		return domain.ErrEmptyCart
	}
	for _, line := range req.Items {
		if line.TicketTypeID == "" {
			return domain.ErrInvalidTicketTypeID
		}
		if line.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	if strings.TrimSpace(req.UserID) == "" {
		if strings.TrimSpace(req.CustomerEmail) == "" || strings.TrimSpace(req.CustomerName) == "" {
			return domain.ErrMissingCustomer
		}
	}
	return nil
}
