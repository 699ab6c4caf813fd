package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/gateway"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/logger"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/retry"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

// RefundService computes and executes refunds against completed orders.
// Refunds accumulate monotonically and never exceed the order total;
// inventory is never returned by a refund.
type RefundService interface {
	// QuoteRefund previews what a refund would return without executing it
	QuoteRefund(ctx context.Context, orderID, refundType string) (*dto.RefundQuoteResponse, error)

	// Refund executes a refund against a completed order
	Refund(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error)

	// ListRefunds returns the refund audit trail for an order
	ListRefunds(ctx context.Context, orderID string) ([]dto.RefundRecordDTO, error)
}

// refundService implements RefundService
type refundService struct {
	orderRepo      repository.OrderRepository
	eventRepo      repository.EventRepository
	refundRepo     repository.RefundRepository
	paymentGateway gateway.PaymentGateway
	publisher      EventPublisher
	fees           domain.FeeSchedule
	refundCutoff   time.Duration
	gatewayRetry   *retry.Config
}

// RefundServiceConfig contains configuration for the refund service
type RefundServiceConfig struct {
	Fees           domain.FeeSchedule
	RefundCutoff   time.Duration
	GatewayRetries int
}

// NewRefundService creates a new refund service
func NewRefundService(
	orderRepo repository.OrderRepository,
	eventRepo repository.EventRepository,
	refundRepo repository.RefundRepository,
	paymentGateway gateway.PaymentGateway,
	publisher EventPublisher,
	cfg *RefundServiceConfig,
) RefundService {
	cutoff := 24 * time.Hour
	fees := domain.FeeSchedule{}
	maxRetries := 3
	if cfg != nil {
		if cfg.RefundCutoff > 0 {
			cutoff = cfg.RefundCutoff
		}
		if cfg.GatewayRetries > 0 {
			maxRetries = cfg.GatewayRetries
		}
		fees = cfg.Fees
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &refundService{
		orderRepo:      orderRepo,
		eventRepo:      eventRepo,
		refundRepo:     refundRepo,
		paymentGateway: paymentGateway,
		publisher:      publisher,
		fees:           fees,
		refundCutoff:   cutoff,
		gatewayRetry: &retry.Config{
			MaxRetries:      maxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}
}

// QuoteRefund previews a refund
func (s *refundService) QuoteRefund(ctx context.Context, orderID, refundType string) (*dto.RefundQuoteResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refund.quote")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("type", refundType),
	)

	order, event, requested, err := s.gate(ctx, orderID, refundType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	comp := domain.ComputeRefund(order, event.Cancelled, requested, s.fees)

	span.SetStatus(codes.Ok, "")
	return &dto.RefundQuoteResponse{
		OrderID:              orderID,
		Type:                 comp.Type.String(),
		Eligible:             dto.MoneyFromDomain(comp.Eligible),
		AlreadyFullyRefunded: comp.AlreadyFullyRefunded,
		DisclosedFixedFee:    dto.MoneyFromDomain(comp.DisclosedFixedFee),
		DisclosedPercentFee:  dto.MoneyFromDomain(comp.DisclosedPercentFee),
	}, nil
}

// Refund executes a refund against a completed order. A zero-eligible
// computation short-circuits before the gateway is contacted.
func (s *refundService) Refund(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refund.execute")
	defer span.End()

	refundType := ""
	reason := ""
	if req != nil {
		refundType = req.Type
		reason = req.Reason
	}

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("type", refundType),
	)

	order, event, requested, err := s.gate(ctx, orderID, refundType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	comp := domain.ComputeRefund(order, event.Cancelled, requested, s.fees)

	if !comp.Eligible.IsPositive() {
		// Nothing to send; the gateway is never contacted
		span.SetAttributes(attribute.Bool("nothing_to_refund", true))
		span.SetStatus(codes.Ok, "nothing to refund")
		return &dto.RefundResponse{
			OrderID:         orderID,
			Type:            comp.Type.String(),
			Amount:          dto.MoneyFromDomain(comp.Eligible),
			RefundAmount:    dto.MoneyFromDomain(order.RefundAmount),
			NetAmount:       dto.MoneyFromDomain(order.NetAmount()),
			NothingToRefund: true,
		}, nil
	}

	// Send the refund, retrying transient gateway failures
	var gatewayResp *gateway.RefundResponse
	result := retry.Do(ctx, s.gatewayRetry, func(ctx context.Context) error {
		resp, err := s.paymentGateway.Refund(ctx, &gateway.RefundRequest{
			PaymentRef: order.PaymentRef,
			Amount:     comp.Eligible.Amount,
			Currency:   strings.ToLower(comp.Eligible.Currency),
			Reason:     reason,
			Metadata:   map[string]string{"order_id": orderID, "type": comp.Type.String()},
		})
		if err != nil {
			if domain.IsTransientGatewayError(err) {
				return err
			}
			return retry.Permanent(err)
		}
		gatewayResp = resp
		return nil
	})
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		return nil, result.Err
	}

	// Apply against the order; the guard keeps the accumulation monotonic
	applied, err := s.orderRepo.ApplyRefund(ctx, orderID, comp.Eligible.Amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !applied {
		// Money left the gateway but the guard rejected the accumulation;
		// a concurrent refund got there first. Needs manual reconciliation.
		logger.Get().Error("refund applied at gateway but rejected by order guard",
			zap.String("order_id", orderID),
			zap.Int64("amount_cents", comp.Eligible.Amount),
			zap.String("gateway_ref", gatewayResp.RefundID),
		)
		metrics.RecordError(ctx, "refund_guard_rejected", "apply_refund")
		span.SetStatus(codes.Error, "refund guard rejected")
		return nil, domain.ErrRefundExceedsTotal
	}

	record := &domain.RefundRecord{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		Type:       comp.Type,
		Amount:     comp.Eligible,
		Reason:     reason,
		GatewayRef: gatewayResp.RefundID,
		CreatedAt:  time.Now(),
	}
	if err := s.refundRepo.Create(ctx, record); err != nil {
		// The order already carries the accumulated amount; the audit row
		// is best-effort
		logger.Get().Error("failed to record refund audit row",
			zap.String("order_id", orderID),
			zap.String("refund_id", record.ID),
			zap.Error(err),
		)
	}

	if err := order.ApplyRefund(comp.Eligible); err != nil {
		// In-memory mirror of the durable accumulation; log and continue
		logger.Get().Warn("failed to mirror refund on order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	_ = s.publisher.PublishRefundIssued(ctx, order, record)

	metrics.RecordRefund(ctx, comp.Type.String(), comp.Eligible.Amount)

	span.AddEvent("refund_issued", trace.WithAttributes(
		attribute.String("order_id", orderID),
		attribute.String("refund_id", record.ID),
		attribute.Int64("amount_cents", comp.Eligible.Amount),
		attribute.String("type", comp.Type.String()),
	))
	span.SetStatus(codes.Ok, "")

	return &dto.RefundResponse{
		RefundID:     record.ID,
		OrderID:      orderID,
		Type:         comp.Type.String(),
		Amount:       dto.MoneyFromDomain(comp.Eligible),
		RefundAmount: dto.MoneyFromDomain(order.RefundAmount),
		NetAmount:    dto.MoneyFromDomain(order.NetAmount()),
		GatewayRef:   gatewayResp.RefundID,
	}, nil
}

// ListRefunds returns the refund audit trail for an order
func (s *refundService) ListRefunds(ctx context.Context, orderID string) ([]dto.RefundRecordDTO, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.refund.list")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if orderID == "" {
		span.SetStatus(codes.Error, "invalid order_id")
		return nil, domain.ErrInvalidOrderID
	}

	records, err := s.refundRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]dto.RefundRecordDTO, len(records))
	for i, r := range records {
		out[i] = dto.RefundRecordFromDomain(r)
	}

	span.SetAttributes(attribute.Int("count", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// gate loads the order and event and applies the refundability window:
// refunds are allowed when the event is cancelled, or up to the cutoff
// before the event starts
func (s *refundService) gate(ctx context.Context, orderID, refundType string) (*domain.Order, *domain.Event, domain.RefundType, error) {
	if orderID == "" {
		return nil, nil, "", domain.ErrInvalidOrderID
	}

	requested := domain.RefundType(refundType)
	if !requested.IsValid() {
		return nil, nil, "", domain.ErrInvalidRefundType
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, "", err
	}
	if !order.IsCompleted() {
		return nil, nil, "", domain.ErrOrderNotCompleted
	}

	event, err := s.eventRepo.GetByID(ctx, order.EventID)
	if err != nil {
		return nil, nil, "", err
	}

	if event.RefundCutoffPassed(time.Now(), s.refundCutoff) {
		return nil, nil, "", domain.ErrRefundNotEligible
	}

	return order, event, requested, nil
}
