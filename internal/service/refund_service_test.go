package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/gateway"
)

func completedOrder() *domain.Order {
	now := time.Now().Add(-time.Hour)
	return &domain.Order{
		ID:            "order-001",
		EventID:       "event-001",
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		Status:        domain.OrderStatusCompleted,
		Subtotal:      domain.NewMoney(5000, "USD"),
		Fee:           domain.NewMoney(175, "USD"),
		TotalAmount:   domain.NewMoney(5175, "USD"),
		RefundAmount:  domain.Zero("USD"),
		PaymentRef:    "pi_abc",
		CompletedAt:   &now,
		CreatedAt:     now,
	}
}

func newRefundDeps() (*MockOrderRepository, *MockEventRepository, *MockRefundRepository, *MockPaymentGateway) {
	orderRepo := &MockOrderRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return completedOrder(), nil
		},
	}
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return testEvent(), nil
		},
	}
	refundRepo := &MockRefundRepository{}
	paymentGateway := &MockPaymentGateway{}
	return orderRepo, eventRepo, refundRepo, paymentGateway
}

func newRefundService(
	orderRepo *MockOrderRepository,
	eventRepo *MockEventRepository,
	refundRepo *MockRefundRepository,
	paymentGateway *MockPaymentGateway,
) RefundService {
	return NewRefundService(
		orderRepo, eventRepo, refundRepo, paymentGateway, NewNoOpEventPublisher(),
		&RefundServiceConfig{
			Fees:           domain.FeeSchedule{PercentBps: 290, FixedFee: 30},
			RefundCutoff:   24 * time.Hour,
			GatewayRetries: 1,
		},
	)
}

func TestRefundService_QuoteRefund(t *testing.T) {
	t.Run("customer request withholds the fixed fee", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)

		quote, err := svc.QuoteRefund(context.Background(), "order-001", "customer_request")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 5175 remaining - 30 fixed fee
		if quote.Eligible.Amount != 5145 {
			t.Errorf("eligible = %d, want 5145", quote.Eligible.Amount)
		}
		if quote.DisclosedFixedFee.Amount != 30 {
			t.Errorf("disclosed fixed fee = %d, want 30", quote.DisclosedFixedFee.Amount)
		}
		// Disclosure only: round(5175 * 2.9%) = 150, never deducted
		if quote.DisclosedPercentFee.Amount != 150 {
			t.Errorf("disclosed percent fee = %d, want 150", quote.DisclosedPercentFee.Amount)
		}
	})

	t.Run("cancelled event forces a full cancellation of the remaining balance", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		orderRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Order, error) {
			order := completedOrder()
			order.RefundAmount = domain.NewMoney(1000, "USD")
			return order, nil
		}
		eventRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
			ev := testEvent()
			ev.Cancelled = true
			return ev, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		quote, err := svc.QuoteRefund(context.Background(), "order-001", "customer_request")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if quote.Type != "full_cancellation" {
			t.Errorf("type = %s, want full_cancellation", quote.Type)
		}
		if quote.Eligible.Amount != 4175 {
			t.Errorf("eligible = %d, want the 4175 remaining", quote.Eligible.Amount)
		}
	})

	t.Run("fully refunded order quotes zero", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		orderRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Order, error) {
			order := completedOrder()
			order.RefundAmount = order.TotalAmount
			return order, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		quote, err := svc.QuoteRefund(context.Background(), "order-001", "customer_request")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !quote.AlreadyFullyRefunded {
			t.Error("expected already_fully_refunded")
		}
		if quote.Eligible.Amount != 0 {
			t.Errorf("eligible = %d, want 0", quote.Eligible.Amount)
		}
	})
}

func TestRefundService_Refund(t *testing.T) {
	customerReq := &dto.RefundRequest{Type: "customer_request", Reason: "requested_by_customer"}

	t.Run("executes and accumulates on the order", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()

		var gatewayReq *gateway.RefundRequest
		paymentGateway.RefundFunc = func(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
			gatewayReq = req
			return &gateway.RefundResponse{RefundID: "re_1", Status: "succeeded"}, nil
		}

		var appliedAmount int64
		orderRepo.ApplyRefundFunc = func(ctx context.Context, orderID string, amount int64) (bool, error) {
			appliedAmount = amount
			return true, nil
		}

		var record *domain.RefundRecord
		refundRepo.CreateFunc = func(ctx context.Context, r *domain.RefundRecord) error {
			record = r
			return nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		resp, err := svc.Refund(context.Background(), "order-001", customerReq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gatewayReq == nil {
			t.Fatal("expected the gateway to be called")
		}
		if gatewayReq.PaymentRef != "pi_abc" {
			t.Errorf("payment ref = %s, want pi_abc", gatewayReq.PaymentRef)
		}
		if gatewayReq.Amount != 5145 {
			t.Errorf("gateway amount = %d, want 5145", gatewayReq.Amount)
		}
		if appliedAmount != 5145 {
			t.Errorf("applied amount = %d, want 5145", appliedAmount)
		}
		if record == nil {
			t.Fatal("expected a refund audit row")
		}
		if record.GatewayRef != "re_1" {
			t.Errorf("gateway ref = %s, want re_1", record.GatewayRef)
		}
		if resp.RefundAmount.Amount != 5145 {
			t.Errorf("accumulated refund = %d, want 5145", resp.RefundAmount.Amount)
		}
		if resp.NetAmount.Amount != 30 {
			t.Errorf("net = %d, want 30", resp.NetAmount.Amount)
		}
	})

	t.Run("fully refunded order never contacts the gateway", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		orderRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Order, error) {
			order := completedOrder()
			order.RefundAmount = order.TotalAmount
			return order, nil
		}

		gatewayCalled := false
		paymentGateway.RefundFunc = func(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
			gatewayCalled = true
			return &gateway.RefundResponse{RefundID: "re_1"}, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		resp, err := svc.Refund(context.Background(), "order-001", customerReq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.NothingToRefund {
			t.Error("expected nothing_to_refund")
		}
		if gatewayCalled {
			t.Error("gateway must not be contacted when nothing is eligible")
		}
	})

	t.Run("remaining balance below the fixed fee refunds nothing", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		orderRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Order, error) {
			order := completedOrder()
			order.RefundAmount = domain.NewMoney(5150, "USD")
			return order, nil
		}

		gatewayCalled := false
		paymentGateway.RefundFunc = func(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
			gatewayCalled = true
			return &gateway.RefundResponse{RefundID: "re_1"}, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		resp, err := svc.Refund(context.Background(), "order-001", customerReq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 25 remaining - 30 fixed fee clamps to zero
		if !resp.NothingToRefund {
			t.Error("expected nothing_to_refund")
		}
		if gatewayCalled {
			t.Error("gateway must not be contacted for a zero-eligible refund")
		}
	})

	t.Run("pending order cannot be refunded", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		orderRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Order, error) {
			order := completedOrder()
			order.Status = domain.OrderStatusPending
			return order, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		_, err := svc.Refund(context.Background(), "order-001", customerReq)
		if !errors.Is(err, domain.ErrOrderNotCompleted) {
			t.Fatalf("err = %v, want ErrOrderNotCompleted", err)
		}
	})

	t.Run("cutoff passed rejects the refund", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		eventRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
			ev := testEvent()
			ev.StartTime = time.Now().Add(2 * time.Hour)
			return ev, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		_, err := svc.Refund(context.Background(), "order-001", customerReq)
		if !errors.Is(err, domain.ErrRefundNotEligible) {
			t.Fatalf("err = %v, want ErrRefundNotEligible", err)
		}
	})

	t.Run("cancelled event bypasses the cutoff", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		eventRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
			ev := testEvent()
			ev.StartTime = time.Now().Add(2 * time.Hour)
			ev.Cancelled = true
			return ev, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		resp, err := svc.Refund(context.Background(), "order-001", customerReq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Type != "full_cancellation" {
			t.Errorf("type = %s, want full_cancellation", resp.Type)
		}
		if resp.Amount.Amount != 5175 {
			t.Errorf("amount = %d, want the full 5175", resp.Amount.Amount)
		}
	})

	t.Run("unknown refund type is rejected", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)

		_, err := svc.Refund(context.Background(), "order-001", &dto.RefundRequest{Type: "goodwill"})
		if !errors.Is(err, domain.ErrInvalidRefundType) {
			t.Fatalf("err = %v, want ErrInvalidRefundType", err)
		}
	})

	t.Run("transient gateway errors are retried", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()

		calls := 0
		paymentGateway.RefundFunc = func(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
			calls++
			if calls == 1 {
				return nil, domain.ErrGatewayUnavailable
			}
			return &gateway.RefundResponse{RefundID: "re_retry", Status: "succeeded"}, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		resp, err := svc.Refund(context.Background(), "order-001", customerReq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("gateway calls = %d, want 2", calls)
		}
		if resp.GatewayRef != "re_retry" {
			t.Errorf("gateway ref = %s, want re_retry", resp.GatewayRef)
		}
	})

	t.Run("guard rejection surfaces after the gateway call", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		orderRepo.ApplyRefundFunc = func(ctx context.Context, orderID string, amount int64) (bool, error) {
			return false, nil
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		_, err := svc.Refund(context.Background(), "order-001", customerReq)
		if !errors.Is(err, domain.ErrRefundExceedsTotal) {
			t.Fatalf("err = %v, want ErrRefundExceedsTotal", err)
		}
	})

	t.Run("audit row failure does not fail the refund", func(t *testing.T) {
		orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
		refundRepo.CreateFunc = func(ctx context.Context, record *domain.RefundRecord) error {
			return errors.New("pg: connection refused")
		}

		svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
		resp, err := svc.Refund(context.Background(), "order-001", customerReq)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.RefundID == "" {
			t.Error("expected a refund id even when the audit row failed")
		}
	})
}

func TestRefundService_ListRefunds(t *testing.T) {
	orderRepo, eventRepo, refundRepo, paymentGateway := newRefundDeps()
	refundRepo.ListByOrderIDFunc = func(ctx context.Context, orderID string) ([]*domain.RefundRecord, error) {
		return []*domain.RefundRecord{
			{ID: "refund-1", OrderID: orderID, Type: domain.RefundTypeCustomerRequest, Amount: domain.NewMoney(5145, "USD")},
		}, nil
	}

	svc := newRefundService(orderRepo, eventRepo, refundRepo, paymentGateway)
	records, err := svc.ListRefunds(context.Background(), "order-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Amount.Amount != 5145 {
		t.Errorf("amount = %d, want 5145", records[0].Amount.Amount)
	}
}
