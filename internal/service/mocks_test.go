package service

import (
	"context"
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/gateway"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	CreateFunc               func(ctx context.Context, order *domain.Order) error
	GetByIDFunc              func(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentIntentIDFunc func(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	SetPaymentIntentIDFunc   func(ctx context.Context, orderID, paymentIntentID string) error
	CompleteWithTicketsFunc  func(ctx context.Context, orderID, paymentRef string, tickets []*domain.Ticket) (bool, error)
	MarkFailedFunc           func(ctx context.Context, orderID, reason string) (bool, error)
	MarkCancelledFunc        func(ctx context.Context, orderID, reason string) (bool, error)
	ApplyRefundFunc          func(ctx context.Context, orderID string, amount int64) (bool, error)
	GetExpiredPendingFunc    func(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *MockOrderRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	if m.GetByPaymentIntentIDFunc != nil {
		return m.GetByPaymentIntentIDFunc(ctx, paymentIntentID)
	}
	return nil, domain.ErrOrderNotFound
}

func (m *MockOrderRepository) SetPaymentIntentID(ctx context.Context, orderID, paymentIntentID string) error {
	if m.SetPaymentIntentIDFunc != nil {
		return m.SetPaymentIntentIDFunc(ctx, orderID, paymentIntentID)
	}
	return nil
}

func (m *MockOrderRepository) CompleteWithTickets(ctx context.Context, orderID, paymentRef string, tickets []*domain.Ticket) (bool, error) {
	if m.CompleteWithTicketsFunc != nil {
		return m.CompleteWithTicketsFunc(ctx, orderID, paymentRef, tickets)
	}
	return true, nil
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, orderID, reason string) (bool, error) {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, orderID, reason)
	}
	return true, nil
}

func (m *MockOrderRepository) MarkCancelled(ctx context.Context, orderID, reason string) (bool, error) {
	if m.MarkCancelledFunc != nil {
		return m.MarkCancelledFunc(ctx, orderID, reason)
	}
	return true, nil
}

func (m *MockOrderRepository) ApplyRefund(ctx context.Context, orderID string, amount int64) (bool, error) {
	if m.ApplyRefundFunc != nil {
		return m.ApplyRefundFunc(ctx, orderID, amount)
	}
	return true, nil
}

func (m *MockOrderRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	if m.GetExpiredPendingFunc != nil {
		return m.GetExpiredPendingFunc(ctx, now, limit)
	}
	return []*domain.Order{}, nil
}

// MockInventoryRepository is a mock implementation of InventoryRepository
type MockInventoryRepository struct {
	ReserveFunc         func(ctx context.Context, params repository.ReserveParams) (*repository.ReserveResult, error)
	ConfirmFunc         func(ctx context.Context, reservationID string) (*repository.ConfirmResult, error)
	ReleaseFunc         func(ctx context.Context, reservationID string) (*repository.ReleaseResult, error)
	GetAvailabilityFunc func(ctx context.Context, ticketTypeID string) (int64, error)
	SetAvailabilityFunc func(ctx context.Context, ticketTypeID string, available int64) error
}

func (m *MockInventoryRepository) Reserve(ctx context.Context, params repository.ReserveParams) (*repository.ReserveResult, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, params)
	}
	return &repository.ReserveResult{
		Success:       true,
		ReservationID: "test-reservation-id",
		Remaining:     100,
	}, nil
}

func (m *MockInventoryRepository) Confirm(ctx context.Context, reservationID string) (*repository.ConfirmResult, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, reservationID)
	}
	return &repository.ConfirmResult{Success: true}, nil
}

func (m *MockInventoryRepository) Release(ctx context.Context, reservationID string) (*repository.ReleaseResult, error) {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, reservationID)
	}
	return &repository.ReleaseResult{Success: true}, nil
}

func (m *MockInventoryRepository) GetAvailability(ctx context.Context, ticketTypeID string) (int64, error) {
	if m.GetAvailabilityFunc != nil {
		return m.GetAvailabilityFunc(ctx, ticketTypeID)
	}
	return 100, nil
}

func (m *MockInventoryRepository) SetAvailability(ctx context.Context, ticketTypeID string, available int64) error {
	if m.SetAvailabilityFunc != nil {
		return m.SetAvailabilityFunc(ctx, ticketTypeID, available)
	}
	return nil
}

// MockTicketTypeRepository is a mock implementation of TicketTypeRepository
type MockTicketTypeRepository struct {
	GetByIDFunc       func(ctx context.Context, id string) (*domain.TicketType, error)
	ListByEventIDFunc func(ctx context.Context, eventID string) ([]*domain.TicketType, error)
	IncrementSoldFunc func(ctx context.Context, id string, qty int) (bool, error)
}

func (m *MockTicketTypeRepository) GetByID(ctx context.Context, id string) (*domain.TicketType, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrTicketTypeNotFound
}

func (m *MockTicketTypeRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
	if m.ListByEventIDFunc != nil {
		return m.ListByEventIDFunc(ctx, eventID)
	}
	return []*domain.TicketType{}, nil
}

func (m *MockTicketTypeRepository) IncrementSold(ctx context.Context, id string, qty int) (bool, error) {
	if m.IncrementSoldFunc != nil {
		return m.IncrementSoldFunc(ctx, id, qty)
	}
	return true, nil
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*domain.Event, error)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrEventNotFound
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	GetByOrderIDFunc          func(ctx context.Context, orderID string) ([]*domain.Ticket, error)
	GetByConfirmationCodeFunc func(ctx context.Context, code string) (*domain.Ticket, error)
}

func (m *MockTicketRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Ticket, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return []*domain.Ticket{}, nil
}

func (m *MockTicketRepository) GetByConfirmationCode(ctx context.Context, code string) (*domain.Ticket, error) {
	if m.GetByConfirmationCodeFunc != nil {
		return m.GetByConfirmationCodeFunc(ctx, code)
	}
	return nil, domain.ErrTicketNotFound
}

// MockRefundRepository is a mock implementation of RefundRepository
type MockRefundRepository struct {
	CreateFunc        func(ctx context.Context, record *domain.RefundRecord) error
	ListByOrderIDFunc func(ctx context.Context, orderID string) ([]*domain.RefundRecord, error)
}

func (m *MockRefundRepository) Create(ctx context.Context, record *domain.RefundRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	return nil
}

func (m *MockRefundRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.RefundRecord, error) {
	if m.ListByOrderIDFunc != nil {
		return m.ListByOrderIDFunc(ctx, orderID)
	}
	return []*domain.RefundRecord{}, nil
}

// MockPaymentGateway is a mock implementation of gateway.PaymentGateway
type MockPaymentGateway struct {
	CreateIntentFunc func(ctx context.Context, req *gateway.IntentRequest) (*gateway.IntentResponse, error)
	RefundFunc       func(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResponse, error)
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, req *gateway.IntentRequest) (*gateway.IntentResponse, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, req)
	}
	return &gateway.IntentResponse{
		IntentID:     "pi_test_123",
		ClientSecret: "pi_test_123_secret",
		Status:       "requires_payment_method",
	}, nil
}

func (m *MockPaymentGateway) Refund(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResponse, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, req)
	}
	return &gateway.RefundResponse{
		RefundID: "re_test_123",
		Status:   "succeeded",
	}, nil
}

func (m *MockPaymentGateway) Name() string {
	return "mock"
}

// capacityOf is a test helper for capacity pointers
func capacityOf(n int) *int {
	return &n
}
