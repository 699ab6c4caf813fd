package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

// MockGateway implements PaymentGateway for development and load testing
type MockGateway struct {
	config  *MockConfig
	intents sync.Map // map[intentID]*mockIntent
	mu      sync.RWMutex
}

type mockIntent struct {
	mu       sync.Mutex
	amount   int64
	currency string
	refunded int64
}

// MockConfig holds configuration for the mock gateway
type MockConfig struct {
	// SuccessRate is the probability of a successful call (0.0 to 1.0)
	SuccessRate float64

	// DelayMs is the simulated processing delay in milliseconds
	DelayMs int
}

// DefaultMockConfig returns default configuration
func DefaultMockConfig() *MockConfig {
	return &MockConfig{
		SuccessRate: 1.0,
		DelayMs:     0,
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockConfig) *MockGateway {
	if config == nil {
		config = DefaultMockConfig()
	}
	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}

	return &MockGateway{
		config: config,
	}
}

// CreateIntent registers a mock payment intent
func (g *MockGateway) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("intent request is required")
	}

	if err := g.simulate(ctx); err != nil {
		return nil, err
	}

	intentID := fmt.Sprintf("pi_mock_%s", uuid.New().String()[:8])
	g.intents.Store(intentID, &mockIntent{
		amount:   req.Amount,
		currency: req.Currency,
	})

	return &IntentResponse{
		IntentID:     intentID,
		ClientSecret: fmt.Sprintf("%s_secret", intentID),
		Status:       "requires_payment_method",
	}, nil
}

// Refund processes a mock refund, tracking the cumulative refunded amount
func (g *MockGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("refund request is required")
	}
	if req.PaymentRef == "" {
		return nil, fmt.Errorf("payment reference is required")
	}

	if err := g.simulate(ctx); err != nil {
		return nil, err
	}

	v, ok := g.intents.Load(req.PaymentRef)
	if !ok {
		return nil, fmt.Errorf("payment not found: %s", req.PaymentRef)
	}

	intent := v.(*mockIntent)
	intent.mu.Lock()
	defer intent.mu.Unlock()

	if intent.refunded+req.Amount > intent.amount {
		return nil, fmt.Errorf("refund exceeds captured amount for %s", req.PaymentRef)
	}
	intent.refunded += req.Amount

	return &RefundResponse{
		RefundID: fmt.Sprintf("re_mock_%s", uuid.New().String()[:8]),
		Status:   "succeeded",
	}, nil
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// simulate applies the configured delay and failure rate
func (g *MockGateway) simulate(ctx context.Context) error {
	if g.config.DelayMs > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		}
	}

	g.mu.RLock()
	rate := g.config.SuccessRate
	g.mu.RUnlock()

	if rand.Float64() >= rate {
		return fmt.Errorf("%w: simulated outage", domain.ErrGatewayUnavailable)
	}
	return nil
}

// SetSuccessRate updates the success rate (for testing)
func (g *MockGateway) SetSuccessRate(rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.config.SuccessRate = rate
}

// RefundedAmount returns the cumulative refunded cents for a payment
func (g *MockGateway) RefundedAmount(paymentRef string) (int64, bool) {
	v, ok := g.intents.Load(paymentRef)
	if !ok {
		return 0, false
	}
	intent := v.(*mockIntent)
	intent.mu.Lock()
	defer intent.mu.Unlock()
	return intent.refunded, true
}

// Ensure MockGateway implements PaymentGateway
var _ PaymentGateway = (*MockGateway)(nil)
