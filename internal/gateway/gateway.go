package gateway

import (
	"context"
)

// PaymentGateway defines the interface for payment processing.
// Amounts are integer cents in the smallest currency unit.
type PaymentGateway interface {
	// CreateIntent registers a payment intent for a checkout session
	CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error)

	// Refund returns money against a settled payment
	Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error)

	// Name returns the gateway name
	Name() string
}

// IntentRequest represents a payment intent request
type IntentRequest struct {
	OrderID       string
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	Metadata      map[string]string
}

// IntentResponse represents a payment intent response
type IntentResponse struct {
	IntentID     string
	ClientSecret string
	Status       string
}

// RefundRequest represents a refund request
type RefundRequest struct {
	PaymentRef string
	Amount     int64
	Currency   string
	Reason     string
	Metadata   map[string]string
}

// RefundResponse represents a refund response
type RefundResponse struct {
	RefundID string
	Status   string
}

// Config holds common gateway configuration
type Config struct {
	SecretKey     string
	WebhookSecret string
	Environment   string // "test" or "live"
}
