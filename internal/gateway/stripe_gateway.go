package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

// StripeGateway implements PaymentGateway using Stripe
type StripeGateway struct {
	config *Config
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *Config) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{
		config: config,
	}, nil
}

// CreateIntent registers a Stripe payment intent for the order total
func (g *StripeGateway) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("intent request is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: make(map[string]string),
	}
	params.Context = ctx

	params.Metadata["order_id"] = req.OrderID
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	return &IntentResponse{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// Refund returns money against a Stripe payment intent
func (g *StripeGateway) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("refund request is required")
	}
	if req.PaymentRef == "" {
		return nil, fmt.Errorf("payment reference is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentRef),
		Amount:        stripe.Int64(req.Amount),
		Metadata:      req.Metadata,
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	return &RefundResponse{
		RefundID: r.ID,
		Status:   string(r.Status),
	}, nil
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// classifyStripeError maps Stripe errors onto domain errors so the service
// layer can decide what to retry. Card and request errors are final;
// anything else (network, rate limit, 5xx) reads as gateway unavailable.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard:
			return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, stripeErr.Msg)
		case stripe.ErrorTypeInvalidRequest:
			return fmt.Errorf("invalid gateway request: %s", stripeErr.Msg)
		default:
			return fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, stripeErr.Msg)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
}

// Ensure StripeGateway implements PaymentGateway
var _ PaymentGateway = (*StripeGateway)(nil)
