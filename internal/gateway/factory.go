package gateway

import (
	"fmt"
	"strings"
)

// Type represents the type of payment gateway
type Type string

const (
	TypeMock   Type = "mock"
	TypeStripe Type = "stripe"
)

// New creates a payment gateway based on the configured type
func New(gatewayType string, config *Config) (PaymentGateway, error) {
	switch Type(strings.ToLower(gatewayType)) {
	case TypeMock, "":
		// Default to mock gateway
		return NewMockGateway(DefaultMockConfig()), nil

	case TypeStripe:
		if config == nil || config.SecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		return NewStripeGateway(config)

	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", gatewayType)
	}
}
