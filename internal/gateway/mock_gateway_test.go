package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

func TestNewMockGateway(t *testing.T) {
	gw := NewMockGateway(nil)
	if gw == nil {
		t.Fatal("Expected non-nil gateway")
	}

	if gw.Name() != "mock" {
		t.Errorf("Expected name 'mock', got '%s'", gw.Name())
	}
}

func TestMockGateway_CreateIntent(t *testing.T) {
	gw := NewMockGateway(&MockConfig{SuccessRate: 1.0})

	resp, err := gw.CreateIntent(context.Background(), &IntentRequest{
		OrderID:  "order-1",
		Amount:   5175,
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.IntentID == "" {
		t.Error("Expected intent ID")
	}
	if resp.ClientSecret == "" {
		t.Error("Expected client secret")
	}
	if resp.Status != "requires_payment_method" {
		t.Errorf("Expected status 'requires_payment_method', got '%s'", resp.Status)
	}
}

func TestMockGateway_CreateIntent_NilRequest(t *testing.T) {
	gw := NewMockGateway(nil)

	_, err := gw.CreateIntent(context.Background(), nil)
	if err == nil {
		t.Error("Expected error for nil request")
	}
}

func TestMockGateway_CreateIntent_Outage(t *testing.T) {
	gw := NewMockGateway(&MockConfig{SuccessRate: 0.0})

	_, err := gw.CreateIntent(context.Background(), &IntentRequest{
		OrderID:  "order-1",
		Amount:   5175,
		Currency: "usd",
	})
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("Expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestMockGateway_Refund(t *testing.T) {
	gw := NewMockGateway(&MockConfig{SuccessRate: 1.0})
	ctx := context.Background()

	intent, err := gw.CreateIntent(ctx, &IntentRequest{
		OrderID:  "order-1",
		Amount:   5000,
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	resp, err := gw.Refund(ctx, &RefundRequest{
		PaymentRef: intent.IntentID,
		Amount:     3000,
		Currency:   "usd",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.RefundID == "" {
		t.Error("Expected refund ID")
	}
	if resp.Status != "succeeded" {
		t.Errorf("Expected status 'succeeded', got '%s'", resp.Status)
	}

	refunded, ok := gw.RefundedAmount(intent.IntentID)
	if !ok {
		t.Fatal("Expected payment to be tracked")
	}
	if refunded != 3000 {
		t.Errorf("Expected refunded 3000, got %d", refunded)
	}
}

func TestMockGateway_Refund_ExceedsCaptured(t *testing.T) {
	gw := NewMockGateway(&MockConfig{SuccessRate: 1.0})
	ctx := context.Background()

	intent, err := gw.CreateIntent(ctx, &IntentRequest{
		OrderID:  "order-1",
		Amount:   5000,
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := gw.Refund(ctx, &RefundRequest{
		PaymentRef: intent.IntentID,
		Amount:     4000,
		Currency:   "usd",
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// A second refund beyond the captured amount must be rejected
	_, err = gw.Refund(ctx, &RefundRequest{
		PaymentRef: intent.IntentID,
		Amount:     2000,
		Currency:   "usd",
	})
	if err == nil {
		t.Error("Expected error for refund exceeding captured amount")
	}
}

func TestMockGateway_Refund_UnknownPayment(t *testing.T) {
	gw := NewMockGateway(&MockConfig{SuccessRate: 1.0})

	_, err := gw.Refund(context.Background(), &RefundRequest{
		PaymentRef: "pi_unknown",
		Amount:     100,
		Currency:   "usd",
	})
	if err == nil {
		t.Error("Expected error for unknown payment")
	}
}

func TestMockGateway_SetSuccessRate(t *testing.T) {
	gw := NewMockGateway(&MockConfig{SuccessRate: 1.0})

	gw.SetSuccessRate(0.0)
	_, err := gw.CreateIntent(context.Background(), &IntentRequest{
		OrderID:  "order-1",
		Amount:   100,
		Currency: "usd",
	})
	if err == nil {
		t.Error("Expected outage after dropping the success rate")
	}

	gw.SetSuccessRate(1.0)
	if _, err := gw.CreateIntent(context.Background(), &IntentRequest{
		OrderID:  "order-1",
		Amount:   100,
		Currency: "usd",
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
