package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// MockPaymentService is a mock implementation of PaymentService for testing
type MockPaymentService struct {
	HandlePaymentSucceededFunc func(ctx context.Context, orderID, paymentRef string) error
	HandlePaymentFailedFunc    func(ctx context.Context, orderID, reason string) error
	HandlePaymentCancelledFunc func(ctx context.Context, orderID, reason string) error
	FindOrderIDByIntentFunc    func(ctx context.Context, paymentIntentID string) (string, error)
}

func (m *MockPaymentService) HandlePaymentSucceeded(ctx context.Context, orderID, paymentRef string) error {
	if m.HandlePaymentSucceededFunc != nil {
		return m.HandlePaymentSucceededFunc(ctx, orderID, paymentRef)
	}
	return nil
}

func (m *MockPaymentService) HandlePaymentFailed(ctx context.Context, orderID, reason string) error {
	if m.HandlePaymentFailedFunc != nil {
		return m.HandlePaymentFailedFunc(ctx, orderID, reason)
	}
	return nil
}

func (m *MockPaymentService) HandlePaymentCancelled(ctx context.Context, orderID, reason string) error {
	if m.HandlePaymentCancelledFunc != nil {
		return m.HandlePaymentCancelledFunc(ctx, orderID, reason)
	}
	return nil
}

func (m *MockPaymentService) FindOrderIDByIntent(ctx context.Context, paymentIntentID string) (string, error) {
	if m.FindOrderIDByIntentFunc != nil {
		return m.FindOrderIDByIntentFunc(ctx, paymentIntentID)
	}
	return "", nil
}

func setupWebhookRouter(handler *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/stripe", handler.HandleStripeWebhook)
	return router
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	handler := NewWebhookHandler(&MockPaymentService{}, "whsec_test", nil, nil)
	router := setupWebhookRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestWebhookHandler_InvalidSignature(t *testing.T) {
	settled := false
	handler := NewWebhookHandler(&MockPaymentService{
		HandlePaymentSucceededFunc: func(ctx context.Context, orderID, paymentRef string) error {
			settled = true
			return nil
		},
	}, "whsec_test", nil, nil)
	router := setupWebhookRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1","type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if settled {
		t.Error("unsigned event must never reach the payment service")
	}
}
