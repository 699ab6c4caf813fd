package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
)

// MockRefundService is a mock implementation of RefundService for testing
type MockRefundService struct {
	QuoteRefundFunc func(ctx context.Context, orderID, refundType string) (*dto.RefundQuoteResponse, error)
	RefundFunc      func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error)
	ListRefundsFunc func(ctx context.Context, orderID string) ([]dto.RefundRecordDTO, error)
}

func (m *MockRefundService) QuoteRefund(ctx context.Context, orderID, refundType string) (*dto.RefundQuoteResponse, error) {
	if m.QuoteRefundFunc != nil {
		return m.QuoteRefundFunc(ctx, orderID, refundType)
	}
	return nil, nil
}

func (m *MockRefundService) Refund(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, orderID, req)
	}
	return nil, nil
}

func (m *MockRefundService) ListRefunds(ctx context.Context, orderID string) ([]dto.RefundRecordDTO, error) {
	if m.ListRefundsFunc != nil {
		return m.ListRefundsFunc(ctx, orderID)
	}
	return []dto.RefundRecordDTO{}, nil
}

func setupRefundRouter(handler *RefundHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	orders := router.Group("/orders")
	{
		orders.GET("/:id/refund-quote", handler.QuoteRefund)
		orders.GET("/:id/refunds", handler.ListRefunds)
		orders.POST("/:id/refund", handler.Refund)
	}

	return router
}

func TestRefundHandler_QuoteRefund(t *testing.T) {
	t.Run("defaults to customer request", func(t *testing.T) {
		var gotType string
		mockService := &MockRefundService{
			QuoteRefundFunc: func(ctx context.Context, orderID, refundType string) (*dto.RefundQuoteResponse, error) {
				gotType = refundType
				return &dto.RefundQuoteResponse{
					OrderID:  orderID,
					Type:     refundType,
					Eligible: dto.MoneyDTO{Amount: 5145, Currency: "USD"},
				}, nil
			},
		}
		router := setupRefundRouter(NewRefundHandler(mockService))

		req := httptest.NewRequest(http.MethodGet, "/orders/order-123/refund-quote", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if gotType != "customer_request" {
			t.Errorf("expected default type customer_request, got %s", gotType)
		}
	})

	t.Run("passes the requested type through", func(t *testing.T) {
		var gotType string
		mockService := &MockRefundService{
			QuoteRefundFunc: func(ctx context.Context, orderID, refundType string) (*dto.RefundQuoteResponse, error) {
				gotType = refundType
				return &dto.RefundQuoteResponse{OrderID: orderID, Type: refundType}, nil
			},
		}
		router := setupRefundRouter(NewRefundHandler(mockService))

		req := httptest.NewRequest(http.MethodGet, "/orders/order-123/refund-quote?type=full_cancellation", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if gotType != "full_cancellation" {
			t.Errorf("expected type full_cancellation, got %s", gotType)
		}
	})
}

func TestRefundHandler_Refund(t *testing.T) {
	validBody := &dto.RefundRequest{Type: "customer_request", Reason: "requested_by_customer"}

	tests := []struct {
		name           string
		request        *dto.RefundRequest
		mockFunc       func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:    "successful refund",
			request: validBody,
			mockFunc: func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
				return &dto.RefundResponse{
					RefundID: "refund-123",
					OrderID:  orderID,
					Type:     req.Type,
					Amount:   dto.MoneyDTO{Amount: 5145, Currency: "USD"},
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "refund window closed",
			request: validBody,
			mockFunc: func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
				return nil, domain.ErrRefundNotEligible
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "REFUND_NOT_ELIGIBLE",
		},
		{
			name:    "order not completed",
			request: validBody,
			mockFunc: func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
				return nil, domain.ErrOrderNotCompleted
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ORDER_NOT_COMPLETED",
		},
		{
			name:    "refund exceeds total",
			request: validBody,
			mockFunc: func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
				return nil, domain.ErrRefundExceedsTotal
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "REFUND_EXCEEDS_TOTAL",
		},
		{
			name:    "order not found",
			request: validBody,
			mockFunc: func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
				return nil, domain.ErrOrderNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:    "gateway unavailable",
			request: validBody,
			mockFunc: func(ctx context.Context, orderID string, req *dto.RefundRequest) (*dto.RefundResponse, error) {
				return nil, domain.ErrGatewayUnavailable
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "GATEWAY_UNAVAILABLE",
		},
		{
			name:           "binding rejects unknown type",
			request:        &dto.RefundRequest{Type: "goodwill"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockRefundService{
				RefundFunc: tt.mockFunc,
			}
			router := setupRefundRouter(NewRefundHandler(mockService))

			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPost, "/orders/order-123/refund", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedCode != "" {
				var response dto.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err == nil {
					if response.Code != tt.expectedCode {
						t.Errorf("expected code %s, got %s", tt.expectedCode, response.Code)
					}
				}
			}
		})
	}
}

func TestRefundHandler_ListRefunds(t *testing.T) {
	mockService := &MockRefundService{
		ListRefundsFunc: func(ctx context.Context, orderID string) ([]dto.RefundRecordDTO, error) {
			return []dto.RefundRecordDTO{
				{ID: "refund-1", OrderID: orderID, Type: "customer_request"},
			}, nil
		},
	}
	router := setupRefundRouter(NewRefundHandler(mockService))

	req := httptest.NewRequest(http.MethodGet, "/orders/order-123/refunds", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response dto.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !response.Success {
		t.Error("expected success envelope")
	}
}
