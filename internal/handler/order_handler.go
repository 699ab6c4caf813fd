package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

// OrderHandler handles checkout and order HTTP requests
// Fast path: Redis Lua reservation + PostgreSQL order row, payment
// settlement arrives asynchronously via the gateway webhook
type OrderHandler struct {
	checkoutService service.CheckoutService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(checkoutService service.CheckoutService) *OrderHandler {
	return &OrderHandler{
		checkoutService: checkoutService,
	}
}

// Checkout handles POST /checkout
// Reserves every cart line atomically, snapshots prices and opens a
// payment intent. Any line failing releases the lines already held.
func (h *OrderHandler) Checkout(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.order.checkout")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	start := time.Now()

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	// Use user_id from auth middleware if not in request body
	if req.UserID == "" {
		req.UserID = c.GetString("user_id")
	}

	span.SetAttributes(
		attribute.String("event_id", req.EventID),
		attribute.String("user_id", req.UserID),
		attribute.Int("line_count", len(req.Items)),
	)

	result, err := h.checkoutService.Checkout(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	metrics.RecordRequestDuration(ctx, "checkout", time.Since(start).Seconds())

	span.SetAttributes(attribute.String("order_id", result.OrderID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.order.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	orderID := c.Param("id")
	if orderID == "" {
		span.SetStatus(codes.Error, "order id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "order id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	span.SetAttributes(attribute.String("order_id", orderID))

	result, err := h.checkoutService.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// handleError converts domain errors to HTTP responses
func (h *OrderHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSoldOut):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "SOLD_OUT",
		})
	case errors.Is(err, domain.ErrEventCancelled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_CANCELLED",
		})
	case domain.IsSaleWindowError(err):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "OUTSIDE_SALE_WINDOW",
		})
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	case domain.IsConflictError(err):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "CONFLICT",
		})
	case errors.Is(err, domain.ErrPaymentDeclined):
		c.JSON(http.StatusPaymentRequired, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PAYMENT_DECLINED",
		})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "GATEWAY_UNAVAILABLE",
			Message: "Payment provider is unavailable. Your cart was released, please retry.",
		})
	case errors.Is(err, domain.ErrInventoryUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "INVENTORY_UNAVAILABLE",
			Message: "Ticket inventory is temporarily unavailable, please retry.",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
