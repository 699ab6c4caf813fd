package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

// RefundHandler handles refund HTTP requests
type RefundHandler struct {
	refundService service.RefundService
}

// NewRefundHandler creates a new refund handler
func NewRefundHandler(refundService service.RefundService) *RefundHandler {
	return &RefundHandler{
		refundService: refundService,
	}
}

// QuoteRefund handles GET /orders/:id/refund-quote
// Previews the refund amount without touching the gateway
func (h *RefundHandler) QuoteRefund(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.refund.quote")
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

	refundType := c.DefaultQuery("type", domain.RefundTypeCustomerRequest.String())

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("refund_type", refundType),
	)

	result, err := h.refundService.QuoteRefund(ctx, orderID, refundType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Refund handles POST /orders/:id/refund
func (h *RefundHandler) Refund(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.refund.execute")
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

	var req dto.RefundRequest
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

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("refund_type", req.Type),
	)

	result, err := h.refundService.Refund(ctx, orderID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("nothing_to_refund", result.NothingToRefund))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// ListRefunds handles GET /orders/:id/refunds
func (h *RefundHandler) ListRefunds(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.refund.list")
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

	result, err := h.refundService.ListRefunds(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Success: true,
		Data:    result,
	})
}

// handleError converts domain errors to HTTP responses
func (h *RefundHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRefundNotEligible):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "REFUND_NOT_ELIGIBLE",
			Message: "The refund window for this order has closed.",
		})
	case errors.Is(err, domain.ErrOrderNotCompleted):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ORDER_NOT_COMPLETED",
		})
	case errors.Is(err, domain.ErrRefundExceedsTotal):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "REFUND_EXCEEDS_TOTAL",
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
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "GATEWAY_UNAVAILABLE",
			Message: "Payment provider is unavailable. No refund was issued, please retry.",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
