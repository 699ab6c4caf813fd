package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/response"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

// EventHandler serves the read side: events, ticket tiers and issued
// tickets
type EventHandler struct {
	catalogService service.CatalogService
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalogService service.CatalogService) *EventHandler {
	return &EventHandler{
		catalogService: catalogService,
	}
}

// GetEvent handles GET /events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.catalogService.GetEventSummary(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// ListTicketTypes handles GET /events/:id/ticket-types
func (h *EventHandler) ListTicketTypes(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.ticket_types")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.catalogService.ListTicketTypes(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// GetTicket handles GET /tickets/:code
// Looks up an issued ticket by its confirmation code for door entry
func (h *EventHandler) GetTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.ticket")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	code := c.Param("code")

	result, err := h.catalogService.GetTicketByConfirmationCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// handleError converts domain errors to HTTP responses
func (h *EventHandler) handleError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsValidationError(err):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
