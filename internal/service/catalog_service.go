package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

// CatalogService serves read paths for events, ticket tiers and issued
// tickets
type CatalogService interface {
	// GetEventSummary returns an event with its ticket tiers in display order
	GetEventSummary(ctx context.Context, eventID string) (*dto.EventSummaryResponse, error)

	// ListTicketTypes returns the tiers for an event in display order
	ListTicketTypes(ctx context.Context, eventID string) ([]*dto.TicketTypeResponse, error)

	// GetTicketByConfirmationCode looks up an issued ticket for door entry
	GetTicketByConfirmationCode(ctx context.Context, code string) (*dto.TicketDTO, error)
}

// catalogService implements CatalogService
type catalogService struct {
	eventRepo      repository.EventRepository
	ticketTypeRepo repository.TicketTypeRepository
	ticketRepo     repository.TicketRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	eventRepo repository.EventRepository,
	ticketTypeRepo repository.TicketTypeRepository,
	ticketRepo repository.TicketRepository,
) CatalogService {
	return &catalogService{
		eventRepo:      eventRepo,
		ticketTypeRepo: ticketTypeRepo,
		ticketRepo:     ticketRepo,
	}
}

// GetEventSummary returns an event with its ticket tiers
func (s *catalogService) GetEventSummary(ctx context.Context, eventID string) (*dto.EventSummaryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.catalog.event_summary")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ticketTypes, err := s.ticketTypeRepo.ListByEventID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.EventSummaryFromDomain(event, ticketTypes), nil
}

// ListTicketTypes returns the tiers for an event
func (s *catalogService) ListTicketTypes(ctx context.Context, eventID string) ([]*dto.TicketTypeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.catalog.list_ticket_types")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	ticketTypes, err := s.ticketTypeRepo.ListByEventID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]*dto.TicketTypeResponse, len(ticketTypes))
	for i, tt := range ticketTypes {
		out[i] = dto.TicketTypeFromDomain(tt)
	}

	span.SetAttributes(attribute.Int("count", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// GetTicketByConfirmationCode looks up an issued ticket
func (s *catalogService) GetTicketByConfirmationCode(ctx context.Context, code string) (*dto.TicketDTO, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.catalog.get_ticket")
	defer span.End()

	if code == "" {
		span.SetStatus(codes.Error, "invalid confirmation code")
		return nil, domain.ErrTicketNotFound
	}

	ticket, err := s.ticketRepo.GetByConfirmationCode(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := dto.TicketFromDomain(ticket)
	span.SetStatus(codes.Ok, "")
	return &resp, nil
}
