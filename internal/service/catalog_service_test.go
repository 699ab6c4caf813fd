package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
)

func TestCatalogService_GetEventSummary(t *testing.T) {
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return testEvent(), nil
		},
	}
	ticketTypeRepo := &MockTicketTypeRepository{
		ListByEventIDFunc: func(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
			early := testTicketType("tt-001", 2000)
			early.Name = "Early Bird"
			early.SoldCount = 40
			ga := testTicketType("tt-002", 2500)
			ga.SortOrder = 1
			return []*domain.TicketType{early, ga}, nil
		},
	}

	svc := NewCatalogService(eventRepo, ticketTypeRepo, &MockTicketRepository{})
	resp, err := svc.GetEventSummary(context.Background(), "event-001")

	assert.NoError(t, err)
	assert.Equal(t, "event-001", resp.ID)
	assert.Len(t, resp.TicketTypes, 2)
	assert.Equal(t, "Early Bird", resp.TicketTypes[0].Name)
	assert.Equal(t, 60, resp.TicketTypes[0].Available)
	assert.True(t, resp.TicketTypes[0].OnSale)
}

func TestCatalogService_GetEventSummary_NotFound(t *testing.T) {
	svc := NewCatalogService(&MockEventRepository{}, &MockTicketTypeRepository{}, &MockTicketRepository{})

	_, err := svc.GetEventSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestCatalogService_ListTicketTypes(t *testing.T) {
	t.Run("unlimited tier reports -1 availability", func(t *testing.T) {
		ticketTypeRepo := &MockTicketTypeRepository{
			ListByEventIDFunc: func(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
				tt := testTicketType("tt-001", 2500)
				tt.Capacity = nil
				return []*domain.TicketType{tt}, nil
			},
		}

		svc := NewCatalogService(&MockEventRepository{}, ticketTypeRepo, &MockTicketRepository{})
		tiers, err := svc.ListTicketTypes(context.Background(), "event-001")

		assert.NoError(t, err)
		assert.Len(t, tiers, 1)
		assert.Equal(t, -1, tiers[0].Available)
	})

	t.Run("empty event id is rejected", func(t *testing.T) {
		svc := NewCatalogService(&MockEventRepository{}, &MockTicketTypeRepository{}, &MockTicketRepository{})

		_, err := svc.ListTicketTypes(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrInvalidEventID)
	})
}

func TestCatalogService_GetTicketByConfirmationCode(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ticketRepo := &MockTicketRepository{
			GetByConfirmationCodeFunc: func(ctx context.Context, code string) (*domain.Ticket, error) {
				return &domain.Ticket{
					ID:               "ticket-1",
					OrderID:          "order-001",
					ConfirmationCode: code,
					Quantity:         2,
					UnitPrice:        domain.NewMoney(2500, "USD"),
					TotalPrice:       domain.NewMoney(5000, "USD"),
				}, nil
			},
		}

		svc := NewCatalogService(&MockEventRepository{}, &MockTicketTypeRepository{}, ticketRepo)
		ticket, err := svc.GetTicketByConfirmationCode(context.Background(), "abcd1234")

		assert.NoError(t, err)
		assert.Equal(t, "abcd1234", ticket.ConfirmationCode)
		assert.Equal(t, int64(5000), ticket.TotalPrice.Amount)
	})

	t.Run("empty code is not found", func(t *testing.T) {
		svc := NewCatalogService(&MockEventRepository{}, &MockTicketTypeRepository{}, &MockTicketRepository{})

		_, err := svc.GetTicketByConfirmationCode(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	})
}
