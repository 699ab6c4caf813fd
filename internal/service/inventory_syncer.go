package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
)

// InventorySyncer seeds the Redis availability counters from the durable
// ticket type state. Counters hold capacity minus sold_count; unlimited
// tiers are seeded with -1.
type InventorySyncer interface {
	// SyncTicketType seeds one tier's availability counter (single-flight)
	SyncTicketType(ctx context.Context, ticketTypeID string) error

	// SyncEvent seeds counters for every tier of an event
	SyncEvent(ctx context.Context, eventID string) error
}

// DefaultInventorySyncer implements InventorySyncer with a single-flight
// group so concurrent checkouts for the same tier share one sync
type DefaultInventorySyncer struct {
	ticketTypeRepo repository.TicketTypeRepository
	inventoryRepo  repository.InventoryRepository
	sfGroup        singleflight.Group
}

// NewInventorySyncer creates a new inventory syncer
func NewInventorySyncer(
	ticketTypeRepo repository.TicketTypeRepository,
	inventoryRepo repository.InventoryRepository,
) *DefaultInventorySyncer {
	return &DefaultInventorySyncer{
		ticketTypeRepo: ticketTypeRepo,
		inventoryRepo:  inventoryRepo,
	}
}

// SyncTicketType seeds one tier's availability counter
func (s *DefaultInventorySyncer) SyncTicketType(ctx context.Context, ticketTypeID string) error {
	_, err, _ := s.sfGroup.Do(ticketTypeID, func() (interface{}, error) {
		return nil, s.doSync(ctx, ticketTypeID)
	})
	return err
}

// SyncEvent seeds counters for every tier of an event
func (s *DefaultInventorySyncer) SyncEvent(ctx context.Context, eventID string) error {
	ticketTypes, err := s.ticketTypeRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to list ticket types for event %s: %w", eventID, err)
	}

	for _, tt := range ticketTypes {
		if err := s.SyncTicketType(ctx, tt.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *DefaultInventorySyncer) doSync(ctx context.Context, ticketTypeID string) error {
	tt, err := s.ticketTypeRepo.GetByID(ctx, ticketTypeID)
	if err != nil {
		return fmt.Errorf("failed to fetch ticket type %s: %w", ticketTypeID, err)
	}

	available := int64(tt.Available())

	if err := s.inventoryRepo.SetAvailability(ctx, ticketTypeID, available); err != nil {
		return fmt.Errorf("failed to seed availability for %s: %w", ticketTypeID, err)
	}
	return nil
}
