package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgredis "github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/redis"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed scripts/reserve_tickets.lua
var reserveTicketsScript string

//go:embed scripts/confirm_reservation.lua
var confirmReservationScript string

//go:embed scripts/release_reservation.lua
var releaseReservationScript string

// Script names for caching
const (
	scriptReserveTickets     = "reserve_tickets"
	scriptConfirmReservation = "confirm_reservation"
	scriptReleaseReservation = "release_reservation"
)

// Confirmed reservation hashes are kept long enough for duplicate
// webhook deliveries to observe them.
const confirmedReservationTTL = 24 * time.Hour

// Reservation hash TTLs run past expires_at so the sweep can still
// restore the availability counter before Redis drops the hash.
const holdTTLGrace = 2

// RedisInventoryRepository implements InventoryRepository using Redis
// Lua scripts for atomicity
type RedisInventoryRepository struct {
	client *pkgredis.Client
}

// NewRedisInventoryRepository creates a new RedisInventoryRepository
func NewRedisInventoryRepository(client *pkgredis.Client) *RedisInventoryRepository {
	return &RedisInventoryRepository{client: client}
}

// LoadScripts loads all Lua scripts into Redis
func (r *RedisInventoryRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptReserveTickets:     reserveTicketsScript,
		scriptConfirmReservation: confirmReservationScript,
		scriptReleaseReservation: releaseReservationScript,
	}

	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}

	return nil
}

func availabilityKey(ticketTypeID string) string {
	return fmt.Sprintf("tickettype:availability:%s", ticketTypeID)
}

func reservationKey(reservationID string) string {
	return fmt.Sprintf("reservation:%s", reservationID)
}

// Reserve atomically takes quantity off the availability counter and
// records a time-bounded hold
func (r *RedisInventoryRepository) Reserve(ctx context.Context, params ReserveParams) (*ReserveResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.reserve")
	defer span.End()

	span.SetAttributes(
		attribute.String("ticket_type_id", params.TicketTypeID),
		attribute.Int("quantity", params.Quantity),
	)

	reservationID := uuid.New().String()
	expiresAt := time.Now().Add(params.HoldTTL).Unix()
	ttlSeconds := int64(params.HoldTTL.Seconds()) * holdTTLGrace

	keys := []string{
		availabilityKey(params.TicketTypeID),
		reservationKey(reservationID),
	}
	args := []interface{}{
		params.Quantity, // ARGV[1]: quantity
		reservationID,   // ARGV[2]: reservation_id
		params.TicketTypeID,
		expiresAt,
		ttlSeconds,
	}

	result := r.client.EvalWithFallback(ctx, scriptReserveTickets, reserveTicketsScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute reserve_tickets script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		remaining, _ := toInt64(values[1])
		span.SetAttributes(
			attribute.String("reservation_id", reservationID),
			attribute.Int64("remaining", remaining),
		)
		span.SetStatus(codes.Ok, "")
		return &ReserveResult{
			Success:       true,
			ReservationID: reservationID,
			Remaining:     remaining,
		}, nil
	}

	errorCode, _ := values[1].(string)
	errorMessage, _ := values[2].(string)
	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Error, errorCode)
	return &ReserveResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}, nil
}

// Confirm converts a hold into a permanent sale. Confirming an already
// confirmed reservation is a no-op success.
func (r *RedisInventoryRepository) Confirm(ctx context.Context, reservationID string) (*ConfirmResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.confirm")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", reservationID))

	keys := []string{reservationKey(reservationID)}
	args := []interface{}{
		time.Now().Unix(),
		int64(confirmedReservationTTL.Seconds()),
	}

	result := r.client.EvalWithFallback(ctx, scriptConfirmReservation, confirmReservationScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute confirm_reservation script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		status, _ := values[1].(string)
		span.SetAttributes(attribute.String("status", status))
		span.SetStatus(codes.Ok, "")
		return &ConfirmResult{
			Success:          true,
			AlreadyConfirmed: status == "already_confirmed",
		}, nil
	}

	errorCode, _ := values[1].(string)
	errorMessage, _ := values[2].(string)
	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Error, errorCode)
	return &ConfirmResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}, nil
}

// Release returns held quantity to the availability counter. A missing
// hold (expired via TTL or already released) is reported as an
// idempotent no-op success.
func (r *RedisInventoryRepository) Release(ctx context.Context, reservationID string) (*ReleaseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.release")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", reservationID))

	// Look up the hold first to find its ticket type
	resKey := reservationKey(reservationID)
	reservation, err := r.client.HGetAll(ctx, resKey).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	if len(reservation) == 0 {
		span.SetStatus(codes.Ok, "already released")
		return &ReleaseResult{
			Success:         true,
			AlreadyReleased: true,
		}, nil
	}

	ticketTypeID := reservation["ticket_type_id"]
	span.SetAttributes(attribute.String("ticket_type_id", ticketTypeID))

	keys := []string{availabilityKey(ticketTypeID), resKey}
	args := []interface{}{reservationID}

	result := r.client.EvalWithFallback(ctx, scriptReleaseReservation, releaseReservationScript, keys, args...)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return nil, fmt.Errorf("failed to execute release_reservation script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to parse script result: %w", err)
	}
	if len(values) < 3 {
		span.SetStatus(codes.Error, "unexpected result length")
		return nil, fmt.Errorf("unexpected script result length: %d", len(values))
	}

	success, _ := toInt64(values[0])
	if success == 1 {
		remaining, _ := toInt64(values[1])
		span.SetAttributes(attribute.Int64("remaining", remaining))
		span.SetStatus(codes.Ok, "")
		return &ReleaseResult{
			Success:   true,
			Remaining: remaining,
		}, nil
	}

	errorCode, _ := values[1].(string)
	errorMessage, _ := values[2].(string)
	if errorCode == ErrCodeReservationNotFound {
		// Raced with TTL expiry between HGetAll and the script
		span.SetStatus(codes.Ok, "already released")
		return &ReleaseResult{Success: true, AlreadyReleased: true}, nil
	}

	span.SetAttributes(attribute.String("error_code", errorCode))
	span.SetStatus(codes.Error, errorCode)
	return &ReleaseResult{
		Success:      false,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}, nil
}

// GetAvailability reads the current availability counter. Unlimited
// tiers report -1; an uninitialized counter reports 0.
func (r *RedisInventoryRepository) GetAvailability(ctx context.Context, ticketTypeID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.get_availability")
	defer span.End()

	span.SetAttributes(attribute.String("ticket_type_id", ticketTypeID))

	result, err := r.client.Get(ctx, availabilityKey(ticketTypeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Ok, "not initialized")
			return 0, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to get availability: %w", err)
	}

	available, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to parse availability: %w", err)
	}

	span.SetAttributes(attribute.Int64("available", available))
	span.SetStatus(codes.Ok, "")
	return available, nil
}

// SetAvailability seeds the availability counter, used by the syncer.
// Pass -1 for unlimited tiers.
func (r *RedisInventoryRepository) SetAvailability(ctx context.Context, ticketTypeID string, available int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.inventory.set_availability")
	defer span.End()

	span.SetAttributes(
		attribute.String("ticket_type_id", ticketTypeID),
		attribute.Int64("available", available),
	)

	if err := r.client.Set(ctx, availabilityKey(ticketTypeID), available, 0).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to set availability: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// toInt64 converts a Lua script return value to int64
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Ensure RedisInventoryRepository implements InventoryRepository
var _ InventoryRepository = (*RedisInventoryRepository)(nil)
