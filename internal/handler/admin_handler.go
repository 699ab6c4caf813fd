package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/dto"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/worker"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/database"
	pkgredis "github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/redis"
)

// AdminHandler handles admin HTTP requests
type AdminHandler struct {
	db           *database.PostgresDB
	redis        *pkgredis.Client
	syncer       service.InventorySyncer
	expiryWorker *worker.ExpiryWorker
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *database.PostgresDB, redis *pkgredis.Client, syncer service.InventorySyncer, expiryWorker *worker.ExpiryWorker) *AdminHandler {
	return &AdminHandler{
		db:           db,
		redis:        redis,
		syncer:       syncer,
		expiryWorker: expiryWorker,
	}
}

// SyncInventoryResponse represents the response for sync inventory
type SyncInventoryResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SyncInventory handles POST /admin/events/:id/sync-inventory
// Seeds the availability counters for every tier of an event from
// PostgreSQL into Redis
func (h *AdminHandler) SyncInventory(c *gin.Context) {
	ctx := c.Request.Context()

	eventID := c.Param("id")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "event id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := h.syncer.SyncEvent(ctx, eventID); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "failed to sync inventory",
			Code:    "SYNC_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SyncInventoryResponse{
		Success: true,
		Message: fmt.Sprintf("Synced availability counters for event %s", eventID),
	})
}

// GetInventoryStatus handles GET /admin/inventory-status
// Returns ticket type inventory from both PostgreSQL and Redis so
// drift between the durable counts and the counters is visible
func (h *AdminHandler) GetInventoryStatus(c *gin.Context) {
	ctx := c.Request.Context()

	query := `
		SELECT id, name, event_id, capacity, sold_count
		FROM ticket_types
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := h.db.Pool().Query(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "failed to query ticket types",
			Code:    "QUERY_FAILED",
			Message: err.Error(),
		})
		return
	}
	defer rows.Close()

	type TierStatus struct {
		TicketTypeID   string `json:"ticket_type_id"`
		Name           string `json:"name"`
		EventID        string `json:"event_id"`
		Capacity       *int64 `json:"capacity"`
		SoldCount      int64  `json:"sold_count"`
		PGAvailable    int64  `json:"pg_available"`
		RedisAvailable int64  `json:"redis_available"`
		InSync         bool   `json:"in_sync"`
	}

	var tiers []TierStatus
	for rows.Next() {
		var t TierStatus
		if err := rows.Scan(&t.TicketTypeID, &t.Name, &t.EventID, &t.Capacity, &t.SoldCount); err != nil {
			continue
		}

		// Unlimited tiers report -1 in both stores
		t.PGAvailable = -1
		if t.Capacity != nil {
			t.PGAvailable = *t.Capacity - t.SoldCount
		}

		key := fmt.Sprintf("tickettype:availability:%s", t.TicketTypeID)
		val, err := h.redis.Get(ctx, key).Int64()
		if err != nil {
			t.RedisAvailable = -2 // not seeded
			t.InSync = false
		} else {
			t.RedisAvailable = val
			t.InSync = t.PGAvailable == t.RedisAvailable
		}

		tiers = append(tiers, t)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tiers,
		"count":   len(tiers),
	})
}

// GetExpiryWorkerStats handles GET /admin/expiry-worker
func (h *AdminHandler) GetExpiryWorkerStats(c *gin.Context) {
	if h.expiryWorker == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: "expiry worker not running",
			Code:  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Success: true,
		Data:    h.expiryWorker.GetStats(),
	})
}
