package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/logger"
)

// ExpiryWorkerConfig contains configuration for the expiry worker
type ExpiryWorkerConfig struct {
	// ScanInterval is the interval between scans for lapsed holds
	ScanInterval time.Duration
	// BatchSize is the number of orders to process in each scan
	BatchSize int
}

// DefaultExpiryWorkerConfig returns default configuration
func DefaultExpiryWorkerConfig() *ExpiryWorkerConfig {
	return &ExpiryWorkerConfig{
		ScanInterval: 30 * time.Second,
		BatchSize:    100,
	}
}

// ExpiryWorker sweeps pending orders whose reservation hold lapsed,
// releases their inventory and cancels them. The lazy expiry check on
// confirm covers the window between sweeps.
type ExpiryWorker struct {
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository
	publisher     service.EventPublisher
	config        *ExpiryWorkerConfig
	log           *logger.Logger
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool

	// Stats
	totalExpired     int64
	totalReleased    int64
	lastScanTime     time.Time
	lastExpiredCount int
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
	publisher service.EventPublisher,
	config *ExpiryWorkerConfig,
) *ExpiryWorker {
	if config == nil {
		config = DefaultExpiryWorkerConfig()
	}
	if publisher == nil {
		publisher = service.NewNoOpEventPublisher()
	}

	return &ExpiryWorker{
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		publisher:     publisher,
		config:        config,
		log:           logger.Get(),
		stopCh:        make(chan struct{}),
	}
}

// Start starts the expiry worker
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("expiry worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting expiry worker")

	w.wg.Add(1)
	go w.scan(ctx)

	return nil
}

// Stop stops the expiry worker
func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping expiry worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Expiry worker stopped")
}

// scan periodically sweeps for expired pending orders
func (w *ExpiryWorker) scan(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.processExpired(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processExpired(ctx)
		}
	}
}

// processExpired fetches and expires one batch of lapsed pending orders
func (w *ExpiryWorker) processExpired(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	expired, err := w.orderRepo.GetExpiredPending(ctx, time.Now(), w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to get expired pending orders: %v", err))
		return
	}

	if len(expired) == 0 {
		return
	}

	w.log.Info(fmt.Sprintf("Found %d expired pending orders to process", len(expired)))

	expiredCount := 0
	for _, order := range expired {
		if err := w.expireOrder(ctx, order); err != nil {
			w.log.Error(fmt.Sprintf("Failed to expire order %s: %v", order.ID, err))
			continue
		}
		expiredCount++
	}

	w.mu.Lock()
	w.totalExpired += int64(expiredCount)
	w.lastExpiredCount = expiredCount
	w.mu.Unlock()

	if expiredCount > 0 {
		metrics.RecordExpiration(ctx, int64(expiredCount))
	}
}

// expireOrder releases one order's holds and cancels it
func (w *ExpiryWorker) expireOrder(ctx context.Context, order *domain.Order) error {
	// 1. Return held inventory. A hold that already vanished via TTL is
	// expected; its counter was restored when the hash expired only if the
	// release ran, so a missing hash here means the grace window did its
	// job and nothing is left to give back.
	for _, item := range order.Items {
		if item.ReservationID == "" {
			continue
		}
		result, err := w.inventoryRepo.Release(ctx, item.ReservationID)
		if err != nil {
			w.log.Warn(fmt.Sprintf("Failed to release reservation %s for order %s: %v",
				item.ReservationID, order.ID, err))
			continue
		}
		if result.Success && !result.AlreadyReleased {
			w.mu.Lock()
			w.totalReleased++
			w.mu.Unlock()
		}
	}
	metrics.RecordRelease(ctx, "hold_expired")

	// 2. Cancel the order. Losing the race against a settlement signal is
	// fine; the CAS returns false and the order stays settled.
	updated, err := w.orderRepo.MarkCancelled(ctx, order.ID, "reservation hold expired")
	if err != nil {
		return fmt.Errorf("failed to cancel expired order: %w", err)
	}
	if !updated {
		w.log.Info(fmt.Sprintf("Order %s settled before expiry sweep, skipping", order.ID))
		return nil
	}

	order.Status = domain.OrderStatusCancelled
	order.StatusReason = "reservation hold expired"

	if err := w.publisher.PublishOrderExpired(ctx, order); err != nil {
		w.log.Warn(fmt.Sprintf("Failed to publish expiry event for order %s: %v", order.ID, err))
	}

	w.log.Info(fmt.Sprintf("Expired order %s (event: %s, qty: %d)",
		order.ID, order.EventID, order.TotalQuantity()))

	return nil
}

// GetStats returns worker statistics
func (w *ExpiryWorker) GetStats() *ExpiryWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &ExpiryWorkerStats{
		IsRunning:        w.running,
		TotalExpired:     w.totalExpired,
		TotalReleased:    w.totalReleased,
		LastScanTime:     w.lastScanTime,
		LastExpiredCount: w.lastExpiredCount,
	}
}

// ExpiryWorkerStats contains worker statistics
type ExpiryWorkerStats struct {
	IsRunning        bool      `json:"is_running"`
	TotalExpired     int64     `json:"total_expired"`
	TotalReleased    int64     `json:"total_released"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
}
