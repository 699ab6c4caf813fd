package metrics

import (
	"context"
	"sync"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Order counters
	OrdersCreated   *telemetry.Counter
	OrdersCompleted *telemetry.Counter
	OrdersFailed    *telemetry.Counter
	OrdersCancelled *telemetry.Counter
	OrdersExpired   *telemetry.Counter

	// Inventory counters
	TicketsReserved *telemetry.Counter
	ReservationsReleased *telemetry.Counter
	SoldOutRejections    *telemetry.Counter

	// Refund counters
	RefundsIssued *telemetry.Counter

	// Webhook counters
	WebhooksReceived  *telemetry.Counter
	WebhookDuplicates *telemetry.Counter

	// Error tracking
	ErrorsTotal *telemetry.Counter

	// Histograms
	CheckoutDuration   *telemetry.Histogram
	SettlementDuration *telemetry.Histogram
	RequestDuration    *telemetry.Histogram

	// Gauges
	PendingOrders *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all engine metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	OrdersCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_creations_total",
		Description: "Total number of checkout sessions created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersCompleted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_completions_total",
		Description: "Total number of orders settled successfully",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_failures_total",
		Description: "Total number of orders failed at payment",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_cancellations_total",
		Description: "Total number of orders cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OrdersExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "order_expirations_total",
		Description: "Total number of pending orders expired by the sweep",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsReserved, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ticket_reservations_total",
		Description: "Total number of tickets reserved",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsReleased, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ticket_releases_total",
		Description: "Total number of reservation releases",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SoldOutRejections, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ticket_sold_out_rejections_total",
		Description: "Total number of reservations rejected for insufficient inventory",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RefundsIssued, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "refunds_issued_total",
		Description: "Total number of refunds applied",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WebhooksReceived, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_webhooks_total",
		Description: "Total number of payment webhook events received",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WebhookDuplicates, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_webhook_duplicates_total",
		Description: "Total number of duplicate settlement signals ignored",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ErrorsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "engine_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CheckoutDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "checkout_duration_seconds",
		Description: "Duration of the checkout session build",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5})
	if err != nil {
		return err
	}

	SettlementDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "order_settlement_duration_seconds",
		Description: "Duration from order creation to settlement",
		Unit:        "s",
	}, []float64{1, 5, 10, 30, 60, 120, 300, 600, 900})
	if err != nil {
		return err
	}

	RequestDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "engine_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	if err != nil {
		return err
	}

	PendingOrders, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "orders_pending",
		Description: "Current number of pending orders",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordOrderCreated records a checkout session creation
func RecordOrderCreated(ctx context.Context, eventID string, quantity int, durationSeconds float64) {
	if OrdersCreated != nil {
		OrdersCreated.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Int("quantity", quantity),
		)
	}
	if CheckoutDuration != nil {
		CheckoutDuration.Record(ctx, durationSeconds,
			attribute.String("event_id", eventID),
		)
	}
	if PendingOrders != nil {
		PendingOrders.Inc(ctx)
	}
}

// RecordOrderCompleted records a successful settlement
func RecordOrderCompleted(ctx context.Context, eventID string, durationSeconds float64) {
	if OrdersCompleted != nil {
		OrdersCompleted.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if SettlementDuration != nil {
		SettlementDuration.Record(ctx, durationSeconds,
			attribute.String("event_id", eventID),
		)
	}
	if PendingOrders != nil {
		PendingOrders.Dec(ctx)
	}
}

// RecordOrderFailed records a failed settlement
func RecordOrderFailed(ctx context.Context, eventID, reason string) {
	if OrdersFailed != nil {
		OrdersFailed.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		)
	}
	if PendingOrders != nil {
		PendingOrders.Dec(ctx)
	}
}

// RecordOrderCancelled records an order cancellation
func RecordOrderCancelled(ctx context.Context, eventID string) {
	if OrdersCancelled != nil {
		OrdersCancelled.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if PendingOrders != nil {
		PendingOrders.Dec(ctx)
	}
}

// RecordExpiration records expired pending orders swept in one pass
func RecordExpiration(ctx context.Context, count int64) {
	if OrdersExpired != nil {
		OrdersExpired.Add(ctx, count)
	}
	if PendingOrders != nil {
		PendingOrders.Add(ctx, -count)
	}
}

// RecordReservation records tickets reserved for one cart line
func RecordReservation(ctx context.Context, ticketTypeID string, quantity int) {
	if TicketsReserved != nil {
		TicketsReserved.Add(ctx, int64(quantity),
			attribute.String("ticket_type_id", ticketTypeID),
		)
	}
}

// RecordRelease records a reservation release
func RecordRelease(ctx context.Context, reason string) {
	if ReservationsReleased != nil {
		ReservationsReleased.Inc(ctx,
			attribute.String("reason", reason),
		)
	}
}

// RecordSoldOut records a reservation rejected for insufficient inventory
func RecordSoldOut(ctx context.Context, ticketTypeID string) {
	if SoldOutRejections != nil {
		SoldOutRejections.Inc(ctx,
			attribute.String("ticket_type_id", ticketTypeID),
		)
	}
}

// RecordRefund records an applied refund
func RecordRefund(ctx context.Context, refundType string, amountCents int64) {
	if RefundsIssued != nil {
		RefundsIssued.Inc(ctx,
			attribute.String("type", refundType),
			attribute.Int64("amount_cents", amountCents),
		)
	}
}

// RecordWebhook records a received payment webhook event
func RecordWebhook(ctx context.Context, eventType string, duplicate bool) {
	if WebhooksReceived != nil {
		WebhooksReceived.Inc(ctx,
			attribute.String("event_type", eventType),
		)
	}
	if duplicate && WebhookDuplicates != nil {
		WebhookDuplicates.Inc(ctx,
			attribute.String("event_type", eventType),
		)
	}
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}

// RecordRequestDuration records HTTP request duration
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
}
