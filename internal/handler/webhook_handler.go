package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/logger"
	pkgredis "github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/redis"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/retry"
)

// seenEventTTL bounds how long delivered webhook event IDs are remembered.
// Stripe retries for up to 3 days, so anything past that is a fresh event.
const seenEventTTL = 72 * time.Hour

// WebhookHandler handles payment gateway webhook events
type WebhookHandler struct {
	paymentService service.PaymentService
	webhookSecret  string
	redis          *pkgredis.Client
	dlqHandler     *retry.DLQHandler
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(paymentService service.PaymentService, webhookSecret string, redis *pkgredis.Client, dlqHandler *retry.DLQHandler) *WebhookHandler {
	if dlqHandler == nil {
		dlqHandler = retry.NewDLQHandler(retry.NewNoOpDLQPublisher(), nil)
	}
	return &WebhookHandler{
		paymentService: paymentService,
		webhookSecret:  webhookSecret,
		redis:          redis,
		dlqHandler:     dlqHandler,
	}
}

// HandleStripeWebhook handles incoming Stripe webhook events
// Settlement is idempotent end to end: repeat deliveries are dropped at
// the event-ID gate, and anything that slips through hits the order
// status CAS and becomes a no-op.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	log := logger.Get()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to read webhook body: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		log.Warn("Missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to verify webhook signature: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	ctx := c.Request.Context()

	if h.isDuplicateDelivery(ctx, event.ID) {
		log.Info(fmt.Sprintf("Duplicate webhook delivery %s (%s), ignoring", event.ID, event.Type))
		metrics.RecordWebhook(ctx, string(event.Type), true)
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	log.Info(fmt.Sprintf("Received Stripe webhook event: %s", event.Type))
	metrics.RecordWebhook(ctx, string(event.Type), false)

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentIntentSucceeded(c, event)
	case "payment_intent.payment_failed":
		h.handlePaymentIntentFailed(c, event)
	case "payment_intent.canceled":
		h.handlePaymentIntentCanceled(c, event)
	default:
		log.Info(fmt.Sprintf("Unhandled event type: %s", event.Type))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "Event type not handled"})
	}
}

// isDuplicateDelivery marks the event ID as seen and reports whether it
// already was. Fails open: if Redis is down the status CAS still
// guarantees exactly-once settlement.
func (h *WebhookHandler) isDuplicateDelivery(ctx context.Context, eventID string) bool {
	if h.redis == nil || eventID == "" {
		return false
	}
	key := "webhook:event:" + eventID
	set, err := h.redis.SetNX(ctx, key, 1, seenEventTTL).Result()
	if err != nil {
		return false
	}
	return !set
}

// handlePaymentIntentSucceeded handles successful payment
func (h *WebhookHandler) handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.succeeded: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	ctx := c.Request.Context()

	orderID := h.resolveOrderID(ctx, &paymentIntent)
	if orderID == "" {
		log.Warn(fmt.Sprintf("No order found for payment intent %s, acknowledging", paymentIntent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "No matching order"})
		return
	}

	log.Info(fmt.Sprintf("Payment succeeded: order_id=%s, intent=%s, amount=%d %s",
		orderID, paymentIntent.ID, paymentIntent.Amount, paymentIntent.Currency))

	err := h.processWithDLQ(ctx, event, orderID, func(ctx context.Context) error {
		return h.paymentService.HandlePaymentSucceeded(ctx, orderID, paymentIntent.ID)
	})
	if err != nil {
		log.Error(fmt.Sprintf("Failed to settle order %s: %v", orderID, err))
		// Still return 200: the event is preserved in the DLQ and Stripe
		// retrying would only hit the duplicate gate.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handlePaymentIntentFailed handles failed payment
func (h *WebhookHandler) handlePaymentIntentFailed(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.payment_failed: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	ctx := c.Request.Context()

	failureMessage := "payment failed"
	if paymentIntent.LastPaymentError != nil && paymentIntent.LastPaymentError.Msg != "" {
		failureMessage = paymentIntent.LastPaymentError.Msg
	}

	orderID := h.resolveOrderID(ctx, &paymentIntent)
	if orderID == "" {
		log.Warn(fmt.Sprintf("No order found for payment intent %s, acknowledging", paymentIntent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "No matching order"})
		return
	}

	log.Warn(fmt.Sprintf("Payment failed: order_id=%s, intent=%s, reason=%s",
		orderID, paymentIntent.ID, failureMessage))

	err := h.processWithDLQ(ctx, event, orderID, func(ctx context.Context) error {
		return h.paymentService.HandlePaymentFailed(ctx, orderID, failureMessage)
	})
	if err != nil {
		log.Error(fmt.Sprintf("Failed to mark order %s failed: %v", orderID, err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handlePaymentIntentCanceled handles canceled payment
func (h *WebhookHandler) handlePaymentIntentCanceled(c *gin.Context, event stripe.Event) {
	log := logger.Get()

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		log.Error(fmt.Sprintf("Failed to parse payment_intent.canceled: %v", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event data"})
		return
	}

	ctx := c.Request.Context()

	orderID := h.resolveOrderID(ctx, &paymentIntent)
	if orderID == "" {
		log.Warn(fmt.Sprintf("No order found for payment intent %s, acknowledging", paymentIntent.ID))
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "No matching order"})
		return
	}

	log.Info(fmt.Sprintf("Payment canceled: order_id=%s, intent=%s", orderID, paymentIntent.ID))

	err := h.processWithDLQ(ctx, event, orderID, func(ctx context.Context) error {
		return h.paymentService.HandlePaymentCancelled(ctx, orderID, "payment cancelled")
	})
	if err != nil {
		log.Error(fmt.Sprintf("Failed to mark order %s cancelled: %v", orderID, err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// resolveOrderID pulls the order ID from intent metadata, falling back
// to the stored intent mapping for events created outside this service
func (h *WebhookHandler) resolveOrderID(ctx context.Context, paymentIntent *stripe.PaymentIntent) string {
	if orderID := paymentIntent.Metadata["order_id"]; orderID != "" {
		return orderID
	}

	orderID, err := h.paymentService.FindOrderIDByIntent(ctx, paymentIntent.ID)
	if err != nil {
		return ""
	}
	return orderID
}

// processWithDLQ runs a settlement operation with retry; events that
// keep failing are parked on the dead letter topic for replay
func (h *WebhookHandler) processWithDLQ(ctx context.Context, event stripe.Event, orderID string, op retry.Operation) error {
	msgCtx := &retry.MessageContext{
		ID:      event.ID,
		Topic:   "stripe-webhooks",
		Key:     orderID,
		Payload: event.Data.Raw,
		Headers: map[string]string{
			"event_type": string(event.Type),
		},
		Metadata: map[string]interface{}{
			"order_id": orderID,
		},
	}
	return h.dlqHandler.ProcessWithDLQ(ctx, msgCtx, op)
}
