package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/kafka"
)

// EventPublisher defines the interface for publishing order lifecycle
// events. Delivery is at-least-once; publish failures never roll back the
// order state that triggered them.
type EventPublisher interface {
	// PublishOrderCreated publishes an order created event
	PublishOrderCreated(ctx context.Context, order *domain.Order) error

	// PublishOrderCompleted publishes an order completed event with its
	// issued tickets
	PublishOrderCompleted(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error

	// PublishOrderFailed publishes an order failed event
	PublishOrderFailed(ctx context.Context, order *domain.Order) error

	// PublishOrderCancelled publishes an order cancelled event
	PublishOrderCancelled(ctx context.Context, order *domain.Order) error

	// PublishOrderExpired publishes an order expired event
	PublishOrderExpired(ctx context.Context, order *domain.Order) error

	// PublishRefundIssued publishes a refund issued event
	PublishRefundIssued(ctx context.Context, order *domain.Order, refund *domain.RefundRecord) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "order-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "order-engine"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "order-engine-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.Config{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishOrderCreated publishes an order created event
func (p *KafkaEventPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	return p.publishEvent(ctx, domain.NewOrderEvent(domain.OrderEventCreated, order, uuid.New().String()))
}

// PublishOrderCompleted publishes an order completed event
func (p *KafkaEventPublisher) PublishOrderCompleted(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error {
	event := domain.NewOrderEvent(domain.OrderEventCompleted, order, uuid.New().String())
	event.Tickets = tickets
	return p.publishEvent(ctx, event)
}

// PublishOrderFailed publishes an order failed event
func (p *KafkaEventPublisher) PublishOrderFailed(ctx context.Context, order *domain.Order) error {
	return p.publishEvent(ctx, domain.NewOrderEvent(domain.OrderEventFailed, order, uuid.New().String()))
}

// PublishOrderCancelled publishes an order cancelled event
func (p *KafkaEventPublisher) PublishOrderCancelled(ctx context.Context, order *domain.Order) error {
	return p.publishEvent(ctx, domain.NewOrderEvent(domain.OrderEventCancelled, order, uuid.New().String()))
}

// PublishOrderExpired publishes an order expired event
func (p *KafkaEventPublisher) PublishOrderExpired(ctx context.Context, order *domain.Order) error {
	return p.publishEvent(ctx, domain.NewOrderEvent(domain.OrderEventExpired, order, uuid.New().String()))
}

// PublishRefundIssued publishes a refund issued event
func (p *KafkaEventPublisher) PublishRefundIssued(ctx context.Context, order *domain.Order, refund *domain.RefundRecord) error {
	event := domain.NewOrderEvent(domain.OrderEventRefunded, order, uuid.New().String())
	event.Refund = refund
	return p.publishEvent(ctx, event)
}

// Producer exposes the underlying Kafka producer so other components
// (the webhook DLQ) can share the connection
func (p *KafkaEventPublisher) Producer() *kafka.Producer {
	return p.producer
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, event *domain.OrderEvent) error {
	headers := map[string]string{
		"event_type":   string(event.Type),
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	if err := p.producer.ProduceJSON(ctx, p.topic, event.Key(), event, headers); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishOrderCreated is a no-op
func (p *NoOpEventPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	return nil
}

// PublishOrderCompleted is a no-op
func (p *NoOpEventPublisher) PublishOrderCompleted(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error {
	return nil
}

// PublishOrderFailed is a no-op
func (p *NoOpEventPublisher) PublishOrderFailed(ctx context.Context, order *domain.Order) error {
	return nil
}

// PublishOrderCancelled is a no-op
func (p *NoOpEventPublisher) PublishOrderCancelled(ctx context.Context, order *domain.Order) error {
	return nil
}

// PublishOrderExpired is a no-op
func (p *NoOpEventPublisher) PublishOrderExpired(ctx context.Context, order *domain.Order) error {
	return nil
}

// PublishRefundIssued is a no-op
func (p *NoOpEventPublisher) PublishRefundIssued(ctx context.Context, order *domain.Order, refund *domain.RefundRecord) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
