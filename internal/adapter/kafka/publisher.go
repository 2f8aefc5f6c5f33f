package kafka

import (
	"context"
	"fmt"

	"usdt-custody/config"
	"usdt-custody/internal/core/domain"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher sends outbox events to a Kafka topic. It keys messages by
// aggregate ID so all events for one wallet land in the same partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka publisher for the configured topic.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafkago.LeastBytes{},
		},
	}
}

// Publish sends a single event.
func (p *Publisher) Publish(ctx context.Context, evt *domain.OutboxEvent) error {
	msg := kafkago.Message{
		Key:   []byte(evt.AggregateID.String()),
		Value: []byte(evt.Payload),
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "aggregate", Value: []byte(evt.Aggregate)},
		},
		Time: evt.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
