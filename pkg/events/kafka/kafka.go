// Package kafka publishes lifecycle events to a Kafka topic. Writes are
// asynchronous so event delivery never stalls sweeps or syncs; delivery
// failures are logged by the writer's completion callback and dropped.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/events"
)

// DefaultTopic is the topic events land on unless configured otherwise.
const DefaultTopic = "engram.events"

// Config holds broker connection settings.
type Config struct {
	Brokers []string
	Topic   string
}

// Sink writes events to Kafka, keyed by tenant so per-tenant ordering is
// preserved within a partition.
type Sink struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// New creates an async Kafka sink.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafkago.Hash{},
		Async:    true,
	}
	writer.Completion = func(messages []kafkago.Message, err error) {
		if err != nil {
			logger.Warn("dropping undeliverable events",
				zap.Int("count", len(messages)),
				zap.Error(err))
		}
	}

	return &Sink{writer: writer, logger: logger}, nil
}

func (s *Sink) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	return s.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.TenantID),
		Value: payload,
	})
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
