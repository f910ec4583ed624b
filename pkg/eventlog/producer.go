package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const sendTimeout = 5 * time.Second

// Publisher is the producer surface workers and handlers depend on.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Producer is a keyed producer over the event log. Messages with the same
// key land on the same partition, which preserves per-entity ordering.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a producer against the given brokers. Writes wait
// for acknowledgement from all in-sync replicas.
func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            3,
			AllowAutoTopicCreation: true,
		},
		logger: logger.With("component", "producer"),
	}
}

// Publish sends one message. The send is bounded by a 5s timeout
// independent of the caller's context deadline.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := kafka.Message{Topic: topic, Value: value}
	if key != "" {
		msg.Key = []byte(key)
	}
	if err := p.writer.WriteMessages(sendCtx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishEnvelope routes the envelope by event type and sends it with its
// derived key.
func (p *Producer) PublishEnvelope(ctx context.Context, env *Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	topic := TopicForEventType(env.EventType)
	if topic == TopicUnknown {
		p.logger.Warn("routing event to unknown topic", "event_type", env.EventType)
	}
	return p.Publish(ctx, topic, env.Key(), data)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
