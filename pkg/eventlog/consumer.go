package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	maxBackoff      = 30 * time.Second
	logThrottleSpan = 30 * time.Second
)

// HandlerFunc processes one decoded envelope. Returning nil commits the
// message. A transient error leaves the message uncommitted and retries
// it with backoff; wrap with Permanent to commit anyway.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// RawHandlerFunc processes one raw message for topics that do not carry
// envelopes (delivery jobs).
type RawHandlerFunc func(ctx context.Context, key, value []byte) error

// PermanentError marks a handler failure that retrying cannot fix. The
// consumer logs it and commits the message.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the consumer acks instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Consumer is a consumer-group reader with explicit commits. Offsets
// only advance after the handler succeeds (or fails permanently), so
// crashes redeliver rather than drop.
type Consumer struct {
	reader  *kafka.Reader
	handler RawHandlerFunc
	logger  *slog.Logger

	lastErrLog time.Time
}

// NewConsumer creates a group consumer that decodes envelopes before
// handing them to the handler. Malformed envelopes are logged and
// committed. New groups start from the earliest retained offset.
func NewConsumer(brokers []string, group string, topics []string, handler HandlerFunc, logger *slog.Logger) *Consumer {
	raw := func(ctx context.Context, _ []byte, value []byte) error {
		env, err := DecodeEnvelope(value)
		if err != nil {
			return Permanent(fmt.Errorf("malformed envelope: %w", err))
		}
		return handler(ctx, env)
	}
	return NewRawConsumer(brokers, group, topics, raw, logger)
}

// NewRawConsumer creates a group consumer that hands raw key/value pairs
// to the handler.
func NewRawConsumer(brokers []string, group string, topics []string, handler RawHandlerFunc, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     group,
			GroupTopics: topics,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		}),
		handler: handler,
		logger:  logger.With("component", "consumer", "group", group),
	}
}

// Run consumes until ctx is cancelled. Receive errors back off
// exponentially (1s, 2s, 4s... capped at 30s) with throttled logging so
// a broker outage does not flood the logs.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	recvErrors := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logThrottled("receive failed", err, recvErrors)
			if !sleepCtx(ctx, backoffDelay(recvErrors)) {
				return nil
			}
			recvErrors++
			continue
		}
		recvErrors = 0

		if !c.process(ctx, msg) {
			return nil
		}
	}
}

// process runs the handler with retry until success, permanent failure,
// or shutdown. Returns false when ctx was cancelled.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	attempt := 0
	for {
		err := c.handler(ctx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			c.logger.Error("handler failed permanently",
				"topic", msg.Topic, "offset", msg.Offset, "error", perm.Err)
			break
		}
		c.logThrottled("handler failed, retrying", err, attempt)
		if !sleepCtx(ctx, backoffDelay(attempt)) {
			return false
		}
		attempt++
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Error("commit failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
	}
	return ctx.Err() == nil
}

func (c *Consumer) logThrottled(msg string, err error, count int) {
	if time.Since(c.lastErrLog) < logThrottleSpan {
		return
	}
	c.lastErrLog = time.Now()
	c.logger.Error(msg, "error", err, "consecutive_errors", count+1)
}

// backoffDelay returns 1s << min(n, 5), capped at 30s.
func backoffDelay(n int) time.Duration {
	if n > 5 {
		n = 5
	}
	d := time.Second << n
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleepCtx sleeps for d, returning false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
