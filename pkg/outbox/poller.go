// Package outbox publishes transactional outbox rows to the event log.
// Upstream services write rows atomically with their own state changes;
// the poller drains them so events are never lost between the database
// commit and the log.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/models"
)

const (
	pollInterval = 150 * time.Millisecond
	errorBackoff = time.Second
	batchSize    = 100
	maxRetries   = 3
)

// Source is the outbox storage the poller drains.
type Source interface {
	FetchPendingOutbox(ctx context.Context, limit, maxRetries int) ([]models.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error
}

// Poller drains the outbox on a fixed interval.
type Poller struct {
	source    Source
	publisher eventlog.Publisher
	logger    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoller(source Source, publisher eventlog.Publisher, logger *slog.Logger) *Poller {
	return &Poller{
		source:    source,
		publisher: publisher,
		logger:    logger.With("component", "outbox"),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop signals the poller to stop and waits for the in-flight tick to
// finish. Safe to call multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	p.logger.Info("outbox poller started", "poll_interval", pollInterval, "batch_size", batchSize)
	for {
		select {
		case <-p.stopCh:
			p.logger.Info("outbox poller shutting down")
			return
		case <-ctx.Done():
			return
		default:
			if err := p.Tick(ctx); err != nil {
				p.logger.Error("outbox tick failed", "error", err)
				p.sleep(errorBackoff)
				continue
			}
			p.sleep(pollInterval)
		}
	}
}

func (p *Poller) sleep(d time.Duration) {
	select {
	case <-p.stopCh:
	case <-time.After(d):
	}
}

// Tick processes one batch. Rows are attempted in creation order; a
// publish failure only affects its own row. A fetch error aborts the
// tick so a sick database gets the longer backoff.
func (p *Poller) Tick(ctx context.Context) error {
	events, err := p.source.FetchPendingOutbox(ctx, batchSize, maxRetries)
	if err != nil {
		return fmt.Errorf("fetch batch: %w", err)
	}

	for i := range events {
		event := &events[i]
		if err := p.publish(ctx, event); err != nil {
			p.logger.Warn("outbox publish failed",
				"outbox_id", event.ID, "event_type", event.EventType,
				"retry_count", event.RetryCount, "error", err)
			if event.RetryCount+1 >= maxRetries {
				p.logger.Error("outbox row dead-lettered",
					"outbox_id", event.ID, "event_type", event.EventType)
			}
			if markErr := p.source.MarkOutboxFailed(ctx, event.ID, err.Error(), maxRetries); markErr != nil {
				return fmt.Errorf("mark failed: %w", markErr)
			}
			continue
		}
		if err := p.source.MarkOutboxProcessed(ctx, event.ID); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
	}
	return nil
}

func (p *Poller) publish(ctx context.Context, event *models.OutboxEvent) error {
	env := &eventlog.Envelope{
		EventType:     event.EventType,
		EventData:     event.EventData,
		EventID:       event.EventID,
		TransactionID: event.TransactionID,
		Timestamp:     event.CreatedAt,
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return p.publisher.Publish(ctx, eventlog.TopicForEventType(event.EventType), env.Key(), data)
}
