package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-labs/relay/pkg/models"
)

type fakeSource struct {
	pending   []models.OutboxEvent
	fetchErr  error
	processed []int64
	failed    []int64
	failMsgs  []string
}

func (f *fakeSource) FetchPendingOutbox(_ context.Context, limit, maxRetries int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeSource) MarkOutboxProcessed(_ context.Context, id int64) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeSource) MarkOutboxFailed(_ context.Context, id int64, errMsg string, _ int) error {
	f.failed = append(f.failed, id)
	f.failMsgs = append(f.failMsgs, errMsg)
	return nil
}

type fakePublisher struct {
	published []publishedMsg
	failTopic string
}

type publishedMsg struct {
	topic string
	key   string
	value []byte
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	if topic == f.failTopic {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, publishedMsg{topic, key, value})
	return nil
}

func testEvent(id int64, eventType string, eventID *string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:        id,
		EventType: eventType,
		EventData: map[string]any{"post_owner": "0xabc"},
		EventID:   eventID,
		CreatedAt: time.Now(),
	}
}

func strPtr(s string) *string { return &s }

func TestTickPublishesAndMarks(t *testing.T) {
	src := &fakeSource{pending: []models.OutboxEvent{
		testEvent(1, "reaction.created", strPtr("evt-1")),
		testEvent(2, "tip.created", strPtr("evt-2")),
	}}
	pub := &fakePublisher{}
	p := NewPoller(src, pub, slog.Default())

	require.NoError(t, p.Tick(context.Background()))

	require.Len(t, pub.published, 2)
	assert.Equal(t, "events.post.reaction", pub.published[0].topic)
	assert.Equal(t, "evt-1", pub.published[0].key)
	assert.Equal(t, "events.post.tip", pub.published[1].topic)
	assert.Equal(t, []int64{1, 2}, src.processed)
	assert.Empty(t, src.failed)
}

func TestTickFailureOnlyAffectsItsRow(t *testing.T) {
	src := &fakeSource{pending: []models.OutboxEvent{
		testEvent(1, "tip.created", strPtr("evt-1")),
		testEvent(2, "reaction.created", strPtr("evt-2")),
		testEvent(3, "tip.created", strPtr("evt-3")),
	}}
	pub := &fakePublisher{failTopic: "events.post.tip"}
	p := NewPoller(src, pub, slog.Default())

	require.NoError(t, p.Tick(context.Background()))

	assert.Equal(t, []int64{2}, src.processed)
	assert.Equal(t, []int64{1, 3}, src.failed)
	require.Len(t, src.failMsgs, 2)
	assert.Contains(t, src.failMsgs[0], "broker unavailable")
}

func TestTickFetchErrorAborts(t *testing.T) {
	src := &fakeSource{fetchErr: errors.New("connection refused")}
	p := NewPoller(src, &fakePublisher{}, slog.Default())

	err := p.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch batch")
}

func TestTickEmptyBatchIsNoop(t *testing.T) {
	src := &fakeSource{}
	pub := &fakePublisher{}
	p := NewPoller(src, pub, slog.Default())

	require.NoError(t, p.Tick(context.Background()))
	assert.Empty(t, pub.published)
}

func TestStartStop(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src, &fakePublisher{}, slog.Default())

	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent
}
