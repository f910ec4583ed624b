package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-labs/relay/pkg/cache"
	"github.com/mysocial-labs/relay/pkg/encryption"
	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/models"
)

func TestConversationID(t *testing.T) {
	assert.Equal(t, "0xaaa:0xbbb", ConversationID("0xaaa", "0xbbb"))
	assert.Equal(t, "0xaaa:0xbbb", ConversationID("0xbbb", "0xaaa"))
	assert.Equal(t, "0xaaa:0xaaa", ConversationID("0xaaa", "0xaaa"))
}

func TestParticipants(t *testing.T) {
	p1, p2 := Participants("0xaaa:0xbbb")
	assert.Equal(t, "0xaaa", p1)
	assert.Equal(t, "0xbbb", p2)
}

type fakeMsgStore struct {
	conversations []*models.Conversation
	messages      []*models.Message
	touched       []string
	insertErr     error
}

func (f *fakeMsgStore) UpsertConversation(_ context.Context, c *models.Conversation) error {
	f.conversations = append(f.conversations, c)
	return nil
}

func (f *fakeMsgStore) InsertMessage(_ context.Context, m *models.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeMsgStore) TouchConversation(_ context.Context, conversationID string, _ time.Time) error {
	f.touched = append(f.touched, conversationID)
	return nil
}

func newMessagingTest(t *testing.T) (*Service, *fakeMsgStore, *encryption.Encryptor, *miniredis.Miniredis, *cache.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := cache.New(rdb)
	st := &fakeMsgStore{}
	enc := encryption.New("test-master-key")
	return NewService(st, c, enc, slog.Default()), st, enc, mr, c
}

func messageEvent(sender, recipient, content string) *eventlog.Envelope {
	return &eventlog.Envelope{
		EventType: "message.created",
		EventData: map[string]any{
			"sender_address":    sender,
			"recipient_address": recipient,
			"content":           content,
		},
	}
}

func TestHandleEventStoresEncryptedMessage(t *testing.T) {
	svc, st, enc, mr, c := newMessagingTest(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, messageEvent("0xbbb", "0xaaa", "hi there")))

	require.Len(t, st.conversations, 1)
	assert.Equal(t, "0xaaa:0xbbb", st.conversations[0].ConversationID)
	assert.Equal(t, "0xaaa", st.conversations[0].ParticipantOne)
	assert.Equal(t, "0xbbb", st.conversations[0].ParticipantTwo)

	require.Len(t, st.messages, 1)
	msg := st.messages[0]
	assert.Equal(t, "0xbbb", msg.SenderAddress)
	assert.Equal(t, "0xaaa", msg.RecipientAddress)
	assert.Equal(t, "text", msg.ContentType)
	assert.NotEqual(t, []byte("hi there"), msg.Content)

	plaintext, err := enc.Decrypt("0xaaa:0xbbb", msg.Content)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi there"), plaintext)

	assert.Equal(t, []string{"0xaaa:0xbbb"}, st.touched)

	t.Run("plaintext cached in chat history", func(t *testing.T) {
		items, err := mr.List("CHAT:0xaaa:0xbbb")
		require.NoError(t, err)
		require.Len(t, items, 1)

		var cached map[string]any
		require.NoError(t, json.Unmarshal([]byte(items[0]), &cached))
		assert.Equal(t, "0xbbb", cached["sender"])
		assert.Equal(t, "0xaaa", cached["recipient"])
		assert.Equal(t, "hi there", cached["content"])
	})

	t.Run("stream event reaches recipient", func(t *testing.T) {
		entries, err := c.ReadChatStream(ctx, "0xaaa", "0", 10*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		var event map[string]any
		require.NoError(t, json.Unmarshal(entries[0].Data, &event))
		assert.Equal(t, "message", event["type"])
		assert.Equal(t, "0xaaa:0xbbb", event["conversation_id"])
		assert.Equal(t, "hi there", event["content"])
	})
}

func TestHandleEventMissingFieldsIsPermanent(t *testing.T) {
	svc, st, _, _, _ := newMessagingTest(t)

	err := svc.HandleEvent(context.Background(), &eventlog.Envelope{
		EventType: "message.created",
		EventData: map[string]any{"sender_address": "0xaaa"},
	})
	require.Error(t, err)

	var perm *eventlog.PermanentError
	assert.True(t, errors.As(err, &perm))
	assert.Empty(t, st.messages)
}

func TestHandleEventStoreErrorIsTransient(t *testing.T) {
	svc, st, _, _, _ := newMessagingTest(t)
	st.insertErr = errors.New("deadlock detected")

	err := svc.HandleEvent(context.Background(), messageEvent("0xbbb", "0xaaa", "hi"))
	require.Error(t, err)

	var perm *eventlog.PermanentError
	assert.False(t, errors.As(err, &perm))
}
