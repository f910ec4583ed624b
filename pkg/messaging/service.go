// Package messaging persists direct messages: canonical conversations,
// encrypted storage, recent-history caching, and the live stream feed.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mysocial-labs/relay/pkg/encryption"
	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/models"
)

// ConversationID returns the canonical id for a participant pair: both
// addresses joined with ':' in lexicographic order, so either side of
// the conversation derives the same id.
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Participants splits a canonical conversation id back into its two
// addresses.
func Participants(conversationID string) (string, string) {
	for i := 0; i < len(conversationID); i++ {
		if conversationID[i] == ':' {
			return conversationID[:i], conversationID[i+1:]
		}
	}
	return conversationID, ""
}

// Store is the persistence surface the messaging worker needs.
type Store interface {
	UpsertConversation(ctx context.Context, c *models.Conversation) error
	InsertMessage(ctx context.Context, m *models.Message) error
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error
}

// Cache is the Redis surface the messaging worker needs.
type Cache interface {
	PushChatHistory(ctx context.Context, conversationID string, payload []byte) error
	AppendChatStream(ctx context.Context, user string, payload []byte) error
}

// Service handles message.created events.
type Service struct {
	store     Store
	cache     Cache
	encryptor *encryption.Encryptor
	logger    *slog.Logger
}

func NewService(st Store, cache Cache, encryptor *encryption.Encryptor, logger *slog.Logger) *Service {
	return &Service{
		store:     st,
		cache:     cache,
		encryptor: encryptor,
		logger:    logger.With("component", "messaging"),
	}
}

// cachedMessage is the plaintext shape cached in CHAT:{conversation_id}.
type cachedMessage struct {
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// streamEvent is the shape appended to STREAM:CHAT:{recipient} for the
// live gateway.
type streamEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// HandleEvent is the consumer handler for events.message.created.
// Envelopes missing sender, recipient, or content are malformed and
// fail permanently; storage errors are transient and retried.
func (s *Service) HandleEvent(ctx context.Context, env *eventlog.Envelope) error {
	sender := env.StringField("sender_address")
	recipient := env.StringField("recipient_address")
	content := env.StringField("content")
	if sender == "" || recipient == "" || content == "" {
		return eventlog.Permanent(fmt.Errorf("message event missing sender, recipient, or content"))
	}

	conversationID := ConversationID(sender, recipient)
	p1, p2 := Participants(conversationID)
	if err := s.store.UpsertConversation(ctx, &models.Conversation{
		ConversationID: conversationID,
		ParticipantOne: p1,
		ParticipantTwo: p2,
	}); err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}

	sealed, err := s.encryptor.Encrypt(conversationID, []byte(content))
	if err != nil {
		return eventlog.Permanent(fmt.Errorf("encrypt message: %w", err))
	}

	msg := &models.Message{
		ConversationID:   conversationID,
		SenderAddress:    sender,
		RecipientAddress: recipient,
		Content:          sealed,
		ContentType:      "text",
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	// Redis is best-effort: the encrypted row is canonical, the cache
	// and stream only speed up reads and live delivery.
	cached, err := json.Marshal(cachedMessage{
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		CreatedAt: msg.CreatedAt,
	})
	if err == nil {
		if err := s.cache.PushChatHistory(ctx, conversationID, cached); err != nil {
			s.logger.Warn("chat history cache failed", "conversation_id", conversationID, "error", err)
		}
	}

	event, err := json.Marshal(streamEvent{
		Type:           "message",
		ConversationID: conversationID,
		Content:        content,
	})
	if err == nil {
		if err := s.cache.AppendChatStream(ctx, recipient, event); err != nil {
			s.logger.Warn("chat stream append failed", "recipient", recipient, "error", err)
		}
	}

	return nil
}

// NewConsumer wires the service into a consumer on the message topic.
func NewConsumer(brokers []string, group string, svc *Service, logger *slog.Logger) *eventlog.Consumer {
	topics := []string{eventlog.TopicMessageCreated}
	return eventlog.NewConsumer(brokers, group, topics, svc.HandleEvent, logger)
}
