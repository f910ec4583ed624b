package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mysocial-labs/relay/pkg/models"
)

// UpsertConversation creates the conversation if it does not exist.
func (s *Store) UpsertConversation(ctx context.Context, c *models.Conversation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_conversations (conversation_id, participant_one, participant_two)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO NOTHING`,
		c.ConversationID, c.ParticipantOne, c.ParticipantTwo)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// GetConversation loads one conversation.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT conversation_id, participant_one, participant_two, created_at, last_message_at
		FROM relay_conversations
		WHERE conversation_id = $1`, conversationID).
		Scan(&c.ConversationID, &c.ParticipantOne, &c.ParticipantTwo, &c.CreatedAt, &c.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns a user's conversations, most recently active
// first.
func (s *Store) ListConversations(ctx context.Context, user string) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, participant_one, participant_two, created_at, last_message_at
		FROM relay_conversations
		WHERE participant_one = $1 OR participant_two = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, user)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ConversationID, &c.ParticipantOne, &c.ParticipantTwo, &c.CreatedAt, &c.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// TouchConversation advances last_message_at.
func (s *Store) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE relay_conversations SET last_message_at = $2 WHERE conversation_id = $1`,
		conversationID, at)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// InsertMessage stores an encrypted message.
func (s *Store) InsertMessage(ctx context.Context, m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ContentType == "" {
		m.ContentType = "text"
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO relay_messages (id, conversation_id, sender_address, recipient_address, content, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		m.ID, m.ConversationID, m.SenderAddress, m.RecipientAddress, m.Content, m.ContentType).
		Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_address, recipient_address, content, content_type, created_at
		FROM relay_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderAddress, &m.RecipientAddress,
			&m.Content, &m.ContentType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
