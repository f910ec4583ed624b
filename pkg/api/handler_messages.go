package api

import (
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/messaging"
)

const defaultMessageLimit = 50

// listMessagesHandler handles GET /api/v1/messages?conversation_id=.
// Only a participant may read a conversation; content is decrypted
// before returning.
func (s *Server) listMessagesHandler(c *echo.Context) error {
	conversationID := c.QueryParam("conversation_id")
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversation_id is required")
	}
	limit, offset, err := pageParams(c, defaultMessageLimit)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return mapStoreError(err)
	}

	user := userAddress(c)
	if !strings.EqualFold(user, conv.ParticipantOne) && !strings.EqualFold(user, conv.ParticipantTwo) {
		return echo.NewHTTPError(http.StatusForbidden, "not a participant in this conversation")
	}

	messages, err := s.store.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return mapStoreError(err)
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp := MessageResponse{
			ID:               m.ID,
			ConversationID:   m.ConversationID,
			SenderAddress:    m.SenderAddress,
			RecipientAddress: m.RecipientAddress,
			ContentType:      m.ContentType,
			CreatedAt:        m.CreatedAt,
		}
		plaintext, err := s.encryptor.Decrypt(conversationID, m.Content)
		if err != nil {
			// A corrupted row stays visible in the listing rather than
			// silently vanishing.
			s.logger.Error("message decrypt failed", "message_id", m.ID, "error", err)
			resp.Error = "content unavailable"
		} else {
			resp.Content = string(plaintext)
		}
		out = append(out, resp)
	}
	return c.JSON(http.StatusOK, out)
}

// sendMessageHandler handles POST /api/v1/messages. The message is not
// persisted here: it goes onto the event log keyed by the sender, and
// the messaging worker owns persistence.
func (s *Server) sendMessageHandler(c *echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RecipientAddress == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient_address and content are required")
	}

	sender := userAddress(c)
	env := &eventlog.Envelope{
		EventType: "message.created",
		EventData: map[string]any{
			"sender_address":    sender,
			"recipient_address": req.RecipientAddress,
			"content":           req.Content,
		},
		Timestamp: time.Now().UTC(),
	}
	value, err := env.Encode()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	topic := eventlog.TopicForEventType(env.EventType)
	if err := s.producer.Publish(c.Request().Context(), topic, sender, value); err != nil {
		s.logger.Error("message publish failed", "sender", sender, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to publish message")
	}

	return c.JSON(http.StatusOK, &SendMessageResponse{
		Status:         "ok",
		ConversationID: messaging.ConversationID(sender, req.RecipientAddress),
	})
}

// listConversationsHandler handles GET /api/v1/conversations.
func (s *Server) listConversationsHandler(c *echo.Context) error {
	user := userAddress(c)
	conversations, err := s.store.ListConversations(c.Request().Context(), user)
	if err != nil {
		return mapStoreError(err)
	}

	out := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		other := conv.ParticipantOne
		if strings.EqualFold(user, conv.ParticipantOne) {
			other = conv.ParticipantTwo
		}
		out = append(out, ConversationResponse{
			ConversationID:   conv.ConversationID,
			OtherParticipant: other,
			CreatedAt:        conv.CreatedAt,
			LastMessageAt:    conv.LastMessageAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
