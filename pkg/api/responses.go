package api

import (
	"time"

	"github.com/google/uuid"
)

// HealthCheck is one component's status inside HealthResponse.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}

// AuthTokenResponse is the body of POST /api/v1/auth/token.
type AuthTokenResponse struct {
	Token       string `json:"token"`
	UserAddress string `json:"user_address"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NotificationCountsResponse is the body of GET /api/v1/notifications/counts.
type NotificationCountsResponse struct {
	Total     int64            `json:"total"`
	Platforms map[string]int64 `json:"platforms"`
}

// StatusResponse is a minimal acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// SendMessageResponse is the body of POST /api/v1/messages.
type SendMessageResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id"`
}

// MessageResponse is one decrypted message in GET /api/v1/messages.
type MessageResponse struct {
	ID               uuid.UUID `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	SenderAddress    string    `json:"sender_address"`
	RecipientAddress string    `json:"recipient_address"`
	Content          string    `json:"content"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
	Error            string    `json:"error,omitempty"`
}

// ConversationResponse is one entry in GET /api/v1/conversations.
type ConversationResponse struct {
	ConversationID   string     `json:"conversation_id"`
	OtherParticipant string     `json:"other_participant"`
	CreatedAt        time.Time  `json:"created_at"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
}
