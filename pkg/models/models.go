// Package models contains the relay's business domain types.
package models

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one row of the transactional outbox. Upstream services
// insert rows in the same transaction as their state change; the poller
// publishes them to the event log.
type OutboxEvent struct {
	ID             int64          `json:"id"`
	EventType      string         `json:"event_type"`
	EventData      map[string]any `json:"event_data"`
	EventID        *string        `json:"event_id,omitempty"`
	TransactionID  *string        `json:"transaction_id,omitempty"`
	RetryCount     int            `json:"retry_count"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	DeadLetteredAt *time.Time     `json:"dead_lettered_at,omitempty"`
}

// Notification is a persisted per-user notification.
type Notification struct {
	ID               uuid.UUID      `json:"id"`
	UserAddress      string         `json:"user_address"`
	PlatformID       *string        `json:"platform_id,omitempty"`
	EventID          *string        `json:"event_id,omitempty"`
	NotificationType string         `json:"notification_type"`
	Title            string         `json:"title"`
	Body             string         `json:"body"`
	EventData        map[string]any `json:"event_data,omitempty"`
	ReadAt           *time.Time     `json:"read_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Conversation is a two-party direct message thread. The id is the two
// participant addresses joined with ':' in lexicographic order.
type Conversation struct {
	ConversationID string     `json:"conversation_id"`
	ParticipantOne string     `json:"participant_one"`
	ParticipantTwo string     `json:"participant_two"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
}

// Message is a stored direct message. Content is the raw encrypted
// envelope (nonce || ciphertext || tag); handlers decrypt before
// returning it to clients.
type Message struct {
	ID               uuid.UUID `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	SenderAddress    string    `json:"sender_address"`
	RecipientAddress string    `json:"recipient_address"`
	Content          []byte    `json:"-"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserPreferences gates notification creation and delivery channels.
// NotificationTypes maps event types to an explicit enable/disable;
// absent entries default to enabled.
type UserPreferences struct {
	UserAddress       string          `json:"user_address"`
	PushEnabled       bool            `json:"push_enabled"`
	EmailEnabled      bool            `json:"email_enabled"`
	NotificationTypes map[string]bool `json:"notification_types,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DefaultPreferences is what a user without a stored row gets.
func DefaultPreferences(userAddress string) *UserPreferences {
	return &UserPreferences{
		UserAddress:  userAddress,
		PushEnabled:  true,
		EmailEnabled: true,
	}
}

// AllowsType reports whether notifications of the given event type should
// be created for this user. Unknown types are allowed.
func (p *UserPreferences) AllowsType(eventType string) bool {
	if p == nil || p.NotificationTypes == nil {
		return true
	}
	enabled, ok := p.NotificationTypes[eventType]
	if !ok {
		return true
	}
	return enabled
}

// DeviceToken is a registered push target.
type DeviceToken struct {
	ID          uuid.UUID `json:"id"`
	UserAddress string    `json:"user_address"`
	DeviceToken string    `json:"device_token"`
	Platform    string    `json:"platform"`
	AppVersion  *string   `json:"app_version,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// WSConnection tracks a live gateway session for observability.
type WSConnection struct {
	ConnectionID    uuid.UUID  `json:"connection_id"`
	UserAddress     string     `json:"user_address"`
	ConnectedAt     time.Time  `json:"connected_at"`
	LastHeartbeatAt time.Time  `json:"last_heartbeat_at"`
	DisconnectedAt  *time.Time `json:"disconnected_at,omitempty"`
}

// Profile is the on-chain profile mirror used to authorize wallets.
type Profile struct {
	ID           int64     `json:"id"`
	OwnerAddress string    `json:"owner_address"`
	Username     *string   `json:"username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlatformDeliveryConfig holds per-tenant delivery credential overrides.
// Every field is optional; nil falls back to the global config.
type PlatformDeliveryConfig struct {
	PlatformID     string    `json:"platform_id"`
	APNSBundleID   *string   `json:"apns_bundle_id,omitempty"`
	APNSKeyID      *string   `json:"apns_key_id,omitempty"`
	APNSTeamID     *string   `json:"apns_team_id,omitempty"`
	APNSKeyContent *string   `json:"apns_key_content,omitempty"`
	FCMServerKey   *string   `json:"fcm_server_key,omitempty"`
	EmailAPIKey    *string   `json:"email_api_key,omitempty"`
	EmailFrom      *string   `json:"email_from,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DeliveryJob is the payload published to notifications.delivery for the
// delivery worker, keyed by user address.
type DeliveryJob struct {
	UserAddress  string        `json:"user_address"`
	Notification *Notification `json:"notification"`
	PlatformID   *string       `json:"platform_id,omitempty"`
}
