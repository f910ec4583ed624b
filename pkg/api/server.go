// Package api is the relay's HTTP surface: wallet sign-in, notification
// and messaging reads, preference and device-token writes, and the
// WebSocket upgrade for the live gateway.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	echo "github.com/labstack/echo/v5"
	"github.com/segmentio/kafka-go"

	"github.com/mysocial-labs/relay/pkg/encryption"
	"github.com/mysocial-labs/relay/pkg/live"
	"github.com/mysocial-labs/relay/pkg/models"
)

// Store is the persistence surface the API needs.
type Store interface {
	ListNotifications(ctx context.Context, user string, platformID *string, limit, offset int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID, user string) (platformID *string, alreadyRead bool, err error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, user string) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]models.Message, error)
	GetPreferences(ctx context.Context, user string) (*models.UserPreferences, error)
	UpsertPreferences(ctx context.Context, p *models.UserPreferences) error
	UpsertDeviceToken(ctx context.Context, t *models.DeviceToken) error
	ProfileExists(ctx context.Context, ownerAddress string) (bool, error)
}

// Cache is the Redis surface the API needs.
type Cache interface {
	Ping(ctx context.Context) error
	UnreadCount(ctx context.Context, user string) (int64, error)
	UnreadCountsByPlatform(ctx context.Context, user string) (map[string]int64, error)
	DecrementUnread(ctx context.Context, user string, platformID *string) error
}

// Publisher pushes events onto the event log.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Verifier checks a wallet signature over a signed-in message.
type Verifier interface {
	Verify(message []byte, signature, walletAddress string) error
}

// TokenService mints and validates bearer tokens.
type TokenService interface {
	Mint(userAddress string, now time.Time) (string, error)
	Parse(token string) (string, error)
}

// Deps collects everything the server needs. Fields left nil degrade
// gracefully where possible (health reports them) and are convenient
// for handler tests.
type Deps struct {
	Store     Store
	Cache     Cache
	Pool      *pgxpool.Pool
	Producer  Publisher
	Encryptor *encryption.Encryptor
	Verifier  Verifier
	Tokens    TokenService
	Gateway   *live.Gateway
	Brokers   []string
	Logger    *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	store     Store
	cache     Cache
	pool      *pgxpool.Pool
	producer  Publisher
	encryptor *encryption.Encryptor
	verifier  Verifier
	tokens    TokenService
	gateway   *live.Gateway
	brokers   []string
	logger    *slog.Logger
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     d.Store,
		cache:     d.Cache,
		pool:      d.Pool,
		producer:  d.Producer,
		encryptor: d.Encryptor,
		verifier:  d.Verifier,
		tokens:    d.Tokens,
		gateway:   d.Gateway,
		brokers:   d.Brokers,
		logger:    logger.With("component", "api"),
	}
}

// Echo builds the router with middleware and all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.Use(securityHeaders())
	e.Use(corsHeaders())

	e.GET("/health", s.healthHandler)
	e.GET("/ws", s.wsHandler)
	e.POST("/api/v1/auth/token", s.tokenHandler)

	g := e.Group("/api/v1")
	g.Use(s.bearerAuth())
	g.GET("/notifications", s.listNotificationsHandler)
	g.GET("/notifications/counts", s.notificationCountsHandler)
	g.POST("/notifications/:id/read", s.markNotificationReadHandler)
	g.GET("/messages", s.listMessagesHandler)
	g.POST("/messages", s.sendMessageHandler)
	g.GET("/conversations", s.listConversationsHandler)
	g.GET("/preferences", s.getPreferencesHandler)
	g.POST("/preferences", s.updatePreferencesHandler)
	g.POST("/device-tokens", s.registerDeviceTokenHandler)

	return e
}

// checkEventLog dials the first broker to verify the event log is
// reachable.
func (s *Server) checkEventLog(ctx context.Context) error {
	if len(s.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", s.brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	return conn.Close()
}

// userAddress returns the wallet address the auth middleware stored on
// the request context.
func userAddress(c *echo.Context) string {
	if v, ok := c.Get(contextKeyUser).(string); ok {
		return v
	}
	return ""
}
