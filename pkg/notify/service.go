package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/models"
	"github.com/mysocial-labs/relay/pkg/store"
)

// Store is the persistence the notification worker needs.
type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) (bool, error)
	GetPreferences(ctx context.Context, user string) (*models.UserPreferences, error)
}

// Cache is the Redis surface the worker needs.
type Cache interface {
	IncrementUnread(ctx context.Context, user string, platformID *string) error
	PushInbox(ctx context.Context, user string, payload []byte) error
}

// Service processes one event into notifications: extract recipients,
// gate on preferences, persist, bump counters, and emit delivery jobs.
type Service struct {
	store     Store
	cache     Cache
	publisher eventlog.Publisher
	logger    *slog.Logger
}

func NewService(st Store, cache Cache, publisher eventlog.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     st,
		cache:     cache,
		publisher: publisher,
		logger:    logger.With("component", "notify"),
	}
}

// HandleEvent is the consumer handler. Database and publish errors are
// transient (the event is retried); redelivery is safe because inserts
// dedupe on (user, event id).
func (s *Service) HandleEvent(ctx context.Context, env *eventlog.Envelope) error {
	recipients := Recipients(env)
	if len(recipients) == 0 {
		return nil
	}

	for _, recipient := range recipients {
		if err := s.notify(ctx, env, recipient); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, env *eventlog.Envelope, recipient string) error {
	allowed, err := s.allowedByPreferences(ctx, recipient, env.EventType)
	if err != nil {
		return err
	}
	if !allowed {
		s.logger.Debug("notification suppressed by preferences",
			"user", recipient, "event_type", env.EventType)
		return nil
	}

	title, body := FormatNotification(env)
	var platformID *string
	if pid := env.StringField("platform_id"); pid != "" {
		platformID = &pid
	}

	notification := &models.Notification{
		UserAddress:      recipient,
		PlatformID:       platformID,
		EventID:          env.EventID,
		NotificationType: env.EventType,
		Title:            title,
		Body:             body,
		EventData:        env.EventData,
	}

	inserted, err := s.store.InsertNotification(ctx, notification)
	if err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	if !inserted {
		s.logger.Debug("duplicate event, notification already exists",
			"user", recipient, "event_id", env.EventID)
		return nil
	}

	// Cache updates are best-effort: the notification row is the source
	// of truth and counters self-correct as the user reads.
	if err := s.cache.IncrementUnread(ctx, recipient, platformID); err != nil {
		s.logger.Warn("unread counter update failed", "user", recipient, "error", err)
	}
	if rendered, err := json.Marshal(notification); err == nil {
		if err := s.cache.PushInbox(ctx, recipient, rendered); err != nil {
			s.logger.Warn("inbox push failed", "user", recipient, "error", err)
		}
	}

	job := &models.DeliveryJob{
		UserAddress:  recipient,
		Notification: notification,
		PlatformID:   platformID,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return eventlog.Permanent(fmt.Errorf("encode delivery job: %w", err))
	}
	if err := s.publisher.Publish(ctx, eventlog.TopicDelivery, recipient, payload); err != nil {
		return fmt.Errorf("publish delivery job: %w", err)
	}
	return nil
}

func (s *Service) allowedByPreferences(ctx context.Context, user, eventType string) (bool, error) {
	prefs, err := s.store.GetPreferences(ctx, user)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load preferences: %w", err)
	}
	return prefs.AllowsType(eventType), nil
}

// NewConsumer wires the service into a consumer over the notification
// topics.
func NewConsumer(brokers []string, group string, svc *Service, logger *slog.Logger) *eventlog.Consumer {
	return eventlog.NewConsumer(brokers, group, eventlog.NotifyTopics(), svc.HandleEvent, logger)
}
