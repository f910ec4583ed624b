package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mysocial-labs/relay/pkg/config"
	"github.com/mysocial-labs/relay/pkg/eventlog"
	"github.com/mysocial-labs/relay/pkg/models"
	"github.com/mysocial-labs/relay/pkg/store"
)

// PushSender delivers to a device token.
type PushSender interface {
	Send(ctx context.Context, deviceToken string, n *models.Notification) error
}

// EmailSender delivers to a user address.
type EmailSender interface {
	Send(ctx context.Context, userAddress string, n *models.Notification) error
}

// channelSet holds the channels available under one credential set.
// Unconfigured channels are nil.
type channelSet struct {
	apns  PushSender
	fcm   PushSender
	email EmailSender
}

// Store is the persistence surface the delivery worker needs.
type Store interface {
	ListDeviceTokens(ctx context.Context, user string) ([]models.DeviceToken, error)
	GetPlatformDeliveryConfig(ctx context.Context, platformID string) (*models.PlatformDeliveryConfig, error)
	GetPreferences(ctx context.Context, user string) (*models.UserPreferences, error)
}

// Service dispatches delivery jobs to push and email channels. Channel
// failures are logged and swallowed: one dead channel must not block
// the others or the job.
type Service struct {
	store  Store
	global config.DeliveryConfig
	logger *slog.Logger

	build func(Credentials) *channelSet

	mu            sync.Mutex
	globalSet     *channelSet
	tenantClients map[string]*channelSet
}

func NewService(st Store, global config.DeliveryConfig, logger *slog.Logger) *Service {
	s := &Service{
		store:         st,
		global:        global,
		logger:        logger.With("component", "delivery"),
		tenantClients: make(map[string]*channelSet),
	}
	s.build = s.buildChannels
	return s
}

func (s *Service) buildChannels(creds Credentials) *channelSet {
	cs := &channelSet{}
	apns, err := NewAPNSClient(creds)
	if err != nil {
		s.logger.Warn("apns client unavailable", "error", err)
	} else if apns != nil {
		cs.apns = apns
	}
	if fcm := NewFCMClient(creds); fcm != nil {
		cs.fcm = fcm
	}
	if email := NewEmailClient(creds); email != nil {
		cs.email = email
	}
	return cs
}

// HandleJob is the consumer handler for notifications.delivery.
// Malformed jobs fail permanently; everything past parsing is
// best-effort.
func (s *Service) HandleJob(ctx context.Context, _ []byte, value []byte) error {
	var job models.DeliveryJob
	if err := json.Unmarshal(value, &job); err != nil {
		return eventlog.Permanent(fmt.Errorf("malformed delivery job: %w", err))
	}
	if job.UserAddress == "" || job.Notification == nil {
		return eventlog.Permanent(fmt.Errorf("delivery job missing user or notification"))
	}

	prefs := s.preferences(ctx, job.UserAddress)
	channels := s.channelsFor(ctx, job.PlatformID)

	if prefs.PushEnabled {
		s.pushToDevices(ctx, &job, channels)
	} else {
		s.logger.Debug("push disabled by preferences", "user", job.UserAddress)
	}

	if prefs.EmailEnabled && channels.email != nil {
		if err := channels.email.Send(ctx, job.UserAddress, job.Notification); err != nil {
			s.logger.Error("email delivery failed", "user", job.UserAddress, "error", err)
		}
	}
	return nil
}

func (s *Service) pushToDevices(ctx context.Context, job *models.DeliveryJob, channels *channelSet) {
	tokens, err := s.store.ListDeviceTokens(ctx, job.UserAddress)
	if err != nil {
		s.logger.Warn("device token lookup failed", "user", job.UserAddress, "error", err)
		return
	}

	for _, token := range tokens {
		switch token.Platform {
		case "ios":
			if channels.apns == nil {
				continue
			}
			if err := channels.apns.Send(ctx, token.DeviceToken, job.Notification); err != nil {
				s.logger.Error("apns delivery failed", "user", job.UserAddress, "error", err)
			}
		case "android":
			if channels.fcm == nil {
				continue
			}
			if err := channels.fcm.Send(ctx, token.DeviceToken, job.Notification); err != nil {
				s.logger.Error("fcm delivery failed", "user", job.UserAddress, "error", err)
			}
		default:
			s.logger.Debug("skipping unsupported device platform",
				"user", job.UserAddress, "platform", token.Platform)
		}
	}
}

// channelsFor returns the channel set for a tenant, falling back to the
// global set when the tenant has no overrides or the lookup fails.
// Tenant sets are cached per platform id.
func (s *Service) channelsFor(ctx context.Context, platformID *string) *channelSet {
	if platformID == nil || *platformID == "" {
		return s.globalChannels()
	}

	s.mu.Lock()
	if cs, ok := s.tenantClients[*platformID]; ok {
		s.mu.Unlock()
		return cs
	}
	s.mu.Unlock()

	override, err := s.store.GetPlatformDeliveryConfig(ctx, *platformID)
	if errors.Is(err, store.ErrNotFound) {
		return s.globalChannels()
	}
	if err != nil {
		s.logger.Warn("platform delivery config lookup failed, using global",
			"platform_id", *platformID, "error", err)
		return s.globalChannels()
	}

	cs := s.build(ResolveCredentials(s.global, override))
	s.mu.Lock()
	s.tenantClients[*platformID] = cs
	s.mu.Unlock()
	return cs
}

func (s *Service) globalChannels() *channelSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.globalSet == nil {
		s.globalSet = s.build(ResolveCredentials(s.global, nil))
	}
	return s.globalSet
}

func (s *Service) preferences(ctx context.Context, user string) *models.UserPreferences {
	prefs, err := s.store.GetPreferences(ctx, user)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultPreferences(user)
	}
	if err != nil {
		s.logger.Warn("preferences lookup failed, using defaults", "user", user, "error", err)
		return models.DefaultPreferences(user)
	}
	return prefs
}

// NewConsumer wires the service into a raw consumer on the delivery
// topic.
func NewConsumer(brokers []string, group string, svc *Service, logger *slog.Logger) *eventlog.Consumer {
	topics := []string{eventlog.TopicDelivery}
	return eventlog.NewRawConsumer(brokers, group, topics, svc.HandleJob, logger)
}
