package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mysocial-labs/relay/pkg/models"
)

// GetPlatformDeliveryConfig loads a tenant's delivery credential
// overrides. ErrNotFound means the tenant has none and the global
// defaults apply.
func (s *Store) GetPlatformDeliveryConfig(ctx context.Context, platformID string) (*models.PlatformDeliveryConfig, error) {
	var c models.PlatformDeliveryConfig
	err := s.pool.QueryRow(ctx, `
		SELECT platform_id, apns_bundle_id, apns_key_id, apns_team_id, apns_key_content,
		       fcm_server_key, email_api_key, email_from, updated_at
		FROM platform_delivery_config
		WHERE platform_id = $1`, platformID).
		Scan(&c.PlatformID, &c.APNSBundleID, &c.APNSKeyID, &c.APNSTeamID, &c.APNSKeyContent,
			&c.FCMServerKey, &c.EmailAPIKey, &c.EmailFrom, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get platform delivery config: %w", err)
	}
	return &c, nil
}

// ProfileExists reports whether a profile row owns the given wallet
// address, compared case-insensitively.
func (s *Store) ProfileExists(ctx context.Context, ownerAddress string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM relay_profiles WHERE lower(owner_address) = lower($1)
		)`, ownerAddress).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check profile: %w", err)
	}
	return exists, nil
}
