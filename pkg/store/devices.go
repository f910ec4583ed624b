package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mysocial-labs/relay/pkg/models"
)

// UpsertDeviceToken registers a push target. Re-registering the same
// token refreshes platform, app version, and last_used_at.
func (s *Store) UpsertDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_device_tokens (id, user_address, device_token, platform, app_version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_address, device_token) DO UPDATE SET
			platform = EXCLUDED.platform,
			app_version = EXCLUDED.app_version,
			last_used_at = now()`,
		t.ID, t.UserAddress, t.DeviceToken, t.Platform, t.AppVersion)
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// ListDeviceTokens returns a user's registered push targets.
func (s *Store) ListDeviceTokens(ctx context.Context, user string) ([]models.DeviceToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_address, device_token, platform, app_version, created_at, last_used_at
		FROM relay_device_tokens
		WHERE user_address = $1
		ORDER BY last_used_at DESC`, user)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.DeviceToken
	for rows.Next() {
		var t models.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserAddress, &t.DeviceToken, &t.Platform, &t.AppVersion,
			&t.CreatedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
