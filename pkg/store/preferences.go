package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mysocial-labs/relay/pkg/models"
)

// GetPreferences loads a user's notification preferences. ErrNotFound
// means no row; callers fall back to defaults.
func (s *Store) GetPreferences(ctx context.Context, user string) (*models.UserPreferences, error) {
	var p models.UserPreferences
	err := s.pool.QueryRow(ctx, `
		SELECT user_address, push_enabled, email_enabled, notification_types, updated_at
		FROM relay_user_preferences
		WHERE user_address = $1`, user).
		Scan(&p.UserAddress, &p.PushEnabled, &p.EmailEnabled, &p.NotificationTypes, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &p, nil
}

// UpsertPreferences stores a full preference row for the user.
func (s *Store) UpsertPreferences(ctx context.Context, p *models.UserPreferences) error {
	if p.NotificationTypes == nil {
		p.NotificationTypes = map[string]bool{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_user_preferences (user_address, push_enabled, email_enabled, notification_types, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_address) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			email_enabled = EXCLUDED.email_enabled,
			notification_types = EXCLUDED.notification_types,
			updated_at = now()`,
		p.UserAddress, p.PushEnabled, p.EmailEnabled, p.NotificationTypes)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
