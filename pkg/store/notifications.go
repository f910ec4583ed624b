package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mysocial-labs/relay/pkg/models"
)

// InsertNotification persists a notification. Returns false without
// error when a notification for the same (user, event) already exists,
// which makes event redelivery a no-op.
func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO relay_notifications
			(id, user_address, platform_id, event_id, notification_type, title, body, event_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_address, event_id) WHERE event_id IS NOT NULL DO NOTHING`,
		n.ID, n.UserAddress, n.PlatformID, n.EventID, n.NotificationType, n.Title, n.Body, n.EventData)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListNotifications returns the user's notifications, newest first,
// optionally scoped to a platform.
func (s *Store) ListNotifications(ctx context.Context, user string, platformID *string, limit, offset int) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_address, platform_id, event_id, notification_type,
		       title, body, event_data, read_at, created_at
		FROM relay_notifications
		WHERE user_address = $1
		  AND ($2::text IS NULL OR platform_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, user, platformID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserAddress, &n.PlatformID, &n.EventID, &n.NotificationType,
			&n.Title, &n.Body, &n.EventData, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks the user's notification read. Returns the
// notification's platform id and whether it was already read. A
// notification belonging to another user reads as not found.
func (s *Store) MarkNotificationRead(ctx context.Context, id uuid.UUID, user string) (platformID *string, alreadyRead bool, err error) {
	err = s.pool.QueryRow(ctx, `
		UPDATE relay_notifications
		SET read_at = now()
		WHERE id = $1 AND user_address = $2 AND read_at IS NULL
		RETURNING platform_id`, id, user).Scan(&platformID)
	if err == nil {
		return platformID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("mark notification read: %w", err)
	}

	// No unread row: distinguish already-read from missing/foreign.
	err = s.pool.QueryRow(ctx, `
		SELECT platform_id FROM relay_notifications
		WHERE id = $1 AND user_address = $2 AND read_at IS NOT NULL`, id, user).Scan(&platformID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("check notification read state: %w", err)
	}
	return platformID, true, nil
}
