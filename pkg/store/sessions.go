package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mysocial-labs/relay/pkg/models"
)

// InsertWSConnection records a new live gateway session.
func (s *Store) InsertWSConnection(ctx context.Context, c *models.WSConnection) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO relay_ws_connections (connection_id, user_address)
		VALUES ($1, $2)
		RETURNING connected_at, last_heartbeat_at`,
		c.ConnectionID, c.UserAddress).
		Scan(&c.ConnectedAt, &c.LastHeartbeatAt)
	if err != nil {
		return fmt.Errorf("insert ws connection: %w", err)
	}
	return nil
}

// TouchWSHeartbeat advances the session's heartbeat timestamp.
func (s *Store) TouchWSHeartbeat(ctx context.Context, connectionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE relay_ws_connections SET last_heartbeat_at = now()
		WHERE connection_id = $1`, connectionID)
	if err != nil {
		return fmt.Errorf("touch ws heartbeat: %w", err)
	}
	return nil
}

// MarkWSDisconnected closes out the session row.
func (s *Store) MarkWSDisconnected(ctx context.Context, connectionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE relay_ws_connections SET disconnected_at = now()
		WHERE connection_id = $1 AND disconnected_at IS NULL`, connectionID)
	if err != nil {
		return fmt.Errorf("mark ws disconnected: %w", err)
	}
	return nil
}
