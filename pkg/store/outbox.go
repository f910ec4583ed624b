package store

import (
	"context"
	"fmt"

	"github.com/mysocial-labs/relay/pkg/models"
)

// FetchPendingOutbox returns up to limit unprocessed outbox rows below
// the retry cap, oldest first. Dead-lettered rows are never picked.
func (s *Store) FetchPendingOutbox(ctx context.Context, limit, maxRetries int) ([]models.OutboxEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_type, event_data, event_id, transaction_id,
		       retry_count, error_message, created_at, processed_at, published_at
		FROM relay_outbox
		WHERE processed_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND retry_count < $2
		ORDER BY created_at ASC
		LIMIT $1`, limit, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox: %w", err)
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var e models.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.EventData, &e.EventID, &e.TransactionID,
			&e.RetryCount, &e.ErrorMessage, &e.CreatedAt, &e.ProcessedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkOutboxProcessed records a successful publish.
func (s *Store) MarkOutboxProcessed(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE relay_outbox
		SET processed_at = now(), published_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}

// MarkOutboxFailed increments the retry counter and stores the publish
// error. Rows reaching the cap are dead-lettered so operators can
// inspect them; they are excluded from future picks.
func (s *Store) MarkOutboxFailed(ctx context.Context, id int64, errMsg string, maxRetries int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE relay_outbox
		SET retry_count = retry_count + 1,
		    error_message = $2,
		    dead_lettered_at = CASE WHEN retry_count + 1 >= $3 THEN now() ELSE dead_lettered_at END
		WHERE id = $1`, id, errMsg, maxRetries)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}
