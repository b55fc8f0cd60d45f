package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/eshopd/ordering/internal/ordering/outbox"
)

// NextBatch returns unpublished outbox rows, oldest first.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]outbox.Row, error) {
	const q = `
		SELECT id, topic, payload, attempts, last_error, created_at
		FROM   outbox
		WHERE  published_at IS NULL
		ORDER  BY created_at, id
		LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Row
	for rows.Next() {
		var row outbox.Row
		var createdAt string
		if err := rows.Scan(&row.ID, &row.Topic, &row.Payload, &row.Attempts, &row.LastError, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan outbox row: %w", err)
		}
		if row.CreatedAt, err = parseRFC3339(createdAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps a row after broker acknowledgment. Rows are kept for
// audit; a retention sweep can prune them out of band.
func (s *Store) MarkPublished(ctx context.Context, id string) error {
	const q = `UPDATE outbox SET published_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, formatRFC3339(time.Now()), id); err != nil {
		return fmt.Errorf("sqlite: mark outbox row %q published: %w", id, err)
	}
	return nil
}

// MarkFailed records a publish failure for observability and backoff.
func (s *Store) MarkFailed(ctx context.Context, id string, cause string) error {
	const q = `UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, cause, id); err != nil {
		return fmt.Errorf("sqlite: mark outbox row %q failed: %w", id, err)
	}
	return nil
}

var _ outbox.Store = (*Store)(nil)
