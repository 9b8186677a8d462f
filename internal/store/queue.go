package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fleetsync/internal/queue"
)

// LoadQueue returns the persisted mutation queue in insertion order.
//
// Read and parse failures degrade to an empty queue: the caller sees
// "nothing queued" rather than an error. Losing sight of the queue for one
// load is recoverable; crashing the sync path is not. Failures are logged.
func (s *Store) LoadQueue(ctx context.Context) []queue.QueueItem {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, entity_type, record_id, payload, retry_count,
		       status, error_message, depends_on, ref_field, created_at, updated_at
		FROM queue_items
		ORDER BY position ASC
	`)
	if err != nil {
		slog.Error("load queue failed, treating as empty", "error", err)
		return []queue.QueueItem{}
	}
	defer rows.Close()

	items := []queue.QueueItem{}
	for rows.Next() {
		var (
			item                 queue.QueueItem
			action, status       string
			payloadJSON          string
			createdMS, updatedMS int64
		)
		if err := rows.Scan(
			&item.ID, &action, &item.EntityType, &item.RecordID, &payloadJSON,
			&item.RetryCount, &status, &item.ErrorMessage, &item.DependsOn,
			&item.RefField, &createdMS, &updatedMS,
		); err != nil {
			slog.Error("scan queue item failed, treating queue as empty", "error", err)
			return []queue.QueueItem{}
		}

		payload, err := unmarshalFields(payloadJSON)
		if err != nil {
			slog.Error("parse queue payload failed, treating queue as empty",
				"queue_id", item.ID, "error", err)
			return []queue.QueueItem{}
		}

		item.Action = queue.Action(action)
		item.Status = queue.ItemStatus(status)
		item.Payload = payload
		item.CreatedAt = time.UnixMilli(createdMS)
		item.UpdatedAt = time.UnixMilli(updatedMS)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		slog.Error("iterate queue items failed, treating queue as empty", "error", err)
		return []queue.QueueItem{}
	}

	return items
}

// SaveQueue replaces the persisted queue with items, preserving slice order.
// The rewrite happens in a single transaction, so readers never observe a
// partial queue. Failures propagate: an unacknowledged queue write must not
// be reported as success.
func (s *Store) SaveQueue(ctx context.Context, items []queue.QueueItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save queue: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return fmt.Errorf("save queue: clear: %w", err)
	}

	for i, item := range items {
		payloadJSON, err := marshalFields(item.Payload)
		if err != nil {
			return fmt.Errorf("save queue: marshal payload for %s: %w", item.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO queue_items
			(position, id, action, entity_type, record_id, payload, retry_count,
			 status, error_message, depends_on, ref_field, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			i,
			item.ID,
			string(item.Action),
			item.EntityType,
			item.RecordID,
			payloadJSON,
			item.RetryCount,
			string(item.Status),
			item.ErrorMessage,
			item.DependsOn,
			item.RefField,
			item.CreatedAt.UnixMilli(),
			item.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("save queue: insert %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save queue: commit: %w", err)
	}

	return nil
}
