package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fleetsync/internal/queue"
)

// LoadEntities returns the persisted local mirror in insertion order.
// Same degrade-to-empty contract as LoadQueue.
func (s *Store) LoadEntities(ctx context.Context) []queue.LocalEntity {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, fields, server_id, synced, created_at, updated_at
		FROM local_entities
		ORDER BY position ASC
	`)
	if err != nil {
		slog.Error("load entities failed, treating as empty", "error", err)
		return []queue.LocalEntity{}
	}
	defer rows.Close()

	entities := []queue.LocalEntity{}
	for rows.Next() {
		var (
			entity               queue.LocalEntity
			fieldsJSON           string
			synced               int
			createdMS, updatedMS int64
		)
		if err := rows.Scan(
			&entity.ID, &entity.EntityType, &fieldsJSON, &entity.ServerID,
			&synced, &createdMS, &updatedMS,
		); err != nil {
			slog.Error("scan entity failed, treating mirror as empty", "error", err)
			return []queue.LocalEntity{}
		}

		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			slog.Error("parse entity fields failed, treating mirror as empty",
				"entity_id", entity.ID, "error", err)
			return []queue.LocalEntity{}
		}

		entity.Fields = fields
		entity.Synced = synced != 0
		entity.CreatedAt = time.UnixMilli(createdMS)
		entity.UpdatedAt = time.UnixMilli(updatedMS)
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		slog.Error("iterate entities failed, treating mirror as empty", "error", err)
		return []queue.LocalEntity{}
	}

	return entities
}

// SaveEntities replaces the persisted local mirror with entities, preserving
// slice order. Same atomicity and error contract as SaveQueue.
func (s *Store) SaveEntities(ctx context.Context, entities []queue.LocalEntity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save entities: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM local_entities`); err != nil {
		return fmt.Errorf("save entities: clear: %w", err)
	}

	for i, entity := range entities {
		fieldsJSON, err := marshalFields(entity.Fields)
		if err != nil {
			return fmt.Errorf("save entities: marshal fields for %s: %w", entity.ID, err)
		}

		synced := 0
		if entity.Synced {
			synced = 1
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO local_entities
			(position, id, entity_type, fields, server_id, synced, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			i,
			entity.ID,
			entity.EntityType,
			fieldsJSON,
			entity.ServerID,
			synced,
			entity.CreatedAt.UnixMilli(),
			entity.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("save entities: insert %s: %w", entity.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save entities: commit: %w", err)
	}

	return nil
}
