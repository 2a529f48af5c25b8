package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

// RecordRepository handles domain-record database operations.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordRepository creates a new domain record repository.
func NewRecordRepository(db *sql.DB, logger *slog.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

// CreateRecord inserts a new domain record.
func (r *RecordRepository) CreateRecord(ctx context.Context, record *models.Record) error {
	fieldsJSON, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal record fields: %w", err)
	}

	tagsJSON, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal record tags: %w", err)
	}

	query := `
		INSERT INTO records (id, entity_type, fields, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.Type,
		fieldsJSON,
		tagsJSON,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", record.ID, err)
	}

	return nil
}

// RecordByID returns a domain record by entity type and ID.
func (r *RecordRepository) RecordByID(ctx context.Context, entityType models.EntityType, id string) (*models.Record, error) {
	query := `
		SELECT id, entity_type, fields, tags, created_at, updated_at
		FROM records
		WHERE entity_type = $1 AND id = $2
	`

	var (
		record     models.Record
		fieldsJSON []byte
		tagsJSON   []byte
	)

	err := r.db.QueryRowContext(ctx, query, entityType, id).Scan(
		&record.ID,
		&record.Type,
		&fieldsJSON,
		&tagsJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to scan record %s: %w", id, err)
	}

	if err := json.Unmarshal(fieldsJSON, &record.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}

	if err := json.Unmarshal(tagsJSON, &record.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record tags: %w", err)
	}

	return &record, nil
}

// UpdateRecord patches the fields of an existing record.
func (r *RecordRepository) UpdateRecord(ctx context.Context, entityType models.EntityType, id string, fields map[string]any) error {
	patchJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal field patch: %w", err)
	}

	query := `
		UPDATE records
		SET fields = fields || $1::jsonb, updated_at = $2
		WHERE entity_type = $3 AND id = $4
	`

	result, err := r.db.ExecContext(ctx, query, patchJSON, time.Now().UTC(), entityType, id)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}

	return checkAffected(result)
}

// DeleteRecord removes a record. Hard delete, no soft-delete flag.
func (r *RecordRepository) DeleteRecord(ctx context.Context, entityType models.EntityType, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM records WHERE entity_type = $1 AND id = $2", entityType, id)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	return checkAffected(result)
}

// AddTag attaches a tag to a record if not already present.
func (r *RecordRepository) AddTag(ctx context.Context, entityType models.EntityType, id, tag string) error {
	query := `
		UPDATE records
		SET tags = tags || to_jsonb($1::text), updated_at = NOW()
		WHERE entity_type = $2 AND id = $3 AND NOT tags @> to_jsonb($1::text)
	`

	result, err := r.db.ExecContext(ctx, query, tag, entityType, id)
	if err != nil {
		return fmt.Errorf("failed to add tag to record %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to inspect tag result: %w", err)
	}

	// Zero affected rows can mean either a missing record or a tag that
	// is already present; distinguish with a lookup.
	if affected == 0 {
		if _, err := r.RecordByID(ctx, entityType, id); err != nil {
			return err
		}
	}

	return nil
}

// RemoveTag detaches a tag from a record.
func (r *RecordRepository) RemoveTag(ctx context.Context, entityType models.EntityType, id, tag string) error {
	query := `
		UPDATE records
		SET tags = tags - $1, updated_at = NOW()
		WHERE entity_type = $2 AND id = $3
	`

	result, err := r.db.ExecContext(ctx, query, tag, entityType, id)
	if err != nil {
		return fmt.Errorf("failed to remove tag from record %s: %w", id, err)
	}

	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to inspect result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrRecordNotFound
	}

	return nil
}
