package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

// RecordRepository handles domain-record file operations. Records are
// grouped by entity type, one directory per type.
type RecordRepository struct {
	root string
}

// NewRecordRepository creates a new domain record repository.
func NewRecordRepository(root string) *RecordRepository {
	return &RecordRepository{root: root}
}

func (r *RecordRepository) dir(entityType models.EntityType) string {
	return filepath.Join(r.root, "records", string(entityType))
}

// CreateRecord writes a new domain record.
func (r *RecordRepository) CreateRecord(_ context.Context, record *models.Record) error {
	if err := validateDocumentID(record.ID); err != nil {
		return fmt.Errorf("invalid record ID: %w", err)
	}

	if err := os.MkdirAll(r.dir(record.Type), 0750); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}

	return r.write(record)
}

// RecordByID retrieves a domain record by entity type and ID.
func (r *RecordRepository) RecordByID(_ context.Context, entityType models.EntityType, id string) (*models.Record, error) {
	if err := validateDocumentID(id); err != nil {
		return nil, fmt.Errorf("invalid record ID: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(r.dir(entityType), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	var record models.Record

	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}

	return &record, nil
}

// UpdateRecord patches the fields of an existing record.
func (r *RecordRepository) UpdateRecord(ctx context.Context, entityType models.EntityType, id string, fields map[string]any) error {
	record, err := r.RecordByID(ctx, entityType, id)
	if err != nil {
		return err
	}

	if record.Fields == nil {
		record.Fields = make(map[string]any, len(fields))
	}

	for k, v := range fields {
		record.Fields[k] = v
	}

	record.UpdatedAt = time.Now().UTC()

	return r.write(record)
}

// DeleteRecord removes a record. The delete is hard: there is no
// soft-delete flag in this core.
func (r *RecordRepository) DeleteRecord(_ context.Context, entityType models.EntityType, id string) error {
	if err := validateDocumentID(id); err != nil {
		return fmt.Errorf("invalid record ID: %w", err)
	}

	err := os.Remove(filepath.Join(r.dir(entityType), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrRecordNotFound
		}

		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	return nil
}

// AddTag attaches a tag to a record if not already present.
func (r *RecordRepository) AddTag(ctx context.Context, entityType models.EntityType, id, tag string) error {
	record, err := r.RecordByID(ctx, entityType, id)
	if err != nil {
		return err
	}

	for _, existing := range record.Tags {
		if existing == tag {
			return nil
		}
	}

	record.Tags = append(record.Tags, tag)
	record.UpdatedAt = time.Now().UTC()

	return r.write(record)
}

// RemoveTag detaches a tag from a record. Removing an absent tag is a
// no-op.
func (r *RecordRepository) RemoveTag(ctx context.Context, entityType models.EntityType, id, tag string) error {
	record, err := r.RecordByID(ctx, entityType, id)
	if err != nil {
		return err
	}

	tags := record.Tags[:0]

	for _, existing := range record.Tags {
		if existing != tag {
			tags = append(tags, existing)
		}
	}

	record.Tags = tags
	record.UpdatedAt = time.Now().UTC()

	return r.write(record)
}

func (r *RecordRepository) write(record *models.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", record.ID, err)
	}

	err = os.WriteFile(filepath.Join(r.dir(record.Type), record.ID+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", record.ID, err)
	}

	return nil
}
