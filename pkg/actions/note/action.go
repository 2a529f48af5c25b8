// Package note provides the add_note workflow action. Notes attach to
// companies, contacts and deals only; tasks and notes themselves cannot
// carry notes.
package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

var (
	ErrContentMissing    = errors.New("missing note content")
	ErrAttachTargetWrong = errors.New("notes attach to companies, contacts and deals only")
	ErrRecordIDMissing   = errors.New("missing record id")
)

type Action struct {
	Content    string
	EntityType models.EntityType
	RecordID   string

	records persistence.RecordRepository
}

func NewAction(config map[string]any, records persistence.RecordRepository) (*Action, error) {
	content, _ := config["content"].(string)
	if content == "" {
		return nil, ErrContentMissing
	}

	raw, _ := config["entity_type"].(string)
	entityType := models.EntityType(raw)

	switch entityType {
	case models.EntityCompany, models.EntityContact, models.EntityDeal:
	default:
		return nil, fmt.Errorf("entity type '%s': %w", raw, ErrAttachTargetWrong)
	}

	recordID, _ := config["record_id"].(string)
	if recordID == "" {
		return nil, ErrRecordIDMissing
	}

	return &Action{
		Content:    content,
		EntityType: entityType,
		RecordID:   recordID,
		records:    records,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	// The attach target must exist before the note is written.
	if _, err := a.records.RecordByID(ctx, a.EntityType, a.RecordID); err != nil {
		return nil, fmt.Errorf("note target %s/%s: %w", a.EntityType, a.RecordID, err)
	}

	now := time.Now().UTC()
	rec := &models.Record{
		ID:   uuid.New().String(),
		Type: models.EntityNote,
		Fields: map[string]any{
			"content":             a.Content,
			"related_entity_type": string(a.EntityType),
			"related_record_id":   a.RecordID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.records.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	logger.InfoContext(ctx, "Added note", "note_id", rec.ID, "entity_type", a.EntityType, "record_id", a.RecordID)

	return map[string]any{
		"created_note_id": rec.ID,
	}, nil
}
