// Package task provides the create_task workflow action.
package task

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

// ErrTitleMissing is returned when the configuration has no task title.
var ErrTitleMissing = errors.New("missing task title")

// Action creates a task record, optionally linked to another record.
type Action struct {
	Title       string
	Description string
	DueDate     string
	Assignee    string
	RelatedType models.EntityType
	RelatedID   string

	records persistence.RecordRepository
}

func NewAction(config map[string]any, records persistence.RecordRepository) (*Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleMissing
	}

	description, _ := config["description"].(string)
	dueDate, _ := config["due_date"].(string)
	assignee, _ := config["assignee"].(string)

	relatedType := models.EntityType("")
	relatedID := ""

	if raw, ok := config["related_entity_type"].(string); ok && raw != "" {
		relatedType = models.EntityType(raw)
		if !models.IsKnownEntityType(relatedType) {
			return nil, fmt.Errorf("unknown related entity type '%s'", raw)
		}

		relatedID, _ = config["related_record_id"].(string)
	}

	return &Action{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Assignee:    assignee,
		RelatedType: relatedType,
		RelatedID:   relatedID,
		records:     records,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	now := time.Now().UTC()

	fields := map[string]any{
		"title":     a.Title,
		"completed": false,
	}

	if a.Description != "" {
		fields["description"] = a.Description
	}

	if a.DueDate != "" {
		fields["due_date"] = a.DueDate
	}

	if a.Assignee != "" {
		fields["assignee"] = a.Assignee
	}

	if a.RelatedType != "" {
		fields["related_entity_type"] = string(a.RelatedType)
		fields["related_record_id"] = a.RelatedID
	}

	rec := &models.Record{
		ID:        uuid.New().String(),
		Type:      models.EntityTask,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.records.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.InfoContext(ctx, "Created task", "task_id", rec.ID, "title", a.Title)

	return map[string]any{
		"created_task_id": rec.ID,
	}, nil
}
