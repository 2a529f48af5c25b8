// Package record provides the actions that create, update and delete
// domain records from workflow steps.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helixcrm/helix/pkg/eventbus"
	"github.com/helixcrm/helix/pkg/events"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

var (
	// ErrEntityTypeInvalid is returned when the configured entity type is
	// missing or unknown.
	ErrEntityTypeInvalid = errors.New("missing or unknown entity type")
	// ErrRecordIDMissing is returned when an action needs a record id and
	// the configuration has none.
	ErrRecordIDMissing = errors.New("missing record id")
)

// CreateAction inserts a new record and reports its id.
type CreateAction struct {
	EntityType models.EntityType
	Fields     map[string]any
	Tags       []string

	records   persistence.RecordRepository
	publisher eventbus.EventPublisher
}

func NewCreateAction(config map[string]any, records persistence.RecordRepository, publisher eventbus.EventPublisher) (*CreateAction, error) {
	entityType, err := entityTypeFromConfig(config)
	if err != nil {
		return nil, err
	}

	fields, _ := config["fields"].(map[string]any)

	var tags []string

	if rawTags, ok := config["tags"].([]any); ok {
		for _, tag := range rawTags {
			if s, ok := tag.(string); ok {
				tags = append(tags, s)
			}
		}
	}

	return &CreateAction{
		EntityType: entityType,
		Fields:     fields,
		Tags:       tags,
		records:    records,
		publisher:  publisher,
	}, nil
}

func (a *CreateAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	now := time.Now().UTC()
	rec := &models.Record{
		ID:        uuid.New().String(),
		Type:      a.EntityType,
		Fields:    a.Fields,
		Tags:      a.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}

	if err := a.records.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", a.EntityType, err)
	}

	logger.InfoContext(ctx, "Created record", "entity_type", a.EntityType, "record_id", rec.ID)

	publishMutation(ctx, a.publisher, events.RecordCreatedEvent, models.TriggerRecordCreated, rec, logger)

	// The key carries the entity type so later steps can reference
	// {{created_contact_id}} without knowing which step made it.
	return map[string]any{
		"created_" + string(a.EntityType) + "_id": rec.ID,
		"created_record_type":                     string(a.EntityType),
	}, nil
}

// UpdateAction patches fields on an existing record.
type UpdateAction struct {
	EntityType models.EntityType
	RecordID   string
	Fields     map[string]any

	records   persistence.RecordRepository
	publisher eventbus.EventPublisher
}

func NewUpdateAction(config map[string]any, records persistence.RecordRepository, publisher eventbus.EventPublisher) (*UpdateAction, error) {
	entityType, err := entityTypeFromConfig(config)
	if err != nil {
		return nil, err
	}

	recordID, _ := config["record_id"].(string)
	if recordID == "" {
		return nil, ErrRecordIDMissing
	}

	fields, _ := config["fields"].(map[string]any)

	return &UpdateAction{
		EntityType: entityType,
		RecordID:   recordID,
		Fields:     fields,
		records:    records,
		publisher:  publisher,
	}, nil
}

func (a *UpdateAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	if err := a.records.UpdateRecord(ctx, a.EntityType, a.RecordID, a.Fields); err != nil {
		return nil, fmt.Errorf("failed to update %s record %s: %w", a.EntityType, a.RecordID, err)
	}

	logger.InfoContext(ctx, "Updated record", "entity_type", a.EntityType, "record_id", a.RecordID)

	rec, err := a.records.RecordByID(ctx, a.EntityType, a.RecordID)
	if err == nil {
		publishMutation(ctx, a.publisher, events.RecordUpdatedEvent, models.TriggerRecordUpdated, rec, logger)
	}

	return map[string]any{
		"updated_record_id": a.RecordID,
	}, nil
}

// DeleteAction removes a record.
type DeleteAction struct {
	EntityType models.EntityType
	RecordID   string

	records   persistence.RecordRepository
	publisher eventbus.EventPublisher
}

func NewDeleteAction(config map[string]any, records persistence.RecordRepository, publisher eventbus.EventPublisher) (*DeleteAction, error) {
	entityType, err := entityTypeFromConfig(config)
	if err != nil {
		return nil, err
	}

	recordID, _ := config["record_id"].(string)
	if recordID == "" {
		return nil, ErrRecordIDMissing
	}

	return &DeleteAction{
		EntityType: entityType,
		RecordID:   recordID,
		records:    records,
		publisher:  publisher,
	}, nil
}

func (a *DeleteAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	if err := a.records.DeleteRecord(ctx, a.EntityType, a.RecordID); err != nil {
		return nil, fmt.Errorf("failed to delete %s record %s: %w", a.EntityType, a.RecordID, err)
	}

	logger.InfoContext(ctx, "Deleted record", "entity_type", a.EntityType, "record_id", a.RecordID)

	publishMutation(ctx, a.publisher, events.RecordDeletedEvent, models.TriggerRecordDeleted, &models.Record{
		ID:   a.RecordID,
		Type: a.EntityType,
	}, logger)

	return map[string]any{
		"deleted_record_id": a.RecordID,
	}, nil
}

func entityTypeFromConfig(config map[string]any) (models.EntityType, error) {
	raw, _ := config["entity_type"].(string)
	entityType := models.EntityType(raw)

	if !models.IsKnownEntityType(entityType) {
		return "", fmt.Errorf("entity type '%s': %w", raw, ErrEntityTypeInvalid)
	}

	return entityType, nil
}

func publishMutation(ctx context.Context, publisher eventbus.EventPublisher, eventType events.EventType, triggerType models.TriggerType, rec *models.Record, logger *slog.Logger) {
	if publisher == nil {
		return
	}

	event := events.RecordMutation{
		BaseEvent:   events.NewBaseEvent(eventType, ""),
		TriggerType: triggerType,
		EntityType:  rec.Type,
		RecordID:    rec.ID,
		Payload: map[string]any{
			"record_id":   rec.ID,
			"entity_type": string(rec.Type),
			"fields":      rec.Fields,
			"tags":        rec.Tags,
		},
	}

	if err := publisher.Publish(ctx, rec.ID, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish record mutation", "record_id", rec.ID, "error", err)
	}
}
