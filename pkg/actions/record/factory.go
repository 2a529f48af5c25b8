package record

import (
	"github.com/helixcrm/helix/pkg/eventbus"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/protocol"
)

func entityTypeSchema() map[string]any {
	types := make([]string, 0, len(models.KnownEntityTypes))
	for _, t := range models.KnownEntityTypes {
		types = append(types, string(t))
	}

	return map[string]any{
		"type":        "string",
		"description": "The kind of record this action targets.",
		"enum":        types,
	}
}

// CreateFactory builds create_record actions.
type CreateFactory struct {
	records   persistence.RecordRepository
	publisher eventbus.EventPublisher
}

func NewCreateFactory(records persistence.RecordRepository, publisher eventbus.EventPublisher) *CreateFactory {
	return &CreateFactory{records: records, publisher: publisher}
}

func (f *CreateFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewCreateAction(config, f.records, f.publisher)
}

func (f *CreateFactory) ID() models.ActionType {
	return models.ActionCreateRecord
}

func (f *CreateFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": entityTypeSchema(),
			"fields": map[string]any{
				"type":        "object",
				"description": "Field values for the new record. String values support templating.",
			},
			"tags": map[string]any{
				"type":        "array",
				"description": "Tags applied to the new record.",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required": []string{"entity_type"},
	}
}

// UpdateFactory builds update_record actions.
type UpdateFactory struct {
	records   persistence.RecordRepository
	publisher eventbus.EventPublisher
}

func NewUpdateFactory(records persistence.RecordRepository, publisher eventbus.EventPublisher) *UpdateFactory {
	return &UpdateFactory{records: records, publisher: publisher}
}

func (f *UpdateFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewUpdateAction(config, f.records, f.publisher)
}

func (f *UpdateFactory) ID() models.ActionType {
	return models.ActionUpdateRecord
}

func (f *UpdateFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": entityTypeSchema(),
			"record_id": map[string]any{
				"type":        "string",
				"description": "Id of the record to patch. Supports templating.",
			},
			"fields": map[string]any{
				"type":        "object",
				"description": "Fields to merge into the record.",
			},
		},
		"required": []string{"entity_type", "record_id"},
	}
}

// DeleteFactory builds delete_record actions.
type DeleteFactory struct {
	records   persistence.RecordRepository
	publisher eventbus.EventPublisher
}

func NewDeleteFactory(records persistence.RecordRepository, publisher eventbus.EventPublisher) *DeleteFactory {
	return &DeleteFactory{records: records, publisher: publisher}
}

func (f *DeleteFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewDeleteAction(config, f.records, f.publisher)
}

func (f *DeleteFactory) ID() models.ActionType {
	return models.ActionDeleteRecord
}

func (f *DeleteFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": entityTypeSchema(),
			"record_id": map[string]any{
				"type":        "string",
				"description": "Id of the record to delete. Supports templating.",
			},
		},
		"required": []string{"entity_type", "record_id"},
	}
}
