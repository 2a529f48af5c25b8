package task

import (
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/protocol"
)

type Factory struct {
	records persistence.RecordRepository
}

func NewFactory(records persistence.RecordRepository) *Factory {
	return &Factory{records: records}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.records)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionCreateTask
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title. Supports templating.",
			},
			"description": map[string]any{"type": "string"},
			"due_date": map[string]any{
				"type":        "string",
				"description": "Due date, RFC 3339 or a plain date.",
			},
			"assignee": map[string]any{"type": "string"},
			"related_entity_type": map[string]any{
				"type":        "string",
				"description": "Entity type of the record this task relates to.",
			},
			"related_record_id": map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}
