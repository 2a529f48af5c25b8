package note

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
	return models.ActionAddNote
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "Note body. Supports templating.",
			},
			"entity_type": map[string]any{
				"type": "string",
				"enum": []string{
					string(models.EntityCompany),
					string(models.EntityContact),
					string(models.EntityDeal),
				},
			},
			"record_id": map[string]any{
				"type":        "string",
				"description": "Id of the record the note attaches to. Supports templating.",
			},
		},
		"required": []string{"content", "entity_type", "record_id"},
	}
}
