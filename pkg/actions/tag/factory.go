package tag

import (
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/protocol"
)

// Factory builds add_tag or remove_tag actions depending on its mode.
type Factory struct {
	records persistence.RecordRepository
	remove  bool
}

func NewAddFactory(records persistence.RecordRepository) *Factory {
	return &Factory{records: records, remove: false}
}

func NewRemoveFactory(records persistence.RecordRepository) *Factory {
	return &Factory{records: records, remove: true}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.remove, f.records)
}

func (f *Factory) ID() models.ActionType {
	if f.remove {
		return models.ActionRemoveTag
	}

	return models.ActionAddTag
}

func (f *Factory) Schema() map[string]any {
	types := make([]string, 0, len(models.KnownEntityTypes))
	for _, t := range models.KnownEntityTypes {
		types = append(types, string(t))
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": map[string]any{
				"type": "string",
				"enum": types,
			},
			"record_id": map[string]any{
				"type":        "string",
				"description": "Id of the record whose tags change. Supports templating.",
			},
			"tag": map[string]any{
				"type":        "string",
				"description": "The tag to add or remove.",
			},
		},
		"required": []string{"entity_type", "record_id", "tag"},
	}
}
