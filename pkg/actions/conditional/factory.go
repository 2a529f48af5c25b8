package conditional

import (
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionCondition
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{
				"type":        "string",
				"description": "Marker written to the variable bag when the guard passes.",
			},
		},
	}
}
