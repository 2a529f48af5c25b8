package delay

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
	return models.ActionDelay
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        "string",
				"description": "Go duration string, e.g. '30s' or '5m'.",
			},
			"seconds": map[string]any{
				"type":        "number",
				"description": "Delay in seconds. Ignored when 'duration' is set.",
				"minimum":     0,
			},
		},
	}
}
