package httprequest

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
	return models.ActionHTTPRequest
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to call. Supports templating.",
				"examples": []string{
					"https://api.example.com/leads",
					"https://hooks.example.com/{{deal_id}}",
				},
			},
			"method": map[string]any{
				"type":    "string",
				"default": "GET",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers. Values support templating.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating.",
			},
			"timeout_seconds": map[string]any{
				"type":    "integer",
				"default": 30,
				"minimum": 1,
				"maximum": 120,
			},
		},
		"required": []string{"url"},
	}
}
