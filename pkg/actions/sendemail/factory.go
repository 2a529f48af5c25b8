package sendemail

import (
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/protocol"
)

type Factory struct {
	sender Sender
}

func NewFactory(sender Sender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.sender)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionSendEmail
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"provider_id": map[string]any{
				"type":        "string",
				"description": "Id of the configured email provider to send through.",
			},
			"to": map[string]any{
				"description": "Recipients, as an array or a comma-separated string. Supports templating.",
			},
			"cc":  map[string]any{},
			"bcc": map[string]any{},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line. Supports templating.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text body. Supports templating.",
			},
			"html_body": map[string]any{
				"type":        "string",
				"description": "HTML body. Supports templating.",
			},
		},
		"required": []string{"provider_id", "to", "subject"},
	}
}
