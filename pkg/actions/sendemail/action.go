// Package sendemail provides the send_email workflow action, delivered
// through a configured email provider.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helixcrm/helix/pkg/models"
)

var (
	ErrProviderMissing   = errors.New("missing provider id")
	ErrRecipientsMissing = errors.New("missing recipients")
	ErrSubjectMissing    = errors.New("missing subject")
)

// Sender delivers outgoing mail through one configured provider.
// The provider gateway satisfies this.
type Sender interface {
	SendEmail(ctx context.Context, providerID string, email models.OutgoingEmail) (string, error)
}

type Action struct {
	ProviderID string
	Email      models.OutgoingEmail

	sender Sender
}

func NewAction(config map[string]any, sender Sender) (*Action, error) {
	providerID, _ := config["provider_id"].(string)
	if providerID == "" {
		return nil, ErrProviderMissing
	}

	to := stringList(config["to"])
	if len(to) == 0 {
		return nil, ErrRecipientsMissing
	}

	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, ErrSubjectMissing
	}

	textBody, _ := config["body"].(string)
	htmlBody, _ := config["html_body"].(string)

	return &Action{
		ProviderID: providerID,
		Email: models.OutgoingEmail{
			To:       to,
			Cc:       stringList(config["cc"]),
			Bcc:      stringList(config["bcc"]),
			Subject:  subject,
			TextBody: textBody,
			HTMLBody: htmlBody,
		},
		sender: sender,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	messageID, err := a.sender.SendEmail(ctx, a.ProviderID, a.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to send email via provider %s: %w", a.ProviderID, err)
	}

	logger.InfoContext(ctx, "Sent email",
		"provider_id", a.ProviderID,
		"recipients", len(a.Email.To),
		"message_id", messageID)

	// Later steps get the resolved payload, not just the id, so they
	// can log or store what actually went out.
	return map[string]any{
		"sent_message_id": messageID,
		"sent_to":         a.Email.To,
		"sent_subject":    a.Email.Subject,
		"sent_body":       a.Email.TextBody,
	}, nil
}

// stringList accepts either a JSON array of strings or one
// comma-separated string, which is what templated recipient lists
// usually render to.
func stringList(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}

		return out
	case []string:
		return v
	case string:
		var out []string

		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}

		return out
	default:
		return nil
	}
}
