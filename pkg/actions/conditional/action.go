// Package conditional provides the condition action. The step itself
// does nothing: its condition guard decides whether later steps see the
// marker it writes, which is how workflows express a visible branch
// point in their run history.
package conditional

import (
	"context"
	"log/slog"

	"github.com/helixcrm/helix/pkg/models"
)

type Action struct {
	Label string
}

func NewAction(config map[string]any) (*Action, error) {
	label, _ := config["label"].(string)

	return &Action{Label: label}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Condition step passed", "label", a.Label)

	if a.Label == "" {
		return nil, nil
	}

	return map[string]any{
		"condition_" + a.Label: true,
	}, nil
}
