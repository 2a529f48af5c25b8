// Package protocol defines the interfaces and contracts for pluggable
// actions and domain-event sources.
package protocol

import (
	"context"
	"log/slog"

	"github.com/helixcrm/helix/pkg/models"
)

// Action is one executable workflow step. Execute returns the outputs
// the engine merges into the run's variable bag; it must treat the
// execution context as read-only.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates action instances for one action kind and
// provides the JSON schema its configuration is validated against at
// workflow-save time.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() models.ActionType
	Schema() map[string]any
}
