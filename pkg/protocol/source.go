package protocol

import (
	"context"

	"github.com/helixcrm/helix/pkg/models"
)

// SourceCallback delivers one domain event from a source into the
// dispatcher.
type SourceCallback func(ctx context.Context, triggerType models.TriggerType, entityType models.EntityType, payload map[string]any) error

// Source produces domain events (schedule ticks, queue messages,
// record mutations) that start workflow runs. Start blocks until the
// context is cancelled or the source fails.
type Source interface {
	Start(ctx context.Context, callback SourceCallback) error
	Stop(ctx context.Context) error
	Validate() error
}
