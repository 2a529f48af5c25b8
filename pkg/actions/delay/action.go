// Package delay provides the delay workflow action. The pause lives
// inside the run only; it never reschedules the execution.
package delay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixcrm/helix/pkg/models"
)

const maxDelay = time.Hour

// ErrDurationInvalid is returned when the configuration carries no
// usable duration.
var ErrDurationInvalid = errors.New("missing or invalid delay duration")

type Action struct {
	Duration time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	var duration time.Duration

	switch {
	case config["duration"] != nil:
		raw, _ := config["duration"].(string)

		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("duration '%s': %w", raw, ErrDurationInvalid)
		}

		duration = parsed
	case config["seconds"] != nil:
		seconds, ok := config["seconds"].(float64)
		if !ok || seconds <= 0 {
			return nil, ErrDurationInvalid
		}

		duration = time.Duration(seconds * float64(time.Second))
	default:
		return nil, ErrDurationInvalid
	}

	if duration <= 0 {
		return nil, ErrDurationInvalid
	}

	if duration > maxDelay {
		duration = maxDelay
	}

	return &Action{Duration: duration}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Delaying execution", "duration", a.Duration)

	timer := time.NewTimer(a.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delay interrupted: %w", ctx.Err())
	case <-timer.C:
		return map[string]any{"delayed_for": a.Duration.String()}, nil
	}
}
