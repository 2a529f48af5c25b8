package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/protocol"
	"github.com/helixcrm/helix/pkg/template"
)

// Dispatcher fans one domain event out to every workflow whose trigger
// matches it. Each matched workflow runs on its own goroutine so one
// failing run never blocks or aborts its siblings.
type Dispatcher struct {
	repository *Repository
	engine     *Engine
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewDispatcher(repository *Repository, engine *Engine, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repository: repository,
		engine:     engine,
		logger:     logger.With("module", "dispatcher"),
	}
}

// Dispatch matches the event against all active workflows and starts a
// run for each match. It returns once the runs are started, not once
// they finish.
func (d *Dispatcher) Dispatch(ctx context.Context, triggerType models.TriggerType, entityType models.EntityType, payload map[string]any) error {
	workflows, err := d.repository.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	matched := 0

	for _, wf := range workflows {
		if !d.matches(wf, triggerType, entityType, payload) {
			continue
		}

		matched++

		d.start(ctx, wf.ID, payload)
	}

	d.logger.Info("Dispatched domain event",
		"trigger_type", triggerType,
		"entity_type", entityType,
		"workflows_matched", matched)

	return nil
}

// Callback adapts the dispatcher to the source contract so schedule and
// queue sources can feed it directly.
func (d *Dispatcher) Callback() protocol.SourceCallback {
	return func(ctx context.Context, triggerType models.TriggerType, entityType models.EntityType, payload map[string]any) error {
		return d.Dispatch(ctx, triggerType, entityType, payload)
	}
}

// Wait blocks until every in-flight run has finished. Used on shutdown
// and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) start(ctx context.Context, workflowID string, payload map[string]any) {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Workflow run panicked", "workflow_id", workflowID, "panic", r)
			}
		}()

		if _, err := d.engine.Execute(ctx, workflowID, payload); err != nil && !errors.Is(err, ErrWorkflowInactive) {
			d.logger.Error("Workflow run failed", "workflow_id", workflowID, "error", err)
		}
	}()
}

func (d *Dispatcher) matches(wf *models.WorkflowDefinition, triggerType models.TriggerType, entityType models.EntityType, payload map[string]any) bool {
	if !wf.Active {
		return false
	}

	trigger := wf.Trigger

	if trigger.Type != triggerType {
		return false
	}

	switch triggerType {
	case models.TriggerRecordCreated, models.TriggerRecordUpdated, models.TriggerRecordDeleted:
		if trigger.EntityType != "" && trigger.EntityType != entityType {
			return false
		}

		for field, expected := range trigger.FieldFilters {
			actual, ok := lookupPayload(payload, field)
			if !ok {
				return false
			}

			if template.Stringify(actual) != template.Stringify(expected) {
				return false
			}
		}
	case models.TriggerSchedule, models.TriggerManual:
		if target, ok := payload["workflow_id"]; ok && template.Stringify(target) != wf.ID {
			return false
		}
	case models.TriggerWebhook:
		if path, ok := payload["path"]; ok && template.Stringify(path) != trigger.WebhookPath {
			return false
		}

		if method, ok := payload["method"]; ok && trigger.Method != "" {
			if !strings.EqualFold(template.Stringify(method), trigger.Method) {
				return false
			}
		}
	}

	return true
}

func lookupPayload(payload map[string]any, field string) (any, bool) {
	value, ok := payload[field]
	if ok {
		return value, true
	}

	fields, ok := payload["fields"].(map[string]any)
	if !ok {
		return nil, false
	}

	value, ok = fields[field]

	return value, ok
}
