// Package workflow contains the execution engine: it loads a workflow
// definition, runs its actions in order under their condition guards,
// and records a durable execution for every run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/helixcrm/helix/pkg/eventbus"
	"github.com/helixcrm/helix/pkg/events"
	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/registry"
	"github.com/helixcrm/helix/pkg/template"
)

// ErrWorkflowInactive is returned when an inactive workflow is asked to
// run. No execution record is created for the attempt.
var ErrWorkflowInactive = errors.New("workflow is not active")

type Engine struct {
	repository *Repository
	registry   *registry.Registry
	executions persistence.ExecutionRepository
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
}

func NewEngine(repository *Repository, reg *registry.Registry, executions persistence.ExecutionRepository, publisher eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		repository: repository,
		registry:   reg,
		executions: executions,
		publisher:  publisher,
		logger:     logger.With("module", "workflow_engine"),
	}
}

// Execute runs a workflow to completion and returns its execution
// record. The record is persisted as RUNNING before the first action
// and finalized exactly once, so a crash mid-run leaves a RUNNING row
// behind as evidence.
func (e *Engine) Execute(ctx context.Context, workflowID string, triggerData map[string]any) (*models.WorkflowExecution, error) {
	logger := e.logger.With("workflow_id", workflowID)

	workflow, err := e.repository.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !workflow.Active {
		logger.Warn("Refusing to execute inactive workflow")

		return nil, ErrWorkflowInactive
	}

	execution := &models.WorkflowExecution{
		ID:          uuid.New().String(),
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusRunning,
		TriggerData: triggerData,
		StartedAt:   time.Now().UTC(),
	}

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution record: %w", err)
	}

	logger = logger.With("execution_id", execution.ID)
	logger.Info("Starting execution of workflow", "actions", len(workflow.Actions))

	e.publish(ctx, execution.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflowID),
		ExecutionID: execution.ID,
	})

	executionCtx := models.NewExecutionContext(execution.ID, workflowID, triggerData)

	if err := e.runActions(ctx, workflow, executionCtx, logger); err != nil {
		return e.finalizeFailed(ctx, execution, executionCtx, err, logger)
	}

	return e.finalizeCompleted(ctx, execution, executionCtx, logger)
}

func (e *Engine) runActions(ctx context.Context, workflow *models.WorkflowDefinition, executionCtx *models.ExecutionContext, logger *slog.Logger) error {
	actions := sortedActions(workflow.Actions)

	for _, action := range actions {
		actionLogger := logger.With("action_id", action.ID, "action_type", action.Type)

		passed, err := EvaluateCondition(action.Condition, executionCtx)
		if err != nil {
			return fmt.Errorf("action '%s': %w", action.ID, err)
		}

		if !passed {
			actionLogger.Info("Condition not met, skipping action")

			continue
		}

		config := template.RenderConfiguration(action.Configuration, executionCtx)

		step, err := e.registry.CreateAction(action.Type, config)
		if err != nil {
			return fmt.Errorf("action '%s': %w", action.ID, err)
		}

		actionLogger.Info("Executing action")

		outputs, err := step.Execute(ctx, *executionCtx, actionLogger)
		if err != nil {
			return fmt.Errorf("action '%s' failed: %w", action.ID, err)
		}

		for key, value := range outputs {
			executionCtx.Variables[key] = value
		}
	}

	return nil
}

// sortedActions orders actions by ascending Order, preserving
// declaration order between equal values.
func sortedActions(actions []models.ActionConfig) []models.ActionConfig {
	sorted := make([]models.ActionConfig, len(actions))
	copy(sorted, actions)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}

func (e *Engine) finalizeCompleted(ctx context.Context, execution *models.WorkflowExecution, executionCtx *models.ExecutionContext, logger *slog.Logger) (*models.WorkflowExecution, error) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.Result = executionCtx.Variables
	execution.CompletedAt = &now

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		return execution, fmt.Errorf("failed to finalize execution record: %w", err)
	}

	logger.Info("Completed execution of workflow", "duration", now.Sub(execution.StartedAt))

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Result:      execution.Result,
		Duration:    now.Sub(execution.StartedAt),
	})

	return execution, nil
}

func (e *Engine) finalizeFailed(ctx context.Context, execution *models.WorkflowExecution, executionCtx *models.ExecutionContext, cause error, logger *slog.Logger) (*models.WorkflowExecution, error) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.Result = executionCtx.Variables
	execution.Error = cause.Error()
	execution.CompletedAt = &now

	if err := e.executions.SaveExecution(ctx, execution); err != nil {
		logger.Error("Failed to persist failed execution record", "error", err)
	}

	logger.Error("Workflow execution failed", "error", cause)

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Error:       cause.Error(),
	})

	return execution, cause
}

func (e *Engine) publish(ctx context.Context, key string, event events.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}
