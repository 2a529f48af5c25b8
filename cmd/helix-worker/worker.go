package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixcrm/helix/pkg/config"
	"github.com/helixcrm/helix/pkg/eventbus"
	"github.com/helixcrm/helix/pkg/events"
	"github.com/helixcrm/helix/pkg/otelhelper"
	"github.com/helixcrm/helix/pkg/protocol"
	"github.com/helixcrm/helix/pkg/triggers/queue"
	"github.com/helixcrm/helix/pkg/triggers/schedule"
	"github.com/helixcrm/helix/pkg/workflow"
)

// WorkerManager runs workflows in response to bus events and keeps the
// schedule and queue trigger sources alive.
type WorkerManager struct {
	id         string
	logger     *slog.Logger
	eventBus   eventbus.EventBus
	engine     *workflow.Engine
	dispatcher *workflow.Dispatcher
	repository *workflow.Repository
	cfg        *config.AppConfig
	tracer     trace.Tracer
}

func NewWorkerManager(
	id string,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	repository *workflow.Repository,
	engine *workflow.Engine,
	dispatcher *workflow.Dispatcher,
	cfg *config.AppConfig,
) *WorkerManager {
	return &WorkerManager{
		id:         id,
		logger:     logger.With("module", "helix-worker", "worker_id", id),
		eventBus:   eventBus,
		repository: repository,
		engine:     engine,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	tracer, err := otelhelper.NewTracer(ctx, "helix-worker")
	if err != nil {
		return err
	}

	w.tracer = tracer

	err = w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered)
	if err != nil {
		return err
	}

	for _, eventType := range []events.EventType{
		events.RecordCreatedEvent,
		events.RecordUpdatedEvent,
		events.RecordDeletedEvent,
	} {
		err = w.eventBus.Handle(eventType, w.handleRecordMutation)
		if err != nil {
			return err
		}
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	sources, err := w.startSources(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	for _, source := range sources {
		if err := source.Stop(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop trigger source", "error", err)
		}
	}

	w.dispatcher.Wait()

	return nil
}

func (w *WorkerManager) startSources(ctx context.Context) ([]protocol.Source, error) {
	callback := w.dispatcher.Callback()
	sources := make([]protocol.Source, 0, 2)

	scheduleSource := schedule.NewSource(w.repository, w.logger)
	if err := scheduleSource.Validate(); err != nil {
		return nil, err
	}

	if err := scheduleSource.Start(ctx, callback); err != nil {
		return nil, err
	}

	sources = append(sources, scheduleSource)

	if w.cfg.Queue != nil {
		queueSource, err := queue.NewSource(w.cfg.QueueSourceConfig(), w.logger)
		if err != nil {
			return nil, err
		}

		if err := queueSource.Start(ctx, callback); err != nil {
			return nil, err
		}

		sources = append(sources, queueSource)
	}

	return sources, nil
}

func (w *WorkerManager) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowTriggered")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "handleWorkflowTriggered",
		attribute.String(otelhelper.WorkflowIDKey, triggeredEvent.WorkflowID),
		attribute.String(otelhelper.TriggerTypeKey, string(triggeredEvent.TriggerType)),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"workflow_id", triggeredEvent.WorkflowID,
		"trigger_type", triggeredEvent.TriggerType,
		"event_id", triggeredEvent.ID,
	)
	logger.InfoContext(ctx, "Processing workflow triggered event")

	triggerData := make(map[string]any)
	if triggeredEvent.TriggerData != nil {
		triggerData = triggeredEvent.TriggerData
	}

	execution, err := w.engine.Execute(ctx, triggeredEvent.WorkflowID, triggerData)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to execute workflow", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Workflow execution completed", "execution_id", execution.ID)

	return nil
}

func (w *WorkerManager) handleRecordMutation(ctx context.Context, event any) error {
	mutation, ok := event.(*events.RecordMutation)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for RecordMutation")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "handleRecordMutation",
		attribute.String(otelhelper.TriggerTypeKey, string(mutation.TriggerType)),
		attribute.String(otelhelper.EntityTypeKey, string(mutation.EntityType)),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"trigger_type", mutation.TriggerType,
		"entity_type", mutation.EntityType,
		"record_id", mutation.RecordID,
	)
	logger.InfoContext(ctx, "Processing record mutation event")

	payload := make(map[string]any, len(mutation.Payload)+2)
	for k, v := range mutation.Payload {
		payload[k] = v
	}

	payload["entity_type"] = string(mutation.EntityType)
	payload["record_id"] = mutation.RecordID

	err := w.dispatcher.Dispatch(ctx, mutation.TriggerType, mutation.EntityType, payload)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to dispatch record mutation", "error", err)

		return err
	}

	return nil
}
