// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/helixcrm/helix/pkg/models"
)

type EventType string

// Kafka topics.
const Topic = "helix.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowTriggeredEvent EventType = "workflow.triggered"

	// Workflow execution lifecycle events.
	ExecutionStartedEvent   EventType = "workflow.execution.started"
	ExecutionCompletedEvent EventType = "workflow.execution.completed"
	ExecutionFailedEvent    EventType = "workflow.execution.failed"

	// Record mutation events.
	RecordCreatedEvent EventType = "record.created"
	RecordUpdatedEvent EventType = "record.updated"
	RecordDeletedEvent EventType = "record.deleted"
)

type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

type WorkflowTriggered struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	TriggerData map[string]any     `json:"trigger_data,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Result      map[string]any `json:"result,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// RecordMutation announces a create, update or delete of a CRM record.
// Its payload becomes the trigger data of every workflow it starts.
type RecordMutation struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	EntityType  models.EntityType  `json:"entity_type"`
	RecordID    string             `json:"record_id"`
	Payload     map[string]any     `json:"payload,omitempty"`
}

func (r RecordMutation) GetType() EventType {
	return r.Type
}
