package models

import (
	"strings"
	"time"
)

// ExecutionStatus is the lifecycle state of a single workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// WorkflowExecution is the durable, append-only record of one run. It is
// created in RUNNING state before the first action executes and updated
// exactly once at run end; terminal states are immutable. Retention is a
// host-application concern, the engine never deletes executions.
type WorkflowExecution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`
	Result      map[string]any  `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the execution reached a final state.
func (e *WorkflowExecution) IsTerminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// ExecutionContext is the mutable state threaded through one run: the
// trigger payload that started it and the variable bag actions extend.
// Dot-path resolution for conditions and interpolation looks at Variables
// first and falls back to TriggerData.
type ExecutionContext struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// NewExecutionContext seeds the variable bag with a shallow copy of the
// trigger data so actions can overwrite entries without mutating the
// original payload.
func NewExecutionContext(executionID, workflowID string, triggerData map[string]any) *ExecutionContext {
	variables := make(map[string]any, len(triggerData))
	for k, v := range triggerData {
		variables[k] = v
	}

	return &ExecutionContext{
		ID:          executionID,
		WorkflowID:  workflowID,
		TriggerData: triggerData,
		Variables:   variables,
	}
}

// Lookup resolves a dot-separated path against the variable bag, falling
// back to the trigger data. The second return reports whether the full
// path resolved.
func (c *ExecutionContext) Lookup(path string) (any, bool) {
	if v, ok := lookupPath(c.Variables, path); ok {
		return v, true
	}

	return lookupPath(c.TriggerData, path)
}

func lookupPath(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}

	var current any = data

	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
