// Package models defines the core domain models for the automation engine
// and the provider synchronization layer.
package models

import "time"

// TriggerType discriminates the trigger variants a workflow can carry.
type TriggerType string

const (
	TriggerRecordCreated TriggerType = "record_created"
	TriggerRecordUpdated TriggerType = "record_updated"
	TriggerRecordDeleted TriggerType = "record_deleted"
	TriggerSchedule      TriggerType = "schedule"
	TriggerWebhook       TriggerType = "webhook"
	TriggerManual        TriggerType = "manual"
)

// TriggerConfig is a discriminated variant: exactly one variant is active
// per workflow, selected by Type. Record triggers may carry an entity type
// and field-equality filters; schedule triggers carry a cron expression
// and timezone; webhook triggers carry a path and method.
type TriggerConfig struct {
	Type         TriggerType    `json:"type"                    validate:"required"`
	EntityType   EntityType     `json:"entity_type,omitempty"`
	FieldFilters map[string]any `json:"field_filters,omitempty"`
	CronExpr     string         `json:"cron,omitempty"`
	Timezone     string         `json:"timezone,omitempty"`
	WebhookPath  string         `json:"webhook_path,omitempty"`
	Method       string         `json:"method,omitempty"`
}

// ActionType discriminates the action kinds an action config can carry.
type ActionType string

const (
	ActionCreateRecord ActionType = "create_record"
	ActionUpdateRecord ActionType = "update_record"
	ActionDeleteRecord ActionType = "delete_record"
	ActionSendEmail    ActionType = "send_email"
	ActionHTTPRequest  ActionType = "http_request"
	ActionDelay        ActionType = "delay"
	ActionCondition    ActionType = "condition"
	ActionAddTag       ActionType = "add_tag"
	ActionRemoveTag    ActionType = "remove_tag"
	ActionCreateTask   ActionType = "create_task"
	ActionAddNote      ActionType = "add_note"
)

// ConditionOperator enumerates the comparison operators a guard supports.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// Condition gates the execution of a single action. Field is a dot-path
// resolved against the execution context (trigger data plus accumulated
// variables). A false condition skips the action without aborting the run.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value"`
}

// ActionConfig is one ordered, optionally guarded step in a workflow's
// pipeline. Configuration is interpreted according to Type; every
// string-valued entry may contain {{dotted.path}} placeholders.
type ActionConfig struct {
	ID            string         `json:"id"`
	Type          ActionType     `json:"type"  validate:"required"`
	Name          string         `json:"name"`
	Order         int            `json:"order"`
	Configuration map[string]any `json:"configuration"`
	Condition     *Condition     `json:"condition,omitempty"`
}

// WorkflowDefinition ties one trigger to an ordered action pipeline.
// Actions[i].Order is the only execution sequencing signal; ties are
// broken by declaration order. An empty action list is a valid no-op
// workflow.
type WorkflowDefinition struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"    validate:"required,min=3"`
	Active    bool           `json:"active"`
	Trigger   TriggerConfig  `json:"trigger" validate:"required"`
	Actions   []ActionConfig `json:"actions"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
