// Package web provides the HTTP surface for workflow management,
// manual execution and provider synchronization.
package web

import "github.com/helixcrm/helix/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new
// workflow.
type CreateWorkflowRequest struct {
	Name    string                `json:"name"    validate:"required,min=3"`
	Active  bool                  `json:"active"`
	Trigger models.TriggerConfig  `json:"trigger" validate:"required"`
	Actions []models.ActionConfig `json:"actions"`
}

// UpdateWorkflowRequest represents a partial workflow update. Nil
// fields keep their stored value.
type UpdateWorkflowRequest struct {
	Name    *string                `json:"name,omitempty"    validate:"omitempty,min=3"`
	Active  *bool                  `json:"active,omitempty"`
	Trigger *models.TriggerConfig  `json:"trigger,omitempty"`
	Actions *[]models.ActionConfig `json:"actions,omitempty"`
}

// ExecuteWorkflowRequest carries the trigger data for a manual run.
type ExecuteWorkflowRequest struct {
	TriggerData map[string]any `json:"trigger_data"`
}

// IngestEventRequest is a record event pushed by an external system.
// Its payload becomes the trigger data of every workflow it starts.
type IngestEventRequest struct {
	TriggerType models.TriggerType `json:"trigger_type" validate:"required,oneof=record_created record_updated record_deleted manual"`
	EntityType  models.EntityType  `json:"entity_type,omitempty"`
	RecordID    string             `json:"record_id,omitempty"`
	Payload     map[string]any     `json:"payload,omitempty"`
}

// MarkReadRequest toggles the read flag on a synced message.
type MarkReadRequest struct {
	Read *bool `json:"read" validate:"required"`
}

// SyncResponse wraps one page of synced items. RefreshedCredentials is
// set only when the call triggered a token refresh; callers must
// persist the new tokens.
type SyncResponse struct {
	Events               []models.CalendarEvent       `json:"events,omitempty"`
	Messages             []models.EmailMessage        `json:"messages,omitempty"`
	NextCursor           string                       `json:"next_cursor,omitempty"`
	HasMore              bool                         `json:"has_more"`
	RefreshedCredentials *models.RefreshedCredentials `json:"refreshed_credentials,omitempty"`
}

// SendEmailResponse reports the upstream message id, when the provider
// returns one.
type SendEmailResponse struct {
	MessageID string `json:"message_id,omitempty"`
}
