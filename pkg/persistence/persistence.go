// Package persistence provides the data storage abstraction for
// workflows, execution records and domain records.
package persistence

import (
	"context"

	"github.com/helixcrm/helix/pkg/models"
)

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error)
	WorkflowByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	SaveWorkflow(ctx context.Context, workflow *models.WorkflowDefinition) error
	DeleteWorkflow(ctx context.Context, id string) error
}

// ExecutionRepository stores the durable audit trail of workflow runs.
// Implementations must guarantee per-row atomicity for the status
// transition: a run must never be observable as COMPLETED before its
// result snapshot is written.
type ExecutionRepository interface {
	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

// RecordRepository is the generic boundary through which actions touch
// domain records (companies, contacts, deals, tasks, notes).
type RecordRepository interface {
	CreateRecord(ctx context.Context, record *models.Record) error
	RecordByID(ctx context.Context, entityType models.EntityType, id string) (*models.Record, error)
	UpdateRecord(ctx context.Context, entityType models.EntityType, id string, fields map[string]any) error
	DeleteRecord(ctx context.Context, entityType models.EntityType, id string) error
	AddTag(ctx context.Context, entityType models.EntityType, id, tag string) error
	RemoveTag(ctx context.Context, entityType models.EntityType, id, tag string) error
}

// Persistence bundles the repositories behind one connection-scoped
// handle.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	RecordRepository() RecordRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
