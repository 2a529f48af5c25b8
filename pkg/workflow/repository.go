package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

type Repository struct {
	persistence persistence.Persistence
	validator   *Validator
}

func NewRepository(persistence persistence.Persistence, validator *Validator) *Repository {
	return &Repository{
		persistence: persistence,
		validator:   validator,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	workflows, err := r.persistence.WorkflowRepository().Workflows(ctx)
	if err != nil {
		return make([]*models.WorkflowDefinition, 0), err
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	workflow, err := r.persistence.WorkflowRepository().WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

func (r *Repository) Create(ctx context.Context, workflow *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := r.validator.ValidateWorkflow(workflow); err != nil {
		return nil, err
	}

	err := r.persistence.WorkflowRepository().SaveWorkflow(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Update(ctx context.Context, id string, workflow *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	existing, err := r.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = existing.ID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := r.validator.ValidateWorkflow(workflow); err != nil {
		return nil, err
	}

	err = r.persistence.WorkflowRepository().SaveWorkflow(ctx, workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.persistence.WorkflowRepository().DeleteWorkflow(ctx, id)
}
