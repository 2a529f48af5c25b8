package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (r *WorkflowRepository) dir() string {
	return filepath.Join(r.root, "workflows")
}

// Workflows returns every stored workflow definition.
func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	root := os.DirFS(r.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.WorkflowDefinition, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		id := name[:len(name)-len(".json")]

		workflow, err := r.WorkflowByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// WorkflowByID retrieves a workflow definition by its ID.
func (r *WorkflowRepository) WorkflowByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	if err := validateDocumentID(id); err != nil {
		return nil, fmt.Errorf("invalid workflow ID: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var workflow models.WorkflowDefinition

	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

// SaveWorkflow writes a workflow definition to the file system.
func (r *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.WorkflowDefinition) error {
	if err := validateDocumentID(workflow.ID); err != nil {
		return fmt.Errorf("invalid workflow ID: %w", err)
	}

	if err := os.MkdirAll(r.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	err = os.WriteFile(filepath.Join(r.dir(), workflow.ID+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow definition from the file system.
func (r *WorkflowRepository) DeleteWorkflow(_ context.Context, id string) error {
	if err := validateDocumentID(id); err != nil {
		return fmt.Errorf("invalid workflow ID: %w", err)
	}

	err := os.Remove(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrWorkflowNotFound
		}

		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
