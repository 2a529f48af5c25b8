package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

// ExecutionRepository handles execution-record file operations.
type ExecutionRepository struct {
	root string
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) dir() string {
	return filepath.Join(r.root, "executions")
}

// SaveExecution writes an execution record. Terminal records are
// immutable: overwriting a completed or failed execution is rejected.
func (r *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	if err := validateDocumentID(execution.ID); err != nil {
		return fmt.Errorf("invalid execution ID: %w", err)
	}

	existing, err := r.ExecutionByID(ctx, execution.ID)
	if err != nil && !persistence.IsExecutionNotFound(err) {
		return err
	}

	if existing != nil && existing.IsTerminal() {
		return persistence.ErrExecutionFinalized
	}

	if err := os.MkdirAll(r.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	err = os.WriteFile(filepath.Join(r.dir(), execution.ID+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

// ExecutionByID retrieves an execution record by its ID.
func (r *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	if err := validateDocumentID(id); err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(r.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.WorkflowExecution

	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return &execution, nil
}

// ExecutionsByWorkflow returns every execution of one workflow, newest
// first.
func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	root := os.DirFS(r.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0)

	for _, name := range jsonFiles {
		id := name[:len(name)-len(".json")]

		execution, err := r.ExecutionByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}
