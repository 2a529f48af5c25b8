package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Workflows returns all workflows from the database.
func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT
			id
		  , name
		  , active
		  , trigger_config
		  , actions
		  , created_at
		  , updated_at
		FROM workflows
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflows: %w", err)
	}

	return workflows, nil
}

// WorkflowByID returns a workflow by its ID.
func (r *WorkflowRepository) WorkflowByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT
			id
		  , name
		  , active
		  , trigger_config
		  , actions
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	return workflow, nil
}

// SaveWorkflow inserts or updates a workflow definition.
func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.WorkflowDefinition) error {
	triggerJSON, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	actionsJSON, err := json.Marshal(workflow.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, active, trigger_config, actions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			trigger_config = EXCLUDED.trigger_config,
			actions = EXCLUDED.actions,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Active,
		triggerJSON,
		actionsJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow definition.
func (r *WorkflowRepository) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to inspect delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		workflow    models.WorkflowDefinition
		triggerJSON []byte
		actionsJSON []byte
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Active,
		&triggerJSON,
		&actionsJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := json.Unmarshal(triggerJSON, &workflow.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	if err := json.Unmarshal(actionsJSON, &workflow.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	workflow.CreatedAt = createdAt
	workflow.UpdatedAt = updatedAt

	return &workflow, nil
}
