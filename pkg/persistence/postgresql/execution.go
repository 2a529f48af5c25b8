package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixcrm/helix/pkg/models"
	"github.com/helixcrm/helix/pkg/persistence"
)

// ExecutionRepository handles execution-record database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// SaveExecution inserts or finalizes an execution record. The
// conditional update keeps terminal rows immutable: only a RUNNING row
// can be overwritten.
func (r *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	resultJSON, err := json.Marshal(execution.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	query := `
		INSERT INTO workflow_executions
			(id, workflow_id, status, trigger_data, result, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
		WHERE workflow_executions.status = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.Status,
		triggerJSON,
		resultJSON,
		execution.Error,
		execution.StartedAt,
		execution.CompletedAt,
		models.ExecutionStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to inspect save result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionFinalized
	}

	return nil
}

// ExecutionByID returns an execution record by its ID.
func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , trigger_data
		  , result
		  , error
		  , started_at
		  , completed_at
		FROM workflow_executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return execution, nil
}

// ExecutionsByWorkflow returns every execution of one workflow, newest
// first.
func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , status
		  , trigger_data
		  , result
		  , error
		  , started_at
		  , completed_at
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution   models.WorkflowExecution
		triggerJSON []byte
		resultJSON  []byte
		errMessage  sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.Status,
		&triggerJSON,
		&resultJSON,
		&errMessage,
		&execution.StartedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	if len(triggerJSON) > 0 {
		if err := json.Unmarshal(triggerJSON, &execution.TriggerData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &execution.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution result: %w", err)
		}
	}

	execution.Error = errMessage.String

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	return &execution, nil
}
