// Package file provides file-based persistence for development and
// tests. Every record is one JSON document under the configured root.
package file

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/helixcrm/helix/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file
// system.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	recordRepo    *RecordRepository
}

// NewPersistence creates a file persistence rooted at the given
// directory. A "file://" prefix is tolerated so the root can be passed
// as a database URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
		recordRepo:    NewRecordRepository(cleanRoot),
	}
}

// WorkflowRepository returns the workflow repository implementation.
func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// ExecutionRepository returns the execution repository implementation.
func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

// RecordRepository returns the domain record repository implementation.
func (p *Persistence) RecordRepository() persistence.RecordRepository {
	return p.recordRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. There is nothing to clean up
// for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// validateDocumentID rejects identifiers that are unsafe as file names.
func validateDocumentID(id string) error {
	if id == "" {
		return errors.New("document ID cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("document ID contains invalid characters")
	}

	return nil
}
