// Package persistence provides standardized error types shared by all
// storage implementations.
package persistence

import "errors"

var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrRecordNotFound indicates a domain record was not found.
	ErrRecordNotFound = errors.New("record not found")

	// ErrExecutionFinalized indicates an attempt to modify an execution
	// record that already reached a terminal state.
	ErrExecutionFinalized = errors.New("execution already finalized")
)

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsRecordNotFound checks if an error indicates a missing domain record.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
