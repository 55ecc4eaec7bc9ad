package transaction

import (
	"errors"
	"fmt"
)

var (
	// ErrActionExecutorNotConfigured indicates that no executor was supplied.
	ErrActionExecutorNotConfigured = errors.New("transaction: action executor not configured")
	// ErrTransactionFinished indicates an attempt to record work after commit or rollback.
	ErrTransactionFinished = errors.New("transaction: already committed or rolled back")
)

// InvalidActionError describes a malformed compensating action.
type InvalidActionError struct {
	Action CompensatingAction
	Reason string
}

// Error describes the invalid action.
func (invalidError InvalidActionError) Error() string {
	return fmt.Sprintf("invalid %s/%s action: %s", invalidError.Action.Category, invalidError.Action.Kind, invalidError.Reason)
}

// ActionExecutionError wraps a failure executing one compensating action.
type ActionExecutionError struct {
	Action CompensatingAction
	Cause  error
}

// Error describes the failure.
func (executionError ActionExecutionError) Error() string {
	return fmt.Sprintf("%s failed in %s: %v", executionError.Action.Description, executionError.Action.RepositoryPath, executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError ActionExecutionError) Unwrap() error {
	return executionError.Cause
}

// PersistenceError wraps a failure writing or removing transaction state.
type PersistenceError struct {
	TransactionID string
	Cause         error
}

// Error describes the failure.
func (persistenceError PersistenceError) Error() string {
	return fmt.Sprintf("persist transaction %s: %v", persistenceError.TransactionID, persistenceError.Cause)
}

// Unwrap exposes the underlying cause.
func (persistenceError PersistenceError) Unwrap() error {
	return persistenceError.Cause
}
