package recovery

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/gx/internal/transaction"
)

const (
	recoveryActionFailedMessageConstant  = "Recovery action failed"
	recoveryCleanupFailedMessageConstant = "Unable to remove recovery state after replay"
	transactionIDFieldNameConstant       = "transaction_id"
	actionFieldNameConstant              = "action"
)

// ErrExecutorNotConfigured indicates that the recovery executor lacks a store or action executor.
var ErrExecutorNotConfigured = errors.New("recovery executor not configured")

// Executor replays persisted compensations after the process that recorded them has exited.
type Executor struct {
	store          *Store
	actionExecutor transaction.ActionExecutor
	logger         *zap.Logger
}

// NewExecutor constructs a recovery executor.
func NewExecutor(store *Store, actionExecutor transaction.ActionExecutor, logger *zap.Logger) (*Executor, error) {
	if store == nil || actionExecutor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{store: store, actionExecutor: actionExecutor, logger: logger}, nil
}

// Execute loads a transaction, replays its non-cleanup actions in reverse order and deletes the
// state file together with its backups whether or not every action succeeded.
func (executor *Executor) Execute(executionContext context.Context, transactionID string) (transaction.RollbackReport, error) {
	state, loadError := executor.store.Load(transactionID)
	if loadError != nil {
		return transaction.RollbackReport{TransactionID: transactionID}, loadError
	}

	report := executor.Replay(executionContext, state)

	if cleanupError := errors.Join(executor.store.Delete(state.TransactionID), executor.store.DeleteBackups(state.TransactionID)); cleanupError != nil {
		executor.logger.Warn(recoveryCleanupFailedMessageConstant, zap.String(transactionIDFieldNameConstant, state.TransactionID), zap.Error(cleanupError))
	}
	return report, nil
}

// Replay executes the state's compensations in reverse order without touching the store.
func (executor *Executor) Replay(executionContext context.Context, state transaction.State) transaction.RollbackReport {
	report := transaction.RollbackReport{TransactionID: state.TransactionID}
	for actionIndex := len(state.RollbackActions) - 1; actionIndex >= 0; actionIndex-- {
		action := state.RollbackActions[actionIndex]
		if action.IsCleanup() {
			continue
		}

		report.Attempted++
		executionError := executor.actionExecutor.Execute(executionContext, action)
		if executionError == nil {
			report.Succeeded++
			continue
		}

		report.Failed++
		report.Failures = append(report.Failures, transaction.ActionFailure{
			Action:  action,
			Kind:    action.Kind,
			Target:  action.Description,
			Message: executionError.Error(),
		})
		executor.logger.Warn(recoveryActionFailedMessageConstant,
			zap.String(transactionIDFieldNameConstant, state.TransactionID),
			zap.String(actionFieldNameConstant, string(action.Kind)),
			zap.Error(executionError),
		)
	}
	return report
}
