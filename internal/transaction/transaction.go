package transaction

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/gx/internal/repos/shared"
)

const (
	transactionIDFieldNameConstant  = "transaction_id"
	actionKindFieldNameConstant     = "action"
	repositoryFieldNameConstant     = "repository"
	compensationFailedMessage       = "Compensating action failed"
	cleanupFailedMessage            = "Cleanup action failed"
	rollbackHaltedMessage           = "Rollback halted after first failure"
	statePersistenceFailedMessage   = "Unable to update persisted transaction state"
	rollbackCompletedMessage        = "Rollback finished"
	transactionCommittedMessage     = "Transaction committed"
	rollbackPointRecordedMessage    = "Rollback point recorded"
	compensationRegisteredMessage   = "Compensation registered"
	attemptedFieldNameConstant      = "attempted"
	failedFieldNameConstant         = "failed"
	rollbackPointLabelFieldConstant = "label"
)

// Options configures a Transaction.
type Options struct {
	Executor           ActionExecutor
	IDGenerator        IDGenerator
	Persister          Persister
	Clock              shared.Clock
	Logger             *zap.Logger
	StopOnFirstFailure bool
}

// Transaction accumulates compensating actions for one repository and terminates by
// exactly one of Commit or Rollback. It is safe for concurrent use, though a pipeline
// normally drives it from a single goroutine.
type Transaction struct {
	mutex              sync.Mutex
	identifier         string
	actions            []CompensatingAction
	rollbackPoints     []string
	operationCount     int
	createdAt          time.Time
	finished           bool
	committed          bool
	executor           ActionExecutor
	persister          Persister
	logger             *zap.Logger
	stopOnFirstFailure bool
}

// New constructs a transaction. Persistence is enabled when a Persister is supplied.
func New(options Options) (*Transaction, error) {
	if options.Executor == nil {
		return nil, ErrActionExecutorNotConfigured
	}
	idGenerator := options.IDGenerator
	if idGenerator == nil {
		idGenerator = NewSequentialIDGenerator(options.Clock)
	}
	clock := options.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	identifier := idGenerator.NextID()
	return &Transaction{
		identifier:         identifier,
		createdAt:          clock.Now().UTC(),
		executor:           options.Executor,
		persister:          options.Persister,
		logger:             logger.With(zap.String(transactionIDFieldNameConstant, identifier)),
		stopOnFirstFailure: options.StopOnFirstFailure,
	}, nil
}

// ID returns the transaction identifier.
func (transaction *Transaction) ID() string {
	return transaction.identifier
}

// Actions returns a copy of the recorded actions in registration order.
func (transaction *Transaction) Actions() []CompensatingAction {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	return append([]CompensatingAction(nil), transaction.actions...)
}

// OperationCount returns the number of compensations registered so far.
func (transaction *Transaction) OperationCount() int {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	return transaction.operationCount
}

// IsCommitted reports whether Commit has run.
func (transaction *Transaction) IsCommitted() bool {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	return transaction.committed
}

// State returns the durable representation of the transaction.
func (transaction *Transaction) State() State {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	return transaction.stateLocked(transaction.actions)
}

// AddCompensation appends an action. When persistence is enabled the state is written
// before returning and a write failure is returned.
func (transaction *Transaction) AddCompensation(action CompensatingAction) error {
	if validationError := action.Validate(); validationError != nil {
		return validationError
	}

	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	if transaction.finished {
		return ErrTransactionFinished
	}

	transaction.actions = append(transaction.actions, action)
	transaction.operationCount++
	transaction.logger.Debug(compensationRegisteredMessage,
		zap.String(actionKindFieldNameConstant, string(action.Kind)),
		zap.String(repositoryFieldNameConstant, action.RepositoryPath),
	)
	return transaction.persistLocked(transaction.actions)
}

// AddRollbackPoint records a diagnostic label.
func (transaction *Transaction) AddRollbackPoint(label string) error {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()
	if transaction.finished {
		return ErrTransactionFinished
	}

	transaction.rollbackPoints = append(transaction.rollbackPoints, label)
	transaction.logger.Debug(rollbackPointRecordedMessage, zap.String(rollbackPointLabelFieldConstant, label))
	return transaction.persistLocked(transaction.actions)
}

// Commit runs cleanup actions in registration order, clears the action list and deletes the
// persisted state. Cleanup failures are logged and reported but never fatal. Subsequent calls
// and calls after Rollback return an empty report.
func (transaction *Transaction) Commit(executionContext context.Context) CommitReport {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()

	report := CommitReport{TransactionID: transaction.identifier}
	if transaction.finished {
		return report
	}

	for _, action := range transaction.actions {
		if !action.IsCleanup() {
			continue
		}
		report.CleanupAttempted++
		if executionError := transaction.executor.Execute(executionContext, action); executionError != nil {
			report.CleanupFailed++
			report.Failures = append(report.Failures, newActionFailure(action, executionError))
			transaction.logger.Warn(cleanupFailedMessage, zap.String(actionKindFieldNameConstant, string(action.Kind)), zap.Error(executionError))
		}
	}

	transaction.finished = true
	transaction.committed = true
	transaction.actions = nil
	transaction.deletePersistedLocked()
	transaction.logger.Debug(transactionCommittedMessage)
	return report
}

// Rollback executes non-cleanup actions in reverse registration order. Failures are recorded
// and execution continues unless the transaction stops on first failure, in which case the
// report is halted and the remaining actions are counted as skipped. After a rollback in which
// every action succeeded the persisted state is deleted; otherwise it is rewritten with the
// actions that did not succeed so that recovery can finish the job.
func (transaction *Transaction) Rollback(executionContext context.Context) RollbackReport {
	transaction.mutex.Lock()
	defer transaction.mutex.Unlock()

	report := RollbackReport{TransactionID: transaction.identifier}
	if transaction.finished {
		return report
	}
	transaction.finished = true

	outstanding := make([]bool, len(transaction.actions))
	for actionIndex := len(transaction.actions) - 1; actionIndex >= 0; actionIndex-- {
		action := transaction.actions[actionIndex]
		if action.IsCleanup() {
			continue
		}
		if report.Halted {
			report.Skipped++
			outstanding[actionIndex] = true
			continue
		}

		report.Attempted++
		executionError := transaction.executor.Execute(executionContext, action)
		if executionError == nil {
			report.Succeeded++
			continue
		}

		report.Failed++
		report.Failures = append(report.Failures, newActionFailure(action, executionError))
		outstanding[actionIndex] = true
		transaction.logger.Warn(compensationFailedMessage,
			zap.String(actionKindFieldNameConstant, string(action.Kind)),
			zap.String(repositoryFieldNameConstant, action.RepositoryPath),
			zap.Error(executionError),
		)
		if transaction.stopOnFirstFailure {
			report.Halted = true
			transaction.logger.Warn(rollbackHaltedMessage)
		}
	}

	remaining := make([]CompensatingAction, 0, report.Failed+report.Skipped)
	for actionIndex, action := range transaction.actions {
		if outstanding[actionIndex] {
			remaining = append(remaining, action)
		}
	}
	transaction.actions = nil

	if len(remaining) == 0 {
		transaction.deletePersistedLocked()
	} else if persistError := transaction.persistLocked(remaining); persistError != nil {
		transaction.logger.Warn(statePersistenceFailedMessage, zap.Error(persistError))
	}

	transaction.logger.Debug(rollbackCompletedMessage,
		zap.Int(attemptedFieldNameConstant, report.Attempted),
		zap.Int(failedFieldNameConstant, report.Failed),
	)
	return report
}

func (transaction *Transaction) stateLocked(actions []CompensatingAction) State {
	return State{
		TransactionID:   transaction.identifier,
		RollbackActions: append([]CompensatingAction{}, actions...),
		RollbackPoints:  append([]string{}, transaction.rollbackPoints...),
		OperationCount:  transaction.operationCount,
		CreatedAt:       transaction.createdAt,
	}
}

func (transaction *Transaction) persistLocked(actions []CompensatingAction) error {
	if transaction.persister == nil {
		return nil
	}
	if saveError := transaction.persister.Save(transaction.stateLocked(actions)); saveError != nil {
		return PersistenceError{TransactionID: transaction.identifier, Cause: saveError}
	}
	return nil
}

func (transaction *Transaction) deletePersistedLocked() {
	if transaction.persister == nil {
		return
	}
	if deleteError := transaction.persister.Delete(transaction.identifier); deleteError != nil {
		transaction.logger.Warn(statePersistenceFailedMessage, zap.Error(PersistenceError{TransactionID: transaction.identifier, Cause: deleteError}))
	}
}
