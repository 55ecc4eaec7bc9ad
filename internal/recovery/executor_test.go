package recovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/transaction"
)

type scriptedActionExecutor struct {
	executed     []transaction.ActionKind
	failingKinds map[transaction.ActionKind]bool
}

func (executor *scriptedActionExecutor) Execute(_ context.Context, action transaction.CompensatingAction) error {
	executor.executed = append(executor.executed, action.Kind)
	if executor.failingKinds[action.Kind] {
		return errors.New("exit status 128")
	}
	return nil
}

func TestExecutorReplaysAndAlwaysDeletesState(testInstance *testing.T) {
	store := recovery.NewStore(testInstance.TempDir(), nil)
	state := sampleState(olderTransactionIDConstant, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	state.RollbackActions = append(state.RollbackActions, transaction.NewDiscardBackupAction(testRepositoryPathConstant, "/backups/README.md"))
	require.NoError(testInstance, store.Save(state))
	backupDirectory := store.BackupDirectory(olderTransactionIDConstant)
	require.NoError(testInstance, os.MkdirAll(backupDirectory, 0o700))
	require.NoError(testInstance, os.WriteFile(filepath.Join(backupDirectory, "README.md"), []byte("backup"), 0o600))

	actionExecutor := &scriptedActionExecutor{failingKinds: map[transaction.ActionKind]bool{transaction.KindSwitchAndDelete: true}}
	executor, creationError := recovery.NewExecutor(store, actionExecutor, nil)
	require.NoError(testInstance, creationError)

	report, executionError := executor.Execute(context.Background(), olderTransactionIDConstant)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, []transaction.ActionKind{transaction.KindResetHard, transaction.KindSwitchAndDelete}, actionExecutor.executed)
	require.Equal(testInstance, 2, report.Attempted)
	require.Equal(testInstance, 1, report.Succeeded)
	require.Equal(testInstance, 1, report.Failed)
	require.Len(testInstance, report.Failures, 1)

	_, loadError := store.Load(olderTransactionIDConstant)
	require.ErrorIs(testInstance, loadError, recovery.ErrStateNotFound)
	require.NoDirExists(testInstance, backupDirectory)
}

func TestExecutorReportsMissingState(testInstance *testing.T) {
	executor, creationError := recovery.NewExecutor(recovery.NewStore(testInstance.TempDir(), nil), &scriptedActionExecutor{}, nil)
	require.NoError(testInstance, creationError)

	_, executionError := executor.Execute(context.Background(), "tx-missing")
	require.ErrorIs(testInstance, executionError, recovery.ErrStateNotFound)
}

func TestNewExecutorRequiresCollaborators(testInstance *testing.T) {
	_, creationError := recovery.NewExecutor(nil, &scriptedActionExecutor{}, nil)
	require.ErrorIs(testInstance, creationError, recovery.ErrExecutorNotConfigured)
}
