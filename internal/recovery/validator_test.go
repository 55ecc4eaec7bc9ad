package recovery_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/transaction"
)

type stubInspector struct {
	isRepository        bool
	currentBranch       string
	existingBranches    map[string]bool
	dirty               bool
	remoteBranchPresent bool
}

func (inspector stubInspector) IsRepository(context.Context, string) (bool, error) {
	return inspector.isRepository, nil
}

func (inspector stubInspector) CurrentBranch(context.Context, string) (string, error) {
	return inspector.currentBranch, nil
}

func (inspector stubInspector) BranchExists(_ context.Context, _ string, branchName string) (bool, error) {
	return inspector.existingBranches[branchName], nil
}

func (inspector stubInspector) HasUncommittedChanges(context.Context, string) (bool, error) {
	return inspector.dirty, nil
}

func (inspector stubInspector) RemoteBranchExists(context.Context, string, string, string) (bool, error) {
	return inspector.remoteBranchPresent, nil
}

func TestValidatorClassifiesProblems(testInstance *testing.T) {
	repositoryPath := testInstance.TempDir()
	missingBackup := filepath.Join(testInstance.TempDir(), "gone.bak")

	testCases := []struct {
		name             string
		inspector        stubInspector
		actions          []transaction.CompensatingAction
		expectValid      bool
		expectedWarnings int
		expectedErrors   int
	}{
		{
			name:        "clean_state",
			inspector:   stubInspector{isRepository: true, currentBranch: "main", existingBranches: map[string]bool{"main": true}, remoteBranchPresent: true},
			actions:     []transaction.CompensatingAction{transaction.NewSwitchAndDeleteBranchAction(repositoryPath, "main", "GX-1"), transaction.NewDeleteRemoteBranchAction(repositoryPath, "origin", "GX-1")},
			expectValid: true,
		},
		{
			name:             "warnings_do_not_block",
			inspector:        stubInspector{isRepository: true, currentBranch: "GX-1", dirty: true},
			actions:          []transaction.CompensatingAction{transaction.NewSwitchBranchAction(repositoryPath, "main"), transaction.NewResetHardAction(repositoryPath, "abc"), transaction.NewStashPopAction(repositoryPath), transaction.NewRestoreFileAction(repositoryPath, filepath.Join(repositoryPath, "a"), missingBackup), transaction.NewDeleteRemoteBranchAction(repositoryPath, "origin", "GX-1")},
			expectValid:      true,
			expectedWarnings: 5,
		},
		{
			name:           "deleting_checked_out_branch_is_an_error",
			inspector:      stubInspector{isRepository: true, currentBranch: "GX-1"},
			actions:        []transaction.CompensatingAction{transaction.NewDeleteBranchAction(repositoryPath, "GX-1")},
			expectValid:    false,
			expectedErrors: 1,
		},
		{
			name:           "missing_repository_reported_once",
			inspector:      stubInspector{isRepository: true},
			actions:        []transaction.CompensatingAction{transaction.NewResetHardAction(filepath.Join(repositoryPath, "absent"), "abc"), transaction.NewStashPopAction(filepath.Join(repositoryPath, "absent"))},
			expectValid:    false,
			expectedErrors: 1,
		},
		{
			name:           "not_a_repository",
			inspector:      stubInspector{isRepository: false},
			actions:        []transaction.CompensatingAction{transaction.NewResetHardAction(repositoryPath, "abc")},
			expectValid:    false,
			expectedErrors: 1,
		},
		{
			name:        "cleanup_actions_ignored",
			inspector:   stubInspector{isRepository: false},
			actions:     []transaction.CompensatingAction{transaction.NewDiscardBackupAction(repositoryPath, missingBackup)},
			expectValid: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			validator, creationError := recovery.NewValidator(testCase.inspector)
			require.NoError(testInstance, creationError)

			result := validator.Validate(context.Background(), testCase.actions)
			require.Equal(testInstance, testCase.expectValid, result.Valid)
			require.Len(testInstance, result.Warnings, testCase.expectedWarnings)
			require.Len(testInstance, result.Errors, testCase.expectedErrors)
		})
	}
}
