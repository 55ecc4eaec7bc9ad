package transaction_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/execshell"
	"github.com/temirov/gx/internal/gitrepo"
	"github.com/temirov/gx/internal/repos/filesystem"
	"github.com/temirov/gx/internal/transaction"
)

type stubVersionControl struct {
	calls           []string
	deleteLocalErr  error
	deleteRemoteErr error
}

func (control *stubVersionControl) SwitchBranch(_ context.Context, _ string, branchName string) error {
	control.calls = append(control.calls, "switch "+branchName)
	return nil
}

func (control *stubVersionControl) DeleteLocalBranch(_ context.Context, _ string, branchName string) error {
	control.calls = append(control.calls, "delete "+branchName)
	return control.deleteLocalErr
}

func (control *stubVersionControl) ResetHard(_ context.Context, _ string, reference string) error {
	control.calls = append(control.calls, "reset "+reference)
	return nil
}

func (control *stubVersionControl) StashPop(context.Context, string) error {
	control.calls = append(control.calls, "stash pop")
	return nil
}

func (control *stubVersionControl) DeleteRemoteBranch(_ context.Context, _ string, remoteName string, branchName string) error {
	control.calls = append(control.calls, "push "+remoteName+" --delete "+branchName)
	return control.deleteRemoteErr
}

func notFoundFailure(operation gitrepo.OperationName, standardError string) error {
	return gitrepo.RepositoryOperationError{
		Operation: operation,
		Cause: execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandGit},
			Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: standardError},
		},
	}
}

func TestRepositoryCompensatorRestoresBytesAndMode(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	backupDirectory := testInstance.TempDir()
	targetPath := filepath.Join(workingDirectory, "scripts", "deploy.sh")
	backupPath := filepath.Join(backupDirectory, "deploy.sh")
	originalContent := []byte("#!/bin/sh\r\necho \"deploy\"\x00\n")
	require.NoError(testInstance, os.WriteFile(backupPath, originalContent, 0o750))

	compensator, creationError := transaction.NewRepositoryCompensator(&stubVersionControl{}, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, compensator.Execute(context.Background(), transaction.NewRestoreFileAction(workingDirectory, targetPath, backupPath)))

	restoredContent, readError := os.ReadFile(targetPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, originalContent, restoredContent)
	restoredInfo, statError := os.Stat(targetPath)
	require.NoError(testInstance, statError)
	require.Equal(testInstance, os.FileMode(0o750), restoredInfo.Mode().Perm())
	require.NoFileExists(testInstance, backupPath)

	require.NoError(testInstance, compensator.Execute(context.Background(), transaction.NewRestoreFileAction(workingDirectory, targetPath, backupPath)))
	require.NoError(testInstance, compensator.Execute(context.Background(), transaction.NewRemoveFileAction(workingDirectory, filepath.Join(workingDirectory, "absent.txt"))))
	require.NoError(testInstance, compensator.Execute(context.Background(), transaction.NewDiscardBackupAction(workingDirectory, backupPath)))
}

func TestRepositoryCompensatorRemovesCreatedFiles(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	createdPath := filepath.Join(workingDirectory, "NOTES.md")
	require.NoError(testInstance, os.WriteFile(createdPath, []byte("notes"), 0o644))

	compensator, creationError := transaction.NewRepositoryCompensator(&stubVersionControl{}, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, compensator.Execute(context.Background(), transaction.NewRemoveFileAction(workingDirectory, createdPath)))
	require.NoFileExists(testInstance, createdPath)
}

func TestRepositoryCompensatorGitActions(testInstance *testing.T) {
	testCases := []struct {
		name          string
		action        transaction.CompensatingAction
		control       *stubVersionControl
		expectedCalls []string
		expectError   bool
	}{
		{
			name:          "switch_and_delete",
			action:        transaction.NewSwitchAndDeleteBranchAction(testRepositoryPathConstant, testOriginalBranchConstant, testCreatedBranchConstant),
			control:       &stubVersionControl{},
			expectedCalls: []string{"switch main", "delete " + testCreatedBranchConstant},
		},
		{
			name:          "switch_and_delete_tolerates_missing_branch",
			action:        transaction.NewSwitchAndDeleteBranchAction(testRepositoryPathConstant, testOriginalBranchConstant, testCreatedBranchConstant),
			control:       &stubVersionControl{deleteLocalErr: notFoundFailure(gitrepo.OperationDeleteLocalBranch, "error: branch 'GX-2024-05-01' not found.")},
			expectedCalls: []string{"switch main", "delete " + testCreatedBranchConstant},
		},
		{
			name:          "reset_hard",
			action:        transaction.NewResetHardAction(testRepositoryPathConstant, "abc123"),
			control:       &stubVersionControl{},
			expectedCalls: []string{"reset abc123"},
		},
		{
			name:          "stash_pop",
			action:        transaction.NewStashPopAction(testRepositoryPathConstant),
			control:       &stubVersionControl{},
			expectedCalls: []string{"stash pop"},
		},
		{
			name:          "remote_delete_tolerates_missing_ref",
			action:        transaction.NewDeleteRemoteBranchAction(testRepositoryPathConstant, "origin", testCreatedBranchConstant),
			control:       &stubVersionControl{deleteRemoteErr: notFoundFailure(gitrepo.OperationDeleteRemoteBranch, "error: unable to delete: remote ref does not exist")},
			expectedCalls: []string{"push origin --delete " + testCreatedBranchConstant},
		},
		{
			name:          "remote_delete_reports_other_failures",
			action:        transaction.NewDeleteRemoteBranchAction(testRepositoryPathConstant, "origin", testCreatedBranchConstant),
			control:       &stubVersionControl{deleteRemoteErr: notFoundFailure(gitrepo.OperationDeleteRemoteBranch, "fatal: Authentication failed")},
			expectedCalls: []string{"push origin --delete " + testCreatedBranchConstant},
			expectError:   true,
		},
		{
			name:          "remote_delete_reports_missing_repository",
			action:        transaction.NewDeleteRemoteBranchAction(testRepositoryPathConstant, "origin", testCreatedBranchConstant),
			control:       &stubVersionControl{deleteRemoteErr: notFoundFailure(gitrepo.OperationDeleteRemoteBranch, "ERROR: Repository not found.\nfatal: Could not read from remote repository.")},
			expectedCalls: []string{"push origin --delete " + testCreatedBranchConstant},
			expectError:   true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			compensator, creationError := transaction.NewRepositoryCompensator(testCase.control, filesystem.OSFileSystem{})
			require.NoError(testInstance, creationError)

			executionError := compensator.Execute(context.Background(), testCase.action)
			require.Equal(testInstance, testCase.expectedCalls, testCase.control.calls)
			if testCase.expectError {
				require.IsType(testInstance, transaction.ActionExecutionError{}, executionError)
				return
			}
			require.NoError(testInstance, executionError)
		})
	}
}
