package transaction

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/temirov/gx/internal/gitrepo"
	"github.com/temirov/gx/internal/repos/shared"
)

const restoredDirectoryPermissionsConstant fs.FileMode = 0o755

// ActionExecutor executes one compensating action.
type ActionExecutor interface {
	Execute(executionContext context.Context, action CompensatingAction) error
}

// VersionControl is the subset of git operations compensating actions need.
type VersionControl interface {
	SwitchBranch(executionContext context.Context, repositoryPath string, branchName string) error
	DeleteLocalBranch(executionContext context.Context, repositoryPath string, branchName string) error
	ResetHard(executionContext context.Context, repositoryPath string, reference string) error
	StashPop(executionContext context.Context, repositoryPath string) error
	DeleteRemoteBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
}

// RepositoryCompensator executes compensating actions against a working tree.
// Actions whose target is already gone succeed so that replays are idempotent.
type RepositoryCompensator struct {
	versionControl VersionControl
	fileSystem     shared.FileSystem
}

// NewRepositoryCompensator constructs a compensator.
func NewRepositoryCompensator(versionControl VersionControl, fileSystem shared.FileSystem) (*RepositoryCompensator, error) {
	if versionControl == nil || fileSystem == nil {
		return nil, ErrActionExecutorNotConfigured
	}
	return &RepositoryCompensator{versionControl: versionControl, fileSystem: fileSystem}, nil
}

// Execute runs the action.
func (compensator *RepositoryCompensator) Execute(executionContext context.Context, action CompensatingAction) error {
	if validationError := action.Validate(); validationError != nil {
		return validationError
	}

	var executionError error
	switch action.Kind {
	case KindRestoreFile:
		executionError = compensator.restoreFile(action.TargetPath, action.BackupPath)
	case KindRemoveFile:
		executionError = compensator.removeIfPresent(action.TargetPath)
	case KindDiscardBackup:
		executionError = compensator.removeIfPresent(action.BackupPath)
	case KindResetHard:
		executionError = compensator.versionControl.ResetHard(executionContext, action.RepositoryPath, action.Reference)
	case KindSwitchAndDelete:
		executionError = compensator.versionControl.SwitchBranch(executionContext, action.RepositoryPath, action.OriginalBranch)
		if executionError == nil {
			executionError = ignoreNotFound(compensator.versionControl.DeleteLocalBranch(executionContext, action.RepositoryPath, action.CreatedBranch))
		}
	case KindSwitchBranch:
		executionError = compensator.versionControl.SwitchBranch(executionContext, action.RepositoryPath, action.OriginalBranch)
	case KindDeleteBranch:
		executionError = ignoreNotFound(compensator.versionControl.DeleteLocalBranch(executionContext, action.RepositoryPath, action.CreatedBranch))
	case KindStashPop:
		executionError = compensator.versionControl.StashPop(executionContext, action.RepositoryPath)
	case KindDeleteRemoteBranch:
		executionError = ignoreNotFound(compensator.versionControl.DeleteRemoteBranch(executionContext, action.RepositoryPath, action.RemoteName, action.BranchName))
	}

	if executionError != nil {
		return ActionExecutionError{Action: action, Cause: executionError}
	}
	return nil
}

func (compensator *RepositoryCompensator) restoreFile(targetPath string, backupPath string) error {
	backupInfo, statError := compensator.fileSystem.Stat(backupPath)
	if errors.Is(statError, fs.ErrNotExist) {
		return nil
	}
	if statError != nil {
		return statError
	}

	backupContent, readError := compensator.fileSystem.ReadFile(backupPath)
	if readError != nil {
		return readError
	}
	if directoryError := compensator.fileSystem.MkdirAll(filepath.Dir(targetPath), restoredDirectoryPermissionsConstant); directoryError != nil {
		return directoryError
	}
	if writeError := compensator.fileSystem.WriteFile(targetPath, backupContent, backupInfo.Mode().Perm()); writeError != nil {
		return writeError
	}
	return compensator.removeIfPresent(backupPath)
}

func (compensator *RepositoryCompensator) removeIfPresent(path string) error {
	removeError := compensator.fileSystem.Remove(path)
	if removeError == nil || errors.Is(removeError, fs.ErrNotExist) {
		return nil
	}
	return removeError
}

func ignoreNotFound(operationError error) error {
	if gitrepo.IsNotFound(operationError) {
		return nil
	}
	return operationError
}
