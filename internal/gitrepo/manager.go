package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/temirov/gx/internal/execshell"
)

const (
	gitStatusSubcommandConstant       = "status"
	gitPorcelainFlagConstant          = "--porcelain"
	gitRevParseSubcommandConstant     = "rev-parse"
	gitInsideWorkTreeFlagConstant     = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant          = "--abbrev-ref"
	gitVerifyFlagConstant             = "--verify"
	gitQuietFlagConstant              = "--quiet"
	gitHeadReferenceConstant          = "HEAD"
	gitLocalBranchReferencePrefix     = "refs/heads/"
	gitCheckoutSubcommandConstant     = "checkout"
	gitNewBranchFlagConstant          = "-b"
	gitBranchSubcommandConstant       = "branch"
	gitForceDeleteFlagConstant        = "-D"
	gitAddSubcommandConstant          = "add"
	gitAllFlagConstant                = "-A"
	gitCommitSubcommandConstant       = "commit"
	gitMessageFlagConstant            = "-m"
	gitPushSubcommandConstant         = "push"
	gitSetUpstreamFlagConstant        = "--set-upstream"
	gitDeleteFlagConstant             = "--delete"
	gitResetSubcommandConstant        = "reset"
	gitHardFlagConstant               = "--hard"
	gitStashSubcommandConstant        = "stash"
	gitPopSubcommandConstant          = "pop"
	gitLsRemoteSubcommandConstant     = "ls-remote"
	gitHeadsFlagConstant              = "--heads"
	gitTrueOutputConstant             = "true"
	executorNotConfiguredMessage      = "git executor not configured"
	operationErrorTemplateConstant    = "%s failed in %s: %v"
	invalidInputErrorTemplateConstant = "%s: %s"
	repositoryPathFieldNameConstant   = "repository_path"
	branchNameFieldNameConstant       = "branch_name"
	remoteNameFieldNameConstant       = "remote_name"
	referenceFieldNameConstant        = "reference"
	commitMessageFieldNameConstant    = "commit_message"
)

// Operation names used in RepositoryOperationError.
const (
	OperationHasUncommittedChanges = OperationName("HasUncommittedChanges")
	OperationCurrentBranch         = OperationName("CurrentBranch")
	OperationHeadRevision          = OperationName("HeadRevision")
	OperationCreateBranch          = OperationName("CreateBranch")
	OperationSwitchBranch          = OperationName("SwitchBranch")
	OperationDeleteLocalBranch     = OperationName("DeleteLocalBranch")
	OperationAddAll                = OperationName("AddAll")
	OperationCommit                = OperationName("Commit")
	OperationPushBranch            = OperationName("PushBranch")
	OperationResetHard             = OperationName("ResetHard")
	OperationStashPop              = OperationName("StashPop")
	OperationRemoteBranchExists    = OperationName("RemoteBranchExists")
	OperationDeleteRemoteBranch    = OperationName("DeleteRemoteBranch")
)

// alreadyAbsentPattern matches git's reports for a branch or remote ref that is already gone.
// Repository-level failures such as "Repository not found" must not match.
var alreadyAbsentPattern = regexp.MustCompile(`(?i)remote ref does not exist|branch '[^']+' not found`)

// OperationName labels a repository operation for error reporting.
type OperationName string

// GitCommandExecutor is the subset of execshell.ShellExecutor used by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ErrExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationError wraps a failed git invocation.
type RepositoryOperationError struct {
	Operation      OperationName
	RepositoryPath string
	Cause          error
}

// Error describes the failed operation.
func (operationError RepositoryOperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.RepositoryPath, operationError.Cause)
}

// Unwrap exposes the underlying execution error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// IsNotFound reports whether an error says the local branch or remote ref is already absent.
// Cleanup paths treat such failures as idempotent success.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return alreadyAbsentPattern.MatchString(err.Error())
}

// RepositoryManager performs git operations on local repositories.
type RepositoryManager struct {
	executor GitCommandExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// IsRepository reports whether the path is inside a git work tree.
func (manager *RepositoryManager) IsRepository(executionContext context.Context, repositoryPath string) (bool, error) {
	if validationError := requireValue(repositoryPathFieldNameConstant, repositoryPath); validationError != nil {
		return false, validationError
	}
	executionResult, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitInsideWorkTreeFlagConstant)
	if executionError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(executionError, &failedError) {
			return false, nil
		}
		return false, executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput) == gitTrueOutputConstant, nil
}

// HasUncommittedChanges reports whether the working tree has staged, unstaged, or untracked changes.
func (manager *RepositoryManager) HasUncommittedChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	if validationError := requireValue(repositoryPathFieldNameConstant, repositoryPath); validationError != nil {
		return false, validationError
	}
	executionResult, executionError := manager.run(executionContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return false, RepositoryOperationError{Operation: OperationHasUncommittedChanges, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// CurrentBranch returns the checked-out branch name, or HEAD when detached.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", RepositoryOperationError{Operation: OperationCurrentBranch, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// HeadRevision returns the commit hash HEAD points to.
func (manager *RepositoryManager) HeadRevision(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", RepositoryOperationError{Operation: OperationHeadRevision, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// BranchExists reports whether a local branch exists.
func (manager *RepositoryManager) BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return false, validationError
	}
	_, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, gitLocalBranchReferencePrefix+branchName)
	if executionError == nil {
		return true, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return false, nil
	}
	return false, executionError
}

// CreateBranch creates a branch from HEAD and switches to it.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationCreateBranch, repositoryPath, gitCheckoutSubcommandConstant, gitNewBranchFlagConstant, branchName)
}

// SwitchBranch checks out an existing branch.
func (manager *RepositoryManager) SwitchBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationSwitchBranch, repositoryPath, gitCheckoutSubcommandConstant, branchName)
}

// DeleteLocalBranch force-deletes a local branch.
func (manager *RepositoryManager) DeleteLocalBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationDeleteLocalBranch, repositoryPath, gitBranchSubcommandConstant, gitForceDeleteFlagConstant, branchName)
}

// AddAll stages every change in the working tree.
func (manager *RepositoryManager) AddAll(executionContext context.Context, repositoryPath string) error {
	return manager.runOperation(executionContext, OperationAddAll, repositoryPath, gitAddSubcommandConstant, gitAllFlagConstant)
}

// Commit records staged changes with the supplied message.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, message string) error {
	if validationError := requireValue(commitMessageFieldNameConstant, message); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationCommit, repositoryPath, gitCommitSubcommandConstant, gitMessageFlagConstant, message)
}

// PushBranch pushes a branch and records the remote as its upstream.
func (manager *RepositoryManager) PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	if validationError := requireValue(remoteNameFieldNameConstant, remoteName); validationError != nil {
		return validationError
	}
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationPushBranch, repositoryPath, gitPushSubcommandConstant, gitSetUpstreamFlagConstant, remoteName, branchName)
}

// ResetHard resets the index and working tree to the reference.
func (manager *RepositoryManager) ResetHard(executionContext context.Context, repositoryPath string, reference string) error {
	if validationError := requireValue(referenceFieldNameConstant, reference); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationResetHard, repositoryPath, gitResetSubcommandConstant, gitHardFlagConstant, reference)
}

// StashPop applies and drops the most recent stash entry.
func (manager *RepositoryManager) StashPop(executionContext context.Context, repositoryPath string) error {
	return manager.runOperation(executionContext, OperationStashPop, repositoryPath, gitStashSubcommandConstant, gitPopSubcommandConstant)
}

// RemoteBranchExists reports whether the remote advertises the branch.
func (manager *RepositoryManager) RemoteBranchExists(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (bool, error) {
	if validationError := requireValue(remoteNameFieldNameConstant, remoteName); validationError != nil {
		return false, validationError
	}
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return false, validationError
	}
	executionResult, executionError := manager.run(executionContext, repositoryPath, gitLsRemoteSubcommandConstant, gitHeadsFlagConstant, remoteName, branchName)
	if executionError != nil {
		return false, RepositoryOperationError{Operation: OperationRemoteBranchExists, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// DeleteRemoteBranch deletes a branch on the remote.
func (manager *RepositoryManager) DeleteRemoteBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error {
	if validationError := requireValue(remoteNameFieldNameConstant, remoteName); validationError != nil {
		return validationError
	}
	if validationError := requireValue(branchNameFieldNameConstant, branchName); validationError != nil {
		return validationError
	}
	return manager.runOperation(executionContext, OperationDeleteRemoteBranch, repositoryPath, gitPushSubcommandConstant, remoteName, gitDeleteFlagConstant, branchName)
}

func (manager *RepositoryManager) runOperation(executionContext context.Context, operation OperationName, repositoryPath string, arguments ...string) error {
	if _, executionError := manager.run(executionContext, repositoryPath, arguments...); executionError != nil {
		return RepositoryOperationError{Operation: operation, RepositoryPath: repositoryPath, Cause: executionError}
	}
	return nil
}

func (manager *RepositoryManager) run(executionContext context.Context, repositoryPath string, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
}

func requireValue(fieldName string, value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return InvalidInputError{FieldName: fieldName, Message: requiredValueMessageConstant}
	}
	return nil
}
