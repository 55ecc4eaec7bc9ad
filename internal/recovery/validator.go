package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/temirov/gx/internal/transaction"
)

// RepositoryInspector answers the read-only questions validation asks about a repository.
type RepositoryInspector interface {
	IsRepository(executionContext context.Context, repositoryPath string) (bool, error)
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
	HasUncommittedChanges(executionContext context.Context, repositoryPath string) (bool, error)
	RemoteBranchExists(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (bool, error)
}

// ValidationResult lists blocking errors and advisory warnings for a set of actions.
type ValidationResult struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Validator inspects repositories before a recovery replay.
type Validator struct {
	inspector RepositoryInspector
}

// NewValidator constructs a validator.
func NewValidator(inspector RepositoryInspector) (*Validator, error) {
	if inspector == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Validator{inspector: inspector}, nil
}

// Validate checks each action against the current repository state. Errors block execution
// unless forced; warnings never do.
func (validator *Validator) Validate(executionContext context.Context, actions []transaction.CompensatingAction) ValidationResult {
	result := ValidationResult{}
	repositoryAvailability := make(map[string]bool)

	for _, action := range actions {
		if action.IsCleanup() {
			continue
		}

		available, checked := repositoryAvailability[action.RepositoryPath]
		if !checked {
			var availabilityProblem string
			available, availabilityProblem = validator.checkRepository(executionContext, action.RepositoryPath)
			repositoryAvailability[action.RepositoryPath] = available
			if !available {
				result.Errors = append(result.Errors, availabilityProblem)
			}
		}
		if !available {
			continue
		}

		warnings, problems := validator.checkAction(executionContext, action)
		result.Warnings = append(result.Warnings, warnings...)
		result.Errors = append(result.Errors, problems...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (validator *Validator) checkRepository(executionContext context.Context, repositoryPath string) (bool, string) {
	if _, statError := os.Stat(repositoryPath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, fmt.Sprintf("repository %s does not exist", repositoryPath)
		}
		return false, fmt.Sprintf("repository %s is not accessible: %v", repositoryPath, statError)
	}
	isRepository, inspectError := validator.inspector.IsRepository(executionContext, repositoryPath)
	if inspectError != nil || !isRepository {
		return false, fmt.Sprintf("%s is not a git repository", repositoryPath)
	}
	return true, ""
}

func (validator *Validator) checkAction(executionContext context.Context, action transaction.CompensatingAction) (warnings []string, problems []string) {
	repositoryPath := action.RepositoryPath

	switch action.Kind {
	case transaction.KindDeleteBranch:
		currentBranch, branchError := validator.inspector.CurrentBranch(executionContext, repositoryPath)
		if branchError == nil && currentBranch == action.CreatedBranch {
			problems = append(problems, fmt.Sprintf("%s: cannot delete %s while it is checked out", repositoryPath, action.CreatedBranch))
		}
	case transaction.KindSwitchAndDelete, transaction.KindSwitchBranch:
		exists, existsError := validator.inspector.BranchExists(executionContext, repositoryPath, action.OriginalBranch)
		if existsError == nil && !exists {
			warnings = append(warnings, fmt.Sprintf("%s: original branch %s no longer exists", repositoryPath, action.OriginalBranch))
		}
	case transaction.KindResetHard:
		if validator.isDirty(executionContext, repositoryPath) {
			warnings = append(warnings, fmt.Sprintf("%s: reset --hard %s will discard uncommitted changes", repositoryPath, action.Reference))
		}
	case transaction.KindStashPop:
		if validator.isDirty(executionContext, repositoryPath) {
			warnings = append(warnings, fmt.Sprintf("%s: uncommitted changes may conflict with stash pop", repositoryPath))
		}
	case transaction.KindRestoreFile:
		if _, statError := os.Stat(action.BackupPath); errors.Is(statError, fs.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("%s: backup %s is already gone", repositoryPath, action.BackupPath))
		}
	case transaction.KindDeleteRemoteBranch:
		exists, existsError := validator.inspector.RemoteBranchExists(executionContext, repositoryPath, action.RemoteName, action.BranchName)
		if existsError == nil && !exists {
			warnings = append(warnings, fmt.Sprintf("%s: remote branch %s/%s no longer exists", repositoryPath, action.RemoteName, action.BranchName))
		}
	}
	return warnings, problems
}

func (validator *Validator) isDirty(executionContext context.Context, repositoryPath string) bool {
	dirty, statusError := validator.inspector.HasUncommittedChanges(executionContext, repositoryPath)
	return statusError == nil && dirty
}
