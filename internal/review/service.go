package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/repos/shared"
)

const (
	gitHubClientMissingMessageConstant   = "github client not configured"
	changeIDRequiredMessageConstant      = "change id must be provided"
	branchPrefixRequiredMessageConstant  = "branch prefix must be provided"
	missingSlugMessageConstant           = "repository has no GitHub remote"
	listFailureTemplateConstant          = "failed to list pull requests: %w"
	approveFailureTemplateConstant       = "failed to merge pull request #%d: %w"
	closeFailureTemplateConstant         = "failed to close pull request #%d: %w"
	branchDeleteFailureTemplateConstant  = "failed to delete branch %s: %w"
	branchListFailureTemplateConstant    = "failed to list branches: %w"
	repositoryFieldNameConstant          = "repository"
	changeIDFieldNameConstant            = "change_id"
	pullRequestFieldNameConstant         = "pull_request"
	branchFieldNameConstant              = "branch"
	alreadyGoneMessageConstant           = "Already removed"
	pullRequestMergedMessageConstant     = "Pull request merged"
	pullRequestClosedMessageConstant     = "Pull request closed"
	remoteBranchDeletedMessageConstant   = "Remote branch deleted"
	defaultBranchPrefixValueConstant     = "GX-"
	repositorySkippedDebugMessage        = "Repository skipped"
	repositorySkippedReasonFieldConstant = "reason"
)

var (
	// ErrGitHubClientNotConfigured indicates the GitHub client dependency was missing.
	ErrGitHubClientNotConfigured = errors.New(gitHubClientMissingMessageConstant)
	// ErrChangeIDRequired indicates an operation was requested without a change id.
	ErrChangeIDRequired = errors.New(changeIDRequiredMessageConstant)
	// ErrBranchPrefixRequired indicates purge was requested with a blank prefix.
	ErrBranchPrefixRequired = errors.New(branchPrefixRequiredMessageConstant)
)

// DefaultBranchPrefix is the prefix of automatically assigned change ids.
const DefaultBranchPrefix = defaultBranchPrefixValueConstant

// Operation names a review operation.
type Operation string

// Review operations.
const (
	OperationList    Operation = "list"
	OperationApprove Operation = "approve"
	OperationDelete  Operation = "delete"
	OperationPurge   Operation = "purge"
)

// GitHubClient is the GitHub surface the service drives.
type GitHubClient interface {
	ListPullRequestsByChangeID(executionContext context.Context, repository string, changeID string, state githubcli.PullRequestState) ([]githubcli.PullRequest, error)
	ApproveAndMergePullRequest(executionContext context.Context, repository string, number int, options githubcli.MergeOptions) error
	ClosePullRequest(executionContext context.Context, repository string, number int, deleteBranch bool) error
	ListBranchesWithPrefix(executionContext context.Context, repository string, prefix string) ([]string, error)
	DeleteRemoteBranch(executionContext context.Context, repository string, branch string) error
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	GitHubClient GitHubClient
	Logger       *zap.Logger
}

// Result captures the outcome of one operation on one repository.
type Result struct {
	Repository      shared.RepositoryReference `json:"repository" yaml:"repository"`
	Operation       Operation                  `json:"operation" yaml:"operation"`
	ChangeID        string                     `json:"change_id,omitempty" yaml:"change_id,omitempty"`
	PullRequests    []githubcli.PullRequest    `json:"pull_requests,omitempty" yaml:"pull_requests,omitempty"`
	DeletedBranches []string                   `json:"deleted_branches,omitempty" yaml:"deleted_branches,omitempty"`
	Skipped         bool                       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Message         string                     `json:"message,omitempty" yaml:"message,omitempty"`
	ErrorMessage    string                     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the operation failed for the repository.
func (result Result) Failed() bool {
	return len(result.ErrorMessage) > 0
}

// Service runs review operations against one repository at a time.
type Service struct {
	client GitHubClient
	logger *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.GitHubClient == nil {
		return nil, ErrGitHubClientNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: dependencies.GitHubClient, logger: logger}, nil
}

// List returns the open pull requests whose head branch is the change id.
func (service *Service) List(executionContext context.Context, repository shared.RepositoryReference, changeID string) Result {
	result, proceed := service.begin(repository, OperationList, changeID)
	if !proceed {
		return result
	}
	pullRequests, listError := service.client.ListPullRequestsByChangeID(executionContext, repository.Slug, result.ChangeID, githubcli.PullRequestStateOpen)
	if listError != nil {
		return withError(result, fmt.Errorf(listFailureTemplateConstant, listError))
	}
	result.PullRequests = pullRequests
	return result
}

// Approve approves and merges every open pull request of the change id.
func (service *Service) Approve(executionContext context.Context, repository shared.RepositoryReference, changeID string, options githubcli.MergeOptions) Result {
	result := service.List(executionContext, repository, changeID)
	if result.Skipped || result.Failed() {
		result.Operation = OperationApprove
		return result
	}
	result.Operation = OperationApprove

	logger := service.repositoryLogger(repository, result.ChangeID)
	var failures []error
	for _, pullRequest := range result.PullRequests {
		if mergeError := service.client.ApproveAndMergePullRequest(executionContext, repository.Slug, pullRequest.Number, options); mergeError != nil {
			failures = append(failures, fmt.Errorf(approveFailureTemplateConstant, pullRequest.Number, mergeError))
			continue
		}
		logger.Info(pullRequestMergedMessageConstant, zap.Int(pullRequestFieldNameConstant, pullRequest.Number))
	}
	return withError(result, errors.Join(failures...))
}

// Delete closes every open pull request of the change id and removes its remote branch.
// Pull requests or branches that are already gone are not failures.
func (service *Service) Delete(executionContext context.Context, repository shared.RepositoryReference, changeID string) Result {
	result := service.List(executionContext, repository, changeID)
	if result.Skipped || result.Failed() {
		result.Operation = OperationDelete
		return result
	}
	result.Operation = OperationDelete

	logger := service.repositoryLogger(repository, result.ChangeID)
	var failures []error
	for _, pullRequest := range result.PullRequests {
		closeError := service.client.ClosePullRequest(executionContext, repository.Slug, pullRequest.Number, false)
		switch {
		case closeError == nil:
			logger.Info(pullRequestClosedMessageConstant, zap.Int(pullRequestFieldNameConstant, pullRequest.Number))
		case githubcli.IsNotFound(closeError):
			logger.Debug(alreadyGoneMessageConstant, zap.Int(pullRequestFieldNameConstant, pullRequest.Number))
		default:
			failures = append(failures, fmt.Errorf(closeFailureTemplateConstant, pullRequest.Number, closeError))
		}
	}

	if deleted, deleteError := service.deleteBranch(executionContext, repository, result.ChangeID, logger); deleteError != nil {
		failures = append(failures, deleteError)
	} else if deleted {
		result.DeletedBranches = append(result.DeletedBranches, result.ChangeID)
	}
	return withError(result, errors.Join(failures...))
}

// Purge deletes every remote branch whose name starts with prefix.
func (service *Service) Purge(executionContext context.Context, repository shared.RepositoryReference, prefix string) Result {
	result := Result{Repository: repository, Operation: OperationPurge}
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return withError(result, ErrBranchPrefixRequired)
	}
	if !repository.HasSlug() {
		return service.skip(result)
	}

	branches, listError := service.client.ListBranchesWithPrefix(executionContext, repository.Slug, trimmedPrefix)
	if listError != nil {
		return withError(result, fmt.Errorf(branchListFailureTemplateConstant, listError))
	}

	logger := service.repositoryLogger(repository, "")
	var failures []error
	for _, branch := range branches {
		deleted, deleteError := service.deleteBranch(executionContext, repository, branch, logger)
		if deleteError != nil {
			failures = append(failures, deleteError)
			continue
		}
		if deleted {
			result.DeletedBranches = append(result.DeletedBranches, branch)
		}
	}
	return withError(result, errors.Join(failures...))
}

func (service *Service) begin(repository shared.RepositoryReference, operation Operation, changeID string) (Result, bool) {
	result := Result{Repository: repository, Operation: operation, ChangeID: strings.TrimSpace(changeID)}
	if len(result.ChangeID) == 0 {
		return withError(result, ErrChangeIDRequired), false
	}
	if !repository.HasSlug() {
		return service.skip(result), false
	}
	return result, true
}

func (service *Service) skip(result Result) Result {
	service.logger.Debug(repositorySkippedDebugMessage,
		zap.String(repositoryFieldNameConstant, result.Repository.DisplayName()),
		zap.String(repositorySkippedReasonFieldConstant, missingSlugMessageConstant),
	)
	result.Skipped = true
	result.Message = missingSlugMessageConstant
	return result
}

func (service *Service) deleteBranch(executionContext context.Context, repository shared.RepositoryReference, branch string, logger *zap.Logger) (bool, error) {
	deleteError := service.client.DeleteRemoteBranch(executionContext, repository.Slug, branch)
	switch {
	case deleteError == nil:
		logger.Info(remoteBranchDeletedMessageConstant, zap.String(branchFieldNameConstant, branch))
		return true, nil
	case githubcli.IsNotFound(deleteError):
		logger.Debug(alreadyGoneMessageConstant, zap.String(branchFieldNameConstant, branch))
		return false, nil
	default:
		return false, fmt.Errorf(branchDeleteFailureTemplateConstant, branch, deleteError)
	}
}

func (service *Service) repositoryLogger(repository shared.RepositoryReference, changeID string) *zap.Logger {
	logger := service.logger.With(zap.String(repositoryFieldNameConstant, repository.DisplayName()))
	if len(changeID) > 0 {
		logger = logger.With(zap.String(changeIDFieldNameConstant, changeID))
	}
	return logger
}

func withError(result Result, operationError error) Result {
	if operationError != nil {
		result.ErrorMessage = operationError.Error()
	}
	return result
}
