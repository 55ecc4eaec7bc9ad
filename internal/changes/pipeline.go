package changes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/mutation"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/transaction"
)

const (
	repositoryFieldNameConstant       = "repository"
	changeIDFieldNameConstant         = "change_id"
	transactionIDFieldNameConstant    = "transaction_id"
	filesFieldNameConstant            = "files"
	backupDirectoryFieldNameConstant  = "backup_directory"
	detachedHeadConstant              = "HEAD"
	temporaryBackupDirectoryConstant  = "gx-backups"
	backupDirectoryPermissionConstant = 0o700
	directoryPermissionsConstant      = 0o755
	rollbackPointBranchCreated        = "branch-created"
	rollbackPointFilesApplied         = "files-applied"
	rollbackPointCommitted            = "committed"
	rollbackPointPushed               = "pushed"
	noChangesMessageConstant          = "No files affected"
	changeFailedMessageConstant       = "Change failed; rolling back"
	changeAppliedMessageConstant      = "Change applied"
	dryRunRolledBackMessageConstant   = "Dry run rolled back"
	backupCleanupFailedMessage        = "Unable to remove transaction backups"
	uncommittedChangesMessageConstant = "uncommitted changes in working tree; commit or stash them first"
	detachedHeadMessageConstant       = "repository is in detached HEAD state"
	branchExistsTemplateConstant      = "branch %s already exists"
	missingSlugWarningConstant        = "pull request skipped: repository has no GitHub remote"
	pullRequestWarningTemplate        = "pull request creation failed: %v"
	returnToBranchWarningTemplate     = "changes pushed but could not return to %s: %v"
	incompleteRollbackWarningTemplate = "rollback incomplete: %d action(s) failed, %d skipped; run gx rollback execute %s"
)

// ErrPipelineNotConfigured indicates that a required collaborator is missing.
var ErrPipelineNotConfigured = errors.New("change pipeline not configured")

// VersionControl is the git surface the pipeline drives.
type VersionControl interface {
	transaction.VersionControl
	HasUncommittedChanges(executionContext context.Context, repositoryPath string) (bool, error)
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	BranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error)
	HeadRevision(executionContext context.Context, repositoryPath string) (string, error)
	CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error
	AddAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, message string) error
	PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) error
}

// PullRequestCreator opens pull requests.
type PullRequestCreator interface {
	CreatePullRequest(executionContext context.Context, repository string, options githubcli.PullRequestCreateOptions) (githubcli.PullRequest, error)
}

// BackupStore persists transaction state and hosts file backups outside the working tree.
type BackupStore interface {
	transaction.Persister
	BackupDirectory(transactionID string) string
	DeleteBackups(transactionID string) error
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	VersionControl     VersionControl
	PullRequests       PullRequestCreator
	FileSystem         shared.FileSystem
	Store              BackupStore
	IDGenerator        transaction.IDGenerator
	Clock              shared.Clock
	Logger             *zap.Logger
	StopOnFirstFailure bool
}

// Pipeline applies a ChangeRequest to one repository: precondition, plan, branch, mutate,
// commit, push and pull request, rolling back on failure.
type Pipeline struct {
	versionControl     VersionControl
	pullRequests       PullRequestCreator
	fileSystem         shared.FileSystem
	store              BackupStore
	compensator        *transaction.RepositoryCompensator
	idGenerator        transaction.IDGenerator
	clock              shared.Clock
	logger             *zap.Logger
	stopOnFirstFailure bool
}

// NewPipeline constructs a pipeline. A nil Store disables persistence and keeps backups in
// the system temporary directory.
func NewPipeline(options PipelineOptions) (*Pipeline, error) {
	if options.VersionControl == nil || options.FileSystem == nil {
		return nil, ErrPipelineNotConfigured
	}
	compensator, compensatorError := transaction.NewRepositoryCompensator(options.VersionControl, options.FileSystem)
	if compensatorError != nil {
		return nil, compensatorError
	}
	clock := options.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	idGenerator := options.IDGenerator
	if idGenerator == nil {
		idGenerator = transaction.NewSequentialIDGenerator(clock)
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		versionControl:     options.VersionControl,
		pullRequests:       options.PullRequests,
		fileSystem:         options.FileSystem,
		store:              options.Store,
		compensator:        compensator,
		idGenerator:        idGenerator,
		clock:              clock,
		logger:             logger,
		stopOnFirstFailure: options.StopOnFirstFailure,
	}, nil
}

// Apply runs the request against one repository and always returns an outcome.
func (pipeline *Pipeline) Apply(executionContext context.Context, repository shared.RepositoryReference, request ChangeRequest) ChangeOutcome {
	outcome := ChangeOutcome{Repository: repository, ChangeID: request.ChangeID}
	logger := pipeline.logger.With(
		zap.String(repositoryFieldNameConstant, repository.DisplayName()),
		zap.String(changeIDFieldNameConstant, request.ChangeID),
	)

	plannedChanges, preconditionError := pipeline.prepare(executionContext, repository, request)
	if preconditionError != nil {
		outcome.ErrorMessage = preconditionError.Error()
		return outcome
	}
	if len(plannedChanges) == 0 {
		logger.Info(noChangesMessageConstant)
		outcome.Action = OutcomeDryRun
		return outcome
	}

	originalBranch, branchError := pipeline.resolveOriginalBranch(executionContext, repository.Path, request.ChangeID)
	if branchError != nil {
		outcome.ErrorMessage = branchError.Error()
		return outcome
	}

	run, runError := pipeline.begin(logger)
	if runError != nil {
		outcome.ErrorMessage = runError.Error()
		return outcome
	}
	outcome.TransactionID = run.transaction.ID()
	logger = run.logger

	if applyError := pipeline.branchAndMutate(executionContext, run, repository.Path, originalBranch, request.ChangeID, plannedChanges); applyError != nil {
		return pipeline.fail(executionContext, run, outcome, applyError)
	}
	outcome.Files = plannedChanges
	for _, change := range plannedChanges {
		outcome.FilesAffected = append(outcome.FilesAffected, change.RelativePath)
	}

	if len(strings.TrimSpace(request.CommitMessage)) == 0 {
		report := run.transaction.Rollback(executionContext)
		outcome.Action = OutcomeDryRun
		outcome.Rollback = &report
		if !report.Complete() {
			outcome.Warning = fmt.Sprintf(incompleteRollbackWarningTemplate, report.Failed, report.Skipped, report.TransactionID)
		} else {
			pipeline.discardBackups(run)
		}
		logger.Info(dryRunRolledBackMessageConstant, zap.Int(filesFieldNameConstant, len(plannedChanges)))
		return outcome
	}

	if publishError := pipeline.commitAndPush(executionContext, run, repository.Path, request); publishError != nil {
		return pipeline.fail(executionContext, run, outcome, publishError)
	}

	outcome.Action = OutcomeCommitted
	if request.CreatePullRequest {
		pipeline.openPullRequest(executionContext, repository, request, &outcome)
	}

	run.transaction.Commit(executionContext)
	pipeline.discardBackups(run)
	pipeline.returnToOriginalBranch(executionContext, repository.Path, originalBranch, request.ChangeID, &outcome)
	logger.Info(changeAppliedMessageConstant, zap.String("action", string(outcome.Action)), zap.Int(filesFieldNameConstant, len(plannedChanges)))
	return outcome
}

type pipelineRun struct {
	transaction     *transaction.Transaction
	backupDirectory string
	logger          *zap.Logger
}

func (pipeline *Pipeline) prepare(executionContext context.Context, repository shared.RepositoryReference, request ChangeRequest) ([]mutation.FileChange, error) {
	if validationError := request.Validate(); validationError != nil {
		return nil, validationError
	}
	dirty, statusError := pipeline.versionControl.HasUncommittedChanges(executionContext, repository.Path)
	if statusError != nil {
		return nil, statusError
	}
	if dirty {
		return nil, errors.New(uncommittedChangesMessageConstant)
	}
	return request.Plan(repository.Path)
}

func (pipeline *Pipeline) resolveOriginalBranch(executionContext context.Context, repositoryPath string, changeID string) (string, error) {
	originalBranch, branchError := pipeline.versionControl.CurrentBranch(executionContext, repositoryPath)
	if branchError != nil {
		return "", branchError
	}
	if originalBranch == detachedHeadConstant {
		return "", errors.New(detachedHeadMessageConstant)
	}
	exists, existsError := pipeline.versionControl.BranchExists(executionContext, repositoryPath, changeID)
	if existsError != nil {
		return "", existsError
	}
	if exists {
		return "", fmt.Errorf(branchExistsTemplateConstant, changeID)
	}
	return originalBranch, nil
}

func (pipeline *Pipeline) begin(logger *zap.Logger) (*pipelineRun, error) {
	options := transaction.Options{
		Executor:           pipeline.compensator,
		IDGenerator:        pipeline.idGenerator,
		Clock:              pipeline.clock,
		Logger:             logger,
		StopOnFirstFailure: pipeline.stopOnFirstFailure,
	}
	if pipeline.store != nil {
		options.Persister = pipeline.store
	}
	createdTransaction, creationError := transaction.New(options)
	if creationError != nil {
		return nil, creationError
	}

	backupDirectory := filepath.Join(os.TempDir(), temporaryBackupDirectoryConstant, createdTransaction.ID())
	if pipeline.store != nil {
		backupDirectory = pipeline.store.BackupDirectory(createdTransaction.ID())
	}
	return &pipelineRun{
		transaction:     createdTransaction,
		backupDirectory: backupDirectory,
		logger:          logger.With(zap.String(transactionIDFieldNameConstant, createdTransaction.ID())),
	}, nil
}

func (pipeline *Pipeline) branchAndMutate(executionContext context.Context, run *pipelineRun, repositoryPath string, originalBranch string, changeID string, plannedChanges []mutation.FileChange) error {
	if createError := pipeline.versionControl.CreateBranch(executionContext, repositoryPath, changeID); createError != nil {
		return createError
	}
	if registerError := run.transaction.AddCompensation(transaction.NewSwitchAndDeleteBranchAction(repositoryPath, originalBranch, changeID)); registerError != nil {
		return registerError
	}
	if pointError := run.transaction.AddRollbackPoint(rollbackPointBranchCreated); pointError != nil {
		return pointError
	}

	for _, change := range plannedChanges {
		if applyError := pipeline.applyChange(run, repositoryPath, change); applyError != nil {
			return applyError
		}
	}
	return run.transaction.AddRollbackPoint(rollbackPointFilesApplied)
}

// applyChange registers the compensation before touching the working tree so that an
// interrupted write is still recoverable.
func (pipeline *Pipeline) applyChange(run *pipelineRun, repositoryPath string, change mutation.FileChange) error {
	if change.Existed {
		backupPath := filepath.Join(run.backupDirectory, filepath.FromSlash(change.RelativePath))
		if directoryError := pipeline.fileSystem.MkdirAll(filepath.Dir(backupPath), backupDirectoryPermissionConstant); directoryError != nil {
			return mutation.FileOperationError{Operation: "backup", Path: change.RelativePath, Cause: directoryError}
		}
		if backupError := pipeline.fileSystem.WriteFile(backupPath, change.OriginalContent, change.Mode); backupError != nil {
			return mutation.FileOperationError{Operation: "backup", Path: change.RelativePath, Cause: backupError}
		}
		if registerError := run.transaction.AddCompensation(transaction.NewRestoreFileAction(repositoryPath, change.AbsolutePath, backupPath)); registerError != nil {
			return registerError
		}
		if registerError := run.transaction.AddCompensation(transaction.NewDiscardBackupAction(repositoryPath, backupPath)); registerError != nil {
			return registerError
		}
	} else if registerError := run.transaction.AddCompensation(transaction.NewRemoveFileAction(repositoryPath, change.AbsolutePath)); registerError != nil {
		return registerError
	}

	if change.Delete {
		if removeError := pipeline.fileSystem.Remove(change.AbsolutePath); removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
			return mutation.FileOperationError{Operation: "delete", Path: change.RelativePath, Cause: removeError}
		}
		return nil
	}
	if directoryError := pipeline.fileSystem.MkdirAll(filepath.Dir(change.AbsolutePath), directoryPermissionsConstant); directoryError != nil {
		return mutation.FileOperationError{Operation: "write", Path: change.RelativePath, Cause: directoryError}
	}
	if writeError := pipeline.fileSystem.WriteFile(change.AbsolutePath, change.UpdatedContent, change.Mode); writeError != nil {
		return mutation.FileOperationError{Operation: "write", Path: change.RelativePath, Cause: writeError}
	}
	return nil
}

// commitAndPush registers the reset before staging so that a failed commit also clears the index.
func (pipeline *Pipeline) commitAndPush(executionContext context.Context, run *pipelineRun, repositoryPath string, request ChangeRequest) error {
	preCommitHead, headError := pipeline.versionControl.HeadRevision(executionContext, repositoryPath)
	if headError != nil {
		return headError
	}
	if registerError := run.transaction.AddCompensation(transaction.NewResetHardAction(repositoryPath, preCommitHead)); registerError != nil {
		return registerError
	}
	if addError := pipeline.versionControl.AddAll(executionContext, repositoryPath); addError != nil {
		return addError
	}
	if commitError := pipeline.versionControl.Commit(executionContext, repositoryPath, request.CommitMessage); commitError != nil {
		return commitError
	}
	if pointError := run.transaction.AddRollbackPoint(rollbackPointCommitted); pointError != nil {
		return pointError
	}

	remoteName := request.RemoteName
	if len(strings.TrimSpace(remoteName)) == 0 {
		remoteName = shared.OriginRemoteNameConstant
	}
	if pushError := pipeline.versionControl.PushBranch(executionContext, repositoryPath, remoteName, request.ChangeID); pushError != nil {
		return pushError
	}
	if registerError := run.transaction.AddCompensation(transaction.NewDeleteRemoteBranchAction(repositoryPath, remoteName, request.ChangeID)); registerError != nil {
		return registerError
	}
	return run.transaction.AddRollbackPoint(rollbackPointPushed)
}

func (pipeline *Pipeline) openPullRequest(executionContext context.Context, repository shared.RepositoryReference, request ChangeRequest, outcome *ChangeOutcome) {
	if !repository.HasSlug() || pipeline.pullRequests == nil {
		outcome.Warning = missingSlugWarningConstant
		return
	}
	pullRequest, createError := pipeline.pullRequests.CreatePullRequest(executionContext, repository.Slug, githubcli.PullRequestCreateOptions{
		HeadBranch: request.ChangeID,
		BaseBranch: request.BaseBranch,
		Title:      request.pullRequestTitle(),
		Body:       request.pullRequestBody(),
		Draft:      request.Draft,
	})
	if createError != nil {
		outcome.Warning = fmt.Sprintf(pullRequestWarningTemplate, createError)
		return
	}
	outcome.Action = OutcomePrCreated
	outcome.PullRequest = &pullRequest
}

func (pipeline *Pipeline) returnToOriginalBranch(executionContext context.Context, repositoryPath string, originalBranch string, changeID string, outcome *ChangeOutcome) {
	switchError := pipeline.versionControl.SwitchBranch(executionContext, repositoryPath, originalBranch)
	if switchError == nil {
		switchError = pipeline.versionControl.DeleteLocalBranch(executionContext, repositoryPath, changeID)
	}
	if switchError != nil && len(outcome.Warning) == 0 {
		outcome.Warning = fmt.Sprintf(returnToBranchWarningTemplate, originalBranch, switchError)
	}
}

func (pipeline *Pipeline) fail(executionContext context.Context, run *pipelineRun, outcome ChangeOutcome, cause error) ChangeOutcome {
	run.logger.Warn(changeFailedMessageConstant, zap.Error(cause))
	report := run.transaction.Rollback(executionContext)
	if report.Complete() {
		pipeline.discardBackups(run)
	}
	outcome.Action = ""
	outcome.ErrorMessage = cause.Error()
	outcome.Rollback = &report
	return outcome
}

func (pipeline *Pipeline) discardBackups(run *pipelineRun) {
	var cleanupError error
	if pipeline.store != nil {
		cleanupError = pipeline.store.DeleteBackups(run.transaction.ID())
	} else {
		cleanupError = pipeline.fileSystem.RemoveAll(run.backupDirectory)
	}
	if cleanupError != nil {
		run.logger.Warn(backupCleanupFailedMessage, zap.String(backupDirectoryFieldNameConstant, run.backupDirectory), zap.Error(cleanupError))
	}
}
