package changes_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/gx/internal/changes"
	"github.com/temirov/gx/internal/execshell"
	"github.com/temirov/gx/internal/fanout"
	"github.com/temirov/gx/internal/gitrepo"
	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/report"
	"github.com/temirov/gx/internal/repos/filesystem"
	"github.com/temirov/gx/internal/repos/shared"
)

const (
	testNotesFileNameConstant     = "notes.txt"
	testNotesContentConstant      = "release checklist\n"
	testVersionPatternConstant    = `v\d+\.\d+\.\d+`
	testVersionMaskConstant       = "vX.X.X"
	testVersionFileConstant       = "VERSION"
	testChangelogFileConstant     = "docs/CHANGELOG.md"
	testVersionContentConstant    = "v1.4.2\n"
	testChangelogContentConstant  = "# Changelog\n\n## v1.4.2\nFixes.\n\n## v1.4.1\nInitial.\n"
	testMissingRemoteNameConstant = "missing.git"
	testRepositoryCountConstant   = 3
)

func runGit(testInstance *testing.T, workingDirectory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command("git", arguments...)
	command.Dir = workingDirectory
	output, runError := command.CombinedOutput()
	require.NoError(testInstance, runError, string(output))
	return strings.TrimSpace(string(output))
}

func prepareRepositoryWithRemote(testInstance *testing.T) string {
	testInstance.Helper()
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	testInstance.Setenv("GIT_AUTHOR_NAME", "gx test")
	testInstance.Setenv("GIT_AUTHOR_EMAIL", "gx@example.com")
	testInstance.Setenv("GIT_COMMITTER_NAME", "gx test")
	testInstance.Setenv("GIT_COMMITTER_EMAIL", "gx@example.com")
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	remotePath := filepath.Join(testInstance.TempDir(), "remote.git")
	runGit(testInstance, filepath.Dir(remotePath), "init", "--bare", "--initial-branch", testOriginalBranchConstant, remotePath)

	repositoryPath := filepath.Join(testInstance.TempDir(), "service")
	require.NoError(testInstance, os.MkdirAll(repositoryPath, 0o755))
	runGit(testInstance, repositoryPath, "init", "--initial-branch", testOriginalBranchConstant)
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, testReadmeNameConstant), []byte(testReadmeContentConstant), 0o644))
	runGit(testInstance, repositoryPath, "add", "-A")
	runGit(testInstance, repositoryPath, "commit", "-m", "initial")
	runGit(testInstance, repositoryPath, "remote", "add", shared.OriginRemoteNameConstant, remotePath)
	runGit(testInstance, repositoryPath, "push", shared.OriginRemoteNameConstant, testOriginalBranchConstant)
	return repositoryPath
}

func newGitPipeline(testInstance *testing.T, store *recovery.Store) *changes.Pipeline {
	testInstance.Helper()
	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	pipeline, pipelineError := changes.NewPipeline(changes.PipelineOptions{
		VersionControl: manager,
		FileSystem:     filesystem.OSFileSystem{},
		Store:          store,
		Logger:         zap.NewNop(),
	})
	require.NoError(testInstance, pipelineError)
	return pipeline
}

func TestPipelineAgainstRealRepository(testInstance *testing.T) {
	testInstance.Run("dry_run_leaves_no_trace", func(testInstance *testing.T) {
		repositoryPath := prepareRepositoryWithRemote(testInstance)
		headBefore := runGit(testInstance, repositoryPath, "rev-parse", "HEAD")
		store := recovery.NewStore(testInstance.TempDir(), zap.NewNop())

		outcome := newGitPipeline(testInstance, store).Apply(context.Background(), shared.NewRepositoryReference(repositoryPath, ""), substituteRequest("", false))

		require.False(testInstance, outcome.Failed(), outcome.ErrorMessage)
		require.Equal(testInstance, changes.OutcomeDryRun, outcome.Action)
		require.Equal(testInstance, testOriginalBranchConstant, runGit(testInstance, repositoryPath, "rev-parse", "--abbrev-ref", "HEAD"))
		require.Equal(testInstance, headBefore, runGit(testInstance, repositoryPath, "rev-parse", "HEAD"))
		require.Empty(testInstance, runGit(testInstance, repositoryPath, "status", "--porcelain"))
		require.Empty(testInstance, runGit(testInstance, repositoryPath, "branch", "--list", testChangeIDConstant))

		states, listError := store.List()
		require.NoError(testInstance, listError)
		require.Empty(testInstance, states)
	})

	testInstance.Run("commit_pushes_change_branch", func(testInstance *testing.T) {
		repositoryPath := prepareRepositoryWithRemote(testInstance)
		headBefore := runGit(testInstance, repositoryPath, "rev-parse", "HEAD")
		store := recovery.NewStore(testInstance.TempDir(), zap.NewNop())

		outcome := newGitPipeline(testInstance, store).Apply(context.Background(), shared.NewRepositoryReference(repositoryPath, ""), substituteRequest(testCommitMessageConstant, false))

		require.False(testInstance, outcome.Failed(), outcome.ErrorMessage)
		require.Equal(testInstance, changes.OutcomeCommitted, outcome.Action)
		require.Empty(testInstance, outcome.Warning)
		require.Equal(testInstance, testOriginalBranchConstant, runGit(testInstance, repositoryPath, "rev-parse", "--abbrev-ref", "HEAD"))
		require.Equal(testInstance, headBefore, runGit(testInstance, repositoryPath, "rev-parse", "HEAD"))
		require.Empty(testInstance, runGit(testInstance, repositoryPath, "branch", "--list", testChangeIDConstant))

		remoteBranches := runGit(testInstance, repositoryPath, "ls-remote", "--heads", shared.OriginRemoteNameConstant, testChangeIDConstant)
		require.Contains(testInstance, remoteBranches, testChangeIDConstant)
		remoteReadme := runGit(testInstance, repositoryPath, "show", shared.OriginRemoteNameConstant+"/"+testChangeIDConstant+":"+testReadmeNameConstant)
		require.Equal(testInstance, strings.TrimSpace(testUpdatedReadmeConstant), remoteReadme)
	})
	testInstance.Run("add_file_is_committed_and_pushed", func(testInstance *testing.T) {
		repositoryPath := prepareRepositoryWithRemote(testInstance)
		headBefore := runGit(testInstance, repositoryPath, "rev-parse", "HEAD")
		store := recovery.NewStore(testInstance.TempDir(), zap.NewNop())
		request := changes.ChangeRequest{
			ChangeID:      testChangeIDConstant,
			Kind:          changes.ChangeKindAdd,
			FilePath:      testNotesFileNameConstant,
			Content:       []byte(testNotesContentConstant),
			CommitMessage: "Add release notes",
		}

		outcome := newGitPipeline(testInstance, store).Apply(context.Background(), shared.NewRepositoryReference(repositoryPath, ""), request)

		require.False(testInstance, outcome.Failed(), outcome.ErrorMessage)
		require.Equal(testInstance, changes.OutcomeCommitted, outcome.Action)
		require.Equal(testInstance, []string{testNotesFileNameConstant}, outcome.FilesAffected)
		require.Equal(testInstance, testOriginalBranchConstant, runGit(testInstance, repositoryPath, "rev-parse", "--abbrev-ref", "HEAD"))
		require.Equal(testInstance, headBefore, runGit(testInstance, repositoryPath, "rev-parse", "HEAD"))
		require.Empty(testInstance, runGit(testInstance, repositoryPath, "status", "--porcelain"))
		require.NoFileExists(testInstance, filepath.Join(repositoryPath, testNotesFileNameConstant))

		remoteNotes := runGit(testInstance, repositoryPath, "show", shared.OriginRemoteNameConstant+"/"+testChangeIDConstant+":"+testNotesFileNameConstant)
		require.Equal(testInstance, strings.TrimSpace(testNotesContentConstant), remoteNotes)

		states, listError := store.List()
		require.NoError(testInstance, listError)
		require.Empty(testInstance, states)
	})

	testInstance.Run("regex_dry_run_restores_every_matched_file", func(testInstance *testing.T) {
		repositoryPath := prepareRepositoryWithRemote(testInstance)
		require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, "docs"), 0o755))
		require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, testVersionFileConstant), []byte(testVersionContentConstant), 0o644))
		require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, filepath.FromSlash(testChangelogFileConstant)), []byte(testChangelogContentConstant), 0o644))
		runGit(testInstance, repositoryPath, "add", "-A")
		runGit(testInstance, repositoryPath, "commit", "-m", "add versioned files")
		headBefore := runGit(testInstance, repositoryPath, "rev-parse", "HEAD")
		store := recovery.NewStore(testInstance.TempDir(), zap.NewNop())
		request := changes.ChangeRequest{
			ChangeID:    testChangeIDConstant,
			Kind:        changes.ChangeKindRegex,
			Search:      testVersionPatternConstant,
			Replacement: testVersionMaskConstant,
		}

		outcome := newGitPipeline(testInstance, store).Apply(context.Background(), shared.NewRepositoryReference(repositoryPath, ""), request)

		require.False(testInstance, outcome.Failed(), outcome.ErrorMessage)
		require.Equal(testInstance, changes.OutcomeDryRun, outcome.Action)
		require.ElementsMatch(testInstance, []string{testVersionFileConstant, testChangelogFileConstant}, outcome.FilesAffected)
		require.NotNil(testInstance, outcome.Rollback)
		require.True(testInstance, outcome.Rollback.Complete())
		require.Equal(testInstance, testOriginalBranchConstant, runGit(testInstance, repositoryPath, "rev-parse", "--abbrev-ref", "HEAD"))
		require.Equal(testInstance, headBefore, runGit(testInstance, repositoryPath, "rev-parse", "HEAD"))
		require.Empty(testInstance, runGit(testInstance, repositoryPath, "status", "--porcelain"))
		require.Empty(testInstance, runGit(testInstance, repositoryPath, "branch", "--list", testChangeIDConstant))

		versionContent, versionReadError := os.ReadFile(filepath.Join(repositoryPath, testVersionFileConstant))
		require.NoError(testInstance, versionReadError)
		require.Equal(testInstance, testVersionContentConstant, string(versionContent))
		changelogContent, changelogReadError := os.ReadFile(filepath.Join(repositoryPath, filepath.FromSlash(testChangelogFileConstant)))
		require.NoError(testInstance, changelogReadError)
		require.Equal(testInstance, testChangelogContentConstant, string(changelogContent))

		states, listError := store.List()
		require.NoError(testInstance, listError)
		require.Empty(testInstance, states)
	})

	testInstance.Run("failing_repository_is_isolated_from_the_batch", func(testInstance *testing.T) {
		repositoryPaths := make([]string, 0, testRepositoryCountConstant)
		for range testRepositoryCountConstant {
			repositoryPaths = append(repositoryPaths, prepareRepositoryWithRemote(testInstance))
		}
		failingPath := repositoryPaths[1]
		runGit(testInstance, failingPath, "remote", "set-url", shared.OriginRemoteNameConstant, filepath.Join(testInstance.TempDir(), testMissingRemoteNameConstant))
		failingHead := runGit(testInstance, failingPath, "rev-parse", "HEAD")

		store := recovery.NewStore(testInstance.TempDir(), zap.NewNop())
		pipeline := newGitPipeline(testInstance, store)
		repositories := make([]shared.RepositoryReference, 0, len(repositoryPaths))
		for _, repositoryPath := range repositoryPaths {
			repositories = append(repositories, shared.NewRepositoryReference(repositoryPath, ""))
		}
		request := substituteRequest(testCommitMessageConstant, false)

		outcomes := fanout.Run(context.Background(), testRepositoryCountConstant, repositories, func(executionContext context.Context, repository shared.RepositoryReference) changes.ChangeOutcome {
			return pipeline.Apply(executionContext, repository, request)
		})

		require.Len(testInstance, outcomes, testRepositoryCountConstant)
		require.Equal(testInstance, 1, fanout.ExitCode(report.SummarizeChanges(outcomes).ErrorCount()))

		committedCount := 0
		for _, outcome := range outcomes {
			if outcome.Repository.Path == failingPath {
				require.True(testInstance, outcome.Failed())
				require.NotNil(testInstance, outcome.Rollback)
				require.True(testInstance, outcome.Rollback.Complete())
				continue
			}
			require.False(testInstance, outcome.Failed(), outcome.ErrorMessage)
			require.Equal(testInstance, changes.OutcomeCommitted, outcome.Action)
			committedCount++
		}
		require.Equal(testInstance, 2, committedCount)

		require.Equal(testInstance, testOriginalBranchConstant, runGit(testInstance, failingPath, "rev-parse", "--abbrev-ref", "HEAD"))
		require.Equal(testInstance, failingHead, runGit(testInstance, failingPath, "rev-parse", "HEAD"))
		require.Empty(testInstance, runGit(testInstance, failingPath, "status", "--porcelain"))
		require.Empty(testInstance, runGit(testInstance, failingPath, "branch", "--list", testChangeIDConstant))
		readmeContent, readError := os.ReadFile(filepath.Join(failingPath, testReadmeNameConstant))
		require.NoError(testInstance, readError)
		require.Equal(testInstance, testReadmeContentConstant, string(readmeContent))

		states, listError := store.List()
		require.NoError(testInstance, listError)
		require.Empty(testInstance, states)
	})
}
