package dependencies

import (
	"go.uber.org/zap"

	"github.com/temirov/gx/internal/execshell"
	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/gitrepo"
	"github.com/temirov/gx/internal/repos/discovery"
	"github.com/temirov/gx/internal/repos/filesystem"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/ui"
)

const consoleLogFormatConstant = "console"

// ResolveRepositoryDiscoverer returns the provided discoverer or a filesystem-backed default.
func ResolveRepositoryDiscoverer(existing shared.RepositoryDiscoverer) shared.RepositoryDiscoverer {
	if existing != nil {
		return existing
	}
	return discovery.NewFilesystemRepositoryDiscoverer()
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing shared.FileSystem) shared.FileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveCommandExecutor returns the provided executor or constructs a shell-backed default.
// Console log formats additionally render every command through the ui transcript observer.
func ResolveCommandExecutor(existing shared.CommandExecutor, logger *zap.Logger, logFormat string) (shared.CommandExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}
	if logFormat == consoleLogFormatConstant {
		return shellExecutor.WithEventObserver(ui.NewConsoleCommandEventLogger(logger)), nil
	}
	return shellExecutor, nil
}

// ResolveRepositoryManager constructs a git repository manager over the executor.
func ResolveRepositoryManager(executor shared.CommandExecutor) (*gitrepo.RepositoryManager, error) {
	return gitrepo.NewRepositoryManager(executor)
}

// ResolveGitHubClient constructs a GitHub CLI client over the executor.
func ResolveGitHubClient(executor shared.CommandExecutor) (*githubcli.Client, error) {
	return githubcli.NewClient(executor)
}
