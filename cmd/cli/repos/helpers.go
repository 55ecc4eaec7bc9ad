package repos

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gx/internal/fanout"
	"github.com/temirov/gx/internal/report"
	"github.com/temirov/gx/internal/repos/discovery"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/utils"
	flagutils "github.com/temirov/gx/internal/utils/flags"
	pathutils "github.com/temirov/gx/internal/utils/path"
)

const (
	missingRepositoryRootsErrorMessageConstant = "no repository roots provided; specify --root or configure tools.discovery.root"
	discoveryErrorTemplateConstant             = "discover repositories under %s: %w"
	repositoryFailuresTemplateConstant         = "%d repositories failed"
	outputFlagDescriptionConstant              = "Report format."
	repositoriesSelectedMessageConstant        = "Repositories selected"
	noRepositoriesMatchedMessageConstant       = "No repositories matched"
	repositoryCountFieldConstant               = "repository_count"
	rootsFieldConstant                         = "roots"
	patternsFieldConstant                      = "patterns"
	jobsFieldConstant                          = "jobs"
)

var (
	errMissingRepositoryRoots = errors.New(missingRepositoryRootsErrorMessageConstant)
	repositoryHomeExpander    = pathutils.NewHomeExpander()
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// RepositoryFailuresError reports that one or more repositories ended in error. Its exit code
// is the failure count capped at 255.
type RepositoryFailuresError struct {
	Failures int
}

// Error describes the failure count.
func (failuresError RepositoryFailuresError) Error() string {
	return fmt.Sprintf(repositoryFailuresTemplateConstant, failuresError.Failures)
}

// ExitCode returns the process exit status for the failure count.
func (failuresError RepositoryFailuresError) ExitCode() int {
	return fanout.ExitCode(failuresError.Failures)
}

func failuresResult(failureCount int) error {
	if failureCount <= 0 {
		return nil
	}
	return RepositoryFailuresError{Failures: failureCount}
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// resolveExecutionSettings prefers the settings resolved by the root command and falls back to
// configured discovery values when the command runs standalone.
func resolveExecutionSettings(command *cobra.Command, discoveryConfiguration DiscoveryConfiguration) utils.ExecutionSettings {
	if command != nil {
		if settings, available := utils.NewCommandContextAccessor().ExecutionSettings(command.Context()); available {
			return settings
		}
	}
	return utils.ExecutionSettings{
		Roots:    discoveryConfiguration.Roots,
		MaxDepth: discoveryConfiguration.MaxDepth,
	}
}

// selectRepositories discovers repositories under every root and narrows them by patterns.
// Overlapping roots are pruned so each repository is selected at most once.
func selectRepositories(discoverer shared.RepositoryDiscoverer, settings utils.ExecutionSettings, patterns []string, logger *zap.Logger) ([]shared.RepositoryReference, error) {
	roots := pathutils.NewRootSanitizer(repositoryHomeExpander).Sanitize(settings.Roots)
	if len(roots) == 0 {
		return nil, errMissingRepositoryRoots
	}

	seen := make(map[string]struct{})
	var discovered []shared.RepositoryReference
	for _, root := range roots {
		repositories, discoverError := discoverer.Discover(root, settings.MaxDepth)
		if discoverError != nil {
			return nil, fmt.Errorf(discoveryErrorTemplateConstant, root, discoverError)
		}
		for _, repository := range repositories {
			if _, duplicate := seen[repository.Path]; duplicate {
				continue
			}
			seen[repository.Path] = struct{}{}
			discovered = append(discovered, repository)
		}
	}

	selected := discovery.FilterRepositories(discovered, patterns)
	if len(selected) == 0 {
		logger.Warn(noRepositoriesMatchedMessageConstant, zap.Strings(rootsFieldConstant, roots), zap.Strings(patternsFieldConstant, patterns))
		return selected, nil
	}
	logger.Info(repositoriesSelectedMessageConstant,
		zap.Int(repositoryCountFieldConstant, len(selected)),
		zap.Strings(rootsFieldConstant, roots),
		zap.Int(jobsFieldConstant, fanout.ResolveWorkerCount(settings.Jobs, 0)),
	)
	return selected, nil
}

func bindOutputFlag(command *cobra.Command) {
	flagutils.EnsureOutputFlag(command, string(report.FormatTable), report.SupportedFormats(), outputFlagDescriptionConstant)
}

func newReporter(command *cobra.Command) (*report.Reporter, error) {
	formatValue := ""
	if outputFlag := command.Flags().Lookup(flagutils.OutputFlagName); outputFlag != nil {
		formatValue = outputFlag.Value.String()
	}
	format, formatError := report.ParseFormat(formatValue)
	if formatError != nil {
		return nil, formatError
	}
	return report.NewReporter(command.OutOrStdout(), format), nil
}
