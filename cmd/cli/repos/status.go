package repos

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/temirov/gx/internal/fanout"
	"github.com/temirov/gx/internal/repos/dependencies"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/status"
)

const (
	statusUseConstant              = "status [pattern...]"
	statusShortDescriptionConstant = "Show branch and working tree state of every repository"
	statusLongDescriptionConstant  = "status reports the current branch of each selected repository and whether its working tree is clean, grouping repositories into clean, dirty and error buckets."
)

// StatusCommandBuilder assembles the status command.
type StatusCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() ToolsConfiguration
	Discoverer            shared.RepositoryDiscoverer
	CommandExecutor       shared.CommandExecutor
}

// Build constructs the status command.
func (builder *StatusCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusUseConstant,
		Short: statusShortDescriptionConstant,
		Long:  statusLongDescriptionConstant,
		RunE:  builder.run,
	}
	bindOutputFlag(command)
	return command, nil
}

func (builder *StatusCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	reporter, reporterError := newReporter(command)
	if reporterError != nil {
		return reporterError
	}

	logger := resolveLogger(builder.LoggerProvider)
	settings := resolveExecutionSettings(command, configuration.Discovery)
	commandExecutor, executorError := dependencies.ResolveCommandExecutor(builder.CommandExecutor, logger, string(settings.LogFormat))
	if executorError != nil {
		return executorError
	}
	repositoryManager, managerError := dependencies.ResolveRepositoryManager(commandExecutor)
	if managerError != nil {
		return managerError
	}
	service, serviceError := status.NewService(repositoryManager)
	if serviceError != nil {
		return serviceError
	}

	repositories, selectionError := selectRepositories(dependencies.ResolveRepositoryDiscoverer(builder.Discoverer), settings, arguments, logger)
	if selectionError != nil {
		return selectionError
	}

	entries := fanout.Run(command.Context(), settings.Jobs, repositories, func(executionContext context.Context, repository shared.RepositoryReference) status.RepositoryStatus {
		return service.Inspect(executionContext, repository)
	})

	summary, renderError := reporter.Statuses(entries)
	if renderError != nil {
		return renderError
	}
	return failuresResult(summary.ErrorCount())
}

func (builder *StatusCommandBuilder) resolveConfiguration() ToolsConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultToolsConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}
