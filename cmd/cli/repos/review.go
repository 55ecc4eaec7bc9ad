package repos

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/gx/internal/fanout"
	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/repos/dependencies"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/review"
	flagutils "github.com/temirov/gx/internal/utils/flags"
)

const (
	reviewUseConstant              = "review"
	reviewShortDescriptionConstant = "Inspect, merge or discard the pull requests of a change"
	reviewLongDescriptionConstant  = "review operates on the pull requests and remote branches that gx create left behind in every selected repository with a GitHub remote."
	reviewListUseConstant          = "ls <change-id> [pattern...]"
	reviewListShortConstant        = "List open pull requests of a change"
	reviewApproveUseConstant       = "approve <change-id> [pattern...]"
	reviewApproveShortConstant     = "Approve and merge the pull requests of a change"
	reviewDeleteUseConstant        = "delete <change-id> [pattern...]"
	reviewDeleteShortConstant      = "Close the pull requests of a change and delete its remote branches"
	reviewPurgeUseConstant         = "purge [pattern...]"
	reviewPurgeShortConstant       = "Delete every remote branch carrying the change prefix"
	mergeMethodFlagName            = "merge-method"
	mergeMethodFlagDescription     = "Merge strategy."
	adminFlagName                  = "admin"
	adminFlagUsage                 = "Merge with administrator privileges, bypassing branch protection"
	prefixFlagName                 = "prefix"
	prefixFlagUsage                = "Branch prefix to purge (configured review.branch_prefix when omitted)"
)

type reviewOperation func(executionContext context.Context, service *review.Service, repository shared.RepositoryReference) review.Result

// ReviewCommandBuilder assembles the review command group.
type ReviewCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() ToolsConfiguration
	Discoverer            shared.RepositoryDiscoverer
	CommandExecutor       shared.CommandExecutor
	GitHubClient          review.GitHubClient
}

// Build constructs the review command and its subcommands.
func (builder *ReviewCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   reviewUseConstant,
		Short: reviewShortDescriptionConstant,
		Long:  reviewLongDescriptionConstant,
	}
	bindOutputFlag(command)

	listCommand := &cobra.Command{
		Use:   reviewListUseConstant,
		Short: reviewListShortConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			changeID := arguments[0]
			return builder.run(command, arguments[1:], func(executionContext context.Context, service *review.Service, repository shared.RepositoryReference) review.Result {
				return service.List(executionContext, repository, changeID)
			})
		},
	}

	approveCommand := &cobra.Command{
		Use:   reviewApproveUseConstant,
		Short: reviewApproveShortConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			changeID := arguments[0]
			mergeOptions := builder.readMergeOptions(command)
			return builder.run(command, arguments[1:], func(executionContext context.Context, service *review.Service, repository shared.RepositoryReference) review.Result {
				return service.Approve(executionContext, repository, changeID, mergeOptions)
			})
		},
	}
	mergeMethods := []string{string(githubcli.MergeMethodSquash), string(githubcli.MergeMethodMerge), string(githubcli.MergeMethodRebase)}
	mergeMethodValue := flagutils.NewChoiceValue(string(githubcli.MergeMethodSquash), mergeMethods)
	approveCommand.Flags().Var(mergeMethodValue, mergeMethodFlagName, flagutils.FormatChoiceUsage(string(githubcli.MergeMethodSquash), mergeMethods, mergeMethodFlagDescription))
	approveCommand.Flags().Bool(adminFlagName, false, adminFlagUsage)

	deleteCommand := &cobra.Command{
		Use:   reviewDeleteUseConstant,
		Short: reviewDeleteShortConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			changeID := arguments[0]
			return builder.run(command, arguments[1:], func(executionContext context.Context, service *review.Service, repository shared.RepositoryReference) review.Result {
				return service.Delete(executionContext, repository, changeID)
			})
		},
	}

	purgeCommand := &cobra.Command{
		Use:   reviewPurgeUseConstant,
		Short: reviewPurgeShortConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			prefix := builder.resolveConfiguration().Review.BranchPrefix
			if prefixFlag := command.Flags().Lookup(prefixFlagName); prefixFlag != nil && prefixFlag.Changed {
				prefix = strings.TrimSpace(prefixFlag.Value.String())
			}
			return builder.run(command, arguments, func(executionContext context.Context, service *review.Service, repository shared.RepositoryReference) review.Result {
				return service.Purge(executionContext, repository, prefix)
			})
		},
	}
	purgeCommand.Flags().String(prefixFlagName, review.DefaultBranchPrefix, prefixFlagUsage)

	command.AddCommand(listCommand, approveCommand, deleteCommand, purgeCommand)
	return command, nil
}

func (builder *ReviewCommandBuilder) run(command *cobra.Command, patterns []string, operation reviewOperation) error {
	configuration := builder.resolveConfiguration()
	reporter, reporterError := newReporter(command)
	if reporterError != nil {
		return reporterError
	}

	logger := resolveLogger(builder.LoggerProvider)
	settings := resolveExecutionSettings(command, configuration.Discovery)

	gitHubClient := builder.GitHubClient
	if gitHubClient == nil {
		commandExecutor, executorError := dependencies.ResolveCommandExecutor(builder.CommandExecutor, logger, string(settings.LogFormat))
		if executorError != nil {
			return executorError
		}
		defaultClient, clientError := dependencies.ResolveGitHubClient(commandExecutor)
		if clientError != nil {
			return clientError
		}
		gitHubClient = defaultClient
	}

	service, serviceError := review.NewService(review.ServiceDependencies{GitHubClient: gitHubClient, Logger: logger})
	if serviceError != nil {
		return serviceError
	}

	repositories, selectionError := selectRepositories(dependencies.ResolveRepositoryDiscoverer(builder.Discoverer), settings, patterns, logger)
	if selectionError != nil {
		return selectionError
	}

	results := fanout.Run(command.Context(), settings.Jobs, repositories, func(executionContext context.Context, repository shared.RepositoryReference) review.Result {
		return operation(executionContext, service, repository)
	})

	summary, renderError := reporter.Reviews(results)
	if renderError != nil {
		return renderError
	}
	return failuresResult(summary.ErrorCount())
}

func (builder *ReviewCommandBuilder) readMergeOptions(command *cobra.Command) githubcli.MergeOptions {
	options := githubcli.MergeOptions{Method: githubcli.MergeMethod(builder.resolveConfiguration().Review.MergeMethod)}
	if methodFlag := command.Flags().Lookup(mergeMethodFlagName); methodFlag != nil && methodFlag.Changed {
		options.Method = githubcli.MergeMethod(methodFlag.Value.String())
	}
	options.AdminOverride, _ = command.Flags().GetBool(adminFlagName)
	return options
}

func (builder *ReviewCommandBuilder) resolveConfiguration() ToolsConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultToolsConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}
