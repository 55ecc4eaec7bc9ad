package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gx/internal/changes"
	"github.com/temirov/gx/internal/fanout"
	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/repos/dependencies"
	"github.com/temirov/gx/internal/repos/shared"
	flagutils "github.com/temirov/gx/internal/utils/flags"
)

const (
	createUseConstant              = "create"
	createShortDescriptionConstant = "Apply one edit to many repositories on a new branch"
	createLongDescriptionConstant  = "create applies a file edit to every selected repository inside a transaction: it branches, edits, commits, pushes and optionally opens a pull request, rolling back any repository that fails. Without --message the edit is previewed and rolled back."
	createAddUseConstant           = "add <path>"
	createAddShortConstant         = "Add a new file"
	createDeleteUseConstant        = "delete <glob> [glob...]"
	createDeleteShortConstant      = "Delete files matching globs"
	createSubUseConstant           = "sub <search> <replacement> [glob...]"
	createSubShortConstant         = "Replace literal text in matching files"
	createRegexUseConstant         = "regex <pattern> <replacement> [glob...]"
	createRegexShortConstant       = "Replace a regular expression in matching files"
	changeIDFlagName               = "id"
	changeIDFlagUsage              = "Change identifier, also used as the branch name (generated when omitted)"
	messageFlagName                = "message"
	messageFlagShorthand           = "m"
	messageFlagUsage               = "Commit message; omit to preview and roll back"
	pullRequestFlagName            = "pr"
	pullRequestFlagUsage           = "Open a pull request for every pushed branch"
	draftFlagName                  = "draft"
	draftFlagUsage                 = "Open pull requests as drafts"
	baseFlagName                   = "base"
	baseFlagUsage                  = "Base branch for pull requests (repository default when omitted)"
	diffFlagName                   = "diff"
	diffFlagUsage                  = "Show per-file diffs in the table report"
	repositoryFlagName             = "repo"
	repositoryFlagUsage            = "Repository name or slug pattern (repeatable; all repositories when omitted)"
	contentFlagName                = "content"
	contentFlagUsage               = "Content of the added file"
	contentFileFlagName            = "content-file"
	contentFileFlagUsage           = "Read the added file's content from this path"
	contentFileReadErrorTemplate   = "read content file %s: %w"
	changeIDAnnouncementTemplate   = "change %s\n"
	changeStartedMessageConstant   = "Change started"
	changeFinishedMessageConstant  = "Change finished"
	changeIDFieldConstant          = "change_id"
	kindFieldConstant              = "kind"
	dryRunFieldConstant            = "dry_run"
	failuresFieldConstant          = "failures"
)

// ChangeIDGenerator produces a change identifier from the configured prefix.
type ChangeIDGenerator func(prefix string) string

// CreateCommandBuilder assembles the create command group.
type CreateCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() ToolsConfiguration
	Discoverer            shared.RepositoryDiscoverer
	CommandExecutor       shared.CommandExecutor
	FileSystem            shared.FileSystem
	Clock                 shared.Clock
	ChangeIDGenerator     ChangeIDGenerator
}

type createOptions struct {
	changeID           string
	message            string
	pullRequest        bool
	draft              bool
	baseBranch         string
	remoteName         string
	showDiffs          bool
	repositoryPatterns []string
}

// Build constructs the create command and its edit subcommands.
func (builder *CreateCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   createUseConstant,
		Short: createShortDescriptionConstant,
		Long:  createLongDescriptionConstant,
	}

	persistentFlags := command.PersistentFlags()
	persistentFlags.String(changeIDFlagName, "", changeIDFlagUsage)
	persistentFlags.StringP(messageFlagName, messageFlagShorthand, "", messageFlagUsage)
	flagutils.AddToggleFlag(persistentFlags, nil, pullRequestFlagName, DefaultToolsConfiguration().Create.PullRequest, pullRequestFlagUsage)
	flagutils.AddToggleFlag(persistentFlags, nil, draftFlagName, false, draftFlagUsage)
	persistentFlags.String(baseFlagName, "", baseFlagUsage)
	persistentFlags.Bool(diffFlagName, false, diffFlagUsage)
	persistentFlags.StringSlice(repositoryFlagName, nil, repositoryFlagUsage)
	flagutils.EnsureRemoteFlag(command, shared.OriginRemoteNameConstant, flagutils.RemoteFlagUsage)
	bindOutputFlag(command)

	addCommand := &cobra.Command{
		Use:   createAddUseConstant,
		Short: createAddShortConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			content, contentError := builder.readAddedContent(command)
			if contentError != nil {
				return contentError
			}
			return builder.run(command, changes.ChangeRequest{Kind: changes.ChangeKindAdd, FilePath: arguments[0], Content: content})
		},
	}
	addCommand.Flags().String(contentFlagName, "", contentFlagUsage)
	addCommand.Flags().String(contentFileFlagName, "", contentFileFlagUsage)
	addCommand.MarkFlagsMutuallyExclusive(contentFlagName, contentFileFlagName)

	deleteCommand := &cobra.Command{
		Use:   createDeleteUseConstant,
		Short: createDeleteShortConstant,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, changes.ChangeRequest{Kind: changes.ChangeKindDelete, Patterns: arguments})
		},
	}

	substituteCommand := &cobra.Command{
		Use:   createSubUseConstant,
		Short: createSubShortConstant,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, changes.ChangeRequest{Kind: changes.ChangeKindSubstitute, Search: arguments[0], Replacement: arguments[1], Patterns: arguments[2:]})
		},
	}

	regexCommand := &cobra.Command{
		Use:   createRegexUseConstant,
		Short: createRegexShortConstant,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, changes.ChangeRequest{Kind: changes.ChangeKindRegex, Search: arguments[0], Replacement: arguments[1], Patterns: arguments[2:]})
		},
	}

	command.AddCommand(addCommand, deleteCommand, substituteCommand, regexCommand)
	return command, nil
}

func (builder *CreateCommandBuilder) run(command *cobra.Command, request changes.ChangeRequest) error {
	configuration := builder.resolveConfiguration()
	options := builder.readOptions(command, configuration.Create)

	request.ChangeID = options.changeID
	request.CommitMessage = options.message
	request.CreatePullRequest = options.pullRequest
	request.Draft = options.draft
	request.BaseBranch = options.baseBranch
	request.RemoteName = options.remoteName
	if validationError := request.Validate(); validationError != nil {
		return validationError
	}

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
	gitHubClient, clientError := dependencies.ResolveGitHubClient(commandExecutor)
	if clientError != nil {
		return clientError
	}

	repositories, selectionError := selectRepositories(dependencies.ResolveRepositoryDiscoverer(builder.Discoverer), settings, options.repositoryPatterns, logger)
	if selectionError != nil {
		return selectionError
	}

	pipelineOptions := changes.PipelineOptions{
		VersionControl:     repositoryManager,
		PullRequests:       gitHubClient,
		FileSystem:         dependencies.ResolveFileSystem(builder.FileSystem),
		Clock:              builder.Clock,
		Logger:             logger,
		StopOnFirstFailure: configuration.Create.StopOnFirstFailure,
	}
	if configuration.Recovery.Enabled {
		pipelineOptions.Store = recovery.NewStore(repositoryHomeExpander.Expand(configuration.Recovery.Directory), logger)
	}
	pipeline, pipelineError := changes.NewPipeline(pipelineOptions)
	if pipelineError != nil {
		return pipelineError
	}

	fmt.Fprintf(command.ErrOrStderr(), changeIDAnnouncementTemplate, request.ChangeID)
	changeLogger := logger.With(zap.String(changeIDFieldConstant, request.ChangeID))
	changeLogger.Info(changeStartedMessageConstant,
		zap.String(kindFieldConstant, string(request.Kind)),
		zap.Bool(dryRunFieldConstant, len(strings.TrimSpace(request.CommitMessage)) == 0),
		zap.Int(repositoryCountFieldConstant, len(repositories)),
	)

	outcomes := fanout.Run(command.Context(), settings.Jobs, repositories, func(executionContext context.Context, repository shared.RepositoryReference) changes.ChangeOutcome {
		return pipeline.Apply(executionContext, repository, request)
	})

	summary, renderError := reporter.WithDiffs(options.showDiffs).Changes(outcomes)
	if renderError != nil {
		return renderError
	}
	changeLogger.Info(changeFinishedMessageConstant, zap.Int(failuresFieldConstant, summary.ErrorCount()))
	return failuresResult(summary.ErrorCount())
}

func (builder *CreateCommandBuilder) readOptions(command *cobra.Command, configuration CreateConfiguration) createOptions {
	flagSet := command.Flags()
	options := createOptions{
		pullRequest: configuration.PullRequest,
		remoteName:  configuration.Remote,
	}

	options.changeID, _ = flagSet.GetString(changeIDFlagName)
	options.changeID = strings.TrimSpace(options.changeID)
	if len(options.changeID) == 0 {
		options.changeID = builder.generateChangeID(configuration.ChangeIDPrefix)
	}
	options.message, _ = flagSet.GetString(messageFlagName)
	options.baseBranch, _ = flagSet.GetString(baseFlagName)
	options.showDiffs, _ = flagSet.GetBool(diffFlagName)
	options.repositoryPatterns, _ = flagSet.GetStringSlice(repositoryFlagName)

	if pullRequestFlag := flagSet.Lookup(pullRequestFlagName); pullRequestFlag != nil && pullRequestFlag.Changed {
		options.pullRequest = pullRequestFlag.Value.String() == "true"
	}
	if draftFlag := flagSet.Lookup(draftFlagName); draftFlag != nil {
		options.draft = draftFlag.Value.String() == "true"
	}
	if remoteFlag := flagSet.Lookup(flagutils.RemoteFlagName); remoteFlag != nil && remoteFlag.Changed {
		options.remoteName = strings.TrimSpace(remoteFlag.Value.String())
	}
	return options
}

func (builder *CreateCommandBuilder) generateChangeID(prefix string) string {
	if builder.ChangeIDGenerator != nil {
		return builder.ChangeIDGenerator(prefix)
	}
	return prefix + ksuid.New().String()
}

func (builder *CreateCommandBuilder) readAddedContent(command *cobra.Command) ([]byte, error) {
	contentFilePath, _ := command.Flags().GetString(contentFileFlagName)
	if len(strings.TrimSpace(contentFilePath)) == 0 {
		content, _ := command.Flags().GetString(contentFlagName)
		return []byte(content), nil
	}
	expandedPath := repositoryHomeExpander.Expand(strings.TrimSpace(contentFilePath))
	content, readError := dependencies.ResolveFileSystem(builder.FileSystem).ReadFile(expandedPath)
	if readError != nil {
		return nil, fmt.Errorf(contentFileReadErrorTemplate, contentFilePath, readError)
	}
	return content, nil
}

func (builder *CreateCommandBuilder) resolveConfiguration() ToolsConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultToolsConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}
