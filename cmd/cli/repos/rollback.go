package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gx/internal/gitrepo"
	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/repos/dependencies"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/transaction"
)

const (
	rollbackUseConstant                 = "rollback"
	rollbackShortDescriptionConstant    = "Inspect and replay persisted transactions"
	rollbackLongDescriptionConstant     = "rollback manages the recovery store: transactions that were interrupted before committing or rolling back leave a state file behind that can be validated and replayed."
	rollbackListUseConstant             = "list"
	rollbackListShortConstant           = "List persisted transactions"
	rollbackValidateUseConstant         = "validate <transaction-id>"
	rollbackValidateShortConstant       = "Check that a persisted transaction can be replayed"
	rollbackExecuteUseConstant          = "execute <transaction-id>"
	rollbackExecuteShortConstant        = "Replay the compensations of a persisted transaction"
	rollbackPurgeUseConstant            = "purge"
	rollbackPurgeShortConstant          = "Delete persisted transactions older than the retention period"
	forceFlagName                       = "force"
	forceFlagUsage                      = "Replay even when validation reports errors"
	olderThanFlagName                   = "older-than"
	olderThanFlagUsage                  = "Purge states older than this duration (configured recovery.retention when omitted)"
	validationBlockedErrorTemplate      = "transaction %s failed validation with %d error(s); rerun with --force to replay anyway"
	invalidRetentionErrorTemplate       = "invalid --older-than %s: must be positive"
	rollbackReplayedMessageConstant     = "Transaction replayed"
	rollbackForcedMessageConstant       = "Replaying transaction despite validation errors"
	recoveryStatesPurgedMessageConstant = "Recovery states purged"
	transactionIDFieldConstant          = "transaction_id"
	attemptedFieldConstant              = "attempted"
	failedFieldConstant                 = "failed"
	purgedFieldConstant                 = "purged"
	cutoffFieldConstant                 = "cutoff"
)

// RollbackCommandBuilder assembles the rollback command group.
type RollbackCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() ToolsConfiguration
	CommandExecutor       shared.CommandExecutor
	FileSystem            shared.FileSystem
	Clock                 shared.Clock
}

// Build constructs the rollback command and its subcommands.
func (builder *RollbackCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   rollbackUseConstant,
		Short: rollbackShortDescriptionConstant,
		Long:  rollbackLongDescriptionConstant,
	}
	bindOutputFlag(command)

	listCommand := &cobra.Command{
		Use:   rollbackListUseConstant,
		Short: rollbackListShortConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runList,
	}

	validateCommand := &cobra.Command{
		Use:   rollbackValidateUseConstant,
		Short: rollbackValidateShortConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.runValidate,
	}

	executeCommand := &cobra.Command{
		Use:   rollbackExecuteUseConstant,
		Short: rollbackExecuteShortConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.runExecute,
	}
	executeCommand.Flags().Bool(forceFlagName, false, forceFlagUsage)

	purgeCommand := &cobra.Command{
		Use:   rollbackPurgeUseConstant,
		Short: rollbackPurgeShortConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runPurge,
	}
	purgeCommand.Flags().Duration(olderThanFlagName, defaultRecoveryRetentionConstant, olderThanFlagUsage)

	command.AddCommand(listCommand, validateCommand, executeCommand, purgeCommand)
	return command, nil
}

func (builder *RollbackCommandBuilder) runList(command *cobra.Command, arguments []string) error {
	reporter, reporterError := newReporter(command)
	if reporterError != nil {
		return reporterError
	}
	states, listError := builder.store().List()
	if listError != nil {
		return listError
	}
	return reporter.RecoveryStates(states)
}

func (builder *RollbackCommandBuilder) runValidate(command *cobra.Command, arguments []string) error {
	reporter, reporterError := newReporter(command)
	if reporterError != nil {
		return reporterError
	}
	state, loadError := builder.store().Load(arguments[0])
	if loadError != nil {
		return loadError
	}
	repositoryManager, managerError := builder.repositoryManager(command)
	if managerError != nil {
		return managerError
	}
	result, validationError := validateState(command.Context(), repositoryManager, state)
	if validationError != nil {
		return validationError
	}
	if renderError := reporter.Validation(state.TransactionID, result); renderError != nil {
		return renderError
	}
	return failuresResult(len(result.Errors))
}

func (builder *RollbackCommandBuilder) runExecute(command *cobra.Command, arguments []string) error {
	reporter, reporterError := newReporter(command)
	if reporterError != nil {
		return reporterError
	}
	logger := resolveLogger(builder.LoggerProvider)
	store := builder.store()

	state, loadError := store.Load(arguments[0])
	if loadError != nil {
		return loadError
	}
	repositoryManager, managerError := builder.repositoryManager(command)
	if managerError != nil {
		return managerError
	}

	result, validationError := validateState(command.Context(), repositoryManager, state)
	if validationError != nil {
		return validationError
	}
	if !result.Valid {
		force, _ := command.Flags().GetBool(forceFlagName)
		if !force {
			if renderError := reporter.Validation(state.TransactionID, result); renderError != nil {
				return renderError
			}
			return fmt.Errorf(validationBlockedErrorTemplate, state.TransactionID, len(result.Errors))
		}
		logger.Warn(rollbackForcedMessageConstant, zap.String(transactionIDFieldConstant, state.TransactionID), zap.Strings(failuresFieldConstant, result.Errors))
	}

	compensator, compensatorError := transaction.NewRepositoryCompensator(repositoryManager, dependencies.ResolveFileSystem(builder.FileSystem))
	if compensatorError != nil {
		return compensatorError
	}
	executor, executorError := recovery.NewExecutor(store, compensator, logger)
	if executorError != nil {
		return executorError
	}

	rollbackReport, executeError := executor.Execute(command.Context(), state.TransactionID)
	if executeError != nil {
		return executeError
	}
	logger.Info(rollbackReplayedMessageConstant,
		zap.String(transactionIDFieldConstant, rollbackReport.TransactionID),
		zap.Int(attemptedFieldConstant, rollbackReport.Attempted),
		zap.Int(failedFieldConstant, rollbackReport.Failed),
	)
	if renderError := reporter.Rollback(rollbackReport); renderError != nil {
		return renderError
	}
	return failuresResult(rollbackReport.Failed)
}

func (builder *RollbackCommandBuilder) runPurge(command *cobra.Command, arguments []string) error {
	reporter, reporterError := newReporter(command)
	if reporterError != nil {
		return reporterError
	}
	retention := builder.resolveConfiguration().Recovery.Retention
	if olderThanFlag := command.Flags().Lookup(olderThanFlagName); olderThanFlag != nil && olderThanFlag.Changed {
		retention, _ = command.Flags().GetDuration(olderThanFlagName)
	}
	if retention <= 0 {
		return fmt.Errorf(invalidRetentionErrorTemplate, retention)
	}

	cutoff := builder.now().Add(-retention)
	purged, purgeError := builder.store().Purge(cutoff)
	if purgeError != nil {
		return purgeError
	}
	resolveLogger(builder.LoggerProvider).Info(recoveryStatesPurgedMessageConstant, zap.Int(purgedFieldConstant, len(purged)), zap.Time(cutoffFieldConstant, cutoff))
	return reporter.PurgedStates(purged)
}

func validateState(executionContext context.Context, repositoryManager *gitrepo.RepositoryManager, state transaction.State) (recovery.ValidationResult, error) {
	validator, validatorError := recovery.NewValidator(repositoryManager)
	if validatorError != nil {
		return recovery.ValidationResult{}, validatorError
	}
	return validator.Validate(executionContext, state.RollbackActions), nil
}

func (builder *RollbackCommandBuilder) repositoryManager(command *cobra.Command) (*gitrepo.RepositoryManager, error) {
	logger := resolveLogger(builder.LoggerProvider)
	settings := resolveExecutionSettings(command, builder.resolveConfiguration().Discovery)
	commandExecutor, executorError := dependencies.ResolveCommandExecutor(builder.CommandExecutor, logger, string(settings.LogFormat))
	if executorError != nil {
		return nil, executorError
	}
	return dependencies.ResolveRepositoryManager(commandExecutor)
}

func (builder *RollbackCommandBuilder) store() *recovery.Store {
	directory := repositoryHomeExpander.Expand(builder.resolveConfiguration().Recovery.Directory)
	return recovery.NewStore(directory, resolveLogger(builder.LoggerProvider))
}

func (builder *RollbackCommandBuilder) now() time.Time {
	if builder.Clock == nil {
		return shared.SystemClock{}.Now()
	}
	return builder.Clock.Now()
}

func (builder *RollbackCommandBuilder) resolveConfiguration() ToolsConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultToolsConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

