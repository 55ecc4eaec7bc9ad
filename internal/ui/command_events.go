package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/gx/internal/execshell"
)

const (
	repositoryPrefixTemplateConstant        = "[%s] "
	commandStartedTemplateConstant          = "%s$ %s"
	commandSucceededTemplateConstant        = "%sok: %s"
	commandExitedTemplateConstant           = "%s%s exited with code %d"
	commandCouldNotRunTemplateConstant      = "%s%s could not run: %s"
	standardErrorDetailTemplateConstant     = " (%s)"
	argumentSeparatorConstant               = " "
	standardErrorFirstLineSeparatorConstant = "\n"
	unknownFailureMessageConstant           = "unknown error"
	repositoryFieldNameConstant             = "repository"
)

// CommandEventFormatter turns command lifecycle events into one-line console messages
// prefixed with the repository the command ran in.
type CommandEventFormatter struct{}

// Started describes a command about to run.
func (formatter CommandEventFormatter) Started(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandStartedTemplateConstant, formatter.repositoryPrefix(command), formatter.commandLine(command))
}

// Succeeded describes a command that exited cleanly.
func (formatter CommandEventFormatter) Succeeded(command execshell.ShellCommand) string {
	return fmt.Sprintf(commandSucceededTemplateConstant, formatter.repositoryPrefix(command), formatter.commandLine(command))
}

// Exited describes a command that returned a non-zero exit code. Only the first stderr line is kept.
func (formatter CommandEventFormatter) Exited(command execshell.ShellCommand, result execshell.ExecutionResult) string {
	message := fmt.Sprintf(commandExitedTemplateConstant, formatter.repositoryPrefix(command), formatter.commandLine(command), result.ExitCode)
	firstLine := strings.TrimSpace(strings.SplitN(strings.TrimSpace(result.StandardError), standardErrorFirstLineSeparatorConstant, 2)[0])
	if len(firstLine) == 0 {
		return message
	}
	return message + fmt.Sprintf(standardErrorDetailTemplateConstant, firstLine)
}

// CouldNotRun describes a command that never produced an exit code.
func (formatter CommandEventFormatter) CouldNotRun(command execshell.ShellCommand, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(commandCouldNotRunTemplateConstant, formatter.repositoryPrefix(command), formatter.commandLine(command), failureMessage)
}

// RepositoryName returns the final element of the working directory, or an empty string.
func (formatter CommandEventFormatter) RepositoryName(command execshell.ShellCommand) string {
	workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(workingDirectory) == 0 {
		return ""
	}
	return filepath.Base(workingDirectory)
}

func (formatter CommandEventFormatter) repositoryPrefix(command execshell.ShellCommand) string {
	repositoryName := formatter.RepositoryName(command)
	if len(repositoryName) == 0 {
		return ""
	}
	return fmt.Sprintf(repositoryPrefixTemplateConstant, repositoryName)
}

func (formatter CommandEventFormatter) commandLine(command execshell.ShellCommand) string {
	return strings.Join(append([]string{string(command.Name)}, command.Details.Arguments...), argumentSeparatorConstant)
}

// ConsoleCommandEventLogger implements execshell.CommandEventObserver for the console log format.
// Starts and successes are logged at debug so that a fan-out over many repositories stays readable
// at the default level; failures surface at warn and error.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter CommandEventFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: CommandEventFormatter{}}
}

// CommandStarted logs the command line about to run.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.Started(command), eventLogger.repositoryField(command))
}

// CommandCompleted logs the command outcome, warning on non-zero exit codes.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Debug(eventLogger.formatter.Succeeded(command), eventLogger.repositoryField(command))
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.Exited(command, result), eventLogger.repositoryField(command))
}

// CommandExecutionFailed logs commands that could not be started or were interrupted.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.CouldNotRun(command, failure), eventLogger.repositoryField(command))
}

func (eventLogger *ConsoleCommandEventLogger) repositoryField(command execshell.ShellCommand) zap.Field {
	return zap.String(repositoryFieldNameConstant, eventLogger.formatter.RepositoryName(command))
}
