package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	executionSettingsContextKeyConstant     = commandContextKey("executionSettings")
)

type commandContextKey string

// ExecutionSettings carries the fan-out parameters resolved once by the root command
// from flags, configuration and defaults.
type ExecutionSettings struct {
	Roots     []string
	MaxDepth  int
	Jobs      int
	LogFormat LogFormat
}

// HumanReadableLogging reports whether command transcripts should be rendered for people.
func (settings ExecutionSettings) HumanReadableLogging() bool {
	return settings.LogFormat == LogFormatConsole
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	return configurationFilePath, configurationFilePathAvailable
}

// WithExecutionSettings attaches resolved execution settings to the provided context.
func (accessor CommandContextAccessor) WithExecutionSettings(parentContext context.Context, settings ExecutionSettings) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	settings.Roots = append([]string(nil), settings.Roots...)
	return context.WithValue(parentContext, executionSettingsContextKeyConstant, settings)
}

// ExecutionSettings extracts execution settings from the provided context.
func (accessor CommandContextAccessor) ExecutionSettings(executionContext context.Context) (ExecutionSettings, bool) {
	if executionContext == nil {
		return ExecutionSettings{}, false
	}
	settings, settingsAvailable := executionContext.Value(executionSettingsContextKeyConstant).(ExecutionSettings)
	return settings, settingsAvailable
}
