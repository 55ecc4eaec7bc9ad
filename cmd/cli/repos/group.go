package repos

import (
	"github.com/spf13/cobra"

	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/review"
)

// CommandGroupBuilder assembles every repository command over one set of shared collaborators.
// Nil collaborators fall back to their process-backed defaults.
type CommandGroupBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() ToolsConfiguration
	Discoverer            shared.RepositoryDiscoverer
	CommandExecutor       shared.CommandExecutor
	FileSystem            shared.FileSystem
	Clock                 shared.Clock
	GitHubClient          review.GitHubClient
	ChangeIDGenerator     ChangeIDGenerator
}

type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// Build constructs the create, status, review and rollback commands in registration order.
func (builder *CommandGroupBuilder) Build() ([]*cobra.Command, error) {
	builders := []commandBuilder{
		&CreateCommandBuilder{
			LoggerProvider:        builder.LoggerProvider,
			ConfigurationProvider: builder.ConfigurationProvider,
			Discoverer:            builder.Discoverer,
			CommandExecutor:       builder.CommandExecutor,
			FileSystem:            builder.FileSystem,
			Clock:                 builder.Clock,
			ChangeIDGenerator:     builder.ChangeIDGenerator,
		},
		&StatusCommandBuilder{
			LoggerProvider:        builder.LoggerProvider,
			ConfigurationProvider: builder.ConfigurationProvider,
			Discoverer:            builder.Discoverer,
			CommandExecutor:       builder.CommandExecutor,
		},
		&ReviewCommandBuilder{
			LoggerProvider:        builder.LoggerProvider,
			ConfigurationProvider: builder.ConfigurationProvider,
			Discoverer:            builder.Discoverer,
			CommandExecutor:       builder.CommandExecutor,
			GitHubClient:          builder.GitHubClient,
		},
		&RollbackCommandBuilder{
			LoggerProvider:        builder.LoggerProvider,
			ConfigurationProvider: builder.ConfigurationProvider,
			CommandExecutor:       builder.CommandExecutor,
			FileSystem:            builder.FileSystem,
			Clock:                 builder.Clock,
		},
	}

	commands := make([]*cobra.Command, 0, len(builders))
	for _, commandBuilder := range builders {
		command, buildError := commandBuilder.Build()
		if buildError != nil {
			return nil, buildError
		}
		commands = append(commands, command)
	}
	return commands, nil
}
