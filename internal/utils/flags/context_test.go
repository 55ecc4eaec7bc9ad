package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestEnsureRemoteFlagIsIdempotent(t *testing.T) {
	command := &cobra.Command{}

	EnsureRemoteFlag(command, "origin", RemoteFlagUsage)
	EnsureRemoteFlag(command, "upstream", RemoteFlagUsage)

	require.NoError(t, command.ParseFlags([]string{}))
	remoteName, lookupError := command.Flags().GetString(RemoteFlagName)
	require.NoError(t, lookupError)
	require.Equal(t, "origin", remoteName)

	require.NoError(t, command.ParseFlags([]string{"--" + RemoteFlagName, "fork"}))
	remoteName, lookupError = command.Flags().GetString(RemoteFlagName)
	require.NoError(t, lookupError)
	require.Equal(t, "fork", remoteName)
}

func TestEnsureOutputFlagParsesChoices(t *testing.T) {
	command := &cobra.Command{}

	outputValue := EnsureOutputFlag(command, "table", []string{"table", "yaml"}, "Report format.")
	require.Same(t, outputValue, EnsureOutputFlag(command, "yaml", []string{"table", "yaml"}, "Report format."))

	outputFlag := command.PersistentFlags().Lookup(OutputFlagName)
	require.NotNil(t, outputFlag)
	require.Equal(t, "`<TABLE|yaml>` Report format.", outputFlag.Usage)

	require.NoError(t, command.ParseFlags([]string{"-o", "yaml"}))
	require.Equal(t, "yaml", outputValue.String())
	require.Error(t, command.ParseFlags([]string{"--output", "json"}))
}
