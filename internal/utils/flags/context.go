package flags

import "github.com/spf13/cobra"

const (
	// RemoteFlagName exposes the shared remote flag name.
	RemoteFlagName = "remote"
	// RemoteFlagUsage describes the shared remote flag purpose.
	RemoteFlagUsage = "Remote that receives pushed change branches"
	// OutputFlagName exposes the shared report format flag name.
	OutputFlagName = "output"
	// OutputFlagShorthand provides the shorthand for the report format flag.
	OutputFlagShorthand = "o"
)

// EnsureRemoteFlag guarantees the shared remote flag is available on the command.
func EnsureRemoteFlag(command *cobra.Command, defaultValue string, usage string) {
	if command == nil {
		return
	}

	persistentSet := command.PersistentFlags()
	if persistentSet.Lookup(RemoteFlagName) == nil {
		persistentSet.String(RemoteFlagName, defaultValue, usage)
	}

	if command.Flags().Lookup(RemoteFlagName) == nil {
		if remoteFlag := persistentSet.Lookup(RemoteFlagName); remoteFlag != nil {
			command.Flags().AddFlag(remoteFlag)
		}
	}
}

// EnsureOutputFlag attaches a validated report format flag to the command and returns its value holder.
func EnsureOutputFlag(command *cobra.Command, defaultChoice string, choices []string, description string) *ChoiceValue {
	choiceValue := NewChoiceValue(defaultChoice, choices)
	if command == nil {
		return choiceValue
	}

	persistentSet := command.PersistentFlags()
	if existing := persistentSet.Lookup(OutputFlagName); existing != nil {
		if existingChoice, isChoice := existing.Value.(*ChoiceValue); isChoice {
			return existingChoice
		}
		return choiceValue
	}
	persistentSet.VarP(choiceValue, OutputFlagName, OutputFlagShorthand, FormatChoiceUsage(defaultChoice, choices, description))
	return choiceValue
}
