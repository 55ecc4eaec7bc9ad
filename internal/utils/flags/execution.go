// Package flags provides helpers for binding standardized gx flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// RootFlagName exposes the repository root flag name.
	RootFlagName = "root"
	// RootFlagUsage describes the repository root flag.
	RootFlagUsage = "Directory to scan for repositories (repeatable)"
	// DepthFlagName exposes the discovery depth flag name.
	DepthFlagName = "depth"
	// DepthFlagUsage describes the discovery depth flag.
	DepthFlagUsage = "Maximum directory depth below each root (negative for unlimited)"
	// JobsFlagName exposes the worker count flag name.
	JobsFlagName = "jobs"
	// JobsFlagShorthand provides the shorthand for the worker count flag.
	JobsFlagShorthand = "j"
	// JobsFlagUsage describes the worker count flag.
	JobsFlagUsage = "Number of repositories processed concurrently (0 uses the CPU count)"
)

// ExecutionDefaults describes default values for the fan-out flags.
type ExecutionDefaults struct {
	Roots    []string
	MaxDepth int
	Jobs     int
}

// ExecutionFlags captures parsed fan-out flag values along with whether each was set explicitly.
type ExecutionFlags struct {
	Roots       []string
	RootsSet    bool
	MaxDepth    int
	MaxDepthSet bool
	Jobs        int
	JobsSet     bool
}

// BindExecutionFlags attaches the fan-out flags to the command using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults) {
	if command == nil {
		return
	}

	persistentFlagSet := command.PersistentFlags()
	if persistentFlagSet.Lookup(RootFlagName) == nil {
		persistentFlagSet.StringSlice(RootFlagName, append([]string(nil), defaults.Roots...), RootFlagUsage)
	}
	if persistentFlagSet.Lookup(DepthFlagName) == nil {
		persistentFlagSet.Int(DepthFlagName, defaults.MaxDepth, DepthFlagUsage)
	}
	if persistentFlagSet.Lookup(JobsFlagName) == nil {
		persistentFlagSet.IntP(JobsFlagName, JobsFlagShorthand, defaults.Jobs, JobsFlagUsage)
	}
}

// ResolveExecutionFlags reads the fan-out flags visible to the command. The boolean result is
// false when the command has none of them bound.
func ResolveExecutionFlags(command *cobra.Command) (ExecutionFlags, bool) {
	if command == nil {
		return ExecutionFlags{}, false
	}

	flagSet := command.Flags()
	if flagSet.Lookup(RootFlagName) == nil && flagSet.Lookup(DepthFlagName) == nil && flagSet.Lookup(JobsFlagName) == nil {
		return ExecutionFlags{}, false
	}

	resolved := ExecutionFlags{}
	if roots, lookupError := flagSet.GetStringSlice(RootFlagName); lookupError == nil {
		resolved.Roots = roots
		resolved.RootsSet = flagChanged(flagSet, RootFlagName)
	}
	if maxDepth, lookupError := flagSet.GetInt(DepthFlagName); lookupError == nil {
		resolved.MaxDepth = maxDepth
		resolved.MaxDepthSet = flagChanged(flagSet, DepthFlagName)
	}
	if jobs, lookupError := flagSet.GetInt(JobsFlagName); lookupError == nil {
		resolved.Jobs = jobs
		resolved.JobsSet = flagChanged(flagSet, JobsFlagName)
	}
	return resolved, true
}

func flagChanged(flagSet *pflag.FlagSet, name string) bool {
	flag := flagSet.Lookup(name)
	return flag != nil && flag.Changed
}
