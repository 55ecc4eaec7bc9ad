package repos

import (
	"strings"
	"time"

	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/review"
)

const (
	discoveryConfigurationKeyConstant      = "discovery"
	createConfigurationKeyConstant         = "create"
	recoveryConfigurationKeyConstant       = "recovery"
	reviewConfigurationKeyConstant         = "review"
	configurationRootKeyConstant           = "root"
	configurationMaxDepthKeyConstant       = "max_depth"
	configurationRemoteKeyConstant         = "remote"
	configurationPullRequestKeyConstant    = "pull_request"
	configurationStopOnFailureKeyConstant  = "stop_on_first_failure"
	configurationChangeIDPrefixKeyConstant = "change_id_prefix"
	configurationEnabledKeyConstant        = "enabled"
	configurationDirectoryKeyConstant      = "directory"
	configurationRetentionKeyConstant      = "retention"
	configurationBranchPrefixKeyConstant   = "branch_prefix"
	configurationMergeMethodKeyConstant    = "merge_method"
	defaultRepositoryRootConstant          = "."
	defaultMaxDepthConstant                = 3
	defaultRecoveryRetentionConstant       = 30 * 24 * time.Hour
	configurationKeySeparatorConstant      = "."
)

// ToolsConfiguration captures the configuration sections read by repository commands.
type ToolsConfiguration struct {
	Discovery DiscoveryConfiguration `mapstructure:"discovery"`
	Create    CreateConfiguration    `mapstructure:"create"`
	Recovery  RecoveryConfiguration  `mapstructure:"recovery"`
	Review    ReviewConfiguration    `mapstructure:"review"`
}

// DiscoveryConfiguration locates repositories on disk.
type DiscoveryConfiguration struct {
	Roots    []string `mapstructure:"root"`
	MaxDepth int      `mapstructure:"max_depth"`
}

// CreateConfiguration holds defaults for gx create.
type CreateConfiguration struct {
	Remote             string `mapstructure:"remote"`
	PullRequest        bool   `mapstructure:"pull_request"`
	StopOnFirstFailure bool   `mapstructure:"stop_on_first_failure"`
	ChangeIDPrefix     string `mapstructure:"change_id_prefix"`
}

// RecoveryConfiguration controls where transaction state is persisted and for how long.
type RecoveryConfiguration struct {
	Enabled   bool          `mapstructure:"enabled"`
	Directory string        `mapstructure:"directory"`
	Retention time.Duration `mapstructure:"retention"`
}

// ReviewConfiguration holds defaults for gx review.
type ReviewConfiguration struct {
	BranchPrefix string `mapstructure:"branch_prefix"`
	MergeMethod  string `mapstructure:"merge_method"`
}

// DefaultToolsConfiguration returns baseline configuration values for repository commands.
func DefaultToolsConfiguration() ToolsConfiguration {
	return ToolsConfiguration{
		Discovery: DiscoveryConfiguration{
			Roots:    []string{defaultRepositoryRootConstant},
			MaxDepth: defaultMaxDepthConstant,
		},
		Create: CreateConfiguration{
			Remote:             shared.OriginRemoteNameConstant,
			PullRequest:        false,
			StopOnFirstFailure: false,
			ChangeIDPrefix:     review.DefaultBranchPrefix,
		},
		Recovery: RecoveryConfiguration{
			Enabled:   true,
			Directory: "",
			Retention: defaultRecoveryRetentionConstant,
		},
		Review: ReviewConfiguration{
			BranchPrefix: review.DefaultBranchPrefix,
			MergeMethod:  string(githubcli.MergeMethodSquash),
		},
	}
}

// DefaultConfigurationValues produces Viper defaults for repository commands.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultToolsConfiguration()
	return map[string]any{
		joinKey(rootKey, discoveryConfigurationKeyConstant, configurationRootKeyConstant):        defaults.Discovery.Roots,
		joinKey(rootKey, discoveryConfigurationKeyConstant, configurationMaxDepthKeyConstant):    defaults.Discovery.MaxDepth,
		joinKey(rootKey, createConfigurationKeyConstant, configurationRemoteKeyConstant):         defaults.Create.Remote,
		joinKey(rootKey, createConfigurationKeyConstant, configurationPullRequestKeyConstant):    defaults.Create.PullRequest,
		joinKey(rootKey, createConfigurationKeyConstant, configurationStopOnFailureKeyConstant):  defaults.Create.StopOnFirstFailure,
		joinKey(rootKey, createConfigurationKeyConstant, configurationChangeIDPrefixKeyConstant): defaults.Create.ChangeIDPrefix,
		joinKey(rootKey, recoveryConfigurationKeyConstant, configurationEnabledKeyConstant):      defaults.Recovery.Enabled,
		joinKey(rootKey, recoveryConfigurationKeyConstant, configurationDirectoryKeyConstant):    defaults.Recovery.Directory,
		joinKey(rootKey, recoveryConfigurationKeyConstant, configurationRetentionKeyConstant):    defaults.Recovery.Retention.String(),
		joinKey(rootKey, reviewConfigurationKeyConstant, configurationBranchPrefixKeyConstant):   defaults.Review.BranchPrefix,
		joinKey(rootKey, reviewConfigurationKeyConstant, configurationMergeMethodKeyConstant):    defaults.Review.MergeMethod,
	}
}

func joinKey(parts ...string) string {
	return strings.Join(parts, configurationKeySeparatorConstant)
}

// sanitize fills blank values with defaults and normalizes the rest.
func (configuration ToolsConfiguration) sanitize() ToolsConfiguration {
	defaults := DefaultToolsConfiguration()
	sanitized := configuration

	sanitized.Discovery.Roots = trimValues(configuration.Discovery.Roots)
	if len(sanitized.Discovery.Roots) == 0 {
		sanitized.Discovery.Roots = defaults.Discovery.Roots
	}

	sanitized.Create.Remote = strings.TrimSpace(configuration.Create.Remote)
	if len(sanitized.Create.Remote) == 0 {
		sanitized.Create.Remote = defaults.Create.Remote
	}
	sanitized.Create.ChangeIDPrefix = strings.TrimSpace(configuration.Create.ChangeIDPrefix)

	sanitized.Recovery.Directory = strings.TrimSpace(configuration.Recovery.Directory)
	if sanitized.Recovery.Retention <= 0 {
		sanitized.Recovery.Retention = defaults.Recovery.Retention
	}

	sanitized.Review.BranchPrefix = strings.TrimSpace(configuration.Review.BranchPrefix)
	if len(sanitized.Review.BranchPrefix) == 0 {
		sanitized.Review.BranchPrefix = defaults.Review.BranchPrefix
	}
	sanitized.Review.MergeMethod = strings.ToLower(strings.TrimSpace(configuration.Review.MergeMethod))
	if len(sanitized.Review.MergeMethod) == 0 {
		sanitized.Review.MergeMethod = defaults.Review.MergeMethod
	}
	return sanitized
}

func trimValues(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if candidate := strings.TrimSpace(value); len(candidate) > 0 {
			trimmed = append(trimmed, candidate)
		}
	}
	return trimmed
}
