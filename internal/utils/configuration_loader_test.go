package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/utils"
)

const (
	testEnvironmentPrefixConstant      = "GXLOADERTEST"
	testConfigurationNameConstant      = "config"
	testConfigurationTypeConstant      = "yaml"
	testConfigFileNameConstant         = "config.yaml"
	testDiscoveryDepthKeyConstant      = "discovery.max_depth"
	testRecoveryRetentionKeyConstant   = "recovery.retention"
	testEmbeddedConfigurationConstant  = "discovery:\n  max_depth: 2\nrecovery:\n  retention: 24h\n"
	testFileConfigurationConstant      = "discovery:\n  max_depth: 4\n"
	testMalformedConfigurationConstant = "discovery: [unterminated\n"
)

type loaderFixture struct {
	Discovery loaderDiscoveryFixture `mapstructure:"discovery"`
	Recovery  loaderRecoveryFixture  `mapstructure:"recovery"`
}

type loaderDiscoveryFixture struct {
	Roots    []string `mapstructure:"root"`
	MaxDepth int      `mapstructure:"max_depth"`
}

type loaderRecoveryFixture struct {
	Retention time.Duration `mapstructure:"retention"`
}

func writeConfigurationFile(testInstance *testing.T, directory string, content string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(directory, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o600))
	return configurationPath
}

func TestConfigurationLoaderLayers(testInstance *testing.T) {
	defaultValues := map[string]any{
		testDiscoveryDepthKeyConstant:    1,
		testRecoveryRetentionKeyConstant: "1h",
		"discovery.root":                 []string{"."},
	}

	testCases := []struct {
		name              string
		embedded          bool
		fileContent       string
		environment       map[string]string
		expectedDepth     int
		expectedRetention time.Duration
		expectedRoots     []string
	}{
		{
			name:              "defaults_only",
			expectedDepth:     1,
			expectedRetention: time.Hour,
			expectedRoots:     []string{"."},
		},
		{
			name:              "embedded_over_defaults",
			embedded:          true,
			expectedDepth:     2,
			expectedRetention: 24 * time.Hour,
			expectedRoots:     []string{"."},
		},
		{
			name:              "file_over_embedded",
			embedded:          true,
			fileContent:       testFileConfigurationConstant,
			expectedDepth:     4,
			expectedRetention: 24 * time.Hour,
			expectedRoots:     []string{"."},
		},
		{
			name:        "environment_over_file",
			embedded:    true,
			fileContent: testFileConfigurationConstant,
			environment: map[string]string{
				testEnvironmentPrefixConstant + "_DISCOVERY_MAX_DEPTH": "9",
				testEnvironmentPrefixConstant + "_DISCOVERY_ROOT":      "/src/a,/src/b",
			},
			expectedDepth:     9,
			expectedRetention: 24 * time.Hour,
			expectedRoots:     []string{"/src/a", "/src/b"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			for key, value := range testCase.environment {
				testInstance.Setenv(key, value)
			}

			configurationPath := ""
			if len(testCase.fileContent) > 0 {
				configurationPath = writeConfigurationFile(testInstance, testInstance.TempDir(), testCase.fileContent)
			}

			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})
			if testCase.embedded {
				loader.SetEmbeddedConfiguration([]byte(testEmbeddedConfigurationConstant), testConfigurationTypeConstant)
			}

			var loaded loaderFixture
			metadata, loadError := loader.LoadConfiguration(configurationPath, defaultValues, &loaded)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedDepth, loaded.Discovery.MaxDepth)
			require.Equal(testInstance, testCase.expectedRetention, loaded.Recovery.Retention)
			require.Equal(testInstance, testCase.expectedRoots, loaded.Discovery.Roots)
			require.Equal(testInstance, configurationPath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderSearchesPathsInOrder(testInstance *testing.T) {
	firstDirectory := testInstance.TempDir()
	secondDirectory := testInstance.TempDir()
	secondPath := writeConfigurationFile(testInstance, secondDirectory, testFileConfigurationConstant)

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{firstDirectory, secondDirectory})

	var loaded loaderFixture
	metadata, loadError := loader.LoadConfiguration("", nil, &loaded)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, secondPath, metadata.ConfigFileUsed)
	require.Equal(testInstance, 4, loaded.Discovery.MaxDepth)

	firstPath := writeConfigurationFile(testInstance, firstDirectory, "discovery:\n  max_depth: 6\n")
	metadata, loadError = loader.LoadConfiguration("", nil, &loaded)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, firstPath, metadata.ConfigFileUsed)
	require.Equal(testInstance, 6, loaded.Discovery.MaxDepth)
}

func TestConfigurationLoaderMissingSearchFileIsNotAnError(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})

	var loaded loaderFixture
	metadata, loadError := loader.LoadConfiguration("", nil, &loaded)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, metadata.ConfigFileUsed)
}

func TestConfigurationLoaderErrors(testInstance *testing.T) {
	testInstance.Run("malformed_file", func(testInstance *testing.T) {
		configurationPath := writeConfigurationFile(testInstance, testInstance.TempDir(), testMalformedConfigurationConstant)
		loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

		var loaded loaderFixture
		_, loadError := loader.LoadConfiguration(configurationPath, nil, &loaded)
		require.ErrorContains(testInstance, loadError, "failed to read configuration")
	})

	testInstance.Run("malformed_embedded", func(testInstance *testing.T) {
		loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
		loader.SetEmbeddedConfiguration([]byte(testMalformedConfigurationConstant), testConfigurationTypeConstant)

		var loaded loaderFixture
		_, loadError := loader.LoadConfiguration("", nil, &loaded)
		require.ErrorContains(testInstance, loadError, "failed to merge embedded configuration")
	})

	testInstance.Run("invalid_duration", func(testInstance *testing.T) {
		configurationPath := writeConfigurationFile(testInstance, testInstance.TempDir(), "recovery:\n  retention: soon\n")
		loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

		var loaded loaderFixture
		_, loadError := loader.LoadConfiguration(configurationPath, nil, &loaded)
		require.ErrorContains(testInstance, loadError, "failed to parse configuration")
	})
}
