package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestAddToggleFlagParsesValues(t *testing.T) {
	testCases := []struct {
		name               string
		arguments          []string
		expectedValue      bool
		expectedChanged    bool
		expectedPositional []string
	}{
		{name: "DefaultTrue", arguments: []string{}, expectedValue: true, expectedChanged: false, expectedPositional: []string{}},
		{name: "Implicit", arguments: []string{"--pr"}, expectedValue: true, expectedChanged: true, expectedPositional: []string{}},
		{name: "ExplicitNo", arguments: []string{"--pr", "no"}, expectedValue: false, expectedChanged: true, expectedPositional: []string{}},
		{name: "ExplicitOffUppercase", arguments: []string{"--pr", "OFF"}, expectedValue: false, expectedChanged: true, expectedPositional: []string{}},
		{name: "EqualsForm", arguments: []string{"--pr=false"}, expectedValue: false, expectedChanged: true, expectedPositional: []string{}},
		{name: "PositionalKept", arguments: []string{"--pr", "OldName", "NewName"}, expectedValue: true, expectedChanged: true, expectedPositional: []string{"OldName", "NewName"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}

			var toggleValue bool
			AddToggleFlag(command.Flags(), &toggleValue, "pr", true, "Open a pull request")

			parseError := command.ParseFlags(NormalizeToggleArguments(testCase.arguments))
			require.NoError(t, parseError)

			require.Equal(t, testCase.expectedValue, toggleValue)
			require.Equal(t, testCase.expectedPositional, command.Flags().Args())

			flag := command.Flags().Lookup("pr")
			require.NotNil(t, flag)
			require.Equal(t, testCase.expectedChanged, flag.Changed)
			require.Equal(t, "`<YES|no>` Open a pull request", flag.Usage)
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(t *testing.T) {
	command := &cobra.Command{}

	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "draft", false, "Open pull requests as drafts")

	parseError := command.ParseFlags([]string{"--draft=maybe"})
	require.Error(t, parseError)
	require.False(t, toggleValue)
}

func TestNormalizeToggleArgumentsStopsAtTerminator(t *testing.T) {
	command := &cobra.Command{}
	var toggleValue bool
	AddToggleFlag(command.Flags(), &toggleValue, "force", false, "")

	require.Equal(t, []string{"--", "--force", "yes"}, NormalizeToggleArguments([]string{"--", "--force", "yes"}))
	require.Nil(t, NormalizeToggleArguments(nil))
}
