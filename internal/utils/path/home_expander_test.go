package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/gx/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_tilde", input: "~", expected: testHomeDirectoryConstant},
		{name: "tilde_slash", input: "~/.local/state/gx", expected: filepath.Join(testHomeDirectoryConstant, ".local", "state", "gx")},
		{name: "other_user_is_untouched", input: "~alice/src", expected: "~alice/src"},
		{name: "absolute_is_untouched", input: "/srv/repos", expected: "/srv/repos"},
		{name: "empty", input: "", expected: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderResolvesHomeOnce(testInstance *testing.T) {
	lookups := 0
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		lookups++
		return testHomeDirectoryConstant, nil
	})

	expander.Expand("~/a")
	expander.Expand("~/b")
	require.Equal(testInstance, 1, lookups)
}

func TestHomeExpanderLeavesPathWhenHomeUnavailable(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/src", expander.Expand("~/src"))
}
