package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name             string
		remote           string
		expectedProtocol gitrepo.RemoteProtocol
		expectedHost     string
		expectedSlug     string
		expectError      bool
	}{
		{name: "scp_style", remote: "git@github.com:tatari-tv/philo.git", expectedProtocol: gitrepo.RemoteProtocolSSH, expectedHost: "github.com", expectedSlug: "tatari-tv/philo"},
		{name: "ssh_url_with_port", remote: "ssh://git@github.example.com:2222/acme/api.git", expectedProtocol: gitrepo.RemoteProtocolSSH, expectedHost: "github.example.com", expectedSlug: "acme/api"},
		{name: "https", remote: "https://github.com/scottidler/gx", expectedProtocol: gitrepo.RemoteProtocolHTTPS, expectedHost: "github.com", expectedSlug: "scottidler/gx"},
		{name: "https_with_credentials_and_trailing_slash", remote: "https://token@github.com/acme/web.git/", expectedProtocol: gitrepo.RemoteProtocolHTTPS, expectedHost: "github.com", expectedSlug: "acme/web"},
		{name: "nested_groups_use_innermost_owner", remote: "https://gitlab.com/group/subgroup/project.git", expectedProtocol: gitrepo.RemoteProtocolHTTPS, expectedHost: "gitlab.com", expectedSlug: "subgroup/project"},
		{name: "empty", remote: "   ", expectError: true},
		{name: "local_path", remote: "/srv/git/project.git", expectError: true},
		{name: "missing_owner", remote: "https://github.com/project", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			remoteURL, parseError := gitrepo.ParseRemoteURL(testCase.remote)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				require.IsType(testInstance, gitrepo.RemoteURLParseError{}, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedProtocol, remoteURL.Protocol)
			require.Equal(testInstance, testCase.expectedHost, remoteURL.Host)
			require.Equal(testInstance, testCase.expectedSlug, remoteURL.Slug())
		})
	}
}
