// Package githubauth resolves the token gh should authenticate with when gx drives it.
package githubauth

import (
	"os"
	"strings"
)

// Token environment variables in precedence order.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPrecedence = []string{EnvGitHubCLIToken, EnvGitHubToken, EnvGitHubAPIToken}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// ResolveToken returns the first non-blank token among the known variables.
func ResolveToken(lookup LookupFunc) (string, bool) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, key := range tokenPrecedence {
		value, exists := lookup(key)
		if !exists {
			continue
		}
		if trimmed := strings.TrimSpace(value); len(trimmed) > 0 {
			return trimmed, true
		}
	}
	return "", false
}

// CommandEnvironment exports the resolved token as GH_TOKEN so gh honours GITHUB_TOKEN and
// GITHUB_API_TOKEN the same way. It returns nil when no token is configured, leaving gh on
// its own stored credentials.
func CommandEnvironment(lookup LookupFunc) map[string]string {
	token, found := ResolveToken(lookup)
	if !found {
		return nil
	}
	return map[string]string{EnvGitHubCLIToken: token}
}
