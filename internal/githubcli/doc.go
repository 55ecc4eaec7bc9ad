// Package githubcli wraps the GitHub CLI for pull request and branch workflows.
//
// Client builds gh invocations for creating, listing, reviewing, merging, and
// closing pull requests and for deleting remote branches. It runs them
// through execshell so tests can substitute recording executors.
package githubcli
