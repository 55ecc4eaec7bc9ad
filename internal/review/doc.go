// Package review drives the pull requests and remote branches a change id produced across
// repositories: listing them, approving and merging them, closing them, and purging leftover
// change branches.
package review
