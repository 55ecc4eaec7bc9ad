// Package gitrepo exposes the version-control operations used by gx.
//
// RepositoryManager shells out to git through execshell for branch, commit,
// push, reset, and stash operations, and ParseRemoteURL turns remote URLs into
// owner/repository slugs.
package gitrepo
