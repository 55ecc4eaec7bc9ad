// Package changes applies one file edit to a repository as a transaction: it plans the edit,
// creates a change branch, writes the files, commits, pushes and opens a pull request, rolling
// every step back when a later step fails.
package changes
