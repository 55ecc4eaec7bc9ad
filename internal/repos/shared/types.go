package shared

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/gx/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the default upstream remote.
	OriginRemoteNameConstant = "origin"
	slugSeparatorConstant    = "/"
)

// RepositoryReference identifies one repository discovered on disk.
type RepositoryReference struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// NewRepositoryReference builds a reference whose name is the final path element.
func NewRepositoryReference(repositoryPath string, slug string) RepositoryReference {
	cleanedPath := filepath.Clean(repositoryPath)
	return RepositoryReference{
		Path: cleanedPath,
		Name: filepath.Base(cleanedPath),
		Slug: strings.TrimSpace(slug),
	}
}

// HasSlug reports whether the repository has an org/name identifier.
func (reference RepositoryReference) HasSlug() bool {
	return strings.Contains(reference.Slug, slugSeparatorConstant)
}

// DisplayName prefers the slug and falls back to the directory name.
func (reference RepositoryReference) DisplayName() string {
	if reference.HasSlug() {
		return reference.Slug
	}
	return reference.Name
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// RepositoryDiscoverer locates repositories beneath a root directory.
type RepositoryDiscoverer interface {
	Discover(root string, maxDepth int) ([]RepositoryReference, error)
}

// FileSystem exposes the file operations used while mutating and restoring working trees.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	MkdirAll(path string, permissions fs.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
}

// CommandExecutor runs git and gh on behalf of repository-level collaborators.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}
