package discovery

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/temirov/gx/internal/gitrepo"
	"github.com/temirov/gx/internal/repos/filesystem"
	"github.com/temirov/gx/internal/repos/shared"
)

const (
	gitMetadataDirectoryNameConstant = ".git"
	hiddenDirectoryPrefixConstant    = "."
)

// SlugResolver derives the org/name identifier of a repository.
type SlugResolver interface {
	ResolveSlug(repositoryPath string) (string, error)
}

// GoGitSlugResolver reads the remote URL from the repository configuration without spawning git.
type GoGitSlugResolver struct {
	RemoteName string
}

// ResolveSlug returns the slug parsed from the configured remote, or an empty string when there is none.
func (resolver GoGitSlugResolver) ResolveSlug(repositoryPath string) (string, error) {
	remoteName := resolver.RemoteName
	if len(strings.TrimSpace(remoteName)) == 0 {
		remoteName = shared.OriginRemoteNameConstant
	}

	repository, openError := git.PlainOpenWithOptions(repositoryPath, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if openError != nil {
		return "", openError
	}

	remote, remoteError := repository.Remote(remoteName)
	if remoteError != nil {
		if errors.Is(remoteError, git.ErrRemoteNotFound) {
			return "", nil
		}
		return "", remoteError
	}

	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return "", nil
	}

	remoteURL, parseError := gitrepo.ParseRemoteURL(remoteURLs[0])
	if parseError != nil {
		return "", nil
	}
	return remoteURL.Slug(), nil
}

// FilesystemRepositoryDiscoverer locates git repositories on disk.
type FilesystemRepositoryDiscoverer struct {
	fileSystem   shared.FileSystem
	slugResolver SlugResolver
}

// NewFilesystemRepositoryDiscoverer constructs a discoverer that resolves slugs from the origin remote.
func NewFilesystemRepositoryDiscoverer() *FilesystemRepositoryDiscoverer {
	return &FilesystemRepositoryDiscoverer{fileSystem: filesystem.OSFileSystem{}, slugResolver: GoGitSlugResolver{}}
}

// NewFilesystemRepositoryDiscovererWithResolver constructs a discoverer using a custom slug resolver.
func NewFilesystemRepositoryDiscovererWithResolver(resolver SlugResolver) *FilesystemRepositoryDiscoverer {
	return &FilesystemRepositoryDiscoverer{fileSystem: filesystem.OSFileSystem{}, slugResolver: resolver}
}

// Discover walks root down to maxDepth directory levels and returns the repositories it finds.
// The root itself is depth zero. Repositories are not searched for nested repositories.
// Slug resolution failures leave the slug empty.
func (discoverer *FilesystemRepositoryDiscoverer) Discover(root string, maxDepth int) ([]shared.RepositoryReference, error) {
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return nil, absoluteError
	}

	var repositories []shared.RepositoryReference
	walkError := filepath.WalkDir(absoluteRoot, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == absoluteRoot {
				return walkError
			}
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if path != absoluteRoot && strings.HasPrefix(directoryEntry.Name(), hiddenDirectoryPrefixConstant) {
			return fs.SkipDir
		}

		if discoverer.containsGitMetadata(path) {
			repositories = append(repositories, shared.NewRepositoryReference(path, discoverer.resolveSlug(path)))
			return fs.SkipDir
		}

		if directoryDepth(absoluteRoot, path) >= maxDepth {
			return fs.SkipDir
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Slice(repositories, func(leftIndex int, rightIndex int) bool {
		return repositories[leftIndex].Path < repositories[rightIndex].Path
	})
	return repositories, nil
}

func (discoverer *FilesystemRepositoryDiscoverer) resolveSlug(repositoryPath string) string {
	if discoverer.slugResolver == nil {
		return ""
	}
	slug, resolveError := discoverer.slugResolver.ResolveSlug(repositoryPath)
	if resolveError != nil {
		return ""
	}
	return slug
}

func (discoverer *FilesystemRepositoryDiscoverer) containsGitMetadata(directoryPath string) bool {
	_, statError := discoverer.fileSystem.Stat(filepath.Join(directoryPath, gitMetadataDirectoryNameConstant))
	return statError == nil
}

func directoryDepth(root string, path string) int {
	relativePath, relativeError := filepath.Rel(root, path)
	if relativeError != nil || relativePath == "." {
		return 0
	}
	return len(strings.Split(relativePath, string(filepath.Separator)))
}
