package mutation

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/denormal/go-gitignore"
)

const (
	gitDirectoryNameConstant  = ".git"
	gitIgnoreFileNameConstant = ".gitignore"
	patternSeparatorConstant  = "/"
)

// Matcher selects files in a working tree by doublestar patterns. Patterns without a slash
// match the file's base name at any depth; patterns with a slash match the path relative to
// the root. The .git directory and paths ignored by .gitignore files are never selected.
type Matcher struct {
	root     string
	patterns []string
	ignore   gitignore.GitIgnore
}

// NewMatcher validates patterns and loads the root's ignore rules.
func NewMatcher(root string, patterns []string) (*Matcher, error) {
	cleanedPatterns := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if len(trimmedPattern) == 0 {
			continue
		}
		trimmedPattern = strings.TrimPrefix(filepath.ToSlash(trimmedPattern), "./")
		if !doublestar.ValidatePattern(trimmedPattern) {
			return nil, InvalidPatternError{Pattern: pattern}
		}
		cleanedPatterns = append(cleanedPatterns, trimmedPattern)
	}

	matcher := &Matcher{root: filepath.Clean(root), patterns: cleanedPatterns}
	if _, statError := os.Stat(filepath.Join(matcher.root, gitIgnoreFileNameConstant)); statError == nil {
		ignoreRules, ignoreError := gitignore.NewRepositoryWithFile(matcher.root, gitIgnoreFileNameConstant)
		if ignoreError != nil {
			return nil, ignoreError
		}
		matcher.ignore = ignoreRules
	}
	return matcher, nil
}

// Matches reports whether a slash-separated relative path is selected by any pattern.
// A matcher without patterns selects every path.
func (matcher *Matcher) Matches(relativePath string) bool {
	if len(matcher.patterns) == 0 {
		return true
	}
	for _, pattern := range matcher.patterns {
		candidate := relativePath
		if !strings.Contains(pattern, patternSeparatorConstant) {
			candidate = path.Base(relativePath)
		}
		matched, matchError := doublestar.Match(pattern, candidate)
		if matchError == nil && matched {
			return true
		}
	}
	return false
}

// MatchingFiles walks the root and returns the selected regular files as sorted,
// slash-separated relative paths.
func (matcher *Matcher) MatchingFiles() ([]string, error) {
	var selected []string
	walkError := filepath.WalkDir(matcher.root, func(currentPath string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if errors.Is(walkError, fs.ErrPermission) && currentPath != matcher.root {
				return nil
			}
			return walkError
		}
		if currentPath == matcher.root {
			return nil
		}
		if entry.IsDir() && entry.Name() == gitDirectoryNameConstant {
			return fs.SkipDir
		}
		if matcher.isIgnored(currentPath, entry.IsDir()) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		relativePath, relativeError := filepath.Rel(matcher.root, currentPath)
		if relativeError != nil {
			return relativeError
		}
		slashPath := filepath.ToSlash(relativePath)
		if matcher.Matches(slashPath) {
			selected = append(selected, slashPath)
		}
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Strings(selected)
	return selected, nil
}

func (matcher *Matcher) isIgnored(absolutePath string, isDirectory bool) bool {
	if matcher.ignore == nil {
		return false
	}
	match := matcher.ignore.Absolute(absolutePath, isDirectory)
	return match != nil && match.Ignore()
}
