package mutation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/mutation"
)

func TestMatcherMatchingFiles(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeFixture(testInstance, root, ".gitignore", "build/\n*.log\n")
	writeFixture(testInstance, root, readmeFileNameConstant, "root")
	writeFixture(testInstance, root, "docs/README.md", "docs")
	writeFixture(testInstance, root, "docs/guide/setup.md", "setup")
	writeFixture(testInstance, root, "src/main.go", "package main")
	writeFixture(testInstance, root, "build/README.md", "generated")
	writeFixture(testInstance, root, "debug.log", "log")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	writeFixture(testInstance, root, ".git/README.md", "internal")

	testCases := []struct {
		name          string
		patterns      []string
		expectedFiles []string
	}{
		{name: "base_name_pattern_matches_any_depth", patterns: []string{"README.md"}, expectedFiles: []string{"README.md", "docs/README.md"}},
		{name: "path_pattern_with_doublestar", patterns: []string{"docs/**/*.md"}, expectedFiles: []string{"docs/README.md", "docs/guide/setup.md"}},
		{name: "multiple_patterns", patterns: []string{"*.go", "setup.md"}, expectedFiles: []string{"docs/guide/setup.md", "src/main.go"}},
		{name: "ignored_paths_excluded", patterns: []string{"*.log"}, expectedFiles: nil},
		{name: "no_patterns_selects_everything_not_ignored", patterns: nil, expectedFiles: []string{".gitignore", "README.md", "docs/README.md", "docs/guide/setup.md", "src/main.go"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			matcher, creationError := mutation.NewMatcher(root, testCase.patterns)
			require.NoError(testInstance, creationError)

			files, matchError := matcher.MatchingFiles()
			require.NoError(testInstance, matchError)
			require.Equal(testInstance, testCase.expectedFiles, files)
		})
	}
}

func TestNewMatcherRejectsInvalidPatterns(testInstance *testing.T) {
	_, creationError := mutation.NewMatcher(testInstance.TempDir(), []string{"[unclosed"})
	require.IsType(testInstance, mutation.InvalidPatternError{}, creationError)
}
