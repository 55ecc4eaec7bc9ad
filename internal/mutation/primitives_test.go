package mutation_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/mutation"
)

const (
	readmeFileNameConstant  = "README.md"
	readmeContentConstant   = "# api\nversion v1.2.3\nsee v2.0.10\n"
	filePermissionsConstant = 0o640
)

func writeFixture(testInstance *testing.T, root string, relativePath string, content string) {
	testInstance.Helper()
	absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), filePermissionsConstant))
}

func TestCreate(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeFixture(testInstance, root, readmeFileNameConstant, readmeContentConstant)

	change, createError := mutation.Create(root, "docs/NOTES.md", []byte("hello\n"))
	require.NoError(testInstance, createError)
	require.Equal(testInstance, "docs/NOTES.md", change.RelativePath)
	require.False(testInstance, change.Existed)
	require.True(testInstance, change.Changed())
	require.Contains(testInstance, change.Diff, "--- /dev/null")
	require.Contains(testInstance, change.Diff, "+hello")
	require.NoFileExists(testInstance, filepath.Join(root, "docs", "NOTES.md"))

	_, existsError := mutation.Create(root, readmeFileNameConstant, []byte("x"))
	require.True(testInstance, errors.Is(existsError, mutation.ErrFileExists))

	_, escapeError := mutation.Create(root, "../outside.txt", []byte("x"))
	require.IsType(testInstance, mutation.InvalidPathError{}, escapeError)
}

func TestDelete(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeFixture(testInstance, root, readmeFileNameConstant, readmeContentConstant)

	change, deleteError := mutation.Delete(root, readmeFileNameConstant)
	require.NoError(testInstance, deleteError)
	require.True(testInstance, change.Delete)
	require.True(testInstance, change.Changed())
	require.Equal(testInstance, os.FileMode(filePermissionsConstant), change.Mode)
	require.Contains(testInstance, change.Diff, "+++ /dev/null")
	require.FileExists(testInstance, filepath.Join(root, readmeFileNameConstant))

	_, missingError := mutation.Delete(root, "absent.md")
	require.IsType(testInstance, mutation.FileOperationError{}, missingError)
}

func TestSubstitute(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeFixture(testInstance, root, readmeFileNameConstant, readmeContentConstant)
	writeFixture(testInstance, root, "logo.png", "v1.2.3\x00binary")

	testCases := []struct {
		name            string
		path            string
		search          string
		replacement     string
		expectedChanged bool
		expectedContent string
	}{
		{name: "replaces_all_occurrences", path: readmeFileNameConstant, search: "v", replacement: "V", expectedChanged: true, expectedContent: "# api\nVersion V1.2.3\nsee V2.0.10\n"},
		{name: "no_match_is_unchanged", path: readmeFileNameConstant, search: "absent", replacement: "x", expectedChanged: false, expectedContent: readmeContentConstant},
		{name: "binary_files_skipped", path: "logo.png", search: "v1.2.3", replacement: "x", expectedChanged: false, expectedContent: "v1.2.3\x00binary"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			change, substituteError := mutation.Substitute(root, testCase.path, testCase.search, testCase.replacement)
			require.NoError(testInstance, substituteError)
			require.Equal(testInstance, testCase.expectedChanged, change.Changed())
			require.Equal(testInstance, testCase.expectedContent, string(change.UpdatedContent))
			require.Equal(testInstance, testCase.expectedChanged, len(change.Diff) > 0)
		})
	}
}

func TestRegexSubstitute(testInstance *testing.T) {
	root := testInstance.TempDir()
	writeFixture(testInstance, root, readmeFileNameConstant, readmeContentConstant)

	change, substituteError := mutation.RegexSubstitute(root, readmeFileNameConstant, regexp.MustCompile(`v(\d+)\.\d+\.\d+`), "v$1.X.X")
	require.NoError(testInstance, substituteError)
	require.Equal(testInstance, "# api\nversion v1.X.X\nsee v2.X.X\n", string(change.UpdatedContent))
	require.Contains(testInstance, change.Diff, "-version v1.2.3")
	require.Contains(testInstance, change.Diff, "+version v1.X.X")
}
