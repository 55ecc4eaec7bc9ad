package mutation

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	defaultFilePermissionsConstant fs.FileMode = 0o644
	binarySampleLengthConstant                 = 8000
	parentDirectoryPrefixConstant              = ".."
	readOperationConstant                      = "read"
	statOperationConstant                      = "stat"
)

// FileChange is the planned effect of one primitive on one file. Nothing is written to disk
// until the change is applied.
type FileChange struct {
	RelativePath    string      `json:"path" yaml:"path"`
	AbsolutePath    string      `json:"-" yaml:"-"`
	OriginalContent []byte      `json:"-" yaml:"-"`
	UpdatedContent  []byte      `json:"-" yaml:"-"`
	Mode            fs.FileMode `json:"-" yaml:"-"`
	Existed         bool        `json:"existed" yaml:"existed"`
	Delete          bool        `json:"delete,omitempty" yaml:"delete,omitempty"`
	Diff            string      `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// Changed reports whether applying the change would alter the working tree.
func (change FileChange) Changed() bool {
	if change.Delete {
		return change.Existed
	}
	return !change.Existed || !bytes.Equal(change.OriginalContent, change.UpdatedContent)
}

// Create plans a new file. It fails with ErrFileExists when the path is already present.
func Create(root string, relativePath string, content []byte) (FileChange, error) {
	absolutePath, slashPath, resolveError := resolvePath(root, relativePath)
	if resolveError != nil {
		return FileChange{}, resolveError
	}
	if _, statError := os.Lstat(absolutePath); statError == nil {
		return FileChange{}, FileOperationError{Operation: statOperationConstant, Path: slashPath, Cause: ErrFileExists}
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return FileChange{}, FileOperationError{Operation: statOperationConstant, Path: slashPath, Cause: statError}
	}

	return FileChange{
		RelativePath:   slashPath,
		AbsolutePath:   absolutePath,
		UpdatedContent: content,
		Mode:           defaultFilePermissionsConstant,
		Diff:           UnifiedDiff(slashPath, nil, content),
	}, nil
}

// Delete plans the removal of an existing file.
func Delete(root string, relativePath string) (FileChange, error) {
	change, readError := readExisting(root, relativePath)
	if readError != nil {
		return FileChange{}, readError
	}
	change.Delete = true
	change.Diff = UnifiedDiff(change.RelativePath, change.OriginalContent, nil)
	return change, nil
}

// Substitute plans a literal replacement of every occurrence of search.
// Binary files are left unchanged.
func Substitute(root string, relativePath string, search string, replacement string) (FileChange, error) {
	change, readError := readExisting(root, relativePath)
	if readError != nil {
		return FileChange{}, readError
	}
	change.UpdatedContent = change.OriginalContent
	if len(search) > 0 && !isBinary(change.OriginalContent) {
		change.UpdatedContent = []byte(strings.ReplaceAll(string(change.OriginalContent), search, replacement))
	}
	change.Diff = diffWhenChanged(change)
	return change, nil
}

// RegexSubstitute plans a replacement of every match of expression. The replacement may
// reference capture groups with $1 or ${name}. Binary files are left unchanged.
func RegexSubstitute(root string, relativePath string, expression *regexp.Regexp, replacement string) (FileChange, error) {
	change, readError := readExisting(root, relativePath)
	if readError != nil {
		return FileChange{}, readError
	}
	change.UpdatedContent = change.OriginalContent
	if expression != nil && !isBinary(change.OriginalContent) {
		change.UpdatedContent = expression.ReplaceAll(change.OriginalContent, []byte(replacement))
	}
	change.Diff = diffWhenChanged(change)
	return change, nil
}

func readExisting(root string, relativePath string) (FileChange, error) {
	absolutePath, slashPath, resolveError := resolvePath(root, relativePath)
	if resolveError != nil {
		return FileChange{}, resolveError
	}
	fileInfo, statError := os.Stat(absolutePath)
	if statError != nil {
		return FileChange{}, FileOperationError{Operation: statOperationConstant, Path: slashPath, Cause: statError}
	}
	content, readError := os.ReadFile(absolutePath)
	if readError != nil {
		return FileChange{}, FileOperationError{Operation: readOperationConstant, Path: slashPath, Cause: readError}
	}
	return FileChange{
		RelativePath:    slashPath,
		AbsolutePath:    absolutePath,
		OriginalContent: content,
		Mode:            fileInfo.Mode().Perm(),
		Existed:         true,
	}, nil
}

func resolvePath(root string, relativePath string) (string, string, error) {
	trimmedPath := strings.TrimSpace(relativePath)
	cleanedPath := filepath.Clean(filepath.FromSlash(trimmedPath))
	if len(trimmedPath) == 0 || filepath.IsAbs(cleanedPath) || cleanedPath == "." ||
		cleanedPath == parentDirectoryPrefixConstant || strings.HasPrefix(cleanedPath, parentDirectoryPrefixConstant+string(filepath.Separator)) {
		return "", "", InvalidPathError{Path: relativePath}
	}
	return filepath.Join(root, cleanedPath), filepath.ToSlash(cleanedPath), nil
}

func diffWhenChanged(change FileChange) string {
	if !change.Changed() {
		return ""
	}
	return UnifiedDiff(change.RelativePath, change.OriginalContent, change.UpdatedContent)
}

func isBinary(content []byte) bool {
	sample := content
	if len(sample) > binarySampleLengthConstant {
		sample = sample[:binarySampleLengthConstant]
	}
	return bytes.IndexByte(sample, 0) >= 0
}
