package mutation

import (
	"errors"
	"fmt"
)

// ErrFileExists indicates that a file to be created is already present.
var ErrFileExists = errors.New("file already exists")

// InvalidPatternError describes a malformed glob pattern.
type InvalidPatternError struct {
	Pattern string
}

// Error describes the pattern.
func (patternError InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid file pattern %q", patternError.Pattern)
}

// InvalidPathError describes a relative path that leaves the repository.
type InvalidPathError struct {
	Path string
}

// Error describes the path.
func (pathError InvalidPathError) Error() string {
	return fmt.Sprintf("path %q must stay inside the repository", pathError.Path)
}

// FileOperationError wraps an I/O failure on one file.
type FileOperationError struct {
	Operation string
	Path      string
	Cause     error
}

// Error describes the failure.
func (operationError FileOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", operationError.Operation, operationError.Path, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError FileOperationError) Unwrap() error {
	return operationError.Cause
}
