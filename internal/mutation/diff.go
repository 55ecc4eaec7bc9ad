package mutation

import (
	"github.com/pmezard/go-difflib/difflib"
)

const (
	originalPathPrefixConstant = "a/"
	updatedPathPrefixConstant  = "b/"
	diffContextLinesConstant   = 3
	nullDevicePathConstant     = "/dev/null"
)

// UnifiedDiff renders a git-style unified diff between two versions of a file.
// A nil original renders as a creation and a nil updated renders as a deletion.
func UnifiedDiff(relativePath string, original []byte, updated []byte) string {
	fromFile := originalPathPrefixConstant + relativePath
	toFile := updatedPathPrefixConstant + relativePath
	if original == nil {
		fromFile = nullDevicePathConstant
	}
	if updated == nil {
		toFile = nullDevicePathConstant
	}

	rendered, renderError := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(updated)),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  diffContextLinesConstant,
	})
	if renderError != nil {
		return ""
	}
	return rendered
}
