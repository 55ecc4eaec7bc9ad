package pathutils

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// RootSanitizer normalizes discovery roots: it trims whitespace, expands a leading tilde,
// makes paths absolute, and drops duplicates and roots nested below another root so that
// no repository is visited twice.
type RootSanitizer struct {
	homeExpander *HomeExpander
}

// NewRootSanitizer constructs a RootSanitizer, defaulting to the operating system home lookup.
func NewRootSanitizer(homeExpander *HomeExpander) *RootSanitizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &RootSanitizer{homeExpander: homeExpander}
}

// Sanitize returns the normalized roots in input order, or nil when none remain.
func (sanitizer *RootSanitizer) Sanitize(candidateRoots []string) []string {
	expander := NewHomeExpander()
	if sanitizer != nil {
		expander = sanitizer.homeExpander
	}

	absoluteRoots := make([]string, 0, len(candidateRoots))
	for _, candidateRoot := range candidateRoots {
		trimmedRoot := strings.TrimSpace(candidateRoot)
		if len(trimmedRoot) == 0 {
			continue
		}
		absoluteRoots = append(absoluteRoots, absolutePath(expander.Expand(trimmedRoot)))
	}
	if len(absoluteRoots) == 0 {
		return nil
	}
	return pruneNestedRoots(absoluteRoots)
}

func pruneNestedRoots(roots []string) []string {
	order := make([]int, len(roots))
	for index := range order {
		order[index] = index
	}
	sort.SliceStable(order, func(first int, second int) bool {
		return len(roots[order[first]]) < len(roots[order[second]])
	})

	keep := make([]bool, len(roots))
	var selected []string
	for _, index := range order {
		nested := false
		for _, existing := range selected {
			if isWithin(existing, roots[index]) {
				nested = true
				break
			}
		}
		if !nested {
			keep[index] = true
			selected = append(selected, roots[index])
		}
	}

	pruned := make([]string, 0, len(selected))
	for index, root := range roots {
		if keep[index] {
			pruned = append(pruned, root)
		}
	}
	return pruned
}

func absolutePath(path string) string {
	resolved, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		return filepath.Clean(path)
	}
	return resolved
}

func isWithin(parent string, candidate string) bool {
	if runtime.GOOS == "windows" {
		parent = strings.ToLower(parent)
		candidate = strings.ToLower(candidate)
	}
	relative, relativeError := filepath.Rel(parent, candidate)
	if relativeError != nil {
		return false
	}
	return relative == "." || (relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)))
}
