package discovery

import (
	"strings"

	"github.com/temirov/gx/internal/repos/shared"
)

type matchTier func(reference shared.RepositoryReference, pattern string) bool

var matchTiers = []matchTier{
	func(reference shared.RepositoryReference, pattern string) bool {
		return reference.Name == pattern
	},
	func(reference shared.RepositoryReference, pattern string) bool {
		return strings.HasPrefix(reference.Name, pattern)
	},
	func(reference shared.RepositoryReference, pattern string) bool {
		return len(reference.Slug) > 0 && reference.Slug == pattern
	},
	func(reference shared.RepositoryReference, pattern string) bool {
		return len(reference.Slug) > 0 && strings.HasPrefix(reference.Slug, pattern)
	},
}

// FilterRepositories narrows repositories to those matching any pattern.
// Each pattern is tried against exact name, name prefix, exact slug and slug prefix in that
// order, and the first tier producing matches decides the pattern's result. Results across
// patterns are unioned in discovery order. No patterns selects every repository.
func FilterRepositories(repositories []shared.RepositoryReference, patterns []string) []shared.RepositoryReference {
	trimmedPatterns := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if len(trimmed) > 0 {
			trimmedPatterns = append(trimmedPatterns, trimmed)
		}
	}
	if len(trimmedPatterns) == 0 {
		return append([]shared.RepositoryReference(nil), repositories...)
	}

	selected := make(map[int]struct{})
	for _, pattern := range trimmedPatterns {
		for _, tier := range matchTiers {
			matchedIndices := matchIndices(repositories, pattern, tier)
			if len(matchedIndices) == 0 {
				continue
			}
			for _, index := range matchedIndices {
				selected[index] = struct{}{}
			}
			break
		}
	}

	filtered := make([]shared.RepositoryReference, 0, len(selected))
	for index, reference := range repositories {
		if _, ok := selected[index]; ok {
			filtered = append(filtered, reference)
		}
	}
	return filtered
}

func matchIndices(repositories []shared.RepositoryReference, pattern string, tier matchTier) []int {
	var indices []int
	for index, reference := range repositories {
		if tier(reference, pattern) {
			indices = append(indices, index)
		}
	}
	return indices
}
