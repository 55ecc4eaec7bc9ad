package changes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/temirov/gx/internal/mutation"
)

// ChangeKind selects the mutation primitive a request applies.
type ChangeKind string

// Supported change kinds.
const (
	ChangeKindAdd        ChangeKind = "add"
	ChangeKindDelete     ChangeKind = "delete"
	ChangeKindSubstitute ChangeKind = "sub"
	ChangeKindRegex      ChangeKind = "regex"
)

var (
	// ErrChangeIDRequired indicates a request without a change identifier.
	ErrChangeIDRequired = errors.New("change id is required")
	// ErrPatternsRequired indicates a delete request without file patterns.
	ErrPatternsRequired = errors.New("at least one file pattern is required")
)

// InvalidRequestError describes a request that cannot be planned.
type InvalidRequestError struct {
	Field   string
	Message string
}

// Error describes the invalid field.
func (requestError InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s", requestError.Field, requestError.Message)
}

// ChangeRequest describes one edit to apply to every selected repository.
// The change id doubles as the branch name.
type ChangeRequest struct {
	ChangeID          string
	Kind              ChangeKind
	FilePath          string
	Content           []byte
	Patterns          []string
	Search            string
	Replacement       string
	CommitMessage     string
	CreatePullRequest bool
	Draft             bool
	BaseBranch        string
	RemoteName        string
}

// Validate checks the fields required by the request's kind.
func (request ChangeRequest) Validate() error {
	if len(strings.TrimSpace(request.ChangeID)) == 0 {
		return ErrChangeIDRequired
	}
	switch request.Kind {
	case ChangeKindAdd:
		if len(strings.TrimSpace(request.FilePath)) == 0 {
			return InvalidRequestError{Field: "path", Message: "file path is required"}
		}
	case ChangeKindDelete:
		if len(request.Patterns) == 0 {
			return ErrPatternsRequired
		}
	case ChangeKindSubstitute:
		if len(request.Search) == 0 {
			return InvalidRequestError{Field: "search", Message: "search text is required"}
		}
	case ChangeKindRegex:
		if _, compileError := regexp.Compile(request.Search); compileError != nil || len(request.Search) == 0 {
			return InvalidRequestError{Field: "pattern", Message: fmt.Sprintf("invalid regular expression %q", request.Search)}
		}
	default:
		return InvalidRequestError{Field: "kind", Message: fmt.Sprintf("unsupported change kind %q", request.Kind)}
	}
	return nil
}

// Plan computes the file changes the request would make in a working tree without writing
// anything. Files whose content would not change are omitted.
func (request ChangeRequest) Plan(repositoryPath string) ([]mutation.FileChange, error) {
	if validationError := request.Validate(); validationError != nil {
		return nil, validationError
	}

	if request.Kind == ChangeKindAdd {
		change, createError := mutation.Create(repositoryPath, request.FilePath, request.Content)
		if createError != nil {
			return nil, createError
		}
		return []mutation.FileChange{change}, nil
	}

	matcher, matcherError := mutation.NewMatcher(repositoryPath, request.Patterns)
	if matcherError != nil {
		return nil, matcherError
	}
	matchingFiles, matchError := matcher.MatchingFiles()
	if matchError != nil {
		return nil, matchError
	}

	var expression *regexp.Regexp
	if request.Kind == ChangeKindRegex {
		expression = regexp.MustCompile(request.Search)
	}

	planned := make([]mutation.FileChange, 0, len(matchingFiles))
	for _, relativePath := range matchingFiles {
		var change mutation.FileChange
		var planError error
		switch request.Kind {
		case ChangeKindDelete:
			change, planError = mutation.Delete(repositoryPath, relativePath)
		case ChangeKindSubstitute:
			change, planError = mutation.Substitute(repositoryPath, relativePath, request.Search, request.Replacement)
		case ChangeKindRegex:
			change, planError = mutation.RegexSubstitute(repositoryPath, relativePath, expression, request.Replacement)
		}
		if planError != nil {
			return nil, planError
		}
		if change.Changed() {
			planned = append(planned, change)
		}
	}
	return planned, nil
}

func (request ChangeRequest) pullRequestTitle() string {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(request.CommitMessage), "\n")
	return strings.TrimSpace(firstLine)
}

func (request ChangeRequest) pullRequestBody() string {
	_, remainder, _ := strings.Cut(strings.TrimSpace(request.CommitMessage), "\n")
	body := strings.TrimSpace(remainder)
	if len(body) == 0 {
		return fmt.Sprintf("Change %s", request.ChangeID)
	}
	return body
}
