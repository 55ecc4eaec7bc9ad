package status

import (
	"context"
	"errors"

	"github.com/temirov/gx/internal/repos/shared"
)

const detachedHeadConstant = "HEAD"

// ErrInspectorNotConfigured indicates the service was constructed without a git inspector.
var ErrInspectorNotConfigured = errors.New("repository inspector not configured")

// RepositoryInspector is the read-only git surface the service uses.
type RepositoryInspector interface {
	CurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	HasUncommittedChanges(executionContext context.Context, repositoryPath string) (bool, error)
}

// RepositoryStatus captures the gathered state of one repository.
type RepositoryStatus struct {
	Repository   shared.RepositoryReference `json:"repository" yaml:"repository"`
	Branch       string                     `json:"branch,omitempty" yaml:"branch,omitempty"`
	Detached     bool                       `json:"detached,omitempty" yaml:"detached,omitempty"`
	Clean        bool                       `json:"clean" yaml:"clean"`
	ErrorMessage string                     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the repository could not be inspected.
func (repositoryStatus RepositoryStatus) Failed() bool {
	return len(repositoryStatus.ErrorMessage) > 0
}

// Service gathers repository status.
type Service struct {
	inspector RepositoryInspector
}

// NewService constructs a Service.
func NewService(inspector RepositoryInspector) (*Service, error) {
	if inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	return &Service{inspector: inspector}, nil
}

// Inspect reports the branch and cleanliness of one repository. Failures are recorded in the
// result rather than returned.
func (service *Service) Inspect(executionContext context.Context, repository shared.RepositoryReference) RepositoryStatus {
	repositoryStatus := RepositoryStatus{Repository: repository}

	branchName, branchError := service.inspector.CurrentBranch(executionContext, repository.Path)
	if branchError != nil {
		repositoryStatus.ErrorMessage = branchError.Error()
		return repositoryStatus
	}
	repositoryStatus.Branch = branchName
	repositoryStatus.Detached = branchName == detachedHeadConstant

	dirty, statusError := service.inspector.HasUncommittedChanges(executionContext, repository.Path)
	if statusError != nil {
		repositoryStatus.ErrorMessage = statusError.Error()
		return repositoryStatus
	}
	repositoryStatus.Clean = !dirty
	return repositoryStatus
}
