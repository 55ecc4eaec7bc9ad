package status_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/status"
)

type stubInspector struct {
	branch      string
	branchError error
	dirty       bool
	statusError error
}

func (inspector stubInspector) CurrentBranch(context.Context, string) (string, error) {
	return inspector.branch, inspector.branchError
}

func (inspector stubInspector) HasUncommittedChanges(context.Context, string) (bool, error) {
	return inspector.dirty, inspector.statusError
}

func TestNewServiceRequiresInspector(testInstance *testing.T) {
	service, creationError := status.NewService(nil)
	require.ErrorIs(testInstance, creationError, status.ErrInspectorNotConfigured)
	require.Nil(testInstance, service)
}

func TestServiceInspect(testInstance *testing.T) {
	repository := shared.NewRepositoryReference("/work/service", "acme/service")

	testCases := []struct {
		name      string
		inspector stubInspector
		expected  status.RepositoryStatus
	}{
		{
			name:      "clean",
			inspector: stubInspector{branch: "main"},
			expected:  status.RepositoryStatus{Repository: repository, Branch: "main", Clean: true},
		},
		{
			name:      "dirty",
			inspector: stubInspector{branch: "feature", dirty: true},
			expected:  status.RepositoryStatus{Repository: repository, Branch: "feature"},
		},
		{
			name:      "detached",
			inspector: stubInspector{branch: "HEAD"},
			expected:  status.RepositoryStatus{Repository: repository, Branch: "HEAD", Detached: true, Clean: true},
		},
		{
			name:      "branch_failure",
			inspector: stubInspector{branchError: errors.New("not a git repository")},
			expected:  status.RepositoryStatus{Repository: repository, ErrorMessage: "not a git repository"},
		},
		{
			name:      "status_failure",
			inspector: stubInspector{branch: "main", statusError: errors.New("index.lock exists")},
			expected:  status.RepositoryStatus{Repository: repository, Branch: "main", ErrorMessage: "index.lock exists"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := status.NewService(testCase.inspector)
			require.NoError(testInstance, creationError)

			repositoryStatus := service.Inspect(context.Background(), repository)
			require.Equal(testInstance, testCase.expected, repositoryStatus)
			require.Equal(testInstance, len(testCase.expected.ErrorMessage) > 0, repositoryStatus.Failed())
		})
	}
}
