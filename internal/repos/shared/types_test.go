package shared_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/repos/shared"
)

func TestRepositoryReferenceDisplayName(testInstance *testing.T) {
	withSlug := shared.NewRepositoryReference(filepath.Join("workspace", "acme", "api")+string(filepath.Separator), " acme/api ")
	require.Equal(testInstance, "api", withSlug.Name)
	require.Equal(testInstance, "acme/api", withSlug.DisplayName())
	require.True(testInstance, withSlug.HasSlug())

	withoutSlug := shared.NewRepositoryReference(filepath.Join("workspace", "scratch"), "")
	require.False(testInstance, withoutSlug.HasSlug())
	require.Equal(testInstance, "scratch", withoutSlug.DisplayName())
}
