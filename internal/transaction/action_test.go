package transaction_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gx/internal/transaction"
)

func TestCompensatingActionSerializedSchema(testInstance *testing.T) {
	action := transaction.NewSwitchAndDeleteBranchAction(testRepositoryPathConstant, testOriginalBranchConstant, testCreatedBranchConstant)

	encoded, encodeError := json.Marshal(action)
	require.NoError(testInstance, encodeError)
	require.JSONEq(testInstance, `{
		"description": "switch to main and delete GX-2024-05-01",
		"operation_type": "BranchOperation",
		"repo_path": "/work/acme/api",
		"parameters": ["switch_and_delete", "main", "GX-2024-05-01"]
	}`, string(encoded))

	var decoded transaction.CompensatingAction
	require.NoError(testInstance, json.Unmarshal(encoded, &decoded))
	require.Equal(testInstance, action, decoded)
}

func TestCompensatingActionDecodeRejectsMalformedParameters(testInstance *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{name: "no_parameters", payload: `{"description":"x","operation_type":"StashOperation","repo_path":"/r","parameters":[]}`},
		{name: "unknown_kind", payload: `{"description":"x","operation_type":"FileOperation","repo_path":"/r","parameters":["truncate","a"]}`},
		{name: "missing_positional", payload: `{"description":"x","operation_type":"RemoteOperation","repo_path":"/r","parameters":["delete_branch","origin"]}`},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			var decoded transaction.CompensatingAction
			require.Error(testInstance, json.Unmarshal([]byte(testCase.payload), &decoded))
		})
	}
}

func TestCleanupTagging(testInstance *testing.T) {
	require.True(testInstance, transaction.NewDiscardBackupAction(testRepositoryPathConstant, "/b").IsCleanup())
	require.False(testInstance, transaction.NewRestoreFileAction(testRepositoryPathConstant, "/t", "/b").IsCleanup())
}
