package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gx/internal/changes"
	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/mutation"
	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/report"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/review"
	"github.com/temirov/gx/internal/status"
	"github.com/temirov/gx/internal/transaction"
)

const testChangeIDConstant = "GX-2qQZ3Yb4TfQ5vNq7"

func sampleOutcomes() []changes.ChangeOutcome {
	return []changes.ChangeOutcome{
		{
			Repository:    shared.NewRepositoryReference("/work/web", "acme/web"),
			ChangeID:      testChangeIDConstant,
			Action:        changes.OutcomePrCreated,
			FilesAffected: []string{"README.md"},
			PullRequest:   &githubcli.PullRequest{Number: 4, URL: "https://github.com/acme/web/pull/4"},
		},
		{
			Repository:    shared.NewRepositoryReference("/work/api", "acme/api"),
			ChangeID:      testChangeIDConstant,
			Action:        changes.OutcomeCommitted,
			FilesAffected: []string{"README.md", "docs/guide.md"},
			Warning:       "pull request creation failed: rate limited",
		},
		{
			Repository:   shared.NewRepositoryReference("/work/cli", ""),
			ChangeID:     testChangeIDConstant,
			ErrorMessage: "push rejected",
			Rollback:     &transaction.RollbackReport{TransactionID: "tx-1", Attempted: 3, Succeeded: 2, Failed: 1},
		},
		{
			Repository:    shared.NewRepositoryReference("/work/docs", "acme/docs"),
			ChangeID:      testChangeIDConstant,
			Action:        changes.OutcomeDryRun,
			FilesAffected: []string{"index.md"},
			Files:         []mutation.FileChange{{RelativePath: "index.md", Existed: true, Diff: "--- a/index.md\n+++ b/index.md\n@@ -1 +1 @@\n-old\n+new\n"}},
		},
	}
}

func TestParseFormat(testInstance *testing.T) {
	testCases := []struct {
		input    string
		expected report.Format
		invalid  bool
	}{
		{input: "", expected: report.FormatTable},
		{input: " YAML ", expected: report.FormatYAML},
		{input: "table", expected: report.FormatTable},
		{input: "csv", invalid: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.input, func(testInstance *testing.T) {
			format, parseError := report.ParseFormat(testCase.input)
			if testCase.invalid {
				require.ErrorContains(testInstance, parseError, "table, yaml")
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, format)
		})
	}
}

func TestStatusesRenderOneLinePerRepository(testInstance *testing.T) {
	entries := []status.RepositoryStatus{
		{Repository: shared.NewRepositoryReference("/work/web", ""), Branch: "feature"},
		{Repository: shared.NewRepositoryReference("/work/api", "acme/api"), Branch: "main", Clean: true},
		{Repository: shared.NewRepositoryReference("/work/broken", ""), ErrorMessage: "not a git repository"},
	}
	var output bytes.Buffer

	summary, renderError := report.NewReporter(&output, report.FormatTable).Statuses(entries)

	require.NoError(testInstance, renderError)
	require.Equal(testInstance, report.StatusSummary{Clean: 1, Dirty: 1, Errors: 1}, summary)
	require.Equal(testInstance, 1, summary.ErrorCount())
	require.Equal(testInstance, strings.Join([]string{
		"acme/api  clean  main",
		"broken    error  not a git repository",
		"web       dirty  feature",
		"3 repositories: 1 clean, 1 dirty, 1 error(s)",
		"",
	}, "\n"), output.String())
}

func TestChangesTableSummarizesOutcomes(testInstance *testing.T) {
	var output bytes.Buffer

	summary, renderError := report.NewReporter(&output, report.FormatTable).WithDiffs(true).Changes(sampleOutcomes())

	require.NoError(testInstance, renderError)
	require.Equal(testInstance, report.ChangeSummary{DryRun: 1, Committed: 1, PrCreated: 1, Errors: 1, Warnings: 1, IncompleteRollbacks: 1}, summary)

	lines := strings.Split(strings.TrimRight(output.String(), "\n"), "\n")
	require.Contains(testInstance, lines[0], "acme/api")
	require.Contains(testInstance, lines[0], "Committed")
	require.Contains(testInstance, lines[0], "2 file(s)")
	require.Contains(testInstance, lines[0], "warning: pull request creation failed")
	require.Contains(testInstance, lines[1], "cli")
	require.Contains(testInstance, lines[1], "push rejected; rollback incomplete: 1 failed, 0 skipped")
	require.Contains(testInstance, lines[2], "acme/docs")
	require.Contains(testInstance, lines[2], "DryRun")
	require.Equal(testInstance, "    +new", lines[7])
	require.Contains(testInstance, lines[8], "https://github.com/acme/web/pull/4")
	require.Equal(testInstance, "4 repositories: 1 DryRun, 1 Committed, 1 PrCreated, 1 error(s), 1 incomplete rollback(s)", lines[9])
}

func TestChangesYAMLIsMachineReadable(testInstance *testing.T) {
	var output bytes.Buffer

	_, renderError := report.NewReporter(&output, report.FormatYAML).Changes(sampleOutcomes())
	require.NoError(testInstance, renderError)

	var document struct {
		Repositories []struct {
			Repository struct {
				Path string `yaml:"path"`
			} `yaml:"repository"`
			Action string `yaml:"action"`
			Error  string `yaml:"error"`
		} `yaml:"repositories"`
		Summary report.ChangeSummary `yaml:"summary"`
	}
	require.NoError(testInstance, yaml.Unmarshal(output.Bytes(), &document))
	require.Len(testInstance, document.Repositories, 4)
	require.Equal(testInstance, "/work/api", document.Repositories[0].Repository.Path)
	require.Equal(testInstance, "push rejected", document.Repositories[1].Error)
	require.Equal(testInstance, 1, document.Summary.PrCreated)
}

func TestReviewsTable(testInstance *testing.T) {
	results := []review.Result{
		{Repository: shared.NewRepositoryReference("/work/api", "acme/api"), Operation: review.OperationDelete, PullRequests: []githubcli.PullRequest{{Number: 1}}, DeletedBranches: []string{testChangeIDConstant}},
		{Repository: shared.NewRepositoryReference("/work/local", ""), Operation: review.OperationDelete, Skipped: true, Message: "repository has no GitHub remote"},
	}
	var output bytes.Buffer

	summary, renderError := report.NewReporter(&output, report.FormatTable).Reviews(results)

	require.NoError(testInstance, renderError)
	require.Equal(testInstance, report.ReviewSummary{Succeeded: 1, Skipped: 1}, summary)
	require.Contains(testInstance, output.String(), "1 pull request(s)  deleted "+testChangeIDConstant)
	require.Contains(testInstance, output.String(), "skipped  repository has no GitHub remote")
}

func TestRecoveryRendering(testInstance *testing.T) {
	states := []transaction.State{{
		TransactionID:  "tx-1",
		CreatedAt:      time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC),
		OperationCount: 3,
		RollbackActions: []transaction.CompensatingAction{
			transaction.NewSwitchAndDeleteBranchAction("/work/api", "main", testChangeIDConstant),
			transaction.NewResetHardAction("/work/api", "abc123"),
		},
	}}
	var output bytes.Buffer
	reporter := report.NewReporter(&output, report.FormatTable)

	require.NoError(testInstance, reporter.RecoveryStates(states))
	require.Contains(testInstance, output.String(), "tx-1  2024-05-01T09:00:00Z  2 action(s)")
	require.Contains(testInstance, output.String(), "    /work/api\n")

	output.Reset()
	require.NoError(testInstance, reporter.RecoveryStates(nil))
	require.Equal(testInstance, "No pending recovery states.\n", output.String())

	output.Reset()
	require.NoError(testInstance, reporter.Rollback(transaction.RollbackReport{TransactionID: "tx-1", Attempted: 2, Succeeded: 1, Failed: 1, Halted: true, Failures: []transaction.ActionFailure{{Target: "reset to abc123", Message: "locked"}}}))
	require.Contains(testInstance, output.String(), "tx-1: 2 attempted, 1 succeeded, 1 failed, 0 skipped")
	require.Contains(testInstance, output.String(), "halted after first failure")
	require.Contains(testInstance, output.String(), "error reset to abc123: locked")

	output.Reset()
	require.NoError(testInstance, reporter.Validation("tx-1", recovery.ValidationResult{Valid: false, Errors: []string{"missing repository"}, Warnings: []string{"backup gone"}}))
	require.Contains(testInstance, output.String(), "tx-1 blocked")
	require.Contains(testInstance, output.String(), "error: missing repository")
	require.Contains(testInstance, output.String(), "warning: backup gone")
}

func TestPurgedStatesRendering(testInstance *testing.T) {
	var tableBuffer bytes.Buffer
	require.NoError(testInstance, report.NewReporter(&tableBuffer, report.FormatTable).PurgedStates([]string{"tx-1", "tx-2"}))
	require.Equal(testInstance, "Purged 2 recovery state(s)\n    tx-1\n    tx-2\n", tableBuffer.String())

	var yamlBuffer bytes.Buffer
	require.NoError(testInstance, report.NewReporter(&yamlBuffer, report.FormatYAML).PurgedStates(nil))
	require.Equal(testInstance, "purged: []\n", yamlBuffer.String())
}
