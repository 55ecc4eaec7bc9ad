package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gx/internal/changes"
	"github.com/temirov/gx/internal/recovery"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/review"
	"github.com/temirov/gx/internal/status"
	"github.com/temirov/gx/internal/transaction"
)

const (
	yamlIndentConstant             = 2
	columnGapConstant              = "  "
	diffIndentConstant             = "    "
	timestampLayoutConstant        = time.RFC3339
	unknownFormatTemplateConstant  = "unsupported output format %q (expected %s)"
	fileCountTemplateConstant      = "%d file(s)"
	statusSummaryTemplateConstant  = "%d repositories: %d clean, %d dirty, %d error(s)\n"
	changeSummaryTemplateConstant  = "%d repositories: %d DryRun, %d Committed, %d PrCreated, %d error(s), %d incomplete rollback(s)\n"
	reviewSummaryTemplateConstant  = "%d repositories: %d succeeded, %d skipped, %d error(s)\n"
	rollbackSummaryTemplate        = "%s: %d attempted, %d succeeded, %d failed, %d skipped\n"
	rollbackHaltedSuffixConstant   = "halted after first failure"
	noRecoveryStatesMessage        = "No pending recovery states.\n"
	purgedSummaryTemplate          = "Purged %d recovery state(s)\n"
	validationPassedMessage        = "valid"
	validationFailedMessage        = "blocked"
	warningLabelConstant           = "warning"
	errorLabelConstant             = "error"
	detachedLabelConstant          = "(detached)"
	pullRequestCountTemplate       = "%d pull request(s)"
	deletedBranchesTemplate        = "deleted %s"
	rollbackIncompleteTemplate     = "rollback incomplete: %d failed, %d skipped"
	actionCountTemplate            = "%d action(s)"
	successColorConstant           = "#4CAF50"
	warningColorConstant           = "#F7B801"
	failureColorConstant           = "#FF6B6B"
	neutralColorConstant           = "#5B8DEF"
	mutedColorConstant             = "#999999"
	changeSkippedLabelConstant     = "skipped"
	reviewSucceededLabelConstant   = "ok"
	recoveryListingHeaderTemplate  = "%s  %s  %s\n"
	validationHeaderTemplate       = "%s %s\n"
	validationEntryTemplate        = "  %s: %s\n"
	failureEntryTemplate           = "  %s %s: %s\n"
)

// Format selects how results are rendered.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// SupportedFormats lists the accepted output formats.
func SupportedFormats() []string {
	return []string{string(FormatTable), string(FormatYAML)}
}

// ParseFormat normalizes a user supplied format name. An empty value selects the table.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf(unknownFormatTemplateConstant, value, strings.Join(SupportedFormats(), ", "))
	}
}

type reporterStyles struct {
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	neutral lipgloss.Style
	muted   lipgloss.Style
}

// Reporter writes results to a sink. Colors are applied only when the writer is a terminal.
type Reporter struct {
	writer    io.Writer
	output    shared.Reporter
	format    Format
	showDiffs bool
	styles    reporterStyles
}

// NewReporter constructs a Reporter.
func NewReporter(writer io.Writer, format Format) *Reporter {
	renderer := lipgloss.NewRenderer(writer)
	return &Reporter{
		writer: writer,
		output: shared.NewWriterReporter(writer),
		format: format,
		styles: reporterStyles{
			success: renderer.NewStyle().Foreground(lipgloss.Color(successColorConstant)).Bold(true),
			warning: renderer.NewStyle().Foreground(lipgloss.Color(warningColorConstant)).Bold(true),
			failure: renderer.NewStyle().Foreground(lipgloss.Color(failureColorConstant)).Bold(true),
			neutral: renderer.NewStyle().Foreground(lipgloss.Color(neutralColorConstant)).Bold(true),
			muted:   renderer.NewStyle().Foreground(lipgloss.Color(mutedColorConstant)),
		},
	}
}

// WithDiffs makes the table rendering of change outcomes include per-file diffs.
func (reporter *Reporter) WithDiffs(enabled bool) *Reporter {
	reporter.showDiffs = enabled
	return reporter
}

type statusDocument struct {
	Repositories []status.RepositoryStatus `yaml:"repositories"`
	Summary      StatusSummary             `yaml:"summary"`
}

// Statuses renders one line per repository and returns the bucket tally.
func (reporter *Reporter) Statuses(entries []status.RepositoryStatus) (StatusSummary, error) {
	sorted := append([]status.RepositoryStatus(nil), entries...)
	sort.SliceStable(sorted, func(leftIndex int, rightIndex int) bool {
		return sorted[leftIndex].Repository.Path < sorted[rightIndex].Repository.Path
	})
	summary := SummarizeStatuses(sorted)
	if reporter.format == FormatYAML {
		return summary, reporter.encodeYAML(statusDocument{Repositories: sorted, Summary: summary})
	}

	rows := make([]tableRow, 0, len(sorted))
	for _, entry := range sorted {
		row := tableRow{name: entry.Repository.DisplayName()}
		switch ClassifyStatus(entry) {
		case BucketError:
			row.label, row.style, row.detail = string(BucketError), reporter.styles.failure, entry.ErrorMessage
		case BucketDirty:
			row.label, row.style, row.detail = string(BucketDirty), reporter.styles.warning, branchDetail(entry)
		default:
			row.label, row.style, row.detail = string(BucketClean), reporter.styles.success, branchDetail(entry)
		}
		rows = append(rows, row)
	}
	reporter.writeRows(rows, nil)
	reporter.output.Printf(statusSummaryTemplateConstant, len(sorted), summary.Clean, summary.Dirty, summary.Errors)
	return summary, nil
}

type changeDocument struct {
	Repositories []changes.ChangeOutcome `yaml:"repositories"`
	Summary      ChangeSummary           `yaml:"summary"`
}

// Changes renders one line per repository and returns the outcome tally.
func (reporter *Reporter) Changes(outcomes []changes.ChangeOutcome) (ChangeSummary, error) {
	sorted := append([]changes.ChangeOutcome(nil), outcomes...)
	sort.SliceStable(sorted, func(leftIndex int, rightIndex int) bool {
		return sorted[leftIndex].Repository.Path < sorted[rightIndex].Repository.Path
	})
	summary := SummarizeChanges(sorted)
	if reporter.format == FormatYAML {
		return summary, reporter.encodeYAML(changeDocument{Repositories: sorted, Summary: summary})
	}

	rows := make([]tableRow, 0, len(sorted))
	bodies := make([]string, 0, len(sorted))
	for _, outcome := range sorted {
		rows = append(rows, reporter.changeRow(outcome))
		bodies = append(bodies, reporter.changeBody(outcome))
	}
	reporter.writeRows(rows, bodies)
	reporter.output.Printf(changeSummaryTemplateConstant, len(sorted), summary.DryRun, summary.Committed, summary.PrCreated, summary.Errors, summary.IncompleteRollbacks)
	return summary, nil
}

type reviewDocument struct {
	Repositories []review.Result `yaml:"repositories"`
	Summary      ReviewSummary   `yaml:"summary"`
}

// Reviews renders one line per repository and returns the result tally.
func (reporter *Reporter) Reviews(results []review.Result) (ReviewSummary, error) {
	sorted := append([]review.Result(nil), results...)
	sort.SliceStable(sorted, func(leftIndex int, rightIndex int) bool {
		return sorted[leftIndex].Repository.Path < sorted[rightIndex].Repository.Path
	})
	summary := SummarizeReviews(sorted)
	if reporter.format == FormatYAML {
		return summary, reporter.encodeYAML(reviewDocument{Repositories: sorted, Summary: summary})
	}

	rows := make([]tableRow, 0, len(sorted))
	for _, result := range sorted {
		row := tableRow{name: result.Repository.DisplayName()}
		switch {
		case result.Failed():
			row.label, row.style, row.detail = errorLabelConstant, reporter.styles.failure, result.ErrorMessage
		case result.Skipped:
			row.label, row.style, row.detail = changeSkippedLabelConstant, reporter.styles.muted, result.Message
		default:
			row.label, row.style, row.detail = reviewSucceededLabelConstant, reporter.styles.success, reviewDetail(result)
		}
		rows = append(rows, row)
	}
	reporter.writeRows(rows, nil)
	reporter.output.Printf(reviewSummaryTemplateConstant, len(sorted), summary.Succeeded, summary.Skipped, summary.Errors)
	return summary, nil
}

// RecoveryListing is the rendered form of one pending transaction.
type RecoveryListing struct {
	TransactionID  string   `yaml:"transaction_id"`
	CreatedAt      string   `yaml:"created_at"`
	OperationCount int      `yaml:"operation_count"`
	Repositories   []string `yaml:"repositories"`
	Actions        []string `yaml:"actions"`
}

func newRecoveryListing(state transaction.State) RecoveryListing {
	listing := RecoveryListing{
		TransactionID:  state.TransactionID,
		CreatedAt:      state.CreatedAt.UTC().Format(timestampLayoutConstant),
		OperationCount: state.OperationCount,
	}
	seenRepositories := make(map[string]struct{})
	for _, action := range state.RollbackActions {
		listing.Actions = append(listing.Actions, action.Description)
		if _, seen := seenRepositories[action.RepositoryPath]; seen {
			continue
		}
		seenRepositories[action.RepositoryPath] = struct{}{}
		listing.Repositories = append(listing.Repositories, action.RepositoryPath)
	}
	return listing
}

// RecoveryStates renders the pending transactions of the recovery store in the given order.
func (reporter *Reporter) RecoveryStates(states []transaction.State) error {
	listings := make([]RecoveryListing, 0, len(states))
	for _, state := range states {
		listings = append(listings, newRecoveryListing(state))
	}
	if reporter.format == FormatYAML {
		return reporter.encodeYAML(listings)
	}
	if len(listings) == 0 {
		reporter.output.Printf(noRecoveryStatesMessage)
		return nil
	}
	for _, listing := range listings {
		reporter.output.Printf(recoveryListingHeaderTemplate,
			reporter.styles.neutral.Render(listing.TransactionID),
			reporter.styles.muted.Render(listing.CreatedAt),
			fmt.Sprintf(actionCountTemplate, len(listing.Actions)),
		)
		for _, repositoryPath := range listing.Repositories {
			reporter.output.Printf("%s%s\n", diffIndentConstant, repositoryPath)
		}
	}
	return nil
}

// Rollback renders the result of a recovery replay.
func (reporter *Reporter) Rollback(rollbackReport transaction.RollbackReport) error {
	if reporter.format == FormatYAML {
		return reporter.encodeYAML(rollbackReport)
	}
	reporter.output.Printf(rollbackSummaryTemplate, rollbackReport.TransactionID, rollbackReport.Attempted, rollbackReport.Succeeded, rollbackReport.Failed, rollbackReport.Skipped)
	if rollbackReport.Halted {
		reporter.output.Printf("%s%s\n", diffIndentConstant, reporter.styles.warning.Render(rollbackHaltedSuffixConstant))
	}
	for _, failure := range rollbackReport.Failures {
		reporter.output.Printf(failureEntryTemplate, reporter.styles.failure.Render(errorLabelConstant), failure.Target, failure.Message)
	}
	return nil
}

type purgeDocument struct {
	Purged []string `yaml:"purged"`
}

// PurgedStates renders the transaction ids removed by a retention purge.
func (reporter *Reporter) PurgedStates(transactionIDs []string) error {
	if reporter.format == FormatYAML {
		return reporter.encodeYAML(purgeDocument{Purged: append([]string{}, transactionIDs...)})
	}
	reporter.output.Printf(purgedSummaryTemplate, len(transactionIDs))
	for _, transactionID := range transactionIDs {
		reporter.output.Printf("%s%s\n", diffIndentConstant, reporter.styles.muted.Render(transactionID))
	}
	return nil
}

type validationDocument struct {
	TransactionID string                    `yaml:"transaction_id"`
	Result        recovery.ValidationResult `yaml:"result"`
}

// Validation renders a pre-replay validation result.
func (reporter *Reporter) Validation(transactionID string, result recovery.ValidationResult) error {
	if reporter.format == FormatYAML {
		return reporter.encodeYAML(validationDocument{TransactionID: transactionID, Result: result})
	}
	verdict := reporter.styles.success.Render(validationPassedMessage)
	if !result.Valid {
		verdict = reporter.styles.failure.Render(validationFailedMessage)
	}
	reporter.output.Printf(validationHeaderTemplate, transactionID, verdict)
	for _, message := range result.Errors {
		reporter.output.Printf(validationEntryTemplate, reporter.styles.failure.Render(errorLabelConstant), message)
	}
	for _, message := range result.Warnings {
		reporter.output.Printf(validationEntryTemplate, reporter.styles.warning.Render(warningLabelConstant), message)
	}
	return nil
}

type tableRow struct {
	name   string
	label  string
	style  lipgloss.Style
	detail string
}

func (reporter *Reporter) writeRows(rows []tableRow, bodies []string) {
	nameWidth := 0
	labelWidth := 0
	for _, row := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(row.name))
		labelWidth = max(labelWidth, lipgloss.Width(row.label))
	}
	for rowIndex, row := range rows {
		line := padRight(row.name, nameWidth) + columnGapConstant + padRight(row.style.Render(row.label), labelWidth)
		if len(row.detail) > 0 {
			line += columnGapConstant + row.detail
		}
		reporter.output.Printf("%s\n", strings.TrimRight(line, " "))
		if rowIndex < len(bodies) && len(bodies[rowIndex]) > 0 {
			reporter.output.Printf("%s", bodies[rowIndex])
		}
	}
}

func (reporter *Reporter) changeRow(outcome changes.ChangeOutcome) tableRow {
	row := tableRow{name: outcome.Repository.DisplayName()}
	if outcome.Failed() {
		row.label, row.style = errorLabelConstant, reporter.styles.failure
		row.detail = outcome.ErrorMessage
		if outcome.RollbackIncomplete() {
			row.detail += "; " + fmt.Sprintf(rollbackIncompleteTemplate, outcome.Rollback.Failed, outcome.Rollback.Skipped)
		}
		return row
	}

	row.label = string(outcome.Action)
	switch outcome.Action {
	case changes.OutcomePrCreated:
		row.style = reporter.styles.success
	case changes.OutcomeCommitted:
		row.style = reporter.styles.neutral
	default:
		row.style = reporter.styles.muted
	}

	details := []string{fmt.Sprintf(fileCountTemplateConstant, len(outcome.FilesAffected))}
	if outcome.PullRequest != nil && len(outcome.PullRequest.URL) > 0 {
		details = append(details, outcome.PullRequest.URL)
	}
	if len(outcome.Warning) > 0 {
		details = append(details, reporter.styles.warning.Render(warningLabelConstant)+": "+outcome.Warning)
	}
	row.detail = strings.Join(details, columnGapConstant)
	return row
}

func (reporter *Reporter) changeBody(outcome changes.ChangeOutcome) string {
	if !reporter.showDiffs || outcome.Failed() {
		return ""
	}
	var builder strings.Builder
	for _, change := range outcome.Files {
		for _, diffLine := range strings.SplitAfter(change.Diff, "\n") {
			if len(diffLine) == 0 {
				continue
			}
			builder.WriteString(diffIndentConstant)
			builder.WriteString(diffLine)
		}
	}
	return builder.String()
}

func (reporter *Reporter) encodeYAML(document any) error {
	encoder := yaml.NewEncoder(reporter.writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(document); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func branchDetail(entry status.RepositoryStatus) string {
	if entry.Detached {
		return detachedLabelConstant
	}
	return entry.Branch
}

func reviewDetail(result review.Result) string {
	var details []string
	if result.Operation != review.OperationPurge {
		details = append(details, fmt.Sprintf(pullRequestCountTemplate, len(result.PullRequests)))
	}
	if len(result.DeletedBranches) > 0 {
		details = append(details, fmt.Sprintf(deletedBranchesTemplate, strings.Join(result.DeletedBranches, ", ")))
	}
	return strings.Join(details, columnGapConstant)
}

func padRight(text string, width int) string {
	padding := width - lipgloss.Width(text)
	if padding <= 0 {
		return text
	}
	return text + strings.Repeat(" ", padding)
}
