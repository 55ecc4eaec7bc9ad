package report

import (
	"github.com/temirov/gx/internal/changes"
	"github.com/temirov/gx/internal/review"
	"github.com/temirov/gx/internal/status"
)

// Bucket classifies a repository for status reporting.
type Bucket string

// Status buckets.
const (
	BucketClean Bucket = "clean"
	BucketDirty Bucket = "dirty"
	BucketError Bucket = "error"
)

// ClassifyStatus places a repository status into its bucket.
func ClassifyStatus(repositoryStatus status.RepositoryStatus) Bucket {
	switch {
	case repositoryStatus.Failed():
		return BucketError
	case repositoryStatus.Clean:
		return BucketClean
	default:
		return BucketDirty
	}
}

// StatusSummary counts repositories per bucket.
type StatusSummary struct {
	Clean  int `json:"clean" yaml:"clean"`
	Dirty  int `json:"dirty" yaml:"dirty"`
	Errors int `json:"errors" yaml:"errors"`
}

// ErrorCount returns the number of repositories that could not be inspected.
func (summary StatusSummary) ErrorCount() int {
	return summary.Errors
}

// SummarizeStatuses tallies status entries.
func SummarizeStatuses(entries []status.RepositoryStatus) StatusSummary {
	summary := StatusSummary{}
	for _, entry := range entries {
		switch ClassifyStatus(entry) {
		case BucketClean:
			summary.Clean++
		case BucketDirty:
			summary.Dirty++
		case BucketError:
			summary.Errors++
		}
	}
	return summary
}

// ChangeSummary counts change outcomes per action.
type ChangeSummary struct {
	DryRun              int `json:"dry_run" yaml:"dry_run"`
	Committed           int `json:"committed" yaml:"committed"`
	PrCreated           int `json:"pr_created" yaml:"pr_created"`
	Errors              int `json:"errors" yaml:"errors"`
	Warnings            int `json:"warnings" yaml:"warnings"`
	IncompleteRollbacks int `json:"incomplete_rollbacks" yaml:"incomplete_rollbacks"`
}

// ErrorCount returns the number of repositories that ended in error.
func (summary ChangeSummary) ErrorCount() int {
	return summary.Errors
}

// SummarizeChanges tallies change outcomes.
func SummarizeChanges(outcomes []changes.ChangeOutcome) ChangeSummary {
	summary := ChangeSummary{}
	for _, outcome := range outcomes {
		if outcome.RollbackIncomplete() {
			summary.IncompleteRollbacks++
		}
		if len(outcome.Warning) > 0 {
			summary.Warnings++
		}
		if outcome.Failed() {
			summary.Errors++
			continue
		}
		switch outcome.Action {
		case changes.OutcomeDryRun:
			summary.DryRun++
		case changes.OutcomeCommitted:
			summary.Committed++
		case changes.OutcomePrCreated:
			summary.PrCreated++
		}
	}
	return summary
}

// ReviewSummary counts review results.
type ReviewSummary struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Errors    int `json:"errors" yaml:"errors"`
}

// ErrorCount returns the number of repositories whose operation failed.
func (summary ReviewSummary) ErrorCount() int {
	return summary.Errors
}

// SummarizeReviews tallies review results.
func SummarizeReviews(results []review.Result) ReviewSummary {
	summary := ReviewSummary{}
	for _, result := range results {
		switch {
		case result.Failed():
			summary.Errors++
		case result.Skipped:
			summary.Skipped++
		default:
			summary.Succeeded++
		}
	}
	return summary
}
