package changes

import (
	"github.com/temirov/gx/internal/githubcli"
	"github.com/temirov/gx/internal/mutation"
	"github.com/temirov/gx/internal/repos/shared"
	"github.com/temirov/gx/internal/transaction"
)

// OutcomeAction is the furthest stage a repository reached.
type OutcomeAction string

// Outcome actions.
const (
	OutcomeDryRun    OutcomeAction = "DryRun"
	OutcomeCommitted OutcomeAction = "Committed"
	OutcomePrCreated OutcomeAction = "PrCreated"
)

// ChangeOutcome is the result of applying a request to one repository.
type ChangeOutcome struct {
	Repository    shared.RepositoryReference  `json:"repository" yaml:"repository"`
	ChangeID      string                      `json:"change_id" yaml:"change_id"`
	TransactionID string                      `json:"transaction_id,omitempty" yaml:"transaction_id,omitempty"`
	Action        OutcomeAction               `json:"action,omitempty" yaml:"action,omitempty"`
	FilesAffected []string                    `json:"files_affected,omitempty" yaml:"files_affected,omitempty"`
	Files         []mutation.FileChange       `json:"files,omitempty" yaml:"files,omitempty"`
	PullRequest   *githubcli.PullRequest      `json:"pull_request,omitempty" yaml:"pull_request,omitempty"`
	Warning       string                      `json:"warning,omitempty" yaml:"warning,omitempty"`
	ErrorMessage  string                      `json:"error,omitempty" yaml:"error,omitempty"`
	Rollback      *transaction.RollbackReport `json:"rollback,omitempty" yaml:"rollback,omitempty"`
}

// Failed reports whether the repository ended in error.
func (outcome ChangeOutcome) Failed() bool {
	return len(outcome.ErrorMessage) > 0
}

// RollbackIncomplete reports whether a rollback ran and left work undone.
func (outcome ChangeOutcome) RollbackIncomplete() bool {
	return outcome.Rollback != nil && !outcome.Rollback.Complete()
}
