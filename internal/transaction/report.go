package transaction

// ActionFailure records one compensating action that could not be executed.
type ActionFailure struct {
	Action  CompensatingAction `json:"-" yaml:"-"`
	Kind    ActionKind         `json:"kind" yaml:"kind"`
	Target  string             `json:"description" yaml:"description"`
	Message string             `json:"error" yaml:"error"`
}

func newActionFailure(action CompensatingAction, failure error) ActionFailure {
	return ActionFailure{Action: action, Kind: action.Kind, Target: action.Description, Message: failure.Error()}
}

// RollbackReport summarizes a best-effort rollback.
type RollbackReport struct {
	TransactionID string          `json:"transaction_id" yaml:"transaction_id"`
	Attempted     int             `json:"attempted" yaml:"attempted"`
	Succeeded     int             `json:"succeeded" yaml:"succeeded"`
	Failed        int             `json:"failed" yaml:"failed"`
	Skipped       int             `json:"skipped" yaml:"skipped"`
	Halted        bool            `json:"halted" yaml:"halted"`
	Failures      []ActionFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Complete reports whether every attempted action succeeded and nothing was skipped.
func (report RollbackReport) Complete() bool {
	return report.Failed == 0 && !report.Halted && report.Skipped == 0
}

// CommitReport summarizes the cleanup actions executed by Commit.
type CommitReport struct {
	TransactionID    string          `json:"transaction_id" yaml:"transaction_id"`
	CleanupAttempted int             `json:"cleanup_attempted" yaml:"cleanup_attempted"`
	CleanupFailed    int             `json:"cleanup_failed" yaml:"cleanup_failed"`
	Failures         []ActionFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}
