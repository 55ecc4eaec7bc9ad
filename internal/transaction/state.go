package transaction

import "time"

// State is the durable form of a transaction written to the recovery store.
type State struct {
	TransactionID   string               `json:"transaction_id"`
	RollbackActions []CompensatingAction `json:"rollback_actions"`
	RollbackPoints  []string             `json:"rollback_points"`
	OperationCount  int                  `json:"operation_count"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Persister stores transaction state out of process.
type Persister interface {
	Save(state State) error
	Delete(transactionID string) error
}
