package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs a function inside one metadata-store transaction.
// The transaction boundary is the engine's only serialization point: version
// allocation, star counting and the latest-version pointer all rely on it
// because multiple service instances may run concurrently.
type TransactionManager interface {
	// ExecTx executes fn within a transaction, committing on nil return and
	// rolling back otherwise.
	ExecTx(ctx context.Context, fn TxFn) error
}
