package persistence

import "context"

// TxManager runs a function within a storage transaction. The callback may be
// invoked multiple times on transient failures, so it must be idempotent.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(sessCtx context.Context) (any, error)) (any, error)
}
