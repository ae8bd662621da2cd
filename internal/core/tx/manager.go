// Package tx defines the transaction contract used by storage-backed services.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction. Nested calls join the outer one.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
