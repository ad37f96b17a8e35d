// Package store defines the aggregate persistence interface. The task and
// dlq packages each define their own store contract; a backend implements
// both. Backends: Memory for a single process; Redis and Postgres for
// workers spread across processes.
package store

import (
	"context"

	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/task"
)

// Store is the aggregate persistence interface.
type Store interface {
	task.Store
	dlq.Store

	// Migrate prepares the backend. It is idempotent.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
