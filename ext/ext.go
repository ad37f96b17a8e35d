// Package ext defines the extension system. Extensions are notified of
// task lifecycle events and react to them with logging, metrics, audit
// trails and the like.
//
// Each hook is its own interface so an extension opts in only to the
// events it cares about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// Extension is the base interface all extensions implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// TaskSubmitted is called after a task is persisted.
type TaskSubmitted interface {
	OnTaskSubmitted(ctx context.Context, t *task.Task) error
}

// TaskStarted is called when a worker begins executing a task.
type TaskStarted interface {
	OnTaskStarted(ctx context.Context, t *task.Task) error
}

// TaskCompleted is called after a task's result is stored.
type TaskCompleted interface {
	OnTaskCompleted(ctx context.Context, t *task.Task, elapsed time.Duration) error
}

// TaskFailed is called when a task fails terminally.
type TaskFailed interface {
	OnTaskFailed(ctx context.Context, t *task.Task, err error) error
}

// TaskRetrying is called when a failed task is scheduled to run again.
type TaskRetrying interface {
	OnTaskRetrying(ctx context.Context, t *task.Task, attempt int, nextRunAt time.Time) error
}

// TaskDeadLettered is called when a failed task is copied to the dead
// letter queue.
type TaskDeadLettered interface {
	OnTaskDeadLettered(ctx context.Context, t *task.Task, err error) error
}

// BatchCollected is called when a collect barrier returns.
type BatchCollected interface {
	OnBatchCollected(ctx context.Context, batchID id.BatchID, completed, failed int, elapsed time.Duration) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
