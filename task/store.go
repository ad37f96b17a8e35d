package task

import (
	"context"
	"time"

	"github.com/xraph/itemcast/id"
)

// ListOpts controls pagination and filtering for task list queries.
type ListOpts struct {
	// Limit is the maximum number of tasks to return. Zero means no limit.
	Limit int
	// Offset is the number of tasks to skip.
	Offset int
	// Queue filters by queue name. Empty means all queues.
	Queue string
}

// CountOpts controls filtering for task count queries.
type CountOpts struct {
	// Queue filters by queue name. Empty means all queues.
	Queue string
	// State filters by state. Empty means all states.
	State State
}

// Store defines the persistence contract for tasks.
type Store interface {
	// EnqueueTask persists a new task in pending state.
	EnqueueTask(ctx context.Context, t *Task) error

	// DequeueTasks atomically claims up to limit runnable tasks from the
	// given queues, marks them running, and returns them oldest RunAt
	// first.
	DequeueTasks(ctx context.Context, queues []string, limit int) ([]*Task, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID id.TaskID) (*Task, error)

	// UpdateTask persists changes to an existing task.
	UpdateTask(ctx context.Context, t *Task) error

	// DeleteTask removes a task by ID.
	DeleteTask(ctx context.Context, taskID id.TaskID) error

	// ListTasksByState returns tasks in the given state.
	ListTasksByState(ctx context.Context, state State, opts ListOpts) ([]*Task, error)

	// HeartbeatTask records that the worker running a task is alive.
	HeartbeatTask(ctx context.Context, taskID id.TaskID, workerID id.WorkerID) error

	// ReapStaleTasks returns running tasks whose last heartbeat is older
	// than threshold.
	ReapStaleTasks(ctx context.Context, threshold time.Duration) ([]*Task, error)

	// CountTasks returns the number of tasks matching opts.
	CountTasks(ctx context.Context, opts CountOpts) (int64, error)
}
