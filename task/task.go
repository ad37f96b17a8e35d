package task

import (
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
)

// State represents the lifecycle state of a task.
type State string

const (
	// StatePending means the task is waiting to be picked up by a worker.
	StatePending State = "pending"
	// StateRunning means a worker is executing the task.
	StateRunning State = "running"
	// StateRetrying means the task failed and is scheduled to run again.
	StateRetrying State = "retrying"
	// StateCompleted means the task finished and its result is stored.
	StateCompleted State = "completed"
	// StateFailed means the task failed and will not be retried.
	StateFailed State = "failed"
	// StateCancelled means the task was cancelled before it finished.
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Task is one unit of submitted work and, once finished, its result.
type Task struct {
	itemcast.Entity

	ID      id.TaskID  `json:"id"`
	BatchID id.BatchID `json:"batch_id,omitempty"`
	Name    string     `json:"name"`
	// Label is a caller-chosen tag carried through to the result, such as
	// the item a forecast task was submitted for.
	Label       string        `json:"label,omitempty"`
	Queue       string        `json:"queue"`
	Codec       string        `json:"codec"`
	Payload     []byte        `json:"payload"`
	Result      []byte        `json:"result,omitempty"`
	State       State         `json:"state"`
	MaxRetries  int           `json:"max_retries"`
	Attempts    int           `json:"attempts"`
	LastError   string        `json:"last_error,omitempty"`
	WorkerID    id.WorkerID   `json:"worker_id,omitempty"`
	RunAt       time.Time     `json:"run_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	HeartbeatAt *time.Time    `json:"heartbeat_at,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// Completion is the outcome of one task as returned by a collect.
type Completion struct {
	TaskID id.TaskID
	Label  string
	State  State
	// Result holds the encoded handler output of a completed task.
	Result []byte
	// Err is set for failed and cancelled tasks.
	Err error
}
