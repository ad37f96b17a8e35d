package dlq

import (
	"time"

	"github.com/xraph/itemcast/id"
)

// Entry is a failed task kept for inspection or replay. For forecast tasks
// Label is the item whose partition could not be forecast.
type Entry struct {
	ID         id.DLQID   `json:"id"`
	TaskID     id.TaskID  `json:"task_id"`
	BatchID    id.BatchID `json:"batch_id,omitempty"`
	TaskName   string     `json:"task_name"`
	Label      string     `json:"label,omitempty"`
	Queue      string     `json:"queue"`
	Codec      string     `json:"codec"`
	Payload    []byte     `json:"payload"`
	Error      string     `json:"error"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"max_retries"`
	FailedAt   time.Time  `json:"failed_at"`
	ReplayedAt *time.Time `json:"replayed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
