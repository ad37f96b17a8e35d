package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// ── Task model ────────────────────────────────────────────────────

type taskModel struct {
	bun.BaseModel `bun:"table:itemcast_tasks"`

	ID          string     `bun:"id,pk"`
	BatchID     string     `bun:"batch_id,notnull"`
	Name        string     `bun:"name,notnull"`
	Label       string     `bun:"label,notnull"`
	Queue       string     `bun:"queue,notnull"`
	Codec       string     `bun:"codec,notnull"`
	Payload     []byte     `bun:"payload,type:bytea"`
	Result      []byte     `bun:"result,type:bytea"`
	State       string     `bun:"state,notnull"`
	MaxRetries  int        `bun:"max_retries,notnull"`
	Attempts    int        `bun:"attempts,notnull"`
	LastError   string     `bun:"last_error,notnull"`
	WorkerID    string     `bun:"worker_id,notnull"`
	RunAt       time.Time  `bun:"run_at,notnull"`
	StartedAt   *time.Time `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
	HeartbeatAt *time.Time `bun:"heartbeat_at"`
	Timeout     int64      `bun:"timeout,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

func toTaskModel(t *task.Task) *taskModel {
	return &taskModel{
		ID:          t.ID.String(),
		BatchID:     t.BatchID.String(),
		Name:        t.Name,
		Label:       t.Label,
		Queue:       t.Queue,
		Codec:       t.Codec,
		Payload:     t.Payload,
		Result:      t.Result,
		State:       string(t.State),
		MaxRetries:  t.MaxRetries,
		Attempts:    t.Attempts,
		LastError:   t.LastError,
		WorkerID:    t.WorkerID.String(),
		RunAt:       t.RunAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		HeartbeatAt: t.HeartbeatAt,
		Timeout:     t.Timeout.Nanoseconds(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromTaskModel(m *taskModel) (*task.Task, error) {
	taskID, err := id.ParseTaskID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("itemcast/bun: parse task id %q: %w", m.ID, err)
	}
	batchID, err := parseOptionalID(m.BatchID, id.ParseBatchID)
	if err != nil {
		return nil, err
	}
	workerID, err := parseOptionalID(m.WorkerID, id.ParseWorkerID)
	if err != nil {
		return nil, err
	}

	return &task.Task{
		Entity: itemcast.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          taskID,
		BatchID:     batchID,
		Name:        m.Name,
		Label:       m.Label,
		Queue:       m.Queue,
		Codec:       m.Codec,
		Payload:     m.Payload,
		Result:      m.Result,
		State:       task.State(m.State),
		MaxRetries:  m.MaxRetries,
		Attempts:    m.Attempts,
		LastError:   m.LastError,
		WorkerID:    workerID,
		RunAt:       m.RunAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		HeartbeatAt: m.HeartbeatAt,
		Timeout:     time.Duration(m.Timeout),
	}, nil
}

func fromTaskModels(models []taskModel) ([]*task.Task, error) {
	tasks := make([]*task.Task, 0, len(models))
	for i := range models {
		t, err := fromTaskModel(&models[i])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ── DLQ model ─────────────────────────────────────────────────────

type dlqEntryModel struct {
	bun.BaseModel `bun:"table:itemcast_dlq"`

	ID         string     `bun:"id,pk"`
	TaskID     string     `bun:"task_id,notnull"`
	BatchID    string     `bun:"batch_id,notnull"`
	TaskName   string     `bun:"task_name,notnull"`
	Label      string     `bun:"label,notnull"`
	Queue      string     `bun:"queue,notnull"`
	Codec      string     `bun:"codec,notnull"`
	Payload    []byte     `bun:"payload,type:bytea"`
	Error      string     `bun:"error,notnull"`
	Attempts   int        `bun:"attempts,notnull"`
	MaxRetries int        `bun:"max_retries,notnull"`
	FailedAt   time.Time  `bun:"failed_at,notnull"`
	ReplayedAt *time.Time `bun:"replayed_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
}

func toDLQModel(e *dlq.Entry) *dlqEntryModel {
	return &dlqEntryModel{
		ID:         e.ID.String(),
		TaskID:     e.TaskID.String(),
		BatchID:    e.BatchID.String(),
		TaskName:   e.TaskName,
		Label:      e.Label,
		Queue:      e.Queue,
		Codec:      e.Codec,
		Payload:    e.Payload,
		Error:      e.Error,
		Attempts:   e.Attempts,
		MaxRetries: e.MaxRetries,
		FailedAt:   e.FailedAt,
		ReplayedAt: e.ReplayedAt,
		CreatedAt:  e.CreatedAt,
	}
}

func fromDLQModel(m *dlqEntryModel) (*dlq.Entry, error) {
	entryID, err := id.ParseDLQID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("itemcast/bun: parse dlq id %q: %w", m.ID, err)
	}
	taskID, err := id.ParseTaskID(m.TaskID)
	if err != nil {
		return nil, fmt.Errorf("itemcast/bun: parse task id %q: %w", m.TaskID, err)
	}
	batchID, err := parseOptionalID(m.BatchID, id.ParseBatchID)
	if err != nil {
		return nil, err
	}

	return &dlq.Entry{
		ID:         entryID,
		TaskID:     taskID,
		BatchID:    batchID,
		TaskName:   m.TaskName,
		Label:      m.Label,
		Queue:      m.Queue,
		Codec:      m.Codec,
		Payload:    m.Payload,
		Error:      m.Error,
		Attempts:   m.Attempts,
		MaxRetries: m.MaxRetries,
		FailedAt:   m.FailedAt,
		ReplayedAt: m.ReplayedAt,
		CreatedAt:  m.CreatedAt,
	}, nil
}
