package dlq

import (
	"context"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// Replay submits an entry again as a new pending task and marks the entry
// replayed. The new task has a fresh ID and no attempts.
func (s *Service) Replay(ctx context.Context, entryID id.DLQID) (*task.Task, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}

	t := &task.Task{
		Entity:     itemcast.NewEntity(),
		ID:         id.NewTaskID(),
		BatchID:    entry.BatchID,
		Name:       entry.TaskName,
		Label:      entry.Label,
		Queue:      entry.Queue,
		Codec:      entry.Codec,
		Payload:    entry.Payload,
		State:      task.StatePending,
		MaxRetries: entry.MaxRetries,
		RunAt:      time.Now().UTC(),
	}
	if err := s.taskStore.EnqueueTask(ctx, t); err != nil {
		return nil, err
	}
	// The task is already queued; a failed mark is still reported.
	if err := s.store.ReplayDLQ(ctx, entryID); err != nil {
		return t, err
	}
	return t, nil
}
