package dlq

import (
	"context"
	"time"

	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// Service provides dead letter operations over a Store.
type Service struct {
	store     Store
	taskStore task.Store
}

// NewService creates a DLQ service. taskStore receives replayed tasks.
func NewService(store Store, taskStore task.Store) *Service {
	return &Service{store: store, taskStore: taskStore}
}

// Push records a terminally failed task.
func (s *Service) Push(ctx context.Context, t *task.Task, taskErr error) error {
	now := time.Now().UTC()
	return s.store.PushDLQ(ctx, &Entry{
		ID:         id.NewDLQID(),
		TaskID:     t.ID,
		BatchID:    t.BatchID,
		TaskName:   t.Name,
		Label:      t.Label,
		Queue:      t.Queue,
		Codec:      t.Codec,
		Payload:    t.Payload,
		Error:      taskErr.Error(),
		Attempts:   t.Attempts,
		MaxRetries: t.MaxRetries,
		FailedAt:   now,
		CreatedAt:  now,
	})
}

// Labels returns the labels of entries belonging to batchID, in failure
// order.
func (s *Service) Labels(ctx context.Context, batchID id.BatchID) ([]string, error) {
	entries, err := s.store.ListDLQ(ctx, ListOpts{})
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, e := range entries {
		if e.BatchID.String() == batchID.String() {
			labels = append(labels, e.Label)
		}
	}
	return labels, nil
}

// DLQStore returns the underlying store for list, get, purge and count.
func (s *Service) DLQStore() Store {
	return s.store
}
