package memory

import (
	"context"
	"slices"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// EnqueueTask persists a new task.
func (m *Store) EnqueueTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return itemcast.ErrStoreClosed
	}

	key := t.ID.String()
	if _, exists := m.tasks[key]; exists {
		return itemcast.ErrTaskAlreadyExists
	}
	m.tasks[key] = &record[task.Task]{seq: m.next(), val: *t}
	return nil
}

// DequeueTasks claims up to limit runnable tasks from queues, oldest RunAt
// first, and marks them running.
func (m *Store) DequeueTasks(_ context.Context, queues []string, limit int) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, itemcast.ErrStoreClosed
	}

	now := time.Now().UTC()
	var candidates []*record[task.Task]
	for _, r := range m.tasks {
		t := &r.val
		if t.State != task.StatePending && t.State != task.StateRetrying {
			continue
		}
		if !t.RunAt.IsZero() && t.RunAt.After(now) {
			continue
		}
		if len(queues) > 0 && !slices.Contains(queues, t.Queue) {
			continue
		}
		candidates = append(candidates, r)
	}
	slices.SortFunc(candidates, func(a, b *record[task.Task]) int {
		if c := a.val.RunAt.Compare(b.val.RunAt); c != 0 {
			return c
		}
		return cmpSeq(a.seq, b.seq)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*task.Task, len(candidates))
	for i, r := range candidates {
		started := now
		r.val.State = task.StateRunning
		r.val.StartedAt = &started
		r.val.HeartbeatAt = &started
		r.val.UpdatedAt = now
		cp := r.val
		out[i] = &cp
	}
	return out, nil
}

// GetTask retrieves a task by ID.
func (m *Store) GetTask(_ context.Context, taskID id.TaskID) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.tasks[taskID.String()]
	if !ok {
		return nil, itemcast.ErrTaskNotFound
	}
	cp := r.val
	return &cp, nil
}

// UpdateTask replaces a stored task.
func (m *Store) UpdateTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return itemcast.ErrStoreClosed
	}

	r, ok := m.tasks[t.ID.String()]
	if !ok {
		return itemcast.ErrTaskNotFound
	}
	r.val = *t
	r.val.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteTask removes a task by ID.
func (m *Store) DeleteTask(_ context.Context, taskID id.TaskID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := taskID.String()
	if _, ok := m.tasks[key]; !ok {
		return itemcast.ErrTaskNotFound
	}
	delete(m.tasks, key)
	return nil
}

// ListTasksByState returns tasks in state, in submission order.
func (m *Store) ListTasksByState(_ context.Context, state task.State, opts task.ListOpts) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*record[task.Task]
	for _, r := range m.tasks {
		if r.val.State != state {
			continue
		}
		if opts.Queue != "" && r.val.Queue != opts.Queue {
			continue
		}
		matched = append(matched, r)
	}
	slices.SortFunc(matched, func(a, b *record[task.Task]) int { return cmpSeq(a.seq, b.seq) })
	matched = page(matched, opts.Offset, opts.Limit)

	out := make([]*task.Task, len(matched))
	for i, r := range matched {
		cp := r.val
		out[i] = &cp
	}
	return out, nil
}

// HeartbeatTask stamps a running task's heartbeat.
func (m *Store) HeartbeatTask(_ context.Context, taskID id.TaskID, _ id.WorkerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.tasks[taskID.String()]
	if !ok {
		return itemcast.ErrTaskNotFound
	}
	now := time.Now().UTC()
	r.val.HeartbeatAt = &now
	return nil
}

// ReapStaleTasks returns running tasks whose last heartbeat is older than
// threshold.
func (m *Store) ReapStaleTasks(_ context.Context, threshold time.Duration) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-threshold)
	var stale []*task.Task
	for _, r := range m.tasks {
		if r.val.State != task.StateRunning || r.val.HeartbeatAt == nil {
			continue
		}
		if r.val.HeartbeatAt.Before(cutoff) {
			cp := r.val
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

// CountTasks returns the number of tasks matching opts.
func (m *Store) CountTasks(_ context.Context, opts task.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, r := range m.tasks {
		if opts.Queue != "" && r.val.Queue != opts.Queue {
			continue
		}
		if opts.State != "" && r.val.State != opts.State {
			continue
		}
		n++
	}
	return n, nil
}

func cmpSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func page[T any](s []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(s) {
			return nil
		}
		s = s[offset:]
	}
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}
