//go:build integration

package redis_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/id"
	redisstore "github.com/xraph/itemcast/store/redis"
	"github.com/xraph/itemcast/task"
)

// setupTestStore starts a Redis container and returns a store with a
// per-test key prefix.
func setupTestStore(t *testing.T) *redisstore.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := testcontainers.TerminateContainer(container); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	s := redisstore.New(client, redisstore.WithPrefix("test:"+t.Name()+":"))
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return s
}

func newTask(label string, runAt time.Time) *task.Task {
	return &task.Task{
		Entity:     itemcast.NewEntity(),
		ID:         id.NewTaskID(),
		BatchID:    id.NewBatchID(),
		Name:       "forecast",
		Label:      label,
		Queue:      "forecast",
		Codec:      "msgpack",
		Payload:    []byte{0x92, 0x00, 0xff, 0x0a},
		State:      task.StatePending,
		MaxRetries: 1,
		RunAt:      runAt,
		Timeout:    time.Minute,
	}
}

func TestTaskRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	tk := newTask("SKU-1", time.Now().UTC())

	if err := s.EnqueueTask(ctx, tk); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	if err := s.EnqueueTask(ctx, tk); !errors.Is(err, itemcast.ErrTaskAlreadyExists) {
		t.Fatalf("expected ErrTaskAlreadyExists, got %v", err)
	}

	got, err := s.GetTask(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Label != "SKU-1" || string(got.Payload) != string(tk.Payload) ||
		got.BatchID.String() != tk.BatchID.String() || got.Timeout != time.Minute {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := s.GetTask(ctx, id.NewTaskID()); !errors.Is(err, itemcast.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDequeueClaimsDueTasksOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := newTask("A", now.Add(-2*time.Second))
	second := newTask("B", now.Add(-time.Second))
	future := newTask("C", now.Add(time.Hour))
	for _, tk := range []*task.Task{second, future, first} {
		if err := s.EnqueueTask(ctx, tk); err != nil {
			t.Fatalf("EnqueueTask: %v", err)
		}
	}

	got, err := s.DequeueTasks(ctx, []string{"forecast"}, 10)
	if err != nil {
		t.Fatalf("DequeueTasks: %v", err)
	}
	if len(got) != 2 || got[0].Label != "A" || got[1].Label != "B" {
		t.Fatalf("expected A then B, got %d tasks", len(got))
	}
	if got[0].State != task.StateRunning || got[0].StartedAt == nil || got[0].HeartbeatAt == nil {
		t.Fatalf("claimed task not marked running: %+v", got[0])
	}

	again, _ := s.DequeueTasks(ctx, nil, 10)
	if len(again) != 0 {
		t.Fatalf("expected nothing left to claim, got %d", len(again))
	}
}

func TestConcurrentDequeue(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	const n = 40
	for range n {
		if err := s.EnqueueTask(ctx, newTask("X", time.Now().UTC())); err != nil {
			t.Fatalf("EnqueueTask: %v", err)
		}
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, err := s.DequeueTasks(ctx, []string{"forecast"}, 3)
				if err != nil {
					t.Errorf("DequeueTasks: %v", err)
					return
				}
				if len(got) == 0 {
					return
				}
				mu.Lock()
				for _, tk := range got {
					if tk.State != task.StateRunning || tk.StartedAt == nil {
						t.Errorf("claimed task %s not marked running", tk.ID)
					}
					seen[tk.ID.String()]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d distinct claims, got %d", n, len(seen))
	}
	for taskID, c := range seen {
		if c != 1 {
			t.Fatalf("task %s claimed %d times", taskID, c)
		}
	}
	if running, _ := s.CountTasks(ctx, task.CountOpts{State: task.StateRunning}); running != n {
		t.Fatalf("expected %d running tasks, got %d", n, running)
	}
}

func TestUpdateRequeuesRetryingTask(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	tk := newTask("A", time.Now().UTC())
	_ = s.EnqueueTask(ctx, tk)

	claimed, _ := s.DequeueTasks(ctx, nil, 1)
	c := claimed[0]
	c.State = task.StateRetrying
	c.Attempts = 1
	c.LastError = "no candidate converged"
	c.StartedAt = nil
	c.HeartbeatAt = nil
	c.RunAt = time.Now().UTC()
	if err := s.UpdateTask(ctx, c); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, _ := s.GetTask(ctx, tk.ID)
	if got.StartedAt != nil || got.Attempts != 1 {
		t.Fatalf("expected cleared start and one attempt, got %+v", got)
	}
	if again, _ := s.DequeueTasks(ctx, nil, 1); len(again) != 1 {
		t.Fatal("retrying task should be claimable again")
	}

	got.State = task.StateCompleted
	got.Result = []byte{0x0c}
	_ = s.UpdateTask(ctx, got)
	if n, _ := s.CountTasks(ctx, task.CountOpts{State: task.StateCompleted}); n != 1 {
		t.Fatalf("expected 1 completed, got %d", n)
	}
	if left, _ := s.DequeueTasks(ctx, nil, 1); len(left) != 0 {
		t.Fatal("completed task must not be claimable")
	}
}

func TestHeartbeatAndReap(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	tk := newTask("A", time.Now().UTC())
	_ = s.EnqueueTask(ctx, tk)
	claimed, _ := s.DequeueTasks(ctx, nil, 1)

	old := time.Now().UTC().Add(-time.Hour)
	claimed[0].HeartbeatAt = &old
	_ = s.UpdateTask(ctx, claimed[0])
	if stale, _ := s.ReapStaleTasks(ctx, time.Minute); len(stale) != 1 {
		t.Fatalf("expected 1 stale task, got %d", len(stale))
	}

	if err := s.HeartbeatTask(ctx, tk.ID, id.NewWorkerID()); err != nil {
		t.Fatalf("HeartbeatTask: %v", err)
	}
	if stale, _ := s.ReapStaleTasks(ctx, time.Minute); len(stale) != 0 {
		t.Fatalf("expected no stale tasks, got %d", len(stale))
	}
}

func TestListAndDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	var ids []id.TaskID
	for _, l := range []string{"A", "B", "C"} {
		tk := newTask(l, time.Now().UTC())
		_ = s.EnqueueTask(ctx, tk)
		ids = append(ids, tk.ID)
	}

	list, err := s.ListTasksByState(ctx, task.StatePending, task.ListOpts{Offset: 1, Limit: 1})
	if err != nil || len(list) != 1 || list[0].Label != "B" {
		t.Fatalf("expected [B], got %d (%v)", len(list), err)
	}

	if err := s.DeleteTask(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.DeleteTask(ctx, ids[0]); !errors.Is(err, itemcast.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if n, _ := s.CountTasks(ctx, task.CountOpts{}); n != 2 {
		t.Fatalf("expected 2 tasks, got %d", n)
	}
}

func TestDLQ(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(label string, at time.Time) *dlq.Entry {
		return &dlq.Entry{
			ID: id.NewDLQID(), TaskID: id.NewTaskID(), TaskName: "forecast",
			Label: label, Queue: "forecast", Codec: "msgpack", Payload: []byte{0x01},
			Error: "boom", Attempts: 1, FailedAt: at, CreatedAt: at,
		}
	}
	old := mk("A", now.Add(-2*time.Hour))
	recent := mk("B", now)
	_ = s.PushDLQ(ctx, recent)
	_ = s.PushDLQ(ctx, old)

	list, err := s.ListDLQ(ctx, dlq.ListOpts{})
	if err != nil || len(list) != 2 || list[0].Label != "A" {
		t.Fatalf("expected oldest first, got %d (%v)", len(list), err)
	}

	if err := s.ReplayDLQ(ctx, recent.ID); err != nil {
		t.Fatalf("ReplayDLQ: %v", err)
	}
	got, _ := s.GetDLQ(ctx, recent.ID)
	if got.ReplayedAt == nil || got.TaskID.String() != recent.TaskID.String() {
		t.Fatalf("unexpected entry %+v", got)
	}

	if n, _ := s.PurgeDLQ(ctx, now.Add(-time.Hour)); n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if n, _ := s.CountDLQ(ctx); n != 1 {
		t.Fatalf("expected 1 left, got %d", n)
	}
	if _, err := s.GetDLQ(ctx, old.ID); !errors.Is(err, itemcast.ErrDLQNotFound) {
		t.Fatalf("expected ErrDLQNotFound, got %v", err)
	}
}
