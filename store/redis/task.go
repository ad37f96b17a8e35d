package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// claimScript removes up to ARGV[2] task IDs due by ARGV[1] (ms) from the
// queue in KEYS[1] and returns them paired with their scores. Removal is
// the claim; the script touches no key outside KEYS, so it is safe on
// Redis Cluster. The caller stamps the claimed Hashes afterwards.
var claimScript = goredis.NewScript(`
local claimed = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'WITHSCORES', 'LIMIT', 0, tonumber(ARGV[2]))
for i = 1, #claimed, 2 do
  redis.call('ZREM', KEYS[1], claimed[i])
end
return claimed
`)

// EnqueueTask stores the task as a Hash and adds it to its queue.
func (s *Store) EnqueueTask(ctx context.Context, t *task.Task) error {
	tID := t.ID.String()
	key := s.taskKey(tID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("itemcast/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return itemcast.ErrTaskAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, taskToMap(t))
	pipe.SAdd(ctx, s.taskIDsKey(), tID)
	pipe.SAdd(ctx, s.queuesKey(), t.Queue)
	if runnable(t.State) {
		pipe.ZAdd(ctx, s.queueKey(t.Queue), goredis.Z{Score: score(t.RunAt), Member: tID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("itemcast/redis: enqueue task: %w", err)
	}
	return nil
}

// DequeueTasks atomically claims up to limit due tasks from queues. An
// empty queue list polls every known queue.
func (s *Store) DequeueTasks(ctx context.Context, queues []string, limit int) ([]*task.Task, error) {
	if len(queues) == 0 {
		known, err := s.client.SMembers(ctx, s.queuesKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("itemcast/redis: dequeue list queues: %w", err)
		}
		slices.Sort(known)
		queues = known
	}
	if limit <= 0 {
		limit = 1
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	var out []*task.Task
	for _, q := range queues {
		if len(out) >= limit {
			break
		}
		pairs, err := claimScript.Run(ctx, s.client,
			[]string{s.queueKey(q)},
			now.UnixMilli(), limit-len(out),
		).StringSlice()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("itemcast/redis: dequeue claim: %w", err)
		}
		ids, err := s.markRunning(ctx, q, pairs, stamp)
		if err != nil {
			return nil, err
		}
		claimed, err := s.loadTasks(ctx, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, claimed...)
	}
	return out, nil
}

// markRunning stamps the tasks claimScript removed from queue as running.
// pairs alternates task ID and queue score. If the stamp fails the tasks go
// back on the queue with their original scores.
func (s *Store) markRunning(ctx context.Context, queue string, pairs []string, stamp string) ([]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(pairs)/2)
	requeue := make([]goredis.Z, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		sc, err := strconv.ParseFloat(pairs[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("itemcast/redis: claim score %q: %w", pairs[i+1], err)
		}
		ids = append(ids, pairs[i])
		requeue = append(requeue, goredis.Z{Score: sc, Member: pairs[i]})
	}

	pipe := s.client.Pipeline()
	for _, tID := range ids {
		pipe.HSet(ctx, s.taskKey(tID),
			"state", string(task.StateRunning),
			"started_at", stamp,
			"heartbeat_at", stamp,
			"updated_at", stamp,
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		if zerr := s.client.ZAdd(ctx, s.queueKey(queue), requeue...).Err(); zerr != nil {
			err = errors.Join(err, zerr)
		}
		return nil, fmt.Errorf("itemcast/redis: dequeue mark running: %w", err)
	}
	return ids, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	vals, err := s.client.HGetAll(ctx, s.taskKey(taskID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("itemcast/redis: get task: %w", err)
	}
	if len(vals) == 0 {
		return nil, itemcast.ErrTaskNotFound
	}
	return mapToTask(vals)
}

// UpdateTask replaces a stored task and keeps queue membership in step
// with its state.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task) error {
	tID := t.ID.String()
	key := s.taskKey(tID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("itemcast/redis: update task exists: %w", err)
	}
	if exists == 0 {
		return itemcast.ErrTaskNotFound
	}

	fields := taskToMap(t)
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	pipe := s.client.TxPipeline()
	if cleared := clearedFields(t); len(cleared) > 0 {
		pipe.HDel(ctx, key, cleared...)
	}
	pipe.HSet(ctx, key, fields)
	if runnable(t.State) {
		pipe.ZAdd(ctx, s.queueKey(t.Queue), goredis.Z{Score: score(t.RunAt), Member: tID})
	} else {
		pipe.ZRem(ctx, s.queueKey(t.Queue), tID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("itemcast/redis: update task: %w", err)
	}
	return nil
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, taskID id.TaskID) error {
	tID := taskID.String()
	key := s.taskKey(tID)

	q, err := s.client.HGet(ctx, key, "queue").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return itemcast.ErrTaskNotFound
		}
		return fmt.Errorf("itemcast/redis: delete task get queue: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, s.taskIDsKey(), tID)
	pipe.ZRem(ctx, s.queueKey(q), tID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("itemcast/redis: delete task: %w", err)
	}
	return nil
}

// ListTasksByState returns tasks in state, oldest first.
func (s *Store) ListTasksByState(ctx context.Context, state task.State, opts task.ListOpts) ([]*task.Task, error) {
	all, err := s.allTasks(ctx)
	if err != nil {
		return nil, err
	}

	var out []*task.Task
	for _, t := range all {
		if t.State != state {
			continue
		}
		if opts.Queue != "" && t.Queue != opts.Queue {
			continue
		}
		out = append(out, t)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// HeartbeatTask stamps a running task's heartbeat and owner.
func (s *Store) HeartbeatTask(ctx context.Context, taskID id.TaskID, workerID id.WorkerID) error {
	key := s.taskKey(taskID.String())
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("itemcast/redis: heartbeat exists: %w", err)
	}
	if exists == 0 {
		return itemcast.ErrTaskNotFound
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.client.HSet(ctx, key,
		"heartbeat_at", now,
		"worker_id", workerID.String(),
		"updated_at", now,
	).Err(); err != nil {
		return fmt.Errorf("itemcast/redis: heartbeat task: %w", err)
	}
	return nil
}

// ReapStaleTasks returns running tasks whose heartbeat is older than
// threshold.
func (s *Store) ReapStaleTasks(ctx context.Context, threshold time.Duration) ([]*task.Task, error) {
	all, err := s.allTasks(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-threshold)
	var stale []*task.Task
	for _, t := range all {
		if t.State == task.StateRunning && t.HeartbeatAt != nil && t.HeartbeatAt.Before(cutoff) {
			stale = append(stale, t)
		}
	}
	return stale, nil
}

// CountTasks returns the number of tasks matching opts.
func (s *Store) CountTasks(ctx context.Context, opts task.CountOpts) (int64, error) {
	all, err := s.allTasks(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, t := range all {
		if opts.State != "" && t.State != opts.State {
			continue
		}
		if opts.Queue != "" && t.Queue != opts.Queue {
			continue
		}
		n++
	}
	return n, nil
}

// ── helpers ──

// allTasks loads every task, ordered by ID. Task IDs are time-ordered, so
// this is submission order.
func (s *Store) allTasks(ctx context.Context) ([]*task.Task, error) {
	ids, err := s.client.SMembers(ctx, s.taskIDsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("itemcast/redis: list task ids: %w", err)
	}
	slices.Sort(ids)
	return s.loadTasks(ctx, ids)
}

// loadTasks fetches tasks in one round trip, skipping IDs whose Hash is
// gone.
func (s *Store) loadTasks(ctx context.Context, ids []string) ([]*task.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, tID := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.taskKey(tID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("itemcast/redis: load tasks: %w", err)
	}

	out := make([]*task.Task, 0, len(ids))
	for _, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			continue
		}
		t, err := mapToTask(vals)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func runnable(s task.State) bool {
	return s == task.StatePending || s == task.StateRetrying
}

// score orders a queue by RunAt. Equal scores fall back to member order,
// which for task IDs is submission order.
func score(runAt time.Time) float64 {
	return float64(runAt.UnixMilli())
}

func taskToMap(t *task.Task) map[string]interface{} {
	m := map[string]interface{}{
		"id":          t.ID.String(),
		"batch_id":    t.BatchID.String(),
		"name":        t.Name,
		"label":       t.Label,
		"queue":       t.Queue,
		"codec":       t.Codec,
		"payload":     string(t.Payload),
		"result":      string(t.Result),
		"state":       string(t.State),
		"max_retries": strconv.Itoa(t.MaxRetries),
		"attempts":    strconv.Itoa(t.Attempts),
		"last_error":  t.LastError,
		"worker_id":   t.WorkerID.String(),
		"run_at":      t.RunAt.Format(time.RFC3339Nano),
		"timeout":     strconv.FormatInt(int64(t.Timeout), 10),
		"created_at":  t.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if t.StartedAt != nil {
		m["started_at"] = t.StartedAt.Format(time.RFC3339Nano)
	}
	if t.CompletedAt != nil {
		m["completed_at"] = t.CompletedAt.Format(time.RFC3339Nano)
	}
	if t.HeartbeatAt != nil {
		m["heartbeat_at"] = t.HeartbeatAt.Format(time.RFC3339Nano)
	}
	return m
}

// clearedFields lists the optional timestamps t no longer carries.
func clearedFields(t *task.Task) []string {
	var out []string
	if t.StartedAt == nil {
		out = append(out, "started_at")
	}
	if t.CompletedAt == nil {
		out = append(out, "completed_at")
	}
	if t.HeartbeatAt == nil {
		out = append(out, "heartbeat_at")
	}
	return out
}

func mapToTask(m map[string]string) (*task.Task, error) {
	tID, err := id.ParseTaskID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("itemcast/redis: parse task id: %w", err)
	}

	maxRetries, _ := strconv.Atoi(m["max_retries"])      //nolint:errcheck // best-effort parse from trusted Redis data
	attempts, _ := strconv.Atoi(m["attempts"])           //nolint:errcheck // best-effort parse from trusted Redis data
	timeout, _ := strconv.ParseInt(m["timeout"], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data

	t := &task.Task{
		Entity: itemcast.Entity{
			CreatedAt: parseTime(m["created_at"]),
			UpdatedAt: parseTime(m["updated_at"]),
		},
		ID:         tID,
		Name:       m["name"],
		Label:      m["label"],
		Queue:      m["queue"],
		Codec:      m["codec"],
		Payload:    []byte(m["payload"]),
		State:      task.State(m["state"]),
		MaxRetries: maxRetries,
		Attempts:   attempts,
		LastError:  m["last_error"],
		RunAt:      parseTime(m["run_at"]),
		Timeout:    time.Duration(timeout),
	}
	if v := m["result"]; v != "" {
		t.Result = []byte(v)
	}
	if v := m["batch_id"]; v != "" {
		t.BatchID, _ = id.ParseBatchID(v) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["worker_id"]; v != "" {
		t.WorkerID, _ = id.ParseWorkerID(v) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	t.StartedAt = parseTimePtr(m["started_at"])
	t.CompletedAt = parseTimePtr(m["completed_at"])
	t.HeartbeatAt = parseTimePtr(m["heartbeat_at"])
	return t, nil
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
	return t
}

func parseTimePtr(v string) *time.Time {
	if v == "" {
		return nil
	}
	t := parseTime(v)
	return &t
}
