package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// EnqueueTask persists a new task.
func (s *Store) EnqueueTask(ctx context.Context, t *task.Task) error {
	_, err := s.db.NewInsert().Model(toTaskModel(t)).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return itemcast.ErrTaskAlreadyExists
		}
		return fmt.Errorf("itemcast/bun: enqueue task: %w", err)
	}
	return nil
}

// DequeueTasks claims up to limit runnable tasks, oldest RunAt first. Uses
// SELECT FOR UPDATE SKIP LOCKED so concurrent callers never claim the same
// row.
func (s *Store) DequeueTasks(ctx context.Context, queues []string, limit int) ([]*task.Task, error) {
	if queues == nil {
		queues = []string{}
	}
	var lim any
	if limit > 0 {
		lim = limit
	}

	var models []taskModel
	_, err := s.db.NewRaw(`
		WITH claimed AS (
			UPDATE itemcast_tasks
			SET state = 'running', started_at = ?0, heartbeat_at = ?0, updated_at = ?0
			WHERE id IN (
				SELECT id FROM itemcast_tasks
				WHERE state IN ('pending', 'retrying')
				  AND run_at <= ?0
				  AND (cardinality(?1::text[]) = 0 OR queue = ANY(?1))
				ORDER BY run_at ASC, created_at ASC
				LIMIT ?2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING *
		)
		SELECT * FROM claimed ORDER BY run_at ASC, created_at ASC`,
		time.Now().UTC(), pgdialect.Array(queues), lim,
	).Exec(ctx, &models)
	if err != nil {
		return nil, fmt.Errorf("itemcast/bun: dequeue tasks: %w", err)
	}
	return fromTaskModels(models)
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	m := new(taskModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", taskID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, itemcast.ErrTaskNotFound
		}
		return nil, fmt.Errorf("itemcast/bun: get task: %w", err)
	}
	return fromTaskModel(m)
}

// UpdateTask persists changes to an existing task.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(toTaskModel(t)).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("itemcast/bun: update task: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return itemcast.ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, taskID id.TaskID) error {
	res, err := s.db.NewDelete().
		TableExpr("itemcast_tasks").
		Where("id = ?", taskID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("itemcast/bun: delete task: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return itemcast.ErrTaskNotFound
	}
	return nil
}

// ListTasksByState returns tasks in the given state, oldest first.
func (s *Store) ListTasksByState(ctx context.Context, state task.State, opts task.ListOpts) ([]*task.Task, error) {
	var models []taskModel
	q := s.db.NewSelect().Model(&models).
		Where("state = ?", string(state))

	if opts.Queue != "" {
		q = q.Where("queue = ?", opts.Queue)
	}

	q = q.Order("created_at ASC", "id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("itemcast/bun: list tasks by state: %w", err)
	}
	return fromTaskModels(models)
}

// HeartbeatTask records that the worker running a task is alive.
func (s *Store) HeartbeatTask(ctx context.Context, taskID id.TaskID, workerID id.WorkerID) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		TableExpr("itemcast_tasks").
		Set("heartbeat_at = ?", now).
		Set("worker_id = ?", workerID.String()).
		Set("updated_at = ?", now).
		Where("id = ?", taskID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("itemcast/bun: heartbeat task: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return itemcast.ErrTaskNotFound
	}
	return nil
}

// ReapStaleTasks returns running tasks whose last heartbeat is older than
// threshold.
func (s *Store) ReapStaleTasks(ctx context.Context, threshold time.Duration) ([]*task.Task, error) {
	var models []taskModel
	err := s.db.NewSelect().Model(&models).
		Where("state = 'running'").
		Where("heartbeat_at IS NOT NULL").
		Where("heartbeat_at < ?", time.Now().UTC().Add(-threshold)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("itemcast/bun: reap stale tasks: %w", err)
	}
	return fromTaskModels(models)
}

// CountTasks returns the number of tasks matching opts.
func (s *Store) CountTasks(ctx context.Context, opts task.CountOpts) (int64, error) {
	q := s.db.NewSelect().TableExpr("itemcast_tasks")

	if opts.Queue != "" {
		q = q.Where("queue = ?", opts.Queue)
	}
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}

	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("itemcast/bun: count tasks: %w", err)
	}
	return int64(count), nil
}
