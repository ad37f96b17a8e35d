package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

const taskColumns = `
	id, batch_id, name, label, queue, codec, payload, result, state,
	max_retries, attempts, last_error, worker_id,
	run_at, started_at, completed_at, heartbeat_at, timeout,
	created_at, updated_at`

// EnqueueTask persists a new task.
func (s *Store) EnqueueTask(ctx context.Context, t *task.Task) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO itemcast_tasks (`+taskColumns+`
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20
		)`,
		t.ID.String(), t.BatchID.String(), t.Name, t.Label, t.Queue, t.Codec, t.Payload, t.Result, string(t.State),
		t.MaxRetries, t.Attempts, t.LastError, t.WorkerID.String(),
		t.RunAt, t.StartedAt, t.CompletedAt, t.HeartbeatAt, t.Timeout.Nanoseconds(),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return itemcast.ErrTaskAlreadyExists
		}
		return fmt.Errorf("itemcast/postgres: enqueue task: %w", err)
	}
	return nil
}

// DequeueTasks claims up to limit runnable tasks, oldest RunAt first.
// Concurrent callers never claim the same row.
func (s *Store) DequeueTasks(ctx context.Context, queues []string, limit int) ([]*task.Task, error) {
	now := time.Now().UTC()
	query := `
		WITH claimed AS (
			UPDATE itemcast_tasks
			SET state = 'running', started_at = $1, heartbeat_at = $1, updated_at = $1
			WHERE id IN (
				SELECT id FROM itemcast_tasks
				WHERE state IN ('pending', 'retrying')
				  AND run_at <= $1
				  AND (cardinality($2::text[]) = 0 OR queue = ANY($2))
				ORDER BY run_at ASC, created_at ASC
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
			RETURNING ` + taskColumns + `
		)
		SELECT * FROM claimed ORDER BY run_at ASC, created_at ASC`
	if queues == nil {
		queues = []string{}
	}
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.pool.Query(ctx, query, now, queues, lim)
	if err != nil {
		return nil, fmt.Errorf("itemcast/postgres: dequeue tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM itemcast_tasks WHERE id = $1`, taskID.String())

	t, err := scanTask(row)
	if err != nil {
		if isNoRows(err) {
			return nil, itemcast.ErrTaskNotFound
		}
		return nil, fmt.Errorf("itemcast/postgres: get task: %w", err)
	}
	return t, nil
}

// UpdateTask persists changes to an existing task.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task) error {
	t.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE itemcast_tasks SET
			batch_id = $2, name = $3, label = $4, queue = $5, codec = $6,
			payload = $7, result = $8, state = $9,
			max_retries = $10, attempts = $11, last_error = $12, worker_id = $13,
			run_at = $14, started_at = $15, completed_at = $16, heartbeat_at = $17,
			timeout = $18, updated_at = $19
		WHERE id = $1`,
		t.ID.String(), t.BatchID.String(), t.Name, t.Label, t.Queue, t.Codec,
		t.Payload, t.Result, string(t.State),
		t.MaxRetries, t.Attempts, t.LastError, t.WorkerID.String(),
		t.RunAt, t.StartedAt, t.CompletedAt, t.HeartbeatAt,
		t.Timeout.Nanoseconds(), t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("itemcast/postgres: update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return itemcast.ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, taskID id.TaskID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM itemcast_tasks WHERE id = $1`, taskID.String())
	if err != nil {
		return fmt.Errorf("itemcast/postgres: delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return itemcast.ErrTaskNotFound
	}
	return nil
}

// ListTasksByState returns tasks in the given state, oldest first.
func (s *Store) ListTasksByState(ctx context.Context, state task.State, opts task.ListOpts) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM itemcast_tasks WHERE state = $1`
	args := []any{string(state)}
	argIdx := 2

	if opts.Queue != "" {
		query += fmt.Sprintf(" AND queue = $%d", argIdx)
		args = append(args, opts.Queue)
		argIdx++
	}

	query += " ORDER BY created_at ASC, id ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("itemcast/postgres: list tasks by state: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// HeartbeatTask records that the worker running a task is alive.
func (s *Store) HeartbeatTask(ctx context.Context, taskID id.TaskID, workerID id.WorkerID) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE itemcast_tasks SET heartbeat_at = $2, worker_id = $3, updated_at = $2 WHERE id = $1`,
		taskID.String(), now, workerID.String(),
	)
	if err != nil {
		return fmt.Errorf("itemcast/postgres: heartbeat task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return itemcast.ErrTaskNotFound
	}
	return nil
}

// ReapStaleTasks returns running tasks whose last heartbeat is older than
// threshold.
func (s *Store) ReapStaleTasks(ctx context.Context, threshold time.Duration) ([]*task.Task, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM itemcast_tasks
		WHERE state = 'running'
		  AND heartbeat_at IS NOT NULL
		  AND heartbeat_at < $1`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("itemcast/postgres: reap stale tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// CountTasks returns the number of tasks matching opts.
func (s *Store) CountTasks(ctx context.Context, opts task.CountOpts) (int64, error) {
	query := `SELECT COUNT(*) FROM itemcast_tasks WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Queue != "" {
		query += fmt.Sprintf(" AND queue = $%d", argIdx)
		args = append(args, opts.Queue)
		argIdx++
	}
	if opts.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, string(opts.State))
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("itemcast/postgres: count tasks: %w", err)
	}
	return count, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t         task.Task
		idStr     string
		batchStr  string
		stateStr  string
		workerStr string
		timeoutNs int64
	)
	err := row.Scan(
		&idStr, &batchStr, &t.Name, &t.Label, &t.Queue, &t.Codec, &t.Payload, &t.Result, &stateStr,
		&t.MaxRetries, &t.Attempts, &t.LastError, &workerStr,
		&t.RunAt, &t.StartedAt, &t.CompletedAt, &t.HeartbeatAt, &timeoutNs,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.State = task.State(stateStr)
	t.Timeout = time.Duration(timeoutNs)

	if t.ID, err = id.ParseTaskID(idStr); err != nil {
		return nil, fmt.Errorf("itemcast/postgres: %w", err)
	}
	if t.BatchID, err = parseOptionalID(batchStr, id.ParseBatchID); err != nil {
		return nil, err
	}
	if t.WorkerID, err = parseOptionalID(workerStr, id.ParseWorkerID); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTasks(rows pgx.Rows) ([]*task.Task, error) {
	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("itemcast/postgres: scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("itemcast/postgres: iterate task rows: %w", err)
	}
	return tasks, nil
}
