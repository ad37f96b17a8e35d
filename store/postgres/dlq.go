package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/id"
)

const dlqColumns = `
	id, task_id, batch_id, task_name, label, queue, codec, payload, error,
	attempts, max_retries, failed_at, replayed_at, created_at`

// PushDLQ adds a failed task entry to the dead letter queue.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO itemcast_dlq (`+dlqColumns+`
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		entry.ID.String(), entry.TaskID.String(), entry.BatchID.String(), entry.TaskName,
		entry.Label, entry.Queue, entry.Codec, entry.Payload, entry.Error,
		entry.Attempts, entry.MaxRetries, entry.FailedAt, entry.ReplayedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("itemcast/postgres: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns entries oldest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	query := `SELECT ` + dlqColumns + ` FROM itemcast_dlq WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Queue != "" {
		query += fmt.Sprintf(" AND queue = $%d", argIdx)
		args = append(args, opts.Queue)
		argIdx++
	}

	query += " ORDER BY failed_at ASC, id ASC"

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
		return nil, fmt.Errorf("itemcast/postgres: list dlq: %w", err)
	}
	defer rows.Close()

	var entries []*dlq.Entry
	for rows.Next() {
		e, err := scanDLQ(rows)
		if err != nil {
			return nil, fmt.Errorf("itemcast/postgres: scan dlq row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("itemcast/postgres: iterate dlq rows: %w", err)
	}
	return entries, nil
}

// GetDLQ retrieves an entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+dlqColumns+` FROM itemcast_dlq WHERE id = $1`, entryID.String())

	e, err := scanDLQ(row)
	if err != nil {
		if isNoRows(err) {
			return nil, itemcast.ErrDLQNotFound
		}
		return nil, fmt.Errorf("itemcast/postgres: get dlq: %w", err)
	}
	return e, nil
}

// ReplayDLQ marks an entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.DLQID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE itemcast_dlq SET replayed_at = $2 WHERE id = $1`,
		entryID.String(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("itemcast/postgres: replay dlq: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return itemcast.ErrDLQNotFound
	}
	return nil
}

// PurgeDLQ removes entries that failed before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM itemcast_dlq WHERE failed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("itemcast/postgres: purge dlq: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountDLQ returns the number of entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM itemcast_dlq`).Scan(&count); err != nil {
		return 0, fmt.Errorf("itemcast/postgres: count dlq: %w", err)
	}
	return count, nil
}

func scanDLQ(row pgx.Row) (*dlq.Entry, error) {
	var (
		e                        dlq.Entry
		idStr, taskStr, batchStr string
	)
	err := row.Scan(
		&idStr, &taskStr, &batchStr, &e.TaskName, &e.Label, &e.Queue, &e.Codec, &e.Payload, &e.Error,
		&e.Attempts, &e.MaxRetries, &e.FailedAt, &e.ReplayedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.ID, err = id.ParseDLQID(idStr); err != nil {
		return nil, fmt.Errorf("itemcast/postgres: %w", err)
	}
	if e.TaskID, err = id.ParseTaskID(taskStr); err != nil {
		return nil, fmt.Errorf("itemcast/postgres: %w", err)
	}
	if e.BatchID, err = parseOptionalID(batchStr, id.ParseBatchID); err != nil {
		return nil, err
	}
	return &e, nil
}
