package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/id"
)

// PushDLQ adds a failed task entry to the dead letter queue.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	if _, err := s.db.NewInsert().Model(toDLQModel(entry)).Exec(ctx); err != nil {
		return fmt.Errorf("itemcast/bun: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns entries oldest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	var models []dlqEntryModel
	q := s.db.NewSelect().Model(&models)

	if opts.Queue != "" {
		q = q.Where("queue = ?", opts.Queue)
	}

	q = q.Order("failed_at ASC", "id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("itemcast/bun: list dlq: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(models))
	for i := range models {
		e, err := fromDLQModel(&models[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetDLQ retrieves an entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m := new(dlqEntryModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", entryID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, itemcast.ErrDLQNotFound
		}
		return nil, fmt.Errorf("itemcast/bun: get dlq: %w", err)
	}
	return fromDLQModel(m)
}

// ReplayDLQ marks an entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.DLQID) error {
	res, err := s.db.NewUpdate().
		TableExpr("itemcast_dlq").
		Set("replayed_at = ?", time.Now().UTC()).
		Where("id = ?", entryID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("itemcast/bun: replay dlq: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return itemcast.ErrDLQNotFound
	}
	return nil
}

// PurgeDLQ removes entries that failed before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		TableExpr("itemcast_dlq").
		Where("failed_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("itemcast/bun: purge dlq: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows, nil
}

// CountDLQ returns the number of entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.db.NewSelect().
		TableExpr("itemcast_dlq").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("itemcast/bun: count dlq: %w", err)
	}
	return int64(count), nil
}
