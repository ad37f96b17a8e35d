package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/id"
)

// PushDLQ adds a failed task entry.
func (s *Store) PushDLQ(ctx context.Context, entry *dlq.Entry) error {
	eID := entry.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.dlqKey(eID), dlqToMap(entry))
	pipe.ZAdd(ctx, s.dlqIDsKey(), goredis.Z{Score: float64(entry.FailedAt.UnixMilli()), Member: eID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("itemcast/redis: push dlq: %w", err)
	}
	return nil
}

// ListDLQ returns entries oldest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	ids, err := s.client.ZRange(ctx, s.dlqIDsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("itemcast/redis: list dlq: %w", err)
	}

	entries := make([]*dlq.Entry, 0, len(ids))
	for _, eID := range ids {
		vals, getErr := s.client.HGetAll(ctx, s.dlqKey(eID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		e, convErr := mapToDLQ(vals)
		if convErr != nil {
			continue
		}
		if opts.Queue != "" && e.Queue != opts.Queue {
			continue
		}
		entries = append(entries, e)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return nil, nil
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// GetDLQ retrieves an entry by ID.
func (s *Store) GetDLQ(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	vals, err := s.client.HGetAll(ctx, s.dlqKey(entryID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("itemcast/redis: get dlq: %w", err)
	}
	if len(vals) == 0 {
		return nil, itemcast.ErrDLQNotFound
	}
	return mapToDLQ(vals)
}

// ReplayDLQ marks an entry as replayed.
func (s *Store) ReplayDLQ(ctx context.Context, entryID id.DLQID) error {
	key := s.dlqKey(entryID.String())
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("itemcast/redis: replay dlq exists: %w", err)
	}
	if exists == 0 {
		return itemcast.ErrDLQNotFound
	}

	if err := s.client.HSet(ctx, key, "replayed_at", time.Now().UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("itemcast/redis: replay dlq: %w", err)
	}
	return nil
}

// PurgeDLQ removes entries that failed before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.dlqIDsKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("itemcast/redis: purge dlq range: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, eID := range ids {
		keys[i] = s.dlqKey(eID)
		members[i] = eID
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, s.dlqIDsKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("itemcast/redis: purge dlq: %w", err)
	}
	return int64(len(ids)), nil
}

// CountDLQ returns the number of entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.dlqIDsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("itemcast/redis: count dlq: %w", err)
	}
	return n, nil
}

// ── helpers ──

func dlqToMap(e *dlq.Entry) map[string]interface{} {
	m := map[string]interface{}{
		"id":          e.ID.String(),
		"task_id":     e.TaskID.String(),
		"batch_id":    e.BatchID.String(),
		"task_name":   e.TaskName,
		"label":       e.Label,
		"queue":       e.Queue,
		"codec":       e.Codec,
		"payload":     string(e.Payload),
		"error":       e.Error,
		"attempts":    strconv.Itoa(e.Attempts),
		"max_retries": strconv.Itoa(e.MaxRetries),
		"failed_at":   e.FailedAt.Format(time.RFC3339Nano),
		"created_at":  e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.ReplayedAt != nil {
		m["replayed_at"] = e.ReplayedAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToDLQ(m map[string]string) (*dlq.Entry, error) {
	eID, err := id.ParseDLQID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("itemcast/redis: parse dlq id: %w", err)
	}
	taskID, _ := id.ParseTaskID(m["task_id"])       //nolint:errcheck // best-effort parse from trusted Redis data
	attempts, _ := strconv.Atoi(m["attempts"])      //nolint:errcheck // best-effort parse from trusted Redis data
	maxRetries, _ := strconv.Atoi(m["max_retries"]) //nolint:errcheck // best-effort parse from trusted Redis data

	e := &dlq.Entry{
		ID:         eID,
		TaskID:     taskID,
		TaskName:   m["task_name"],
		Label:      m["label"],
		Queue:      m["queue"],
		Codec:      m["codec"],
		Payload:    []byte(m["payload"]),
		Error:      m["error"],
		Attempts:   attempts,
		MaxRetries: maxRetries,
		FailedAt:   parseTime(m["failed_at"]),
		ReplayedAt: parseTimePtr(m["replayed_at"]),
		CreatedAt:  parseTime(m["created_at"]),
	}
	if v := m["batch_id"]; v != "" {
		e.BatchID, _ = id.ParseBatchID(v) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	return e, nil
}
