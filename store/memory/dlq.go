package memory

import (
	"context"
	"slices"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/id"
)

// PushDLQ adds a failed task entry.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return itemcast.ErrStoreClosed
	}
	m.dlqs[entry.ID.String()] = &record[dlq.Entry]{seq: m.next(), val: *entry}
	return nil
}

// ListDLQ returns entries oldest first.
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*record[dlq.Entry]
	for _, r := range m.dlqs {
		if opts.Queue != "" && r.val.Queue != opts.Queue {
			continue
		}
		matched = append(matched, r)
	}
	slices.SortFunc(matched, func(a, b *record[dlq.Entry]) int {
		if c := a.val.FailedAt.Compare(b.val.FailedAt); c != 0 {
			return c
		}
		return cmpSeq(a.seq, b.seq)
	})
	matched = page(matched, opts.Offset, opts.Limit)

	out := make([]*dlq.Entry, len(matched))
	for i, r := range matched {
		cp := r.val
		out[i] = &cp
	}
	return out, nil
}

// GetDLQ retrieves an entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.dlqs[entryID.String()]
	if !ok {
		return nil, itemcast.ErrDLQNotFound
	}
	cp := r.val
	return &cp, nil
}

// ReplayDLQ marks an entry as replayed.
func (m *Store) ReplayDLQ(_ context.Context, entryID id.DLQID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.dlqs[entryID.String()]
	if !ok {
		return itemcast.ErrDLQNotFound
	}
	now := time.Now().UTC()
	r.val.ReplayedAt = &now
	return nil
}

// PurgeDLQ removes entries that failed before the given time.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, r := range m.dlqs {
		if r.val.FailedAt.Before(before) {
			delete(m.dlqs, key)
			n++
		}
	}
	return n, nil
}

// CountDLQ returns the number of entries.
func (m *Store) CountDLQ(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.dlqs)), nil
}
