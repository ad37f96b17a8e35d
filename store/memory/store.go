// Package memory is an in-process implementation of store.Store. All
// workers must share the process; use store/redis to spread them out.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/task"
)

// We can't import store here (import cycle), so each subsystem is checked.
var (
	_ task.Store = (*Store)(nil)
	_ dlq.Store  = (*Store)(nil)
)

// Store keeps tasks and dead letter entries in maps. It is safe for
// concurrent use. Values are copied in and out so callers never share
// memory with the store.
type Store struct {
	mu     sync.RWMutex
	closed bool

	// seq orders records created in the same instant.
	seq   uint64
	tasks map[string]*record[task.Task]
	dlqs  map[string]*record[dlq.Entry]
}

type record[T any] struct {
	seq uint64
	val T
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		tasks: make(map[string]*record[task.Task]),
		dlqs:  make(map[string]*record[dlq.Entry]),
	}
}

// Migrate reopens a closed store; there is no schema.
func (m *Store) Migrate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	return nil
}

// Ping fails only after Close.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return itemcast.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Data is kept so results stay readable to
// tests; writes fail until Migrate is called again.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Store) next() uint64 {
	m.seq++
	return m.seq
}
