package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config limits one queue.
type Config struct {
	// Name must match task.Queue.
	Name string

	// MaxConcurrency caps how many of the queue's tasks run at once in the
	// local pool. Zero leaves only the pool-wide limit.
	MaxConcurrency int

	// RateLimit is the sustained number of tasks per second that may
	// start. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the token-bucket burst; 1 when RateLimit is set and
	// RateBurst is zero.
	RateBurst int
}

type state struct {
	cfg     Config
	limiter *rate.Limiter
	active  int
}

func newState(cfg Config) *state {
	s := &state{cfg: cfg}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return s
}

// Manager enforces per-queue concurrency and rate limits. Queues without a
// configuration are unlimited. It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	queues map[string]*state
}

// NewManager creates a Manager for the given queues.
func NewManager(configs ...Config) *Manager {
	m := &Manager{queues: make(map[string]*state, len(configs))}
	for _, cfg := range configs {
		m.queues[cfg.Name] = newState(cfg)
	}
	return m
}

// Acquire reports whether a task from queue may start now and, if so,
// counts it as active. Every successful Acquire must be paired with a
// Release.
func (m *Manager) Acquire(queue string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.queues[queue]
	if s == nil {
		return true
	}
	if s.cfg.MaxConcurrency > 0 && s.active >= s.cfg.MaxConcurrency {
		return false
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return false
	}
	s.active++
	return true
}

// Release marks one task from queue as finished.
func (m *Manager) Release(queue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.queues[queue]; s != nil && s.active > 0 {
		s.active--
	}
}

// SetQueueConfig adds or replaces a queue's limits, keeping its active
// count.
func (m *Manager) SetQueueConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newState(cfg)
	if old := m.queues[cfg.Name]; old != nil {
		s.active = old.active
	}
	m.queues[cfg.Name] = s
}

// ActiveCount returns the number of active tasks counted for queue.
func (m *Manager) ActiveCount(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.queues[queue]; s != nil {
		return s.active
	}
	return 0
}
