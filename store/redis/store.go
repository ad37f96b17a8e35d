package redis

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/task"
)

var (
	_ task.Store = (*Store)(nil)
	_ dlq.Store  = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPrefix namespaces keys, so several runs can share one Redis.
func WithPrefix(p string) Option {
	return func(s *Store) { s.prefix = p }
}

// Store implements store.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	prefix string
	logger *slog.Logger
}

// New creates a Redis-backed store. The caller owns the client.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Migrate loads the claim script so the first dequeue does not pay for
// it.
func (s *Store) Migrate(ctx context.Context) error {
	return claimScript.Load(ctx, s.client).Err()
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the client.
func (s *Store) Close() error { return nil }
