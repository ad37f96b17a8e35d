package bunstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/store"
	"github.com/xraph/itemcast/task"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	_ task.Store  = (*Store)(nil)
	_ dlq.Store   = (*Store)(nil)
	_ store.Store = (*Store)(nil)
)

// Store is a Bun ORM implementation of store.Store using the PostgreSQL
// dialect. The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Bun store over db.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate runs the embedded SQL migrations not yet recorded in
// itemcast_migrations, in file name order.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS itemcast_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("itemcast/bun: create migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("itemcast/bun: read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var applied bool
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM itemcast_migrations WHERE filename = ?)`,
			entry.Name(),
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("itemcast/bun: check migration %s: %w", entry.Name(), err)
		}
		if applied {
			continue
		}

		data, readErr := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if readErr != nil {
			return fmt.Errorf("itemcast/bun: read migration %s: %w", entry.Name(), readErr)
		}
		if _, execErr := s.db.ExecContext(ctx, string(data)); execErr != nil {
			return fmt.Errorf("itemcast/bun: execute migration %s: %w", entry.Name(), execErr)
		}

		_, recErr := s.db.ExecContext(ctx,
			`INSERT INTO itemcast_migrations (filename) VALUES (?) ON CONFLICT DO NOTHING`,
			entry.Name(),
		)
		if recErr != nil {
			return fmt.Errorf("itemcast/bun: record migration %s: %w", entry.Name(), recErr)
		}

		s.logger.Info("applied migration", slog.String("file", entry.Name()))
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
