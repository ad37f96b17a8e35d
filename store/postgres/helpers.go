package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/itemcast/id"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isDuplicateKey checks if a PostgreSQL error is a unique_violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// parseOptionalID parses an ID column that stores the nil ID as "".
func parseOptionalID(s string, parse func(string) (id.ID, error)) (id.ID, error) {
	if s == "" {
		return id.Nil, nil
	}
	v, err := parse(s)
	if err != nil {
		return id.Nil, fmt.Errorf("itemcast/postgres: %w", err)
	}
	return v, nil
}
