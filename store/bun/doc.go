// Package bunstore implements the store with the Bun ORM over PostgreSQL.
// It shares its schema with the postgres package, so the two backends can
// serve workers draining the same database. The caller owns the *bun.DB.
package bunstore
