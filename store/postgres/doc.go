// Package postgres implements the store with pgx/v5 and raw SQL. Dequeue
// claims tasks with FOR UPDATE SKIP LOCKED, so any number of worker
// processes can drain the same queue. Schema migrations are embedded SQL
// files applied in name order.
package postgres
