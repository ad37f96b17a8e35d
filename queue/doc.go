// Package queue limits how fast and how many tasks of a queue start in a
// worker pool.
//
// A forecast batch is CPU bound. A worker process sharing a host can cap
// its forecast queue below the pool size, or rate limit it, without
// shrinking the pool:
//
//	qm := queue.NewManager(queue.Config{Name: "forecast", MaxConcurrency: 2})
//
// The worker pool calls [Manager.Acquire] before running a dequeued task
// and [Manager.Release] when it finishes. A task refused by Acquire is
// handed back to the store for a later poll.
package queue
