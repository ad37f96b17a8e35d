// Package observability provides an extension that turns task lifecycle
// events into OpenTelemetry metrics.
//
//	eng, _ := engine.New(store, engine.WithExtension(observability.NewMetricsExtension()))
//
// Counters: itemcast.task.submitted, itemcast.task.completed,
// itemcast.task.failed, itemcast.task.retried and
// itemcast.task.dead_lettered, each by task_name. The
// itemcast.batch.duration histogram records every collect barrier by
// outcome ("ok", "partial" or "failed").
//
// Per-execution duration lives in the middleware package; this package
// counts state transitions.
package observability
