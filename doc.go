// Package itemcast forecasts a future window independently for every item
// of a monthly sales dataset and checks that fanning the per-item work out
// across a task-dispatch backend yields exactly the results of a serial run.
//
// The module is organised as a small set of packages:
//
//   - series: months, records, item partitions, prediction tables
//   - model: the pluggable search/rank/finalize/forecast capability, with
//     a concrete ARIMA family in model/arima
//   - forecast: the per-item forecasting policy
//   - engine, worker, task, queue, dlq: the dispatch backend
//   - store: task persistence, with memory, redis, postgres and bun backends
//   - middleware, observability: logging, tracing and metrics around tasks
//   - dataset: CSV and Excel loading and prediction output
//   - harness: serial and distributed runs plus reconciliation
//   - cmd/itemcast: the command-line front end and standalone worker
//
// # Quick Start
//
//	policy, err := forecast.New(models, forecast.WithLogger(logger))
//
//	serial, err := harness.RunSerial(ctx, ds, policy)
//
//	eng, err := engine.New(memory.New(), engine.WithConcurrency(8))
//	harness.RegisterForecastTask(eng, policy)
//	if err := eng.Open(ctx); err != nil { ... }
//	defer eng.Close(ctx)
//
//	distributed, err := harness.RunDistributed(ctx, ds, eng)
//	report := harness.Reconcile(serial.Predictions, distributed.Predictions)
//
// harness.Run performs both runs and the reconciliation in one call.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package itemcast
