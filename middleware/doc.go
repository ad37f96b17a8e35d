// Package middleware provides composable middleware for task execution.
//
// A [Middleware] wraps the call to a task's handler. The worker composes
// them with [Chain]; the first middleware in the list is the outermost.
//
//	chain := middleware.Chain(
//	    middleware.Tracing(),
//	    middleware.Metrics(),
//	    middleware.Recover(logger),
//	    middleware.Logging(logger),
//	    middleware.Timeout(10*time.Minute),
//	)
//
// Built in:
//
//   - [Logging]: task name, label, duration and outcome
//   - [Recover]: turns panics into errors
//   - [Timeout]: per-execution deadline
//   - [Tracing]: an OpenTelemetry span per execution
//   - [Metrics]: an OpenTelemetry duration histogram and execution counter
package middleware
