package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/itemcast/task"
)

// meterName is the instrumentation scope name for itemcast metrics.
const meterName = "github.com/xraph/itemcast"

// Metrics records per-execution metrics on the global MeterProvider.
//
// Instruments:
//   - itemcast.task.duration (Float64Histogram): execution time in
//     seconds, by task_name, queue and status ("ok" or "error")
//   - itemcast.task.executions (Int64Counter): executions, same attributes
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The API hands back noop instruments alongside any error.
	duration, _ := meter.Float64Histogram( //nolint:errcheck // noop fallback
		"itemcast.task.duration",
		metric.WithDescription("Duration of task execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter( //nolint:errcheck // noop fallback
		"itemcast.task.executions",
		metric.WithDescription("Total number of task executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, t *task.Task, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("task_name", t.Name),
			attribute.String("queue", t.Queue),
			attribute.String("status", status),
		)
		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)
		return err
	}
}
