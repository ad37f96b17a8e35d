package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/itemcast/ext"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*MetricsExtension)(nil)
	_ ext.TaskSubmitted    = (*MetricsExtension)(nil)
	_ ext.TaskCompleted    = (*MetricsExtension)(nil)
	_ ext.TaskFailed       = (*MetricsExtension)(nil)
	_ ext.TaskRetrying     = (*MetricsExtension)(nil)
	_ ext.TaskDeadLettered = (*MetricsExtension)(nil)
	_ ext.BatchCollected   = (*MetricsExtension)(nil)
)

// meterName is the instrumentation scope of the lifecycle metrics.
const meterName = "github.com/xraph/itemcast/observability"

// MetricsExtension records lifecycle counters for every task and a
// duration histogram for every collected batch.
type MetricsExtension struct {
	submitted    metric.Int64Counter
	completed    metric.Int64Counter
	failed       metric.Int64Counter
	retried      metric.Int64Counter
	deadLettered metric.Int64Counter
	batch        metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on meter.
// Instrument errors leave noop instruments in place.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("{task}")) //nolint:errcheck // noop fallback
		return c
	}
	batch, _ := meter.Float64Histogram("itemcast.batch.duration", //nolint:errcheck // noop fallback
		metric.WithDescription("Time spent waiting in a collect barrier"),
		metric.WithUnit("s"),
	)
	return &MetricsExtension{
		submitted:    counter("itemcast.task.submitted", "Tasks persisted"),
		completed:    counter("itemcast.task.completed", "Tasks completed with a stored result"),
		failed:       counter("itemcast.task.failed", "Tasks failed with no retries left"),
		retried:      counter("itemcast.task.retried", "Task retries scheduled"),
		deadLettered: counter("itemcast.task.dead_lettered", "Failed tasks copied to the dead letter queue"),
		batch:        batch,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func nameAttr(t *task.Task) metric.AddOption {
	return metric.WithAttributes(attribute.String("task_name", t.Name))
}

// OnTaskSubmitted implements ext.TaskSubmitted.
func (m *MetricsExtension) OnTaskSubmitted(ctx context.Context, t *task.Task) error {
	m.submitted.Add(ctx, 1, nameAttr(t))
	return nil
}

// OnTaskCompleted implements ext.TaskCompleted.
func (m *MetricsExtension) OnTaskCompleted(ctx context.Context, t *task.Task, _ time.Duration) error {
	m.completed.Add(ctx, 1, nameAttr(t))
	return nil
}

// OnTaskFailed implements ext.TaskFailed.
func (m *MetricsExtension) OnTaskFailed(ctx context.Context, t *task.Task, _ error) error {
	m.failed.Add(ctx, 1, nameAttr(t))
	return nil
}

// OnTaskRetrying implements ext.TaskRetrying.
func (m *MetricsExtension) OnTaskRetrying(ctx context.Context, t *task.Task, _ int, _ time.Time) error {
	m.retried.Add(ctx, 1, nameAttr(t))
	return nil
}

// OnTaskDeadLettered implements ext.TaskDeadLettered.
func (m *MetricsExtension) OnTaskDeadLettered(ctx context.Context, t *task.Task, _ error) error {
	m.deadLettered.Add(ctx, 1, nameAttr(t))
	return nil
}

// OnBatchCollected implements ext.BatchCollected.
func (m *MetricsExtension) OnBatchCollected(ctx context.Context, _ id.BatchID, completed, failed int, elapsed time.Duration) error {
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	if completed == 0 && failed > 0 {
		outcome = "failed"
	}
	m.batch.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	return nil
}
