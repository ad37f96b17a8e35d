package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/itemcast/ext"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/observability"
	"github.com/xraph/itemcast/task"
)

func setup(t *testing.T) (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func newTestTask() *task.Task {
	return &task.Task{ID: id.NewTaskID(), Name: "forecast", Queue: "forecast"}
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := setup(t)
	if e.Name() != "observability-metrics" {
		t.Errorf("unexpected name %q", e.Name())
	}
}

func TestMetricsExtension_CountsThroughRegistry(t *testing.T) {
	e, reader := setup(t)
	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	for range 3 {
		reg.EmitTaskSubmitted(ctx, newTestTask())
	}
	reg.EmitTaskCompleted(ctx, newTestTask(), time.Millisecond)
	reg.EmitTaskCompleted(ctx, newTestTask(), time.Millisecond)
	reg.EmitTaskFailed(ctx, newTestTask(), errors.New("no candidate"))
	reg.EmitTaskRetrying(ctx, newTestTask(), 1, time.Now())
	reg.EmitTaskDeadLettered(ctx, newTestTask(), errors.New("no candidate"))

	for name, want := range map[string]int64{
		"itemcast.task.submitted":     3,
		"itemcast.task.completed":     2,
		"itemcast.task.failed":        1,
		"itemcast.task.retried":       1,
		"itemcast.task.dead_lettered": 1,
	} {
		if got := counterValue(t, reader, name); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestMetricsExtension_BatchHistogram(t *testing.T) {
	e, reader := setup(t)
	if err := e.OnBatchCollected(context.Background(), id.NewBatchID(), 4, 1, 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "itemcast.batch.duration" {
				continue
			}
			hist := m.Data.(metricdata.Histogram[float64])
			dp := hist.DataPoints[0]
			if dp.Count != 1 || dp.Sum != 2 {
				t.Fatalf("unexpected data point %+v", dp)
			}
			if v, ok := dp.Attributes.Value("outcome"); !ok || v.AsString() != "partial" {
				t.Fatalf("expected outcome=partial, got %v", v)
			}
			return
		}
	}
	t.Fatal("itemcast.batch.duration not recorded")
}
