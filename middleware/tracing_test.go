package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	mw "github.com/xraph/itemcast/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	tk := newTestTask()

	if err := mw.TracingWithTracer(tracer)(context.Background(), tk, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "itemcast.task.execute" {
		t.Errorf("unexpected span name %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected status Ok, got %v", spans[0].Status().Code)
	}

	expected := map[string]any{
		"itemcast.task.id":    tk.ID.String(),
		"itemcast.task.name":  "forecast",
		"itemcast.task.label": "SKU-7",
		"itemcast.queue":      "forecast",
		"itemcast.attempt":    int64(2),
	}
	got := make(map[string]any)
	for _, a := range spans[0].Attributes() {
		switch a.Value.Type() {
		case attribute.STRING:
			got[string(a.Key)] = a.Value.AsString()
		case attribute.INT64:
			got[string(a.Key)] = a.Value.AsInt64()
		}
	}
	for key, want := range expected {
		if got[key] != want {
			t.Errorf("attribute %q = %v, want %v", key, got[key], want)
		}
	}
}

func TestTracing_Error_SetsErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	handlerErr := errors.New("model fit failed")

	err := mw.TracingWithTracer(tracer)(context.Background(), newTestTask(), func(context.Context) error {
		return handlerErr
	})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error, got %v", err)
	}

	span := sr.Ended()[0]
	if span.Status().Code != codes.Error || span.Status().Description != "model fit failed" {
		t.Errorf("unexpected status %+v", span.Status())
	}
	found := false
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			found = true
		}
	}
	if !found {
		t.Error("expected an exception event on the span")
	}
}

func TestTracing_PropagatesContext(t *testing.T) {
	sr, tracer := setupTestTracer()

	var inner trace.SpanContext
	_ = mw.TracingWithTracer(tracer)(context.Background(), newTestTask(), func(ctx context.Context) error {
		inner = trace.SpanFromContext(ctx).SpanContext()
		return nil
	})

	if !inner.IsValid() || inner.TraceID() != sr.Ended()[0].SpanContext().TraceID() {
		t.Error("handler did not receive the middleware span context")
	}
}

func TestTracing_DefaultNoopSafe(t *testing.T) {
	called := false
	err := mw.Tracing()(context.Background(), newTestTask(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected pass-through, err=%v called=%v", err, called)
	}
}
