package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/itemcast/task"
)

// tracerName is the instrumentation scope name for itemcast tracing.
const tracerName = "github.com/xraph/itemcast"

// Tracing wraps each execution in a span from the global TracerProvider.
// Without a configured provider the noop tracer makes this a pass-through.
//
// Span attributes: itemcast.task.id, itemcast.task.name,
// itemcast.task.label, itemcast.queue, itemcast.attempt.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		ctx, span := tracer.Start(ctx, "itemcast.task.execute",
			trace.WithAttributes(
				attribute.String("itemcast.task.id", t.ID.String()),
				attribute.String("itemcast.task.name", t.Name),
				attribute.String("itemcast.task.label", t.Label),
				attribute.String("itemcast.queue", t.Queue),
				attribute.Int("itemcast.attempt", t.Attempts),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
