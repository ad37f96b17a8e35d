// Package engine wires the dispatch subsystems together: store, task
// registry, middleware chain, worker pool, dead letter queue and
// extensions. It is the backend the harness fans per-item work out to.
//
// The package sits above the subsystem packages so the root itemcast
// package, which they all import, does not have to import them back.
//
// # Lifecycle
//
//	eng, err := engine.New(memory.New(),
//	    engine.WithConcurrency(8),
//	    engine.WithLogger(logger),
//	)
//	engine.Register(eng, task.NewDefinition("forecast", handler))
//
//	if err := eng.Open(ctx); err != nil {
//	    return err
//	}
//	defer eng.Close(ctx)
//
// # Submitting and collecting
//
//	h, err := eng.Submit(ctx, "forecast", partition, task.WithLabel(partition.Item))
//	completions, err := eng.Collect(ctx, []id.TaskID{h})
//
// Collect is a barrier: it returns once every handle is completed, failed
// or cancelled. With [StopOnFailure] it returns at the first failure and
// cancels the rest.
//
// # Options
//
//   - [WithConcurrency] sets local workers; zero submits only
//   - [WithCodec] picks msgpack (default) or JSON payloads
//   - [WithExtension] and [WithMiddleware] extend task execution
//   - [WithBackoff] sets the retry delay strategy
//   - [WithQueueConfig] limits per-queue concurrency and rate
//   - [WithTracerProvider] and [WithMeterProvider] set OTel providers
package engine
