package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/backoff"
	"github.com/xraph/itemcast/codec"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/ext"
	"github.com/xraph/itemcast/id"
	mw "github.com/xraph/itemcast/middleware"
	"github.com/xraph/itemcast/observability"
	"github.com/xraph/itemcast/queue"
	"github.com/xraph/itemcast/store"
	"github.com/xraph/itemcast/task"
	"github.com/xraph/itemcast/worker"
)

const instrumentation = "github.com/xraph/itemcast"

// Engine is a task-dispatch backend. Tasks are persisted to a store,
// executed by a local worker pool (and by any other process draining the
// same store) and their results read back with Collect.
//
// An Engine is a scoped resource: call Open before the first Submit and
// defer Close right after.
type Engine struct {
	cfg        itemcast.Config
	store      store.Store
	codec      codec.Codec
	extensions *ext.Registry
	registry   *task.Registry
	dlqService *dlq.Service
	bo         backoff.Strategy
	pool       *worker.Pool
	logger     *slog.Logger

	exts         []ext.Extension
	mws          []mw.Middleware
	queueConfigs []queue.Config
	queueManager *queue.Manager

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	mu   sync.Mutex
	open bool
}

// New creates an Engine over s. Options are applied to
// itemcast.DefaultConfig.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, itemcast.ErrNoStore
	}

	eng := &Engine{
		cfg:    itemcast.DefaultConfig(),
		store:  s,
		codec:  codec.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.cfg.Queue == "" {
		return nil, fmt.Errorf("%w: queue name is required", itemcast.ErrInvalidSetting)
	}
	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}
	def := itemcast.DefaultConfig()
	if eng.cfg.PollInterval <= 0 {
		eng.cfg.PollInterval = def.PollInterval
	}
	if eng.cfg.CollectInterval <= 0 {
		eng.cfg.CollectInterval = def.CollectInterval
	}
	if eng.cfg.ShutdownTimeout <= 0 {
		eng.cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	eng.registry = task.NewRegistry(eng.codec)
	eng.dlqService = dlq.NewService(s, s)

	var obs *observability.MetricsExtension
	if eng.meterProvider != nil {
		obs = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter(instrumentation + "/observability"))
	} else {
		obs = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obs)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	tracing := mw.Tracing()
	if eng.tracerProvider != nil {
		tracing = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentation))
	}
	metrics := mw.Metrics()
	if eng.meterProvider != nil {
		metrics = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentation))
	}

	// recover -> tracing -> metrics -> logging -> timeout -> caller's
	chain := make([]mw.Middleware, 0, 5+len(eng.mws))
	chain = append(chain,
		mw.Recover(eng.logger),
		tracing,
		metrics,
		mw.Logging(eng.logger),
		mw.Timeout(eng.cfg.TaskTimeout),
	)
	chain = append(chain, eng.mws...)

	if eng.cfg.Concurrency > 0 {
		executor := worker.NewExecutor(eng.registry, eng.extensions, s, eng.dlqService, eng.bo, eng.logger, chain...)
		poolOpts := []worker.PoolOption{
			worker.WithPoolConcurrency(eng.cfg.Concurrency),
			worker.WithPoolQueues([]string{eng.cfg.Queue}),
			worker.WithPollInterval(eng.cfg.PollInterval),
			worker.WithHeartbeatInterval(eng.cfg.HeartbeatInterval),
			worker.WithStaleThreshold(eng.cfg.StaleTaskThreshold),
		}
		if len(eng.queueConfigs) > 0 {
			eng.queueManager = queue.NewManager(eng.queueConfigs...)
			poolOpts = append(poolOpts, worker.WithQueueManager(eng.queueManager))
		}
		eng.pool = worker.NewPool(s, executor, eng.extensions, eng.logger, poolOpts...)
	}

	return eng, nil
}

// Register registers a typed task definition with the engine. Every
// process that executes the task must register the same definition.
func Register[In, Out any](eng *Engine, def *task.Definition[In, Out]) {
	task.RegisterDefinition(eng.registry, def)
}

// Open prepares the store and starts the local worker pool. Opening an
// open engine is a no-op.
func (eng *Engine) Open(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.open {
		return nil
	}

	if err := eng.store.Migrate(ctx); err != nil {
		return fmt.Errorf("itemcast: migrate store: %w", err)
	}
	if err := eng.store.Ping(ctx); err != nil {
		return fmt.Errorf("itemcast: ping store: %w", err)
	}
	if eng.pool != nil {
		if err := eng.pool.Start(ctx); err != nil {
			return fmt.Errorf("itemcast: start worker pool: %w", err)
		}
	}
	eng.open = true

	eng.logger.Info("engine opened",
		slog.String("queue", eng.cfg.Queue),
		slog.Int("concurrency", eng.cfg.Concurrency),
		slog.String("codec", eng.codec.Name()),
	)
	return nil
}

// Close stops the worker pool, waiting up to ShutdownTimeout for running
// tasks, notifies extensions and closes the store. Closing a closed engine
// is a no-op.
func (eng *Engine) Close(ctx context.Context) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if !eng.open {
		return nil
	}
	eng.open = false

	var errs []error
	if eng.pool != nil {
		stopCtx, cancel := context.WithTimeout(ctx, eng.cfg.ShutdownTimeout)
		if err := eng.pool.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop worker pool: %w", err))
		}
		cancel()
	}
	eng.extensions.EmitShutdown(ctx)
	if err := eng.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	eng.logger.Info("engine closed")
	return errors.Join(errs...)
}

// Run opens the engine, blocks until ctx is done and closes it. It is the
// body of a standalone worker process.
func (eng *Engine) Run(ctx context.Context) error {
	if err := eng.Open(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return eng.Close(context.WithoutCancel(ctx))
}

func (eng *Engine) isOpen() bool {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.open
}

// Submit encodes args with the engine's codec and persists one task for
// the named definition. The returned ID is the handle passed to Collect.
func (eng *Engine) Submit(ctx context.Context, name string, args any, opts ...task.Option) (id.TaskID, error) {
	if !eng.isOpen() {
		return id.TaskID{}, itemcast.ErrNotOpen
	}

	payload, err := eng.codec.Marshal(args)
	if err != nil {
		return id.TaskID{}, fmt.Errorf("itemcast: encode argument for task %q: %w", name, err)
	}

	o, _ := eng.registry.Options(name)
	for _, opt := range opts {
		opt(&o)
	}
	if o.Queue == "" {
		o.Queue = eng.cfg.Queue
	}

	t := &task.Task{
		Entity:     itemcast.NewEntity(),
		ID:         id.NewTaskID(),
		BatchID:    o.Batch,
		Name:       name,
		Label:      o.Label,
		Queue:      o.Queue,
		Codec:      eng.codec.Name(),
		Payload:    payload,
		State:      task.StatePending,
		MaxRetries: o.MaxRetries,
		Timeout:    o.Timeout,
		RunAt:      time.Now().UTC(),
	}
	if !o.RunAt.IsZero() {
		t.RunAt = o.RunAt.UTC()
	}

	if err := eng.store.EnqueueTask(ctx, t); err != nil {
		return id.TaskID{}, fmt.Errorf("itemcast: submit task %q: %w", name, err)
	}
	eng.extensions.EmitTaskSubmitted(ctx, t)
	return t.ID, nil
}

// Cancel marks a task cancelled and interrupts it if the local pool is
// running it. Tasks on remote workers finish their current run but their
// outcome is discarded.
func (eng *Engine) Cancel(ctx context.Context, taskID id.TaskID) error {
	t, err := eng.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.State.Terminal() {
		return fmt.Errorf("%w: task %s is %s", itemcast.ErrInvalidState, taskID, t.State)
	}

	now := time.Now().UTC()
	t.State = task.StateCancelled
	t.CompletedAt = &now
	if err := eng.store.UpdateTask(ctx, t); err != nil {
		return err
	}
	if eng.pool != nil {
		eng.pool.Cancel(taskID)
	}
	return nil
}

// Config returns the engine configuration.
func (eng *Engine) Config() itemcast.Config { return eng.cfg }

// Codec returns the codec tasks are encoded with.
func (eng *Engine) Codec() codec.Codec { return eng.codec }

// Registry returns the task registry.
func (eng *Engine) Registry() *task.Registry { return eng.registry }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// DLQ returns the dead letter service for inspection and replay.
func (eng *Engine) DLQ() *dlq.Service { return eng.dlqService }

// QueueManager returns the queue limiter, or nil when no queue configs
// were given.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }
