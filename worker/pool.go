package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/itemcast/ext"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// QueueManager gates task starts per queue. The pool calls Acquire before
// executing a dequeued task and Release once it finishes.
type QueueManager interface {
	Acquire(queue string) bool
	Release(queue string)
}

// Pool runs a fixed number of goroutines that poll the store for runnable
// tasks and execute them.
type Pool struct {
	store        task.Store
	executor     *Executor
	extensions   *ext.Registry
	concurrency  int
	queues       []string
	pollInterval time.Duration
	workerID     id.WorkerID
	logger       *slog.Logger

	heartbeatInterval time.Duration
	staleThreshold    time.Duration

	queueManager QueueManager

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	activeMu sync.Mutex
	active   map[string]context.CancelFunc
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPoolQueues sets the queues the pool polls. Empty polls every queue.
func WithPoolQueues(queues []string) PoolOption {
	return func(p *Pool) { p.queues = queues }
}

// WithPollInterval sets how long an idle worker waits between polls.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithHeartbeatInterval sets how often running tasks are heartbeated. Zero
// disables heartbeats.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithStaleThreshold sets how old a running task's heartbeat may get
// before the task is handed back to the queue. Zero disables reaping.
func WithStaleThreshold(d time.Duration) PoolOption {
	return func(p *Pool) { p.staleThreshold = d }
}

// WithQueueManager sets the per-queue limiter.
func WithQueueManager(m QueueManager) PoolOption {
	return func(p *Pool) { p.queueManager = m }
}

// NewPool creates a worker pool.
func NewPool(
	store task.Store,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		store:        store,
		executor:     executor,
		extensions:   extensions,
		concurrency:  4,
		pollInterval: 50 * time.Millisecond,
		workerID:     id.NewWorkerID(),
		logger:       logger,
		active:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the identifier this pool stamps on claimed tasks.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the worker goroutines and returns immediately. Starting a
// running pool is a no-op.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
		slog.Any("queues", p.queues),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.dequeueLoop()
	}
	if p.heartbeatInterval > 0 {
		p.wg.Add(1)
		go p.every(p.heartbeatInterval, p.sendHeartbeats)
	}
	if p.staleThreshold > 0 {
		p.wg.Add(1)
		go p.every(p.staleThreshold, p.reapStale)
	}
	return nil
}

// Stop signals the workers to stop and waits for running tasks to finish.
// When ctx expires first, running tasks are cancelled and handed back to
// the queue.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling running tasks")
		p.cancelAll()
		<-done
	}
	return nil
}

// Cancel interrupts taskID if this pool is running it.
func (p *Pool) Cancel(taskID id.TaskID) bool {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	cancel, ok := p.active[taskID.String()]
	if ok {
		cancel()
	}
	return ok
}

func (p *Pool) dequeueLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		tasks, err := p.store.DequeueTasks(context.Background(), p.queues, 1)
		if err != nil {
			p.logger.Error("dequeue error", slog.String("error", err.Error()))
			p.sleep()
			continue
		}
		if len(tasks) == 0 {
			p.sleep()
			continue
		}
		p.run(tasks[0])
	}
}

func (p *Pool) run(t *task.Task) {
	if p.queueManager != nil && !p.queueManager.Acquire(t.Queue) {
		// Over the queue's limit: put it back and try again later.
		t.State = task.StatePending
		t.RunAt = time.Now().UTC().Add(p.pollInterval)
		t.StartedAt = nil
		t.HeartbeatAt = nil
		if err := p.store.UpdateTask(context.Background(), t); err != nil {
			p.logger.Error("failed to return rate-limited task",
				slog.String("task_id", t.ID.String()),
				slog.String("error", err.Error()),
			)
		}
		p.sleep()
		return
	}
	if p.queueManager != nil {
		defer p.queueManager.Release(t.Queue)
	}

	t.WorkerID = p.workerID
	p.extensions.EmitTaskStarted(context.Background(), t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	key := t.ID.String()
	p.activeMu.Lock()
	p.active[key] = cancel
	p.activeMu.Unlock()

	if err := p.executor.Execute(ctx, t); err != nil {
		p.logger.Debug("task execution failed",
			slog.String("task_id", key),
			slog.String("task_name", t.Name),
			slog.String("error", err.Error()),
		)
	}

	p.activeMu.Lock()
	delete(p.active, key)
	p.activeMu.Unlock()
}

func (p *Pool) every(d time.Duration, fn func()) {
	defer p.wg.Done()

	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (p *Pool) sendHeartbeats() {
	p.activeMu.Lock()
	keys := make([]string, 0, len(p.active))
	for k := range p.active {
		keys = append(keys, k)
	}
	p.activeMu.Unlock()

	for _, k := range keys {
		taskID, err := id.ParseTaskID(k)
		if err != nil {
			continue
		}
		if err := p.store.HeartbeatTask(context.Background(), taskID, p.workerID); err != nil {
			p.logger.Warn("heartbeat failed",
				slog.String("task_id", k),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Pool) reapStale() {
	stale, err := p.store.ReapStaleTasks(context.Background(), p.staleThreshold)
	if err != nil {
		p.logger.Error("reap stale tasks error", slog.String("error", err.Error()))
		return
	}

	for _, t := range stale {
		t.State = task.StatePending
		t.RunAt = time.Now().UTC()
		t.WorkerID = id.WorkerID{}
		t.StartedAt = nil
		t.HeartbeatAt = nil

		if err := p.store.UpdateTask(context.Background(), t); err != nil {
			p.logger.Error("failed to reset stale task",
				slog.String("task_id", t.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.logger.Info("reaped stale task",
			slog.String("task_id", t.ID.String()),
			slog.String("label", t.Label),
		)
	}
}

func (p *Pool) sleep() {
	select {
	case <-time.After(p.pollInterval):
	case <-p.stopCh:
	}
}

func (p *Pool) cancelAll() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for k, cancel := range p.active {
		p.logger.Warn("cancelling running task", slog.String("task_id", k))
		cancel()
	}
}
