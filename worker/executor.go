// Package worker runs submitted tasks. An Executor invokes one task's
// registered handler through the middleware chain and records the
// outcome; a Pool runs executors on polling goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/backoff"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/ext"
	"github.com/xraph/itemcast/middleware"
	"github.com/xraph/itemcast/task"
)

// Executor runs a single task through middleware and its handler, then
// stores the result or schedules a retry or dead-letters the task.
type Executor struct {
	registry   *task.Registry
	extensions *ext.Registry
	store      task.Store
	dlqService *dlq.Service
	backoff    backoff.Strategy
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor. A nil strategy uses
// backoff.DefaultStrategy and a nil dlqService skips dead-lettering.
func NewExecutor(
	registry *task.Registry,
	extensions *ext.Registry,
	store task.Store,
	dlqService *dlq.Service,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if bo == nil {
		bo = backoff.DefaultStrategy()
	}
	return &Executor{
		registry:   registry,
		extensions: extensions,
		store:      store,
		dlqService: dlqService,
		backoff:    bo,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute runs t, which must already be claimed by the caller.
//
// On success the encoded result is stored and the task completes. On
// failure the task is retried while Attempts <= MaxRetries, otherwise it
// fails and is pushed to the dead letter queue. The returned error is the
// handler's error, or a store error if the outcome could not be recorded.
func (e *Executor) Execute(ctx context.Context, t *task.Task) error {
	t.Attempts++

	handler, ok := e.registry.Get(t.Name)
	if !ok {
		err := fmt.Errorf("%w: %q", itemcast.ErrNoHandler, t.Name)
		return e.fail(ctx, t, err, time.Now().UTC())
	}

	if c := e.registry.Codec().Name(); t.Codec != "" && t.Codec != c {
		err := fmt.Errorf("%w: task encoded with %s, worker decodes %s", itemcast.ErrInvalidSetting, t.Codec, c)
		return e.fail(ctx, t, err, time.Now().UTC())
	}

	start := time.Now()
	var result []byte
	err := e.mw(ctx, t, func(ctx context.Context) error {
		out, herr := handler(ctx, t.Payload)
		result = out
		return herr
	})
	elapsed := time.Since(start)

	now := time.Now().UTC()
	if e.cancelled(ctx, t) {
		e.logger.Info("task cancelled while running",
			slog.String("task_id", t.ID.String()),
			slog.String("label", t.Label),
		)
		return itemcast.ErrTaskCancelled
	}

	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return e.requeue(ctx, t, err)
	}
	if err != nil {
		t.LastError = err.Error()
		if t.Attempts <= t.MaxRetries {
			return e.retry(ctx, t, err, now)
		}
		return e.fail(ctx, t, err, now)
	}
	return e.complete(ctx, t, result, now, elapsed)
}

// cancelled reports whether the stored copy of t was cancelled while the
// handler ran. The stored state wins over the handler outcome.
func (e *Executor) cancelled(ctx context.Context, t *task.Task) bool {
	stored, err := e.store.GetTask(context.WithoutCancel(ctx), t.ID)
	return err == nil && stored.State == task.StateCancelled
}

func (e *Executor) complete(ctx context.Context, t *task.Task, result []byte, now time.Time, elapsed time.Duration) error {
	t.State = task.StateCompleted
	t.Result = result
	t.LastError = ""
	t.CompletedAt = &now

	if err := e.store.UpdateTask(context.WithoutCancel(ctx), t); err != nil {
		e.logger.Error("failed to store task result",
			slog.String("task_id", t.ID.String()),
			slog.String("task_name", t.Name),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitTaskCompleted(ctx, t, elapsed)
	return nil
}

func (e *Executor) retry(ctx context.Context, t *task.Task, cause error, now time.Time) error {
	delay := e.backoff.Delay(t.Attempts)
	next := now.Add(delay)
	t.State = task.StateRetrying
	t.RunAt = next
	t.StartedAt = nil
	t.HeartbeatAt = nil

	if err := e.store.UpdateTask(context.WithoutCancel(ctx), t); err != nil {
		e.logger.Error("failed to schedule task retry",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	e.extensions.EmitTaskRetrying(ctx, t, t.Attempts, next)
	e.logger.Info("task scheduled for retry",
		slog.String("task_id", t.ID.String()),
		slog.String("label", t.Label),
		slog.Int("attempt", t.Attempts),
		slog.Int("max_retries", t.MaxRetries),
		slog.Duration("delay", delay),
	)
	return cause
}

// requeue hands a task interrupted by shutdown back to the queue without
// charging the attempt.
func (e *Executor) requeue(ctx context.Context, t *task.Task, cause error) error {
	t.Attempts--
	t.State = task.StatePending
	t.RunAt = time.Now().UTC()
	t.StartedAt = nil
	t.HeartbeatAt = nil
	if err := e.store.UpdateTask(context.WithoutCancel(ctx), t); err != nil {
		return err
	}
	return cause
}

func (e *Executor) fail(ctx context.Context, t *task.Task, cause error, now time.Time) error {
	t.State = task.StateFailed
	t.LastError = cause.Error()
	t.CompletedAt = &now

	// Recording the failure must survive a cancelled task context.
	bg := context.WithoutCancel(ctx)
	if err := e.store.UpdateTask(bg, t); err != nil {
		e.logger.Error("failed to mark task failed",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	if e.dlqService != nil {
		if err := e.dlqService.Push(bg, t, cause); err != nil {
			e.logger.Error("failed to dead-letter task",
				slog.String("task_id", t.ID.String()),
				slog.String("error", err.Error()),
			)
		} else {
			e.extensions.EmitTaskDeadLettered(ctx, t, cause)
		}
	}

	e.extensions.EmitTaskFailed(ctx, t, cause)
	e.logger.Warn("task failed",
		slog.String("task_id", t.ID.String()),
		slog.String("task_name", t.Name),
		slog.String("label", t.Label),
		slog.Int("attempts", t.Attempts),
		slog.String("error", cause.Error()),
	)
	return cause
}
