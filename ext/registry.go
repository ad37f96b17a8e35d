package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// entry pairs a hook with the name of the extension that provided it.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. Extensions are sorted into per-hook slices at registration so
// an emit only visits the extensions implementing that hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	submitted    []entry[TaskSubmitted]
	started      []entry[TaskStarted]
	completed    []entry[TaskCompleted]
	failed       []entry[TaskFailed]
	retrying     []entry[TaskRetrying]
	deadLettered []entry[TaskDeadLettered]
	collected    []entry[BatchCollected]
	shutdown     []entry[Shutdown]
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension. Extensions are notified in registration
// order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(TaskSubmitted); ok {
		r.submitted = append(r.submitted, entry[TaskSubmitted]{name, h})
	}
	if h, ok := e.(TaskStarted); ok {
		r.started = append(r.started, entry[TaskStarted]{name, h})
	}
	if h, ok := e.(TaskCompleted); ok {
		r.completed = append(r.completed, entry[TaskCompleted]{name, h})
	}
	if h, ok := e.(TaskFailed); ok {
		r.failed = append(r.failed, entry[TaskFailed]{name, h})
	}
	if h, ok := e.(TaskRetrying); ok {
		r.retrying = append(r.retrying, entry[TaskRetrying]{name, h})
	}
	if h, ok := e.(TaskDeadLettered); ok {
		r.deadLettered = append(r.deadLettered, entry[TaskDeadLettered]{name, h})
	}
	if h, ok := e.(BatchCollected); ok {
		r.collected = append(r.collected, entry[BatchCollected]{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitTaskSubmitted notifies every TaskSubmitted extension.
func (r *Registry) EmitTaskSubmitted(ctx context.Context, t *task.Task) {
	for _, e := range r.submitted {
		r.check("OnTaskSubmitted", e.name, e.hook.OnTaskSubmitted(ctx, t))
	}
}

// EmitTaskStarted notifies every TaskStarted extension.
func (r *Registry) EmitTaskStarted(ctx context.Context, t *task.Task) {
	for _, e := range r.started {
		r.check("OnTaskStarted", e.name, e.hook.OnTaskStarted(ctx, t))
	}
}

// EmitTaskCompleted notifies every TaskCompleted extension.
func (r *Registry) EmitTaskCompleted(ctx context.Context, t *task.Task, elapsed time.Duration) {
	for _, e := range r.completed {
		r.check("OnTaskCompleted", e.name, e.hook.OnTaskCompleted(ctx, t, elapsed))
	}
}

// EmitTaskFailed notifies every TaskFailed extension.
func (r *Registry) EmitTaskFailed(ctx context.Context, t *task.Task, taskErr error) {
	for _, e := range r.failed {
		r.check("OnTaskFailed", e.name, e.hook.OnTaskFailed(ctx, t, taskErr))
	}
}

// EmitTaskRetrying notifies every TaskRetrying extension.
func (r *Registry) EmitTaskRetrying(ctx context.Context, t *task.Task, attempt int, nextRunAt time.Time) {
	for _, e := range r.retrying {
		r.check("OnTaskRetrying", e.name, e.hook.OnTaskRetrying(ctx, t, attempt, nextRunAt))
	}
}

// EmitTaskDeadLettered notifies every TaskDeadLettered extension.
func (r *Registry) EmitTaskDeadLettered(ctx context.Context, t *task.Task, taskErr error) {
	for _, e := range r.deadLettered {
		r.check("OnTaskDeadLettered", e.name, e.hook.OnTaskDeadLettered(ctx, t, taskErr))
	}
}

// EmitBatchCollected notifies every BatchCollected extension.
func (r *Registry) EmitBatchCollected(ctx context.Context, batchID id.BatchID, completed, failed int, elapsed time.Duration) {
	for _, e := range r.collected {
		r.check("OnBatchCollected", e.name, e.hook.OnBatchCollected(ctx, batchID, completed, failed, elapsed))
	}
}

// EmitShutdown notifies every Shutdown extension.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.check("OnShutdown", e.name, e.hook.OnShutdown(ctx))
	}
}

// check logs a hook error. Hook errors never reach the caller.
func (r *Registry) check(hook, extName string, err error) {
	if err == nil {
		return
	}
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
