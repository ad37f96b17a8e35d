package ext_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/itemcast/ext"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnTaskSubmitted(context.Context, *task.Task) error {
	e.calls = append(e.calls, "submitted")
	return nil
}

func (e *allHooksExt) OnTaskStarted(context.Context, *task.Task) error {
	e.calls = append(e.calls, "started")
	return nil
}

func (e *allHooksExt) OnTaskCompleted(context.Context, *task.Task, time.Duration) error {
	e.calls = append(e.calls, "completed")
	return nil
}

func (e *allHooksExt) OnTaskFailed(context.Context, *task.Task, error) error {
	e.calls = append(e.calls, "failed")
	return nil
}

func (e *allHooksExt) OnTaskRetrying(context.Context, *task.Task, int, time.Time) error {
	e.calls = append(e.calls, "retrying")
	return nil
}

func (e *allHooksExt) OnTaskDeadLettered(context.Context, *task.Task, error) error {
	e.calls = append(e.calls, "dead-lettered")
	return nil
}

func (e *allHooksExt) OnBatchCollected(context.Context, id.BatchID, int, int, time.Duration) error {
	e.calls = append(e.calls, "collected")
	return nil
}

func (e *allHooksExt) OnShutdown(context.Context) error {
	e.calls = append(e.calls, "shutdown")
	return nil
}

type completedOnly struct{ n int }

func (e *completedOnly) Name() string { return "completed-only" }

func (e *completedOnly) OnTaskCompleted(context.Context, *task.Task, time.Duration) error {
	e.n++
	return nil
}

type failingExt struct{}

func (failingExt) Name() string { return "failing" }

func (failingExt) OnTaskStarted(context.Context, *task.Task) error { return errors.New("hook broke") }

func TestRegistry_EmitsEveryHook(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	tk := &task.Task{ID: id.NewTaskID(), Name: "forecast"}
	r.EmitTaskSubmitted(ctx, tk)
	r.EmitTaskStarted(ctx, tk)
	r.EmitTaskCompleted(ctx, tk, time.Second)
	r.EmitTaskFailed(ctx, tk, errors.New("x"))
	r.EmitTaskRetrying(ctx, tk, 1, time.Now())
	r.EmitTaskDeadLettered(ctx, tk, errors.New("x"))
	r.EmitBatchCollected(ctx, id.NewBatchID(), 3, 1, time.Second)
	r.EmitShutdown(ctx)

	want := []string{"submitted", "started", "completed", "failed", "retrying", "dead-lettered", "collected", "shutdown"}
	if strings.Join(all.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, all.calls)
	}
}

func TestRegistry_OnlyImplementedHooks(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	c := &completedOnly{}
	r.Register(c)

	ctx := context.Background()
	tk := &task.Task{ID: id.NewTaskID()}
	r.EmitTaskStarted(ctx, tk)
	r.EmitTaskCompleted(ctx, tk, 0)
	r.EmitTaskCompleted(ctx, tk, 0)

	if c.n != 2 {
		t.Fatalf("expected 2 completions, got %d", c.n)
	}
	if len(r.Extensions()) != 1 {
		t.Fatalf("expected 1 extension, got %d", len(r.Extensions()))
	}
}

func TestRegistry_HookErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := ext.NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	r.Register(failingExt{})
	after := &allHooksExt{}
	r.Register(after)

	r.EmitTaskStarted(context.Background(), &task.Task{ID: id.NewTaskID()})

	if !strings.Contains(buf.String(), "hook broke") || !strings.Contains(buf.String(), "failing") {
		t.Fatalf("expected hook error in log, got %q", buf.String())
	}
	if len(after.calls) != 1 {
		t.Fatal("a failing hook must not stop later extensions")
	}
}
