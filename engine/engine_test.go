package engine_test

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/backoff"
	"github.com/xraph/itemcast/codec"
	"github.com/xraph/itemcast/dlq"
	"github.com/xraph/itemcast/engine"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/store/memory"
	"github.com/xraph/itemcast/task"
)

type doubleArgs struct {
	N int `json:"n" msgpack:"n"`
}

var double = task.NewDefinition("double", func(_ context.Context, in doubleArgs) (int, error) {
	if in.N < 0 {
		return 0, errors.New("negative input")
	}
	return 2 * in.N, nil
})

func newEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	opts = append([]engine.Option{
		engine.WithConcurrency(4),
		engine.WithPollInterval(5 * time.Millisecond),
		engine.WithBackoff(backoff.NewConstant(time.Millisecond)),
	}, opts...)
	eng, err := engine.New(s, opts...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	engine.Register(eng, double)
	return eng, s
}

func open(t *testing.T, eng *engine.Engine) {
	t.Helper()
	if err := eng.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := eng.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
}

func decode(t *testing.T, eng *engine.Engine, c task.Completion) int {
	t.Helper()
	var out int
	if err := eng.Codec().Unmarshal(c.Result, &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return out
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := engine.New(nil); !errors.Is(err, itemcast.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
	if _, err := engine.New(memory.New(), engine.WithQueue("")); !errors.Is(err, itemcast.ErrInvalidSetting) {
		t.Fatalf("expected ErrInvalidSetting, got %v", err)
	}
}

func TestSubmit_RequiresOpen(t *testing.T) {
	eng, _ := newEngine(t)
	if _, err := eng.Submit(context.Background(), "double", doubleArgs{N: 1}); !errors.Is(err, itemcast.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	if _, err := eng.Collect(context.Background(), nil); !errors.Is(err, itemcast.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen from Collect, got %v", err)
	}
}

func TestEngine_SubmitCollect(t *testing.T) {
	eng, s := newEngine(t)
	open(t, eng)
	ctx := context.Background()
	batch := id.NewBatchID()

	var handles []id.TaskID
	for i := range 20 {
		h, err := eng.Submit(ctx, "double", doubleArgs{N: i}, task.WithLabel("n"), task.WithBatch(batch))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		handles = append(handles, h)
	}

	completions, err := eng.Collect(ctx, handles)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(completions) != len(handles) {
		t.Fatalf("expected %d completions, got %d", len(handles), len(completions))
	}

	var got []int
	for _, c := range completions {
		if c.State != task.StateCompleted || c.Err != nil || c.Label != "n" {
			t.Fatalf("unexpected completion %+v", c)
		}
		got = append(got, decode(t, eng, c))
	}
	sort.Ints(got)
	for i, v := range got {
		if v != 2*i {
			t.Fatalf("result %d: expected %d, got %d", i, 2*i, v)
		}
	}

	stored, _ := s.GetTask(ctx, handles[0])
	if stored.Codec != codec.NameMsgpack || stored.BatchID.String() != batch.String() || stored.Queue != "forecast" {
		t.Fatalf("unexpected stored task %+v", stored)
	}
}

func TestEngine_CollectReportsFailures(t *testing.T) {
	eng, _ := newEngine(t)
	open(t, eng)
	ctx := context.Background()

	ok, _ := eng.Submit(ctx, "double", doubleArgs{N: 3}, task.WithLabel("ok"))
	bad, _ := eng.Submit(ctx, "double", doubleArgs{N: -1}, task.WithLabel("bad"))

	completions, err := eng.Collect(ctx, []id.TaskID{ok, bad})
	if err != nil {
		t.Fatalf("failures must not fail Collect: %v", err)
	}
	byLabel := map[string]task.Completion{}
	for _, c := range completions {
		byLabel[c.Label] = c
	}
	if byLabel["ok"].State != task.StateCompleted || decode(t, eng, byLabel["ok"]) != 6 {
		t.Fatalf("unexpected ok completion %+v", byLabel["ok"])
	}
	if !errors.Is(byLabel["bad"].Err, itemcast.ErrTaskFailed) {
		t.Fatalf("expected ErrTaskFailed, got %v", byLabel["bad"].Err)
	}

	entries, _ := eng.DLQ().DLQStore().ListDLQ(ctx, dlq.ListOpts{})
	if len(entries) != 1 || entries[0].Label != "bad" {
		t.Fatalf("expected one dead letter for bad, got %d", len(entries))
	}
}

func TestEngine_CollectStopOnFailure(t *testing.T) {
	eng, s := newEngine(t)
	block := make(chan struct{})
	engine.Register(eng, task.NewDefinition("wait", func(ctx context.Context, _ doubleArgs) (int, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return 0, ctx.Err()
	}))
	open(t, eng)
	ctx := context.Background()

	waiting, _ := eng.Submit(ctx, "wait", doubleArgs{})
	bad, _ := eng.Submit(ctx, "double", doubleArgs{N: -1})

	_, err := eng.Collect(ctx, []id.TaskID{waiting, bad}, engine.StopOnFailure())
	close(block)
	if !errors.Is(err, itemcast.ErrTaskFailed) {
		t.Fatalf("expected ErrTaskFailed, got %v", err)
	}
	got, _ := s.GetTask(ctx, waiting)
	if got.State != task.StateCancelled {
		t.Fatalf("expected remaining task cancelled, got %s", got.State)
	}
}

func TestEngine_CollectContextCancelled(t *testing.T) {
	eng, _ := newEngine(t, engine.WithConcurrency(0))
	open(t, eng)

	h, _ := eng.Submit(context.Background(), "double", doubleArgs{N: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := eng.Collect(ctx, []id.TaskID{h}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded with no workers, got %v", err)
	}
}

func TestEngine_CollectUnknownHandle(t *testing.T) {
	eng, _ := newEngine(t)
	open(t, eng)

	if _, err := eng.Collect(context.Background(), []id.TaskID{id.NewTaskID()}); !errors.Is(err, itemcast.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestEngine_Cancel(t *testing.T) {
	eng, _ := newEngine(t, engine.WithConcurrency(0))
	open(t, eng)
	ctx := context.Background()

	h, _ := eng.Submit(ctx, "double", doubleArgs{N: 1})
	if err := eng.Cancel(ctx, h); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := eng.Cancel(ctx, h); !errors.Is(err, itemcast.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second cancel, got %v", err)
	}

	completions, err := eng.Collect(ctx, []id.TaskID{h})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !errors.Is(completions[0].Err, itemcast.ErrTaskCancelled) {
		t.Fatalf("expected ErrTaskCancelled, got %v", completions[0].Err)
	}
}

func TestEngine_RetriesBeforeFailing(t *testing.T) {
	eng, _ := newEngine(t)
	var calls atomic.Int32
	engine.Register(eng, task.NewDefinition("flaky", func(context.Context, doubleArgs) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("transient")
		}
		return 1, nil
	}, task.WithMaxRetries(2)))
	open(t, eng)
	ctx := context.Background()

	h, _ := eng.Submit(ctx, "flaky", doubleArgs{})
	completions, err := eng.Collect(ctx, []id.TaskID{h})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if completions[0].State != task.StateCompleted || calls.Load() != 3 {
		t.Fatalf("expected success on third attempt, got %s after %d calls", completions[0].State, calls.Load())
	}
}

func TestEngine_JSONCodec(t *testing.T) {
	eng, _ := newEngine(t, engine.WithCodec(codec.JSON{}))
	open(t, eng)
	ctx := context.Background()

	h, _ := eng.Submit(ctx, "double", doubleArgs{N: 21})
	completions, err := eng.Collect(ctx, []id.TaskID{h})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if string(completions[0].Result) != "42" {
		t.Fatalf("expected JSON result 42, got %q", completions[0].Result)
	}
}

func TestEngine_OpenCloseIdempotent(t *testing.T) {
	eng, s := newEngine(t)
	ctx := context.Background()

	for range 2 {
		if err := eng.Open(ctx); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}
	for range 2 {
		if err := eng.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if err := s.Ping(ctx); !errors.Is(err, itemcast.ErrStoreClosed) {
		t.Fatalf("expected store closed after Close, got %v", err)
	}
}

type shutdownExt struct{ called atomic.Bool }

func (e *shutdownExt) Name() string { return "shutdown" }

func (e *shutdownExt) OnShutdown(context.Context) error {
	e.called.Store(true)
	return nil
}

type batchExt struct {
	completed, failed atomic.Int32
}

func (e *batchExt) Name() string { return "batch" }

func (e *batchExt) OnBatchCollected(_ context.Context, _ id.BatchID, completed, failed int, _ time.Duration) error {
	e.completed.Store(int32(completed))
	e.failed.Store(int32(failed))
	return nil
}

func TestEngine_Extensions(t *testing.T) {
	sd := &shutdownExt{}
	be := &batchExt{}
	eng, _ := newEngine(t, engine.WithExtension(sd), engine.WithExtension(be))
	ctx := context.Background()
	if err := eng.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	a, _ := eng.Submit(ctx, "double", doubleArgs{N: 1})
	b, _ := eng.Submit(ctx, "double", doubleArgs{N: -1})
	if _, err := eng.Collect(ctx, []id.TaskID{a, b}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if be.completed.Load() != 1 || be.failed.Load() != 1 {
		t.Fatalf("expected 1 completed and 1 failed, got %d and %d", be.completed.Load(), be.failed.Load())
	}

	if err := eng.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sd.called.Load() {
		t.Fatal("expected OnShutdown to fire")
	}
}

func TestEngine_MeterProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	eng, _ := newEngine(t, engine.WithMeterProvider(mp))
	open(t, eng)
	ctx := context.Background()

	h, _ := eng.Submit(ctx, "double", doubleArgs{N: 1})
	if _, err := eng.Collect(ctx, []id.TaskID{h}); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("reader.Collect: %v", err)
	}
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"itemcast.task.submitted", "itemcast.task.completed", "itemcast.task.duration"} {
		if !names[want] {
			t.Errorf("expected metric %s, got %v", want, names)
		}
	}
}
