package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/task"
)

// maxPollers bounds the goroutines one Collect uses to watch the store.
const maxPollers = 16

// CollectOption configures a Collect call.
type CollectOption func(*collectOptions)

type collectOptions struct {
	stopOnFailure bool
}

// StopOnFailure makes Collect return at the first failed task and cancel
// every task not yet collected.
func StopOnFailure() CollectOption {
	return func(o *collectOptions) { o.stopOnFailure = true }
}

// Collect waits until every handle reaches a terminal state and returns
// one completion per handle in the order they finished. It is the single
// barrier between submitting a batch and reading its results.
//
// A failed or cancelled task is reported through its completion's Err, not
// the returned error. The returned error is set when ctx ends, a handle is
// unknown to the store, or a task fails under StopOnFailure; completions
// gathered so far are returned with it.
func (eng *Engine) Collect(ctx context.Context, handles []id.TaskID, opts ...CollectOption) ([]task.Completion, error) {
	if !eng.isOpen() {
		return nil, itemcast.ErrNotOpen
	}
	var o collectOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	var (
		mu      sync.Mutex
		out     = make([]task.Completion, 0, len(handles))
		done    = make(map[string]bool, len(handles))
		batchID id.BatchID
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards(handles, maxPollers) {
		g.Go(func() error {
			return eng.poll(gctx, shard, func(t *task.Task) error {
				c := completion(t)
				mu.Lock()
				out = append(out, c)
				done[t.ID.String()] = true
				if batchID.IsNil() {
					batchID = t.BatchID
				}
				mu.Unlock()
				if o.stopOnFailure && t.State == task.StateFailed {
					return c.Err
				}
				return nil
			})
		})
	}
	err := g.Wait()

	if err != nil && o.stopOnFailure && errors.Is(err, itemcast.ErrTaskFailed) {
		eng.cancelRest(context.WithoutCancel(ctx), handles, done)
	}

	failed := 0
	for _, c := range out {
		if c.State != task.StateCompleted {
			failed++
		}
	}
	eng.extensions.EmitBatchCollected(ctx, batchID, len(out)-failed, failed, time.Since(start))
	return out, err
}

// poll watches handles until each is terminal, calling onDone once per
// handle.
func (eng *Engine) poll(ctx context.Context, handles []id.TaskID, onDone func(*task.Task) error) error {
	pending := handles
	ticker := time.NewTicker(eng.cfg.CollectInterval)
	defer ticker.Stop()

	for {
		rest := pending[:0:0]
		for _, h := range pending {
			t, err := eng.store.GetTask(ctx, h)
			if err != nil {
				return fmt.Errorf("itemcast: collect task %s: %w", h, err)
			}
			if !t.State.Terminal() {
				rest = append(rest, h)
				continue
			}
			if err := onDone(t); err != nil {
				return err
			}
		}
		pending = rest
		if len(pending) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (eng *Engine) cancelRest(ctx context.Context, handles []id.TaskID, done map[string]bool) {
	for _, h := range handles {
		if done[h.String()] {
			continue
		}
		if err := eng.Cancel(ctx, h); err != nil && !errors.Is(err, itemcast.ErrInvalidState) {
			eng.logger.Warn("failed to cancel task",
				slog.String("task_id", h.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func completion(t *task.Task) task.Completion {
	c := task.Completion{TaskID: t.ID, Label: t.Label, State: t.State}
	switch t.State {
	case task.StateCompleted:
		c.Result = t.Result
	case task.StateFailed:
		c.Err = fmt.Errorf("%w: %s", itemcast.ErrTaskFailed, t.LastError)
	case task.StateCancelled:
		c.Err = itemcast.ErrTaskCancelled
	}
	return c
}

// shards splits handles round-robin into at most n non-empty groups.
func shards(handles []id.TaskID, n int) [][]id.TaskID {
	n = min(n, len(handles))
	out := make([][]id.TaskID, n)
	for i, h := range handles {
		out[i%n] = append(out[i%n], h)
	}
	return out
}
