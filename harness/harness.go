package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/codec"
	"github.com/xraph/itemcast/engine"
	"github.com/xraph/itemcast/forecast"
	"github.com/xraph/itemcast/id"
	"github.com/xraph/itemcast/series"
	"github.com/xraph/itemcast/task"
)

// TaskName is the name forecast tasks are registered and submitted under.
const TaskName = "forecast"

// Mode names how a run executed the policy.
type Mode string

const (
	ModeSerial      Mode = "serial"
	ModeDistributed Mode = "distributed"
)

// Backend is the task-dispatch capability a distributed run needs.
// *engine.Engine implements it.
type Backend interface {
	Submit(ctx context.Context, name string, args any, opts ...task.Option) (id.TaskID, error)
	Collect(ctx context.Context, handles []id.TaskID, opts ...engine.CollectOption) ([]task.Completion, error)
	Codec() codec.Codec
}

var _ Backend = (*engine.Engine)(nil)

// Output is the result of one forecast task.
type Output struct {
	Predictions []series.Prediction   `json:"predictions" msgpack:"predictions"`
	Diagnostics *forecast.Diagnostics `json:"diagnostics" msgpack:"diagnostics"`
}

// RegisterForecastTask registers the forecast task with eng. Every
// process executing forecast tasks must register it with an equivalent
// policy.
func RegisterForecastTask(eng *engine.Engine, policy *forecast.Policy, opts ...task.Option) {
	engine.Register(eng, task.NewDefinition(TaskName, func(ctx context.Context, part series.Partition) (Output, error) {
		preds, diag, err := policy.Forecast(ctx, part)
		if err != nil {
			return Output{}, err
		}
		return Output{Predictions: preds, Diagnostics: diag}, nil
	}, opts...))
}

// Failure records an item whose partition could not be forecast.
type Failure struct {
	Item string
	Err  error
}

// Result is the outcome of one run.
type Result struct {
	Mode        Mode
	Partitions  int
	// Batch groups the tasks of a distributed run; zero for serial runs.
	Batch       id.BatchID
	Predictions series.Table
	Failures    []Failure
	Diagnostics []*forecast.Diagnostics
	Elapsed     time.Duration
}

// FailedItems returns the items that failed, in ascending order.
func (r *Result) FailedItems() []string {
	items := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		items[i] = f.Item
	}
	slices.Sort(items)
	return items
}

// RunSerial forecasts every item of ds one at a time in the calling
// goroutine. Failed partitions are recorded and skipped; the returned
// error is set only when ctx ends or, under WithFailFast, at the first
// failure.
func RunSerial(ctx context.Context, ds series.Dataset, policy *forecast.Policy, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	start := time.Now()
	parts := series.GroupByItem(ds)
	res := &Result{Mode: ModeSerial, Partitions: len(parts)}

	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}
		preds, diag, err := policy.Forecast(ctx, part)
		if err != nil {
			if isCancel(err) {
				res.Elapsed = time.Since(start)
				return res, err
			}
			res.Failures = append(res.Failures, Failure{Item: part.Item, Err: err})
			if o.failFast {
				res.Elapsed = time.Since(start)
				return res, err
			}
			continue
		}
		res.Predictions = append(res.Predictions, preds...)
		res.Diagnostics = append(res.Diagnostics, diag)
	}

	res.Elapsed = time.Since(start)
	logRun(o.logger, res)
	return res, nil
}

// RunDistributed submits one forecast task per item of ds to backend and
// collects them all at a single barrier. Predictions are concatenated in
// completion order. Failed tasks are recorded as failures; the returned
// error is set when submission or collection fails or, under
// WithFailFast, at the first failure.
func RunDistributed(ctx context.Context, ds series.Dataset, backend Backend, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	start := time.Now()
	parts := series.GroupByItem(ds)
	res := &Result{Mode: ModeDistributed, Partitions: len(parts)}

	batch := id.NewBatchID()
	res.Batch = batch
	handles := make([]id.TaskID, 0, len(parts))
	for _, part := range parts {
		topts := append(slices.Clone(o.taskOpts), task.WithLabel(part.Item), task.WithBatch(batch))
		h, err := backend.Submit(ctx, TaskName, part, topts...)
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("harness: submit item %q: %w", part.Item, err)
		}
		handles = append(handles, h)
	}

	var copts []engine.CollectOption
	if o.failFast {
		copts = append(copts, engine.StopOnFailure())
	}
	completions, collectErr := backend.Collect(ctx, handles, copts...)

	c := backend.Codec()
	for _, comp := range completions {
		if comp.Err != nil {
			res.Failures = append(res.Failures, Failure{Item: comp.Label, Err: comp.Err})
			continue
		}
		var out Output
		if err := c.Unmarshal(comp.Result, &out); err != nil {
			res.Failures = append(res.Failures, Failure{
				Item: comp.Label,
				Err:  fmt.Errorf("%w: decode result: %w", itemcast.ErrTaskFailed, err),
			})
			continue
		}
		res.Predictions = append(res.Predictions, out.Predictions...)
		res.Diagnostics = append(res.Diagnostics, out.Diagnostics)
	}
	slices.SortStableFunc(res.Failures, func(a, b Failure) int { return cmp.Compare(a.Item, b.Item) })

	res.Elapsed = time.Since(start)
	if collectErr != nil {
		return res, collectErr
	}
	logRun(o.logger, res)
	return res, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func logRun(logger *slog.Logger, res *Result) {
	logger.Info("run finished",
		slog.String("mode", string(res.Mode)),
		slog.Int("items", res.Partitions),
		slog.Int("predictions", len(res.Predictions)),
		slog.Int("failed", len(res.Failures)),
		slog.Duration("elapsed", res.Elapsed),
	)
	for _, f := range res.Failures {
		logger.Warn("item failed",
			slog.String("mode", string(res.Mode)),
			slog.String("item", f.Item),
			slog.String("error", f.Err.Error()),
		)
	}
}
