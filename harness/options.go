package harness

import (
	"log/slog"

	"github.com/xraph/itemcast/task"
)

// Option configures a run.
type Option func(*options)

type options struct {
	failFast bool
	logger   *slog.Logger
	taskOpts []task.Option
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFailFast stops a run at the first failed partition. The distributed
// run also cancels every task not yet collected.
func WithFailFast() Option {
	return func(o *options) { o.failFast = true }
}

// WithLogger sets the logger run summaries are written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTaskOptions applies task options, such as a queue or retries, to
// every submitted forecast task.
func WithTaskOptions(opts ...task.Option) Option {
	return func(o *options) { o.taskOpts = append(o.taskOpts, opts...) }
}
