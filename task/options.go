package task

import (
	"time"

	"github.com/xraph/itemcast/id"
)

// Options configures per-task behavior.
type Options struct {
	// Queue is the queue the task is submitted to. Empty means the
	// engine's queue.
	Queue string

	// MaxRetries is the number of extra attempts before the task fails.
	MaxRetries int

	// Timeout bounds one execution. Zero means the engine's default.
	Timeout time.Duration

	// RunAt delays the task. Zero means immediately.
	RunAt time.Time

	// Label tags the task, for example with the item it forecasts.
	Label string

	// Batch groups tasks submitted together.
	Batch id.BatchID
}

// DefaultOptions returns Options for a single attempt on the engine's
// queue.
func DefaultOptions() Options {
	return Options{}
}

// Option configures a task definition or a single submission.
type Option func(*Options)

// WithQueue sets the queue name.
func WithQueue(q string) Option {
	return func(o *Options) { o.Queue = q }
}

// WithMaxRetries sets the number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithTimeout sets the maximum execution duration.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithRunAt schedules the task for a later time.
func WithRunAt(t time.Time) Option {
	return func(o *Options) { o.RunAt = t }
}

// WithLabel tags a submission.
func WithLabel(label string) Option {
	return func(o *Options) { o.Label = label }
}

// WithBatch groups a submission with others.
func WithBatch(b id.BatchID) Option {
	return func(o *Options) { o.Batch = b }
}
