package middleware

import (
	"context"
	"time"

	"github.com/xraph/itemcast/task"
)

// Timeout bounds each execution by the task's Timeout, or by fallback when
// the task carries none. A zero bound leaves the context untouched.
func Timeout(fallback time.Duration) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		d := t.Timeout
		if d <= 0 {
			d = fallback
		}
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
