package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/itemcast/task"
)

// Recover converts a panic in the chain into an error and logs the stack.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("task handler panicked",
					slog.String("task_name", t.Name),
					slog.String("task_id", t.ID.String()),
					slog.String("label", t.Label),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in task %s: %v", t.Name, r)
			}
		}()
		return next(ctx)
	}
}
