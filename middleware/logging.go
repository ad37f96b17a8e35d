package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/itemcast/task"
)

// Logging logs the start and outcome of every execution. Starts are
// logged at debug level; a forecast batch runs one task per item.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		logger.Debug("task started",
			slog.String("task_name", t.Name),
			slog.String("task_id", t.ID.String()),
			slog.String("label", t.Label),
			slog.String("queue", t.Queue),
			slog.Int("attempt", t.Attempts),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("task failed",
				slog.String("task_name", t.Name),
				slog.String("task_id", t.ID.String()),
				slog.String("label", t.Label),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("task completed",
				slog.String("task_name", t.Name),
				slog.String("task_id", t.ID.String()),
				slog.String("label", t.Label),
				slog.Duration("elapsed", elapsed),
			)
		}
		return err
	}
}
