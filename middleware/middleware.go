// Package middleware provides composable middleware for task execution.
package middleware

import (
	"context"

	"github.com/xraph/itemcast/task"
)

// Handler is the terminal function that runs a task's handler.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It must call next
// unless it deliberately short-circuits.
type Middleware func(ctx context.Context, t *task.Task, next Handler) error

// Chain composes middleware so the first in the list is the outermost:
//
//	Chain(tracing, recover, logging) runs tracing → recover → logging → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			inner := h
			h = func(ctx context.Context) error {
				return mw(ctx, t, inner)
			}
		}
		return h(ctx)
	}
}
