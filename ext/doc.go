// Package ext defines the extension system.
//
// Extensions implement [Extension] plus any of the hook interfaces they
// care about:
//
//	type progress struct{ done atomic.Int64 }
//
//	func (p *progress) Name() string { return "progress" }
//
//	func (p *progress) OnTaskCompleted(ctx context.Context, t *task.Task, elapsed time.Duration) error {
//	    p.done.Add(1)
//	    return nil
//	}
//
// Hooks:
//
//   - [TaskSubmitted]: a task was persisted
//   - [TaskStarted]: a worker began executing a task
//   - [TaskCompleted]: the task's result was stored
//   - [TaskFailed]: the task failed with no retries left
//   - [TaskRetrying]: the task failed and will run again
//   - [TaskDeadLettered]: the failed task was copied to the dead letter queue
//   - [BatchCollected]: a collect barrier returned
//   - [Shutdown]: the engine is closing
//
// Hook errors are logged and never interrupt task processing.
package ext
