// Package task defines the task entity, its state machine, typed
// definitions, and the store interface.
//
// A [Task] carries an encoded argument in and an encoded result out:
//
//	pending → running → completed
//	pending → running → retrying → running → ...
//	pending → running → failed → dlq
//	pending → cancelled
//
// Handlers are declared with [Definition], which is typed on both its
// argument and result, and registered with [RegisterDefinition]:
//
//	var Square = task.NewDefinition("square",
//	    func(ctx context.Context, n int) (int, error) { return n * n, nil },
//	)
//	task.RegisterDefinition(registry, Square)
//
// The registry's codec (MessagePack unless configured otherwise) decodes
// the argument before the handler runs and encodes its result afterwards.
package task
