package task

import "context"

// Definition is a typed task definition. In is the argument type and Out
// the result type; both must be encodable by the registry's codec.
type Definition[In, Out any] struct {
	// Name is the unique identifier for this task type.
	Name string

	// Handler computes the task's result from its argument.
	Handler func(ctx context.Context, in In) (Out, error)

	// Opts configures queue, retries and timeout.
	Opts Options
}

// NewDefinition creates a typed task definition.
func NewDefinition[In, Out any](name string, handler func(ctx context.Context, in In) (Out, error), opts ...Option) *Definition[In, Out] {
	def := &Definition[In, Out]{
		Name:    name,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}
