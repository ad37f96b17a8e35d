package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/itemcast/codec"
)

// HandlerFunc is a type-erased handler working on encoded argument and
// result bytes.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Registry maps task names to type-erased handlers. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	codec    codec.Codec
	handlers map[string]HandlerFunc
	options  map[string]Options
}

// NewRegistry creates an empty registry that encodes with c. A nil codec
// means MessagePack.
func NewRegistry(c codec.Codec) *Registry {
	if c == nil {
		c = codec.Default()
	}
	return &Registry{
		codec:    c,
		handlers: make(map[string]HandlerFunc),
		options:  make(map[string]Options),
	}
}

// Codec returns the codec used for arguments and results.
func (r *Registry) Codec() codec.Codec { return r.codec }

// RegisterDefinition registers a typed definition. The handler is wrapped
// in a closure that decodes the argument and encodes the result with the
// registry's codec.
func RegisterDefinition[In, Out any](r *Registry, def *Definition[In, Out]) {
	c := r.codec
	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		var in In
		if len(payload) > 0 {
			if err := c.Unmarshal(payload, &in); err != nil {
				return nil, fmt.Errorf("decode argument for task %q: %w", def.Name, err)
			}
		}
		out, err := def.Handler(ctx, in)
		if err != nil {
			return nil, err
		}
		data, err := c.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("encode result for task %q: %w", def.Name, err)
		}
		return data, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[def.Name] = handler
	r.options[def.Name] = def.Opts
}

// Get returns the handler for name.
func (r *Registry) Get(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Options returns the options name was registered with.
func (r *Registry) Options(name string) (Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.options[name]
	return o, ok
}

// Names returns the registered task names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
