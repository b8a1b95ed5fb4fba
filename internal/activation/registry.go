package activation

import (
	"context"
	"sync"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/value"
)

// MethodFunc is a method body: the polymorphism point spec.md §9 asks
// for over "synchronous closure" and "asynchronous task" — the engine
// treats both the same way, as a function it calls and then awaits,
// whether or not the function itself spawns more goroutines internally.
type MethodFunc func(ctx context.Context, inputs []value.Value) ([]value.Value, error)

// Registry maps a method's declared ID to the body that implements it.
// The constraint graph only carries shape (inputs/outputs/async flag);
// Registry is where the host wires in behavior, mirroring the
// teacher's registry-of-clients pattern for pluggable backends.
type Registry struct {
	mu      sync.RWMutex
	methods map[graph.MethodID]MethodFunc
}

// NewRegistry creates an empty method registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[graph.MethodID]MethodFunc)}
}

// Register binds a method ID to its executable body. Registering an ID
// twice replaces the previous binding.
func (r *Registry) Register(id graph.MethodID, fn MethodFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[id] = fn
}

// Lookup returns the body bound to a method ID, if any.
func (r *Registry) Lookup(id graph.MethodID) (MethodFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.methods[id]
	return fn, ok
}
