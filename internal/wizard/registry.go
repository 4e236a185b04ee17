package wizard

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds the renderable component for a step.
type Factory[V any] func(StepInfo) (V, error)

// Registry maps step ordinals to component factories. The type parameter is
// the front end's view type, so this package stays free of UI imports.
type Registry[V any] struct {
	mu        sync.RWMutex
	factories map[int]Factory[V]
}

// NewRegistry returns an empty registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{factories: map[int]Factory[V]{}}
}

// Register installs a factory for step n. Returns an error if the step is
// unknown or already registered.
func (r *Registry[V]) Register(n int, factory Factory[V]) error {
	if _, ok := Step(n); !ok {
		return fmt.Errorf("wizard: unknown step %d", n)
	}
	if factory == nil {
		return fmt.Errorf("wizard: factory is required for step %d", n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[n]; exists {
		return fmt.Errorf("wizard: step %d already registered", n)
	}
	r.factories[n] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry[V]) MustRegister(n int, factory Factory[V]) {
	if err := r.Register(n, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs the component for step n.
func (r *Registry[V]) Resolve(n int) (V, error) {
	var zero V
	info, ok := Step(n)
	if !ok {
		return zero, fmt.Errorf("wizard: unknown step %d", n)
	}
	r.mu.RLock()
	factory, ok := r.factories[n]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("wizard: no component registered for step %d (%s)", n, info.Key)
	}
	return factory(info)
}

// Missing returns the step ordinals without a registered factory.
func (r *Registry[V]) Missing() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for _, info := range steps {
		if _, ok := r.factories[info.Number]; !ok {
			out = append(out, info.Number)
		}
	}
	sort.Ints(out)
	return out
}
