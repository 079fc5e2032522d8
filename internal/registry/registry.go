package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/livespan/internal/fragment"
)

// Module is the interface that compiled-in component sets implement.
type Module interface {
	Register(r *Registry)
}

// Registry maps component names to components.
type Registry struct {
	mu         sync.RWMutex
	components map[string]fragment.Component

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an empty registry that is not ready yet.
func New() *Registry {
	return &Registry{
		components: make(map[string]fragment.Component),
		ready:      make(chan struct{}),
	}
}

// Register adds a compiled-in component. Registering a name twice is a
// programming error and panics.
func (r *Registry) Register(c fragment.Component) {
	if err := r.add(c); err != nil {
		panic(err.Error())
	}
	slog.Debug("Registering component.", "name", c.Name())
}

// RegisterModules lets every module register its components.
func (r *Registry) RegisterModules(mods ...Module) {
	for _, m := range mods {
		m.Register(r)
	}
}

func (r *Registry) add(c fragment.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[c.Name()]; exists {
		return fmt.Errorf("component with name '%s' already registered", c.Name())
	}
	r.components[c.Name()] = c
	return nil
}

// Lookup returns the component registered under name.
func (r *Registry) Lookup(name string) (fragment.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for n := range r.components {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// MarkReady signals that population has finished. It is idempotent.
func (r *Registry) MarkReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Ready reports whether MarkReady was called.
func (r *Registry) Ready() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the registry is ready or ctx is done.
func (r *Registry) WaitReady(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
