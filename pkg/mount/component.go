package mount

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// ErrUnknownComponent is returned when no factory is registered for an ID.
var ErrUnknownComponent = errors.New("mount: unknown component")

// Component is a mounted page.
type Component interface {
	// Render returns the component's markup.
	Render() string
}

// Disposer is implemented by components that hold resources.
// Dispose is called when the component is replaced or discarded.
type Disposer interface {
	Dispose()
}

// ActionHandler is implemented by components that accept user actions
// (form submissions, buttons) from the client.
type ActionHandler interface {
	HandleAction(ctx context.Context, name string, form map[string]string) error
}

// Props are the inputs a factory receives for one navigation.
type Props struct {
	ComponentID string
	Path        string
	Params      map[string]string
	Query       url.Values
}

// Factory builds a component. It may block (for example to load data)
// and should honor ctx.
type Factory func(ctx context.Context, props Props) (Component, error)

// Registry maps component identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	r.factories[id] = f
	r.mu.Unlock()
}

// Has reports whether a factory is registered for id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build constructs the component registered for props.ComponentID.
func (r *Registry) Build(ctx context.Context, props Props) (Component, error) {
	r.mu.RLock()
	f, ok := r.factories[props.ComponentID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, props.ComponentID)
	}
	c, err := f(ctx, props)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("mount: factory for %q returned no component", props.ComponentID)
	}
	return c, nil
}

// Dispose calls Dispose on c when it implements Disposer.
func Dispose(c Component) {
	if d, ok := c.(Disposer); ok {
		d.Dispose()
	}
}

// Static is a component with fixed markup.
type Static string

// Render implements Component.
func (s Static) Render() string {
	return string(s)
}
