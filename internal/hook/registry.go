package hook

import (
	"log/slog"
	"sync"
)

type registration struct {
	hook    Hook
	handler Handler
}

// Registry holds the process-lifetime hook table. It is read-mostly after
// startup: dispatch takes read locks, register/unregister take write locks.
// Registration order is preserved so dispatch stays deterministic.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]*registration
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[string]*registration),
	}
}

// Register adds a hook bound to a handler. Re-registering a name replaces
// the previous binding in place (last write wins), keeping the original
// position in dispatch order.
func (r *Registry) Register(h Hook, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hooks[h.Name]; !exists {
		r.order = append(r.order, h.Name)
	}
	r.hooks[h.Name] = &registration{hook: h, handler: handler}
	slog.Info("registered hook", "hook", h.Name)
}

// Unregister removes a hook by name. Unknown names are no-ops.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hooks[name]; !exists {
		return
	}
	delete(r.hooks, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	slog.Info("unregistered hook", "hook", name)
}

// Get returns the hook definition for a name.
func (r *Registry) Get(name string) (Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.hooks[name]
	if !ok {
		return Hook{}, false
	}
	return reg.hook, true
}

// SetEnabled toggles a hook without touching its binding.
// Returns false if the hook is unknown.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.hooks[name]
	if !ok {
		return false
	}
	reg.hook.Enabled = enabled
	return true
}

// List returns hook definitions in registration order.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := make([]Hook, 0, len(r.order))
	for _, name := range r.order {
		hooks = append(hooks, r.hooks[name].hook)
	}
	return hooks
}

// snapshot copies the current registrations in order, so dispatch iterates
// without holding the lock across handler execution.
func (r *Registry) snapshot() []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]registration, 0, len(r.order))
	for _, name := range r.order {
		regs = append(regs, *r.hooks[name])
	}
	return regs
}
