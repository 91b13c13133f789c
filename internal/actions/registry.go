package actions

import (
	"sort"
	"sync"

	"github.com/helion-data/scanflow/pkg/schema"
)

// Registry is the concrete thread-safe HandlerRegistry implementation.
// Unknown kinds resolve to the handler registered under the default kind, so
// a workflow never fails dispatch just because a kind has no dedicated
// handler.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler to the registry. Returns error on duplicate kind.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return schema.NewError(schema.ErrKindValidation, "handler is nil")
	}
	kind := h.Kind()
	if kind == "" {
		return schema.NewError(schema.ErrKindValidation, "handler kind is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		return schema.NewErrorf(schema.ErrKindValidation, "handler for kind %q already registered", kind)
	}

	r.handlers[kind] = h
	return nil
}

// Resolve retrieves the handler for a kind, falling back to the default
// handler when the kind has no dedicated registration.
func (r *Registry) Resolve(kind string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[kind]; ok {
		return h, nil
	}
	if h, ok := r.handlers[string(schema.ActionKindDefault)]; ok {
		return h, nil
	}
	return nil, schema.NewErrorf(schema.ErrKindValidation,
		"no handler for kind %q and no default handler registered", kind)
}

// List returns info for all registered handlers, sorted by kind.
func (r *Registry) List() []HandlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]HandlerInfo, 0, len(r.handlers))
	for _, h := range r.handlers {
		s := h.Schema()
		infos = append(infos, HandlerInfo{
			Kind:        h.Kind(),
			Description: s.Description,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Kind < infos[j].Kind
	})
	return infos
}

// Has checks if a kind has a dedicated handler.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

var _ HandlerRegistry = (*Registry)(nil)
