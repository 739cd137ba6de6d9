package dispatch

import (
	"errors"
	"slices"
	"sync"
)

// ErrNilCallback is returned when registering a handler without a callback
var ErrNilCallback = errors.New("handler callback is nil")

// Registry holds handlers bucketed by priority. Registration normally happens
// before traffic starts; it stays safe afterwards.
type Registry struct {
	mu         sync.RWMutex
	buckets    map[int][]*Handler
	priorities []int // ascending
	count      int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[int][]*Handler)}
}

// Add registers h behind the handlers already at its priority
func (r *Registry) Add(h *Handler) error {
	if h == nil || h.Callback == nil {
		return ErrNilCallback
	}
	if h.Name == "" {
		h.Name = FuncName(h.Callback)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buckets[h.Priority]; !ok {
		i, _ := slices.BinarySearch(r.priorities, h.Priority)
		r.priorities = slices.Insert(r.priorities, i, h.Priority)
	}
	r.buckets[h.Priority] = append(r.buckets[h.Priority], h)
	r.count++
	return nil
}

// Buckets returns a snapshot of the handlers, one slice per priority in
// ascending order, each in registration order.
func (r *Registry) Buckets() [][]*Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([][]*Handler, 0, len(r.priorities))
	for _, p := range r.priorities {
		out = append(out, slices.Clone(r.buckets[p]))
	}
	return out
}

// Len returns the number of registered handlers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
