package transport

import (
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	id      string
	event   string
	handler Handler
}

// Registry fans events out to handlers registered by event name.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	order         []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[string]*subscription),
	}
}

// On registers handler for event. A nil handler is ignored and yields "".
func (r *Registry) On(event string, handler Handler) string {
	if handler == nil || event == "" {
		return ""
	}
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions[id] = &subscription{id: id, event: event, handler: handler}
	r.order = append(r.order, id)
	return id
}

// Off removes a subscription by id.
func (r *Registry) Off(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscriptions[id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(r.subscriptions, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Emit delivers ev to matching handlers in registration order.
func (r *Registry) Emit(ev Event) {
	r.mu.RLock()
	var handlers []Handler
	for _, id := range r.order {
		sub := r.subscriptions[id]
		if sub != nil && sub.event == ev.Name {
			handlers = append(handlers, sub.handler)
		}
	}
	r.mu.RUnlock()

	// Invoke outside the lock so handlers may call On/Off.
	for _, handler := range handlers {
		handler(ev)
	}
}

// Count returns the number of handlers for event, or all handlers when event is "".
func (r *Registry) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if event == "" {
		return len(r.subscriptions)
	}
	n := 0
	for _, sub := range r.subscriptions {
		if sub.event == event {
			n++
		}
	}
	return n
}

// Clear drops every subscription.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions = make(map[string]*subscription)
	r.order = nil
}

// ErrSubscriptionNotFound is returned by Off for unknown ids.
var ErrSubscriptionNotFound = &RegistryError{Message: "subscription not found"}

// RegistryError represents an error from registry operations.
type RegistryError struct {
	Message string
}

func (e *RegistryError) Error() string {
	return "transport: " + e.Message
}
