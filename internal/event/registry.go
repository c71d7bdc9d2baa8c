package event

import (
	"sync"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// Registry holds subscriptions in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	seq  uint64
	subs []*subscription
	byID map[string]*subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*subscription),
	}
}

// Add appends a subscription and stamps its registration sequence.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub.seq = r.seq
	r.subs = append(r.subs, sub)
	r.byID[sub.ID()] = sub
}

// Remove removes a subscription by ID.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[subID]; !ok {
		return false
	}
	delete(r.byID, subID)

	for i, s := range r.subs {
		if s.ID() == subID {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			break
		}
	}
	return true
}

// Match returns the subscriptions whose pattern selects eventTopic, in
// registration order. The result is a copy.
func (r *Registry) Match(eventTopic topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*subscription
	for _, s := range r.subs {
		if eventTopic.Matches(s.Topic()) {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs)
}

// CountActive returns the number of active subscriptions whose subscriber
// is still alive.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.subs {
		if s.IsActive() && s.Alive() {
			n++
		}
	}
	return n
}
