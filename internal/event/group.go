package event

import (
	"errors"
	"sync"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// Group tracks several subscriptions so they can be cancelled together.
type Group struct {
	bus    Bus
	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

// NewGroup creates an empty group on bus.
func NewGroup(bus Bus) *Group {
	return &Group{bus: bus}
}

// Bus returns the underlying bus.
func (g *Group) Bus() Bus {
	return g.bus
}

// Subscribe subscribes through the group's bus and tracks the result.
func (g *Group) Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrGroupClosed
	}
	sub, err := g.bus.Subscribe(topicPattern, handler, opts...)
	if err != nil {
		return nil, err
	}
	g.subs = append(g.subs, sub)
	return sub, nil
}

// Track adds a subscription created elsewhere, such as by SubscribeWeak.
func (g *Group) Track(sub Subscription) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		_ = g.bus.Unsubscribe(sub)
		return ErrGroupClosed
	}
	g.subs = append(g.subs, sub)
	return nil
}

// Count returns the number of tracked subscriptions.
func (g *Group) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close unsubscribes everything. Subscriptions the bus already pruned are
// ignored. Close is idempotent.
func (g *Group) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for _, sub := range g.subs {
		if err := g.bus.Unsubscribe(sub); err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
			errs = append(errs, err)
		}
	}
	g.subs = nil
	return errors.Join(errs...)
}
