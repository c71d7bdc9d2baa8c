package event

import (
	"sync/atomic"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// Subscription is the token returned by Subscribe.
type Subscription interface {
	ID() string

	// Topic returns the pattern the subscription was registered with.
	Topic() topic.Topic

	// IsActive reports whether events are still delivered.
	IsActive() bool

	// Cancel stops delivery. It does not remove the subscription from the
	// bus; use Bus.Unsubscribe for that.
	Cancel()
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	once bool

	// alive reports whether the subscriber still exists. Nil means always.
	alive func() bool
}

// WithOnce removes the subscription after its first successful delivery.
func WithOnce() SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.once = true
	}
}

func withLiveness(alive func() bool) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.alive = alive
	}
}

type subscription struct {
	id        string
	seq       uint64
	topic     topic.Topic
	handler   Handler
	config    subscriptionConfig
	cancelled atomic.Bool
}

func newSubscription(id string, t topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	s := &subscription{id: id, topic: t, handler: h}
	for _, opt := range opts {
		opt(&s.config)
	}
	return s
}

func (s *subscription) ID() string         { return s.id }
func (s *subscription) Topic() topic.Topic { return s.topic }
func (s *subscription) IsActive() bool     { return !s.cancelled.Load() }
func (s *subscription) Cancel()            { s.cancelled.Store(true) }

// Alive reports whether the owner of a weak subscription is still
// reachable. Strong subscriptions are always alive.
func (s *subscription) Alive() bool {
	return s.config.alive == nil || s.config.alive()
}
