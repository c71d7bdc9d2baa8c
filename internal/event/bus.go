package event

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// Bus is the synchronous publish/subscribe interface.
type Bus interface {
	// Publish delivers event to every matching subscription in
	// registration order and returns when all handlers have run.
	Publish(ctx context.Context, event any) error

	Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)
	SubscribeFunc(topicPattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)
	Unsubscribe(sub Subscription) error

	Stats() Stats
}

type bus struct {
	registry *Registry
	config   busConfig

	eventsPublished   atomic.Uint64
	eventsDelivered   atomic.Uint64
	handlersExecuted  atomic.Uint64
	handlerErrors     atomic.Uint64
	subscribersPruned atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &bus{
		registry: NewRegistry(),
		config:   config,
	}
}

func (b *bus) Publish(ctx context.Context, event any) error {
	eventTopic := extractTopic(event)
	if eventTopic == "" {
		return ErrInvalidEvent
	}

	subs := b.registry.Match(eventTopic)
	b.eventsPublished.Add(1)

	var errs []error
	for _, sub := range subs {
		if !sub.Alive() {
			if b.registry.Remove(sub.ID()) {
				b.subscribersPruned.Add(1)
				b.config.logger.Debug("pruned collected subscriber",
					"subscription", sub.ID(), "topic", sub.Topic().String())
			}
			continue
		}
		if !sub.IsActive() {
			continue
		}

		err := sub.handler.Handle(ctx, event)
		b.handlersExecuted.Add(1)
		if err != nil {
			b.handlerErrors.Add(1)
			b.config.logger.Warn("event handler failed",
				"topic", eventTopic.String(), "subscription", sub.ID(), "error", err)
			errs = append(errs, &HandlerError{
				SubscriptionID: sub.ID(),
				Topic:          eventTopic.String(),
				Err:            err,
			})
			continue
		}
		b.eventsDelivered.Add(1)

		if sub.config.once {
			sub.Cancel()
			b.registry.Remove(sub.ID())
		}
	}

	return errors.Join(errs...)
}

func (b *bus) Subscribe(topicPattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !topicPattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(uuid.NewString(), topicPattern, handler, opts...)
	b.registry.Add(sub)
	return sub, nil
}

func (b *bus) SubscribeFunc(topicPattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(topicPattern, fn, opts...)
}

func (b *bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()
	if !b.registry.Remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *bus) Stats() Stats {
	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		SubscribersPruned: b.subscribersPruned.Load(),
		ActiveSubscribers: b.registry.CountActive(),
	}
}

func extractTopic(event any) topic.Topic {
	if tp, ok := event.(TopicProvider); ok {
		return tp.EventTopic()
	}
	return ""
}
