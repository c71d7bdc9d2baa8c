package event

import "context"

// Handler processes events delivered by the bus.
type Handler interface {
	// Handle processes an event. The event is type-erased; use PayloadOf
	// or a type switch to recover it.
	Handle(ctx context.Context, event any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// TypedHandlerFunc handles events of a single payload type.
type TypedHandlerFunc[T any] func(ctx context.Context, event Event[T]) error

// AsHandler adapts fn to a Handler. Events with another payload type are
// skipped.
func AsHandler[T any](fn TypedHandlerFunc[T]) Handler {
	return HandlerFunc(func(ctx context.Context, event any) error {
		if e, ok := event.(Event[T]); ok {
			return fn(ctx, e)
		}
		return nil
	})
}

// PayloadHandler adapts a payload-only function to a Handler.
func PayloadHandler[T any](fn func(ctx context.Context, payload T) error) Handler {
	return HandlerFunc(func(ctx context.Context, event any) error {
		if p, ok := PayloadOf[T](event); ok {
			return fn(ctx, p)
		}
		return nil
	})
}

// Stats is a snapshot of bus counters.
type Stats struct {
	EventsPublished   uint64
	EventsDelivered   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	SubscribersPruned uint64
	ActiveSubscribers int
}
