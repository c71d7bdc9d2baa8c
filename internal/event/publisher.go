package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// Publisher stamps events with a source and an optional correlation ID
// before handing them to a bus.
type Publisher struct {
	bus         Bus
	source      string
	correlation string
}

// NewPublisher creates a Publisher for the given bus and source name.
func NewPublisher(bus Bus, source string) *Publisher {
	return &Publisher{
		bus:    bus,
		source: source,
	}
}

// Correlated returns a publisher that tags every event with a new
// correlation ID, and that ID.
func (p *Publisher) Correlated() (*Publisher, string) {
	id := uuid.NewString()
	return &Publisher{bus: p.bus, source: p.source, correlation: id}, id
}

// PublishEvent builds an Event[T] stamped with the publisher's source and
// correlation ID and publishes it.
func PublishEvent[T any](ctx context.Context, p *Publisher, eventType topic.Topic, payload T) error {
	ev := Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:            uuid.NewString(),
			Timestamp:     timeNow(),
			Source:        p.source,
			CorrelationID: p.correlation,
		},
	}
	return p.bus.Publish(ctx, ev)
}
