package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// Event is a typed event. Events are values and are never modified after
// they are published.
type Event[T any] struct {
	// Type is the topic the event is published on.
	Type topic.Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata is attached to every event.
type Metadata struct {
	// ID is unique per event.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the publishing component.
	Source string

	// CorrelationID groups the events produced by one operation.
	CorrelationID string
}

// NewEvent creates an event with fresh metadata.
func NewEvent[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() topic.Topic {
	return e.Type
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by anything the bus can route.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// MetadataProvider is implemented by events that carry metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}

// PayloadOf extracts a T payload from a type-erased event.
func PayloadOf[T any](ev any) (T, bool) {
	if e, ok := ev.(Event[T]); ok {
		return e.Payload, true
	}
	var zero T
	return zero, false
}
