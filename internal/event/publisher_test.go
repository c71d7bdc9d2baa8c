package event

import (
	"context"
	"testing"
	"time"
)

func TestPublisher_PublishEvent(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	bus := NewBus()
	var got []Event[string]
	bus.Subscribe("workspace.**", AsHandler(func(ctx context.Context, ev Event[string]) error {
		got = append(got, ev)
		return nil
	}))

	pub := NewPublisher(bus, "workspace")
	op, id := pub.Correlated()

	if err := PublishEvent(context.Background(), op, "workspace.committed", "c1"); err != nil {
		t.Fatalf("PublishEvent() failed: %v", err)
	}
	if err := PublishEvent(context.Background(), pub, "workspace.refreshed", "r"); err != nil {
		t.Fatalf("PublishEvent() failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	first := got[0]
	if first.Metadata.Source != "workspace" || !first.Metadata.Timestamp.Equal(fixed) {
		t.Errorf("unexpected metadata %+v", first.Metadata)
	}
	if first.Metadata.CorrelationID != id || id == "" {
		t.Errorf("correlation = %q, want %q", first.Metadata.CorrelationID, id)
	}
	if got[1].Metadata.CorrelationID != "" {
		t.Errorf("uncorrelated publisher set correlation %q", got[1].Metadata.CorrelationID)
	}
	if first.Metadata.ID == got[1].Metadata.ID {
		t.Error("event IDs not unique")
	}
}

func TestGroup_Close(t *testing.T) {
	bus := NewBus()
	g := NewGroup(bus)

	calls := 0
	h := HandlerFunc(func(ctx context.Context, event any) error {
		calls++
		return nil
	})

	if _, err := g.Subscribe("t.x", h); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	sub, _ := bus.Subscribe("t.y", h)
	if err := g.Track(sub); err != nil {
		t.Fatalf("Track() failed: %v", err)
	}
	if g.Count() != 2 {
		t.Errorf("Count() = %d, want 2", g.Count())
	}

	// Already gone from the bus; Close must tolerate it.
	bus.Unsubscribe(sub)

	if err := g.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}

	bus.Publish(context.Background(), NewEvent("t.x", 0, "test"))
	if calls != 0 {
		t.Errorf("calls = %d after Close", calls)
	}
	if _, err := g.Subscribe("t.x", h); err != ErrGroupClosed {
		t.Errorf("expected ErrGroupClosed, got %v", err)
	}
}
