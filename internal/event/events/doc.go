// Package events defines the topics and payloads the workspace publishes.
//
// Change events come in two phases per operation. All removals, from both
// sides, are published first; additions and updates follow. A path that
// moves from one side to the other is therefore never present on both sides
// at once for an observer that applies events as they arrive.
//
// Positions in ChangeAdded, ChangeRemoved and ChangeUpdated are row indexes
// into the side's list as it stands when the event is delivered.
//
//	sub, _ := bus.Subscribe(events.TopicStagedAdded,
//	    event.PayloadHandler(func(ctx context.Context, p events.ChangeAdded) error {
//	        rows = slices.Insert(rows, p.At, p.Change)
//	        return nil
//	    }))
package events
