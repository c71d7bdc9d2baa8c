// Package event is the in-process notification bus that carries workspace
// changes to observers.
//
// Delivery is synchronous: Publish runs every matching handler on the
// caller's goroutine, one after another, and returns once the last handler
// has finished. Handlers for the same event run in the order their
// subscriptions were created, regardless of which pattern they used.
//
// # Topics
//
// Events are routed by hierarchical topic (see package topic). A
// subscription names either an exact topic or a wildcard pattern:
//
//	workspace.staged.added     exact
//	workspace.*.removed        removals on either side
//	workspace.**               everything the workspace publishes
//
// # Weak subscriptions
//
// SubscribeWeak ties a subscription to the lifetime of an owner value
// without keeping that owner reachable. Once the owner has been garbage
// collected its handler is skipped and the subscription is pruned on the
// next publish that reaches it.
//
//	list := view.NewChangeList(change.Staged)
//	event.SubscribeWeak(bus, "workspace.staged.*", list,
//	    func(l *view.ChangeList, ctx context.Context, ev any) error {
//	        return l.Handle(ev)
//	    })
//
// The handler receives the owner as an argument and must not capture it.
//
// # Errors
//
// A handler error does not stop delivery to later handlers. Publish
// returns all handler errors joined, each wrapped in a *HandlerError. A
// panicking handler is not recovered.
package event
