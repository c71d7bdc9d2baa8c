package event

import (
	"context"
	"weak"

	"github.com/dshills/commitdesk/internal/event/topic"
)

// WeakHandlerFunc receives the live owner of a weak subscription.
type WeakHandlerFunc[T any] func(owner *T, ctx context.Context, event any) error

// SubscribeWeak subscribes fn on behalf of owner without keeping owner
// reachable. After owner is collected the handler is no longer called and
// the subscription is dropped the next time a publish reaches it.
//
// fn must not capture owner, directly or through a method value, or the
// subscription will keep it alive. Pass a method expression such as
// (*ChangeList).handle or a closure over other state.
func SubscribeWeak[T any](b Bus, topicPattern topic.Topic, owner *T, fn WeakHandlerFunc[T], opts ...SubscriptionOption) (Subscription, error) {
	if owner == nil || fn == nil {
		return nil, ErrNilHandler
	}

	ref := weak.Make(owner)
	handler := HandlerFunc(func(ctx context.Context, event any) error {
		o := ref.Value()
		if o == nil {
			return nil
		}
		return fn(o, ctx, event)
	})
	alive := func() bool { return ref.Value() != nil }

	return b.Subscribe(topicPattern, handler, append(opts, withLiveness(alive))...)
}
