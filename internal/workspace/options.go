package workspace

import (
	"github.com/dshills/commitdesk/internal/event"
	"github.com/dshills/commitdesk/internal/logging"
	"github.com/dshills/commitdesk/internal/store"
)

// DefaultContextLines is the number of unchanged lines shown around a change.
const DefaultContextLines = 3

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithBus publishes events on b instead of a private bus.
func WithBus(b event.Bus) Option {
	return func(w *Workspace) {
		if b != nil {
			w.bus = b
		}
	}
}

// WithIdentity overrides the identity the store reports for commits.
// Invalid signatures are ignored.
func WithIdentity(sig store.Signature) Option {
	return func(w *Workspace) {
		if sig.Valid() {
			w.identity = &sig
		}
	}
}

// WithClock sets the clock used for commit timestamps.
func WithClock(c Clock) Option {
	return func(w *Workspace) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithContextLines sets the context lines used by Diff.
func WithContextLines(n int) Option {
	return func(w *Workspace) {
		if n >= 0 {
			w.contextLines = n
		}
	}
}
