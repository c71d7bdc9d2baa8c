package watch

import (
	"time"

	"github.com/dshills/commitdesk/internal/logging"
)

// DefaultDebounce is the quiet period before a batch is flushed.
const DefaultDebounce = 200 * time.Millisecond

type config struct {
	debounce time.Duration
	buffer   int
	ignore   []string
	logger   logging.Logger
}

func defaultConfig() config {
	return config{
		debounce: DefaultDebounce,
		buffer:   16,
		logger:   logging.Nop(),
	}
}

// Option configures a Watcher.
type Option func(*config)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithBufferSize sets the capacity of the batch and error channels.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithIgnore skips directories and files with any of the given base names,
// such as "node_modules".
func WithIgnore(names ...string) Option {
	return func(c *config) {
		c.ignore = append(c.ignore, names...)
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
