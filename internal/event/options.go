package event

import "github.com/dshills/commitdesk/internal/logging"

// BusOption configures an event Bus.
type BusOption func(*busConfig)

type busConfig struct {
	logger logging.Logger
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: logging.Nop(),
	}
}

// WithLogger sets the logger used to report handler errors.
func WithLogger(l logging.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
