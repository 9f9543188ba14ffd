package czdb

import (
	"io"
	"log/slog"
)

// config collects the optional knobs every Open* constructor accepts.
type config struct {
	logger  *slog.Logger
	metrics Metrics
}

func newConfig(opts []Option) *config {
	c := &config{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: EmptyMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures an Open* constructor.
type Option func(*config)

// WithLogger sets the logger a Handle uses for its own diagnostic output:
// one Info line at Open with the database's version and entry count.
// Nothing is logged on Close or per query. A Handle with no WithLogger
// option logs nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the Metrics implementation a Handle reports lookups and
// batch queries into. A Handle with no WithMetrics option uses
// EmptyMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}
