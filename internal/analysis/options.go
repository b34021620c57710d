// internal/analysis/options.go
package analysis

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type options struct {
	log    *zap.Logger
	clock  clock.Clock
	writer BaselineWriter
}

// Option configures a BaselineStore, Detector or Reconstructor.
type Option func(*options)

// WithLogger sets the parent logger. Each component names its own child.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets the clock used for "now".
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithWriter makes a BaselineStore persist every refreshed baseline.
// Other components ignore it.
func WithWriter(w BaselineWriter) Option {
	return func(o *options) { o.writer = w }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
