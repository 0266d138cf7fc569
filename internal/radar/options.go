package radar

import (
	"time"

	"github.com/sirupsen/logrus"
)

type options struct {
	now    func() time.Time
	logger logrus.FieldLogger
	sink   Sink
}

// Option configures a controller.
type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger routes controller diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSink publishes every frame to sink.
func WithSink(sink Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) publish(fr Frame) {
	if o.sink != nil {
		o.sink.Publish(fr)
	}
}
