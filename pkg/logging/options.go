package logging

import (
	"io"
	"os"
	"time"
)

// FileWriterFactory opens the writer behind a file transport.
type FileWriterFactory func(spec TransportSpec, cfg Config) io.WriteCloser

// Option configures a Logger.
type Option func(*options)

type options struct {
	clock       func() time.Time
	console     io.Writer
	fileFactory FileWriterFactory
	metrics     *Metrics
}

func defaultOptions() *options {
	return &options{
		clock:       time.Now,
		console:     os.Stdout,
		fileFactory: newRotatingFile,
	}
}

// WithClock overrides the clock used to stamp records.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithConsoleWriter redirects console transports, which default to stdout.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.console = w
		}
	}
}

// WithFileWriterFactory replaces the rotating file writer.
func WithFileWriterFactory(factory FileWriterFactory) Option {
	return func(o *options) {
		if factory != nil {
			o.fileFactory = factory
		}
	}
}

// WithMetrics reports emitted and dropped records to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
