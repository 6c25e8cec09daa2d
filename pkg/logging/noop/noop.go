// Package noop provides a logging.Sink that discards every record with zero
// runtime overhead. Use it when logging is disabled or in benchmarks.
package noop

import (
	"context"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// Sink implements logging.Sink with no-op operations.
type Sink struct{}

// NewSink creates a new no-op sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Log(ctx context.Context, level logging.Level, msg string, meta logging.Meta) {}

func (s *Sink) LogError(ctx context.Context, level logging.Level, err error, meta logging.Meta) {}

var _ logging.Sink = (*Sink)(nil)
