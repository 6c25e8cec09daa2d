// Package events emits the structured events of the application: auth,
// api, database, security and performance records with fixed names, fixed
// severities and fixed meta schemas.
package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// Event names.
const (
	EventAuthLogin          = "auth.login"
	EventAuthLogout         = "auth.logout"
	EventAuthFailed         = "auth.failed"
	EventAPIRequest         = "api.request"
	EventAPIResponse        = "api.response"
	EventAPIError           = "api.error"
	EventDatabaseQuery      = "database.query"
	EventDatabaseError      = "database.error"
	EventSecurityRateLimit  = "security.rateLimit"
	EventSecuritySuspicious = "security.suspicious"
	EventPerformanceSlow    = "performance.slow"
	EventPerformanceMemory  = "performance.memory"
)

// Severity returns the fixed level of an event, and false for unknown names.
func Severity(event string) (logging.Level, bool) {
	lvl, ok := severities[event]
	return lvl, ok
}

var severities = map[string]logging.Level{
	EventAuthLogin:          logging.LevelInfo,
	EventAuthLogout:         logging.LevelInfo,
	EventAuthFailed:         logging.LevelWarn,
	EventAPIRequest:         logging.LevelHTTP,
	EventAPIResponse:        logging.LevelHTTP,
	EventAPIError:           logging.LevelError,
	EventDatabaseQuery:      logging.LevelDebug,
	EventDatabaseError:      logging.LevelError,
	EventSecurityRateLimit:  logging.LevelWarn,
	EventSecuritySuspicious: logging.LevelWarn,
	EventPerformanceSlow:    logging.LevelWarn,
	EventPerformanceMemory:  logging.LevelInfo,
}

// Emitter writes structured events to a sink. It never validates fields.
type Emitter struct {
	sink       logging.Sink
	clock      func() time.Time
	dispatcher *Dispatcher
	onFailure  func(context.Context, error)
	failed     atomic.Uint64
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithClock overrides the clock used for the timestamp field.
func WithClock(clock func() time.Time) Option {
	return func(e *Emitter) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithDispatcher hands every emitted event to d after it is logged.
func WithDispatcher(d *Dispatcher) Option {
	return func(e *Emitter) {
		e.dispatcher = d
	}
}

// WithFailureHandler receives the joined error of every dispatch in which a
// handler failed or panicked. fn must not emit events.
func WithFailureHandler(fn func(ctx context.Context, err error)) Option {
	return func(e *Emitter) {
		e.onFailure = fn
	}
}

// NewEmitter returns an Emitter writing to sink. A nil sink discards events.
func NewEmitter(sink logging.Sink, opts ...Option) *Emitter {
	if sink == nil {
		sink = logging.FromContext(context.Background())
	}
	e := &Emitter{sink: sink, clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandlerFailures is the number of dispatches in which a handler failed.
// Handler errors never reach the emitting caller.
func (e *Emitter) HandlerFailures() uint64 {
	return e.failed.Load()
}

func (e *Emitter) emit(ctx context.Context, event, msg string, meta logging.Meta) {
	meta["event"] = event
	meta["timestamp"] = e.clock().UTC().Format(logging.TimestampLayout)
	level := severities[event]
	e.sink.Log(ctx, level, msg, meta)

	if e.dispatcher == nil {
		return
	}
	err := e.dispatcher.Dispatch(ctx, Event{Name: event, Level: level, Message: msg, Meta: meta.Clone()})
	if err == nil {
		return
	}
	e.failed.Add(1)
	if e.onFailure != nil {
		e.onFailure(ctx, err)
	}
}

func setIfNotEmpty(meta logging.Meta, key, value string) {
	if value != "" {
		meta[key] = value
	}
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
