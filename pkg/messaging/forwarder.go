package messaging

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// Header names set on every forwarded message.
const (
	HeaderContentType = "content_type"
	HeaderEvent       = "event"
	HeaderLevel       = "level"
	HeaderEventID     = "event_id"
)

const (
	contentTypeJSON  = "application/json"
	defaultQueueSize = 1024
)

var (
	ErrTopicEmpty = errors.New("topic cannot be empty")

	// ErrQueueFull is returned by Handle when the event was dropped.
	ErrQueueFull = errors.New("forward queue is full")

	// ErrForwarderClosed is returned by Handle after Close.
	ErrForwarderClosed = errors.New("forwarder is closed")

	// ErrForwarderRunning is returned by a second call to Run.
	ErrForwarderRunning = errors.New("forwarder already running")
)

// Envelope is the JSON body of a forwarded event.
type Envelope struct {
	ID        string       `json:"id"`
	Event     string       `json:"event"`
	Level     string       `json:"level"`
	Message   string       `json:"message"`
	Meta      logging.Meta `json:"meta,omitempty"`
	EmittedAt time.Time    `json:"emittedAt"`
}

// Forwarder is an events.Handler that publishes events to a broker. Events
// less severe than the configured level are skipped. Handle only enqueues;
// Run publishes from the queue, so emitting callers never wait on the broker.
type Forwarder struct {
	publisher Publisher
	topic     string
	level     logging.Level
	now       func() time.Time
	onError   func(context.Context, error)

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	queueMu sync.RWMutex
	queue   chan pending
	closed  bool
	running atomic.Bool
	done    chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

type pending struct {
	id    string
	event events.Event
	at    time.Time
}

type ForwarderOption func(*Forwarder)

// WithMinLevel forwards only events at level or more severe. Default warn.
func WithMinLevel(level logging.Level) ForwarderOption {
	return func(f *Forwarder) {
		f.level = level
	}
}

func WithClock(now func() time.Time) ForwarderOption {
	return func(f *Forwarder) {
		f.now = now
	}
}

// WithQueueSize bounds the number of events waiting to be published.
// Default 1024.
func WithQueueSize(size int) ForwarderOption {
	return func(f *Forwarder) {
		if size > 0 {
			f.queue = make(chan pending, size)
		}
	}
}

// WithErrorHandler receives every publish failure from Run.
func WithErrorHandler(fn func(ctx context.Context, err error)) ForwarderOption {
	return func(f *Forwarder) {
		f.onError = fn
	}
}

func NewForwarder(publisher Publisher, topic string, opts ...ForwarderOption) (*Forwarder, error) {
	if topic == "" {
		return nil, ErrTopicEmpty
	}

	f := &Forwarder{
		publisher: publisher,
		topic:     topic,
		level:     logging.LevelWarn,
		now:       time.Now,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		queue:     make(chan pending, defaultQueueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Handle queues event for publishing. It never blocks: when the queue is
// full the event is dropped and counted.
func (f *Forwarder) Handle(_ context.Context, event events.Event) error {
	if !event.Level.Enabled(f.level) {
		return nil
	}

	at := f.now()
	id, err := f.newID(at)
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}

	f.queueMu.RLock()
	defer f.queueMu.RUnlock()

	if f.closed {
		f.dropped.Add(1)
		return ErrForwarderClosed
	}

	select {
	case f.queue <- pending{id: id, event: event, at: at}:
		return nil
	default:
		f.dropped.Add(1)
		return fmt.Errorf("%w: %s", ErrQueueFull, event.Name)
	}
}

// Run publishes queued events until Close has been called and the queue is
// drained, or until ctx is cancelled. Publish failures are counted and handed
// to the error handler.
func (f *Forwarder) Run(ctx context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		return ErrForwarderRunning
	}
	defer close(f.done)

	for {
		select {
		case p, ok := <-f.queue:
			if !ok {
				return nil
			}
			if err := f.publish(ctx, p); err != nil {
				f.failed.Add(1)
				if f.onError != nil {
					f.onError(ctx, err)
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting events and waits for Run to drain the queue or for
// ctx to expire. It does not close the publisher.
func (f *Forwarder) Close(ctx context.Context) error {
	f.queueMu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.queueMu.Unlock()

	if !f.running.Load() {
		return nil
	}

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped is the number of events discarded because the queue was full or
// the forwarder was closed.
func (f *Forwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Failed is the number of events the publisher rejected.
func (f *Forwarder) Failed() uint64 {
	return f.failed.Load()
}

// publish sends p keyed by its event name so a partitioned topic keeps each
// event kind in order.
func (f *Forwarder) publish(ctx context.Context, p pending) error {
	event := p.event
	body, err := json.Marshal(Envelope{
		ID:        p.id,
		Event:     event.Name,
		Level:     event.Level.String(),
		Message:   event.Message,
		Meta:      event.Meta,
		EmittedAt: p.at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Name, err)
	}

	headers := map[string]string{
		HeaderContentType: contentTypeJSON,
		HeaderEvent:       event.Name,
		HeaderLevel:       event.Level.String(),
		HeaderEventID:     p.id,
	}

	if err := f.publisher.Publish(ctx, f.topic, event.Name, headers, &Message{Body: body}); err != nil {
		return fmt.Errorf("forward %s: %w", event.Name, err)
	}
	return nil
}

func (f *Forwarder) newID(at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at), f.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
