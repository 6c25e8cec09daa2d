package perf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

var (
	// ErrInvalidInterval is returned for sampling intervals under one second.
	ErrInvalidInterval = errors.New("sampling interval must be at least 1s")

	// ErrSamplerRunning is returned by Start on a running sampler.
	ErrSamplerRunning = errors.New("memory sampler already running")
)

// MemorySampler emits performance.memory on a fixed interval.
type MemorySampler struct {
	emitter  *events.Emitter
	interval time.Duration
	snapshot func() events.MemoryUsage
	sink     logging.Sink

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewMemorySampler builds a sampler. sink receives the scheduler's own
// diagnostics and may be nil. When sink can also capture panics, as
// *logging.Logger does, a panicking sample is written there.
func NewMemorySampler(emitter *events.Emitter, interval time.Duration, sink logging.Sink) (*MemorySampler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidInterval, interval)
	}
	if sink == nil {
		sink = logging.FromContext(context.Background())
	}

	return &MemorySampler{
		emitter:  emitter,
		interval: interval,
		snapshot: Snapshot,
		sink:     sink,
	}, nil
}

// Start schedules sampling. ctx is attached to every emitted event.
func (s *MemorySampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSamplerRunning
	}

	logger := newCronLogger(s.sink)
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	spec := "@every " + s.interval.String()
	if _, err := c.AddFunc(spec, func() { s.Sample(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	s.running = true
	return nil
}

// Sample emits one performance.memory event immediately.
func (s *MemorySampler) Sample(ctx context.Context) {
	s.emitter.MemoryUsage(ctx, s.snapshot())
}

// Stop unschedules sampling and waits for a running sample to finish or for
// ctx to expire.
func (s *MemorySampler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// panicCapturer receives job panics recovered by cron.Recover.
type panicCapturer interface {
	CapturePanic(ctx context.Context, v any, stack string)
}

// cronLogger adapts a logging.Sink to cron.Logger.
type cronLogger struct {
	sink     logging.Sink
	capturer panicCapturer
}

func newCronLogger(sink logging.Sink) cron.Logger {
	capturer, _ := sink.(panicCapturer)
	return &cronLogger{sink: sink, capturer: capturer}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sink.Log(context.Background(), logging.LevelVerbose, msg, toMeta(keysAndValues))
}

// Error receives cron.Recover's reports as msg "panic" with a "stack" value;
// those go to the capturer when there is one.
func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	meta := toMeta(keysAndValues)
	if msg == "panic" && l.capturer != nil {
		stack, _ := meta["stack"].(string)
		l.capturer.CapturePanic(context.Background(), err, stack)
		return
	}
	meta["scheduler"] = msg
	l.sink.LogError(context.Background(), logging.LevelError, err, meta)
}

func toMeta(keysAndValues []interface{}) logging.Meta {
	meta := logging.Meta{"component": "memory-sampler"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		value := keysAndValues[i+1]
		if t, ok := value.(time.Time); ok {
			value = t.UTC().Format(logging.TimestampLayout)
		}
		meta[key] = value
	}
	return meta
}
