package perf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
	"github.com/JailtonJunior94/lexlog/pkg/logging/fake"
)

func TestTrack(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		emitted bool
	}{
		{name: "under threshold", elapsed: 50 * time.Millisecond, emitted: false},
		{name: "at threshold", elapsed: 100 * time.Millisecond, emitted: false},
		{name: "over threshold", elapsed: 250 * time.Millisecond, emitted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := fake.NewSink()
			calls := 0
			now := func() time.Time {
				calls++
				if calls == 1 {
					return start
				}
				return start.Add(tt.elapsed)
			}

			done := trackWith(context.Background(), events.NewEmitter(sink), "report.build", 100*time.Millisecond, now)
			done()

			if !tt.emitted {
				assert.Empty(t, sink.GetEntries())
				return
			}
			entry, ok := sink.Last()
			require.True(t, ok)
			assert.Equal(t, logging.LevelWarn, entry.Level)
			assert.Equal(t, events.EventPerformanceSlow, entry.Meta["event"])
			assert.Equal(t, "report.build", entry.Meta["operation"])
			assert.Equal(t, int64(250), entry.Meta["duration"])
		})
	}
}

func TestSnapshot(t *testing.T) {
	usage := Snapshot()
	assert.NotZero(t, usage.Sys)
	assert.NotZero(t, usage.HeapSys)
	assert.GreaterOrEqual(t, usage.Goroutines, 1)
}

func TestNewMemorySamplerRejectsShortInterval(t *testing.T) {
	_, err := NewMemorySampler(events.NewEmitter(fake.NewSink()), 10*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestMemorySamplerSample(t *testing.T) {
	sink := fake.NewSink()
	sampler, err := NewMemorySampler(events.NewEmitter(sink), time.Minute, nil)
	require.NoError(t, err)
	sampler.snapshot = func() events.MemoryUsage { return events.MemoryUsage{HeapAlloc: 42} }

	sampler.Sample(context.Background())

	entry, ok := sink.Last()
	require.True(t, ok)
	assert.Equal(t, logging.LevelInfo, entry.Level)
	assert.Equal(t, events.EventPerformanceMemory, entry.Meta["event"])
	assert.Equal(t, events.MemoryUsage{HeapAlloc: 42}, entry.Meta["usage"])
}

func TestMemorySamplerSchedules(t *testing.T) {
	sink := fake.NewSink()
	sampler, err := NewMemorySampler(events.NewEmitter(sink), time.Second, sink)
	require.NoError(t, err)

	require.NoError(t, sampler.Start(context.Background()))
	assert.ErrorIs(t, sampler.Start(context.Background()), ErrSamplerRunning)

	assert.Eventually(t, func() bool {
		for _, e := range sink.ByLevel(logging.LevelInfo) {
			if e.Meta["event"] == events.EventPerformanceMemory {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sampler.Stop(ctx))
	require.NoError(t, sampler.Stop(ctx))

	require.NoError(t, sampler.Start(context.Background()))
	require.NoError(t, sampler.Stop(ctx))
}

func TestCronLogger(t *testing.T) {
	sink := fake.NewSink()
	logger := newCronLogger(sink)
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	logger.Info("wake", "now", at, "entries", 1, 42, "orphan")
	info, ok := sink.Last()
	require.True(t, ok)
	assert.Equal(t, logging.LevelVerbose, info.Level)
	assert.Equal(t, "wake", info.Message)
	assert.Equal(t, "2024-01-01T12:00:00.000Z", info.Meta["now"])
	assert.Equal(t, 1, info.Meta["entries"])
	assert.Equal(t, "memory-sampler", info.Meta["component"])

	logger.Error(errors.New("job panicked"), "panic", "job", "memory")
	failure, ok := sink.Last()
	require.True(t, ok)
	assert.Equal(t, logging.LevelError, failure.Level)
	assert.EqualError(t, failure.Err, "job panicked")
	assert.Equal(t, "panic", failure.Meta["scheduler"])
}

type capturingSink struct {
	*fake.Sink

	mu     sync.Mutex
	values []any
	stacks []string
}

func (s *capturingSink) CapturePanic(_ context.Context, v any, stack string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, v)
	s.stacks = append(s.stacks, stack)
}

func (s *capturingSink) captured() ([]any, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.values...), append([]string(nil), s.stacks...)
}

func TestCronLoggerSendsPanicsToCapturer(t *testing.T) {
	sink := &capturingSink{Sink: fake.NewSink()}
	logger := newCronLogger(sink)

	logger.Error(errors.New("sample failed"), "panic", "stack", "...\ngoroutine 7 [running]:")
	values, stacks := sink.captured()
	require.Len(t, values, 1)
	assert.EqualError(t, values[0].(error), "sample failed")
	assert.Contains(t, stacks[0], "goroutine 7")
	assert.Empty(t, sink.GetEntries())

	logger.Error(errors.New("bad spec"), "schedule")
	assert.Len(t, sink.GetEntries(), 1)
}

func TestMemorySamplerPanicReachesCapturer(t *testing.T) {
	sink := &capturingSink{Sink: fake.NewSink()}
	sampler, err := NewMemorySampler(events.NewEmitter(sink), time.Second, sink)
	require.NoError(t, err)
	sampler.snapshot = func() events.MemoryUsage { panic("stats unavailable") }

	require.NoError(t, sampler.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sampler.Stop(ctx)
	})

	assert.Eventually(t, func() bool {
		values, _ := sink.captured()
		return len(values) > 0
	}, 5*time.Second, 50*time.Millisecond)

	values, stacks := sink.captured()
	assert.EqualError(t, values[0].(error), "stats unavailable")
	assert.NotEmpty(t, stacks[0])
}
