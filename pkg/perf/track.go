// Package perf measures operations and process memory and reports them as
// performance events.
package perf

import (
	"context"
	"runtime"
	"time"

	"github.com/JailtonJunior94/lexlog/pkg/events"
)

// Track starts a stopwatch for op. The returned func, usually deferred,
// emits performance.slow when the elapsed time exceeds threshold.
//
//	defer perf.Track(ctx, emitter, "report.build", time.Second)()
func Track(ctx context.Context, emitter *events.Emitter, op string, threshold time.Duration) func() {
	return trackWith(ctx, emitter, op, threshold, time.Now)
}

func trackWith(ctx context.Context, emitter *events.Emitter, op string, threshold time.Duration, now func() time.Time) func() {
	start := now()
	return func() {
		if elapsed := now().Sub(start); elapsed > threshold {
			emitter.SlowOperation(ctx, op, elapsed, threshold)
		}
	}
}

// Snapshot reads the current process memory statistics.
func Snapshot() events.MemoryUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return events.MemoryUsage{
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
		HeapSys:    m.HeapSys,
		StackInuse: m.StackInuse,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}
