package events

import (
	"context"
	"time"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// MemoryUsage is a snapshot of process memory, in bytes.
type MemoryUsage struct {
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapInuse  uint64 `json:"heapInuse"`
	HeapSys    uint64 `json:"heapSys"`
	StackInuse uint64 `json:"stackInuse"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

// SlowOperation logs duration and threshold in milliseconds.
func (e *Emitter) SlowOperation(ctx context.Context, operation string, duration, threshold time.Duration) {
	e.emit(ctx, EventPerformanceSlow, "Slow operation: "+operation, logging.Meta{
		"operation": operation,
		"duration":  millis(duration),
		"threshold": millis(threshold),
	})
}

func (e *Emitter) MemoryUsage(ctx context.Context, usage MemoryUsage) {
	e.emit(ctx, EventPerformanceMemory, "Memory usage", logging.Meta{
		"usage": usage,
	})
}
