package logging

import (
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// transportSet is the fan-out of a group of transports.
type transportSet struct {
	specs   []TransportSpec
	core    zapcore.Core
	closers []io.Closer
}

// buildTransports turns specs into zap cores. A nil minimum means the group
// ignores the logger's minimum level, as the exception and rejection sinks do.
func buildTransports(specs []TransportSpec, cfg Config, opts *options, console zapcore.WriteSyncer, minimum *zap.AtomicLevel) transportSet {
	set := transportSet{specs: specs}
	if len(specs) == 0 {
		set.core = zapcore.NewNopCore()
		return set
	}

	cores := make([]zapcore.Core, 0, len(specs))
	for _, spec := range specs {
		var out zapcore.WriteSyncer
		switch spec.Format {
		case FormatFile:
			w := opts.fileFactory(spec, cfg)
			set.closers = append(set.closers, w)
			out = zapcore.AddSync(guardedWriter{w: w})
		default:
			out = console
		}

		cores = append(cores, zapcore.NewCore(newRecordEncoder(spec), out, transportEnabler(spec.Level, minimum)))
	}

	set.core = zapcore.NewTee(cores...)
	return set
}

func transportEnabler(transportLevel Level, minimum *zap.AtomicLevel) zapcore.LevelEnabler {
	floor := transportLevel.zapLevel()
	return zap.LevelEnablerFunc(func(z zapcore.Level) bool {
		if z < floor {
			return false
		}
		return minimum == nil || minimum.Enabled(z)
	})
}

// dropCounter is installed as zap's ErrorOutput. zap reports a record there
// once when at least one transport failed to write it.
type dropCounter struct {
	dropped *atomic.Uint64
	metrics *Metrics
}

func (d *dropCounter) Write(p []byte) (int, error) {
	d.dropped.Add(1)
	d.metrics.recordDropped()
	return len(p), nil
}

func (d *dropCounter) Sync() error {
	return nil
}

// guardedWriter turns a panicking writer into a write error so zap reports
// it as a failed write and its locks stay balanced.
type guardedWriter struct {
	w io.Writer
}

func (g guardedWriter) Write(p []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("transport panic: %v", r)
		}
	}()
	return g.w.Write(p)
}
