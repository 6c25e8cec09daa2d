package logging

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink accepts leveled records. Logger, noop and fake implement it.
type Sink interface {
	Log(ctx context.Context, level Level, msg string, meta Meta)
	LogError(ctx context.Context, level Level, err error, meta Meta)
}

// Logger formats records and writes them to the transports chosen by its
// Config. Logging calls never return errors and never panic: a record a
// transport fails to write is counted by Dropped and otherwise discarded.
type Logger struct {
	main       *zap.Logger
	exceptions *zap.Logger
	rejections *zap.Logger
	level      zap.AtomicLevel
	specs      []TransportSpec
	base       Meta
	clock      func() time.Time
	metrics    *Metrics
	shared     *shared
}

type shared struct {
	dropped   atomic.Uint64
	closers   []io.Closer
	closeOnce sync.Once
	closeErr  error
}

// New builds a Logger. It creates cfg.Dir when a file transport is attached
// and returns a *ConfigError wrapping ErrLogDirectory if that fails.
func New(cfg Config, opts ...Option) (*Logger, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if cfg.needsDirectory() {
		if err := ensureDir(cfg.Dir); err != nil {
			return nil, err
		}
	}

	level := zap.NewAtomicLevelAt(cfg.MinimumLevel().zapLevel())
	console := zapcore.Lock(zapcore.AddSync(guardedWriter{w: o.console}))
	state := &shared{}
	errOut := &dropCounter{dropped: &state.dropped, metrics: o.metrics}

	main := buildTransports(cfg.Transports(), cfg, o, console, &level)
	exceptions := buildTransports(cfg.ExceptionTransports(), cfg, o, console, nil)
	rejections := buildTransports(cfg.RejectionTransports(), cfg, o, console, nil)

	for _, set := range []transportSet{main, exceptions, rejections} {
		state.closers = append(state.closers, set.closers...)
	}

	return &Logger{
		main:       zap.New(main.core, zap.ErrorOutput(errOut)),
		exceptions: zap.New(exceptions.core, zap.ErrorOutput(errOut)),
		rejections: zap.New(rejections.core, zap.ErrorOutput(errOut)),
		level:      level,
		specs:      main.specs,
		clock:      o.clock,
		metrics:    o.metrics,
		shared:     state,
	}, nil
}

// Transports returns the transports attached for regular records.
func (l *Logger) Transports() []TransportSpec {
	out := make([]TransportSpec, len(l.specs))
	copy(out, l.specs)
	return out
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return levelFromZap(l.level.Level())
}

// SetLevel changes the minimum level for this logger and its children.
func (l *Logger) SetLevel(level Level) {
	if level.valid() {
		l.level.SetLevel(level.zapLevel())
	}
}

// Enabled reports whether a record at level would pass the minimum level.
func (l *Logger) Enabled(level Level) bool {
	return level.valid() && l.level.Enabled(level.zapLevel())
}

// Dropped is the number of records at least one transport failed to write.
func (l *Logger) Dropped() uint64 {
	return l.shared.dropped.Load()
}

// With returns a child logger whose records carry meta. Fields passed on a
// call take precedence over the child's fields.
func (l *Logger) With(meta Meta) *Logger {
	child := *l
	child.base = l.base.Clone()
	for k, v := range meta {
		child.base[k] = v
	}
	return &child
}

// Log emits msg at level. It is a no-op below the minimum level.
func (l *Logger) Log(ctx context.Context, level Level, msg string, meta Meta) {
	if !l.Enabled(level) {
		return
	}
	l.Write(ctx, NewRecord(level, msg, meta, l.clock()))
}

// LogError emits err at level with its stack trace.
func (l *Logger) LogError(ctx context.Context, level Level, err error, meta Meta) {
	if !l.Enabled(level) {
		return
	}
	l.Write(ctx, NewErrorRecord(level, err, meta, l.clock()))
}

// Write dispatches an already built record.
func (l *Logger) Write(ctx context.Context, rec Record) {
	if !l.Enabled(rec.Level) {
		return
	}
	l.dispatch(ctx, l.main, rec)
}

func (l *Logger) Error(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelError, msg, meta)
}

func (l *Logger) Warn(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelWarn, msg, meta)
}

func (l *Logger) Info(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelInfo, msg, meta)
}

func (l *Logger) HTTP(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelHTTP, msg, meta)
}

func (l *Logger) Verbose(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelVerbose, msg, meta)
}

func (l *Logger) Debug(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelDebug, msg, meta)
}

func (l *Logger) Silly(ctx context.Context, msg string, meta Meta) {
	l.Log(ctx, LevelSilly, msg, meta)
}

// dispatch writes rec to every core of zl that accepts its level.
func (l *Logger) dispatch(ctx context.Context, zl *zap.Logger, rec Record) {
	defer func() {
		if recover() != nil {
			l.shared.dropped.Add(1)
			l.metrics.recordDropped()
		}
	}()

	ce := zl.Check(rec.Level.zapLevel(), rec.Message)
	if ce == nil {
		return
	}

	ce.Time = rec.Timestamp
	ce.Stack = rec.Stack
	ce.Write(l.fields(ctx, rec.Meta)...)
	l.metrics.recordEmitted(rec.Level)
}

func (l *Logger) fields(ctx context.Context, meta Meta) []zap.Field {
	merged := make(Meta, len(l.base)+len(meta)+2)
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range meta {
		merged[k] = v
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		if _, ok := merged["trace_id"]; !ok {
			merged["trace_id"] = sc.TraceID().String()
		}
		if _, ok := merged["span_id"]; !ok {
			merged["span_id"] = sc.SpanID().String()
		}
	}

	if len(merged) == 0 {
		return nil
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, normalizeValue(merged[k])))
	}
	return fields
}

// normalizeValue keeps errors readable in JSON meta.
func normalizeValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

// Sync flushes every transport.
func (l *Logger) Sync() error {
	return errors.Join(l.main.Sync(), l.exceptions.Sync(), l.rejections.Sync())
}

// Close flushes and closes the file transports. Console sync errors, common
// on terminals, are ignored. Close is safe to call more than once.
func (l *Logger) Close() error {
	l.shared.closeOnce.Do(func() {
		_ = l.Sync()
		var errs []error
		for _, c := range l.shared.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		l.shared.closeErr = errors.Join(errs...)
	})
	return l.shared.closeErr
}
