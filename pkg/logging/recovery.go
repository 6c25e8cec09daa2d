package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	pkgerrors "github.com/pkg/errors"
)

// RecoverPanic captures a panic in progress to the exceptions sink and lets
// the goroutine carry on. It must be deferred directly:
//
//	defer logger.RecoverPanic(ctx)
func (l *Logger) RecoverPanic(ctx context.Context) {
	if v := recover(); v != nil {
		l.CapturePanic(ctx, v, string(debug.Stack()))
	}
}

// CapturePanic writes an already recovered panic value to the exceptions sink.
func (l *Logger) CapturePanic(ctx context.Context, v any, stack string) {
	err := panicError(v)
	rec := NewRecord(LevelError, "uncaught panic: "+err.Error(), Meta{
		"exception": true,
		"error":     err.Error(),
		"process":   processInfo(),
		"date":      l.clock().UTC().Format(TimestampLayout),
	}, l.clock())
	rec.Stack = stack
	l.dispatch(ctx, l.exceptions, rec)
}

// HandleRejection writes an asynchronous error nobody waited for to the
// rejections sink. A nil err is ignored.
func (l *Logger) HandleRejection(ctx context.Context, err error) {
	if err == nil {
		return
	}
	rec := NewErrorRecord(LevelError, err, Meta{
		"rejection": true,
		"error":     err.Error(),
		"process":   processInfo(),
		"date":      l.clock().UTC().Format(TimestampLayout),
	}, l.clock())
	rec.Message = "unhandled rejection: " + err.Error()
	l.dispatch(ctx, l.rejections, rec)
}

// Go runs fn on a new goroutine. A panic goes to the exceptions sink and a
// returned error to the rejections sink. The channel closes once fn and its
// handling have finished.
func (l *Logger) Go(ctx context.Context, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer l.RecoverPanic(ctx)
		l.HandleRejection(ctx, fn(ctx))
	}()
	return done
}

// TimestampLayout is ISO-8601 with millisecond precision, used for the
// timestamp and date fields of records.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func panicError(v any) error {
	switch val := v.(type) {
	case error:
		return val
	case string:
		return pkgerrors.New(val)
	default:
		return fmt.Errorf("%v", val)
	}
}

func processInfo() Meta {
	info := Meta{
		"pid":        os.Getpid(),
		"goVersion":  runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if wd, err := os.Getwd(); err == nil {
		info["cwd"] = wd
	}
	return info
}
