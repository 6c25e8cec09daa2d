package logging

import (
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Meta holds the event-specific fields of a record.
type Meta map[string]any

// Clone returns a shallow copy of m. A nil Meta clones to an empty one.
func (m Meta) Clone() Meta {
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record is a single logging call.
type Record struct {
	Level     Level
	Message   string
	Timestamp time.Time
	// Stack is set only when the record was built from an error.
	Stack string
	Meta  Meta
}

// NewRecord builds a record from a plain message. It never carries a stack.
func NewRecord(level Level, msg string, meta Meta, now time.Time) Record {
	return Record{
		Level:     level,
		Message:   msg,
		Timestamp: now,
		Meta:      meta,
	}
}

// NewErrorRecord builds a record from an error. The message is err.Error()
// and the stack is never empty.
func NewErrorRecord(level Level, err error, meta Meta, now time.Time) Record {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	return Record{
		Level:     level,
		Message:   msg,
		Timestamp: now,
		Stack:     stackOf(err, 2),
		Meta:      meta,
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// StackOf returns the stack trace carried by err, or the caller's stack when
// err does not carry one.
func StackOf(err error) string {
	return stackOf(err, 2)
}

func stackOf(err error, skip int) string {
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%s%+v", err, st.StackTrace())
	}
	return zap.StackSkip("", skip).String
}
