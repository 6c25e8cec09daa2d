// Package fake provides a logging.Sink that captures records in memory for
// test assertions.
package fake

import (
	"context"
	"sync"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// Entry represents a captured record.
type Entry struct {
	Level   logging.Level
	Message string
	Err     error
	Meta    logging.Meta
}

// Field returns the meta value stored under key.
func (e Entry) Field(key string) (any, bool) {
	v, ok := e.Meta[key]
	return v, ok
}

// Sink captures all log operations. Children created by With share the
// parent's entries.
type Sink struct {
	mu      *sync.RWMutex
	entries *[]Entry
	base    logging.Meta
}

// NewSink creates a new fake sink.
func NewSink() *Sink {
	entries := make([]Entry, 0)
	return &Sink{
		mu:      &sync.RWMutex{},
		entries: &entries,
	}
}

func (s *Sink) Log(ctx context.Context, level logging.Level, msg string, meta logging.Meta) {
	s.append(Entry{Level: level, Message: msg, Meta: s.merge(meta)})
}

func (s *Sink) LogError(ctx context.Context, level logging.Level, err error, meta logging.Meta) {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	s.append(Entry{Level: level, Message: msg, Err: err, Meta: s.merge(meta)})
}

// With returns a child sink whose entries carry meta.
func (s *Sink) With(meta logging.Meta) *Sink {
	return &Sink{
		mu:      s.mu,
		entries: s.entries,
		base:    s.merge(meta),
	}
}

// GetEntries returns all captured entries (for test assertions).
func (s *Sink) GetEntries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Entry, len(*s.entries))
	copy(result, *s.entries)
	return result
}

// Last returns the most recent entry.
func (s *Sink) Last() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(*s.entries) == 0 {
		return Entry{}, false
	}
	return (*s.entries)[len(*s.entries)-1], true
}

// ByLevel returns the captured entries at level.
func (s *Sink) ByLevel(level logging.Level) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Entry
	for _, e := range *s.entries {
		if e.Level == level {
			result = append(result, e)
		}
	}
	return result
}

// Reset clears all captured entries.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.entries = make([]Entry, 0)
}

func (s *Sink) append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.entries = append(*s.entries, e)
}

func (s *Sink) merge(meta logging.Meta) logging.Meta {
	out := s.base.Clone()
	for k, v := range meta {
		out[k] = v
	}
	return out
}

var _ logging.Sink = (*Sink)(nil)
