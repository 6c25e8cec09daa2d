package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

// AllEvents subscribes a handler to every event name.
const AllEvents = "*"

var (
	// ErrHandlerAlreadyRegistered is returned when a handler is subscribed twice to the same name.
	ErrHandlerAlreadyRegistered = errors.New("handler already registered")

	// ErrHandlerNil is returned when a nil handler is passed to Subscribe.
	ErrHandlerNil = errors.New("handler cannot be nil")

	// ErrEventNameEmpty is returned when an empty event name is passed to Subscribe.
	ErrEventNameEmpty = errors.New("event name cannot be empty")

	// ErrHandlerPanic wraps a panic recovered from a handler.
	ErrHandlerPanic = errors.New("event handler panicked")
)

// Event is a structured event as handed to the sink.
type Event struct {
	Name    string
	Level   logging.Level
	Message string
	Meta    logging.Meta
}

// Handler reacts to emitted events. Handlers are compared by identity, so
// register pointers.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// Dispatcher fans emitted events out to in-process handlers. It is safe for
// concurrent use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe adds handler for name, or for every event when name is AllEvents.
func (d *Dispatcher) Subscribe(name string, handler Handler) error {
	if name == "" {
		return ErrEventNameEmpty
	}
	if handler == nil {
		return ErrHandlerNil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if slices.Contains(d.handlers[name], handler) {
		return ErrHandlerAlreadyRegistered
	}

	d.handlers[name] = append(d.handlers[name], handler)
	return nil
}

// Unsubscribe removes the first matching handler for name.
func (d *Dispatcher) Unsubscribe(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[name]
	idx := slices.Index(handlers, handler)
	if idx < 0 {
		return
	}

	remaining := slices.Delete(slices.Clone(handlers), idx, idx+1)
	if len(remaining) == 0 {
		delete(d.handlers, name)
		return
	}
	d.handlers[name] = remaining
}

func (d *Dispatcher) Has(name string, handler Handler) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.Contains(d.handlers[name], handler)
}

// Dispatch calls the handlers for event.Name, then the AllEvents handlers,
// in subscription order. Every handler runs, even when ctx is already
// cancelled: handlers get ctx without its cancellation. Errors and recovered
// panics are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers[event.Name])+len(d.handlers[AllEvents]))
	handlers = append(handlers, d.handlers[event.Name]...)
	handlers = append(handlers, d.handlers[AllEvents]...)
	d.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)

	var errs []error
	for _, handler := range handlers {
		if err := handle(ctx, handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func handle(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, event.Name, r)
		}
	}()
	return handler.Handle(ctx, event)
}
