package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	calls  atomic.Int32
	mu     sync.Mutex
	events []Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	h.calls.Add(1)
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) received() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

func TestDispatcherSubscribe(t *testing.T) {
	d := NewDispatcher()
	h := &recordingHandler{}

	require.NoError(t, d.Subscribe(EventAuthFailed, h))
	assert.True(t, d.Has(EventAuthFailed, h))
	assert.False(t, d.Has(EventAuthLogin, h))

	assert.ErrorIs(t, d.Subscribe(EventAuthFailed, h), ErrHandlerAlreadyRegistered)
	assert.ErrorIs(t, d.Subscribe("", h), ErrEventNameEmpty)
	assert.ErrorIs(t, d.Subscribe(EventAuthFailed, nil), ErrHandlerNil)
}

func TestDispatcherDispatch(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher()

	specific := &recordingHandler{}
	all := &recordingHandler{}
	require.NoError(t, d.Subscribe(EventSecurityRateLimit, specific))
	require.NoError(t, d.Subscribe(AllEvents, all))

	require.NoError(t, d.Dispatch(ctx, Event{Name: EventSecurityRateLimit}))
	require.NoError(t, d.Dispatch(ctx, Event{Name: EventAuthLogin}))

	assert.EqualValues(t, 1, specific.calls.Load())
	assert.EqualValues(t, 2, all.calls.Load())
}

func TestDispatcherRunsEveryHandler(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher()

	failing := &recordingHandler{err: errors.New("handler down")}
	healthy := &recordingHandler{}
	require.NoError(t, d.Subscribe(EventAPIError, failing))
	require.NoError(t, d.Subscribe(EventAPIError, healthy))

	err := d.Dispatch(ctx, Event{Name: EventAPIError})
	assert.EqualError(t, err, "handler down")
	assert.EqualValues(t, 1, healthy.calls.Load())
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, Event) error {
	panic("handler bug")
}

type ctxHandler struct {
	err error
}

func (h *ctxHandler) Handle(ctx context.Context, _ Event) error {
	h.err = ctx.Err()
	return nil
}

func TestDispatcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher()
	h := &recordingHandler{}
	seen := &ctxHandler{}
	require.NoError(t, d.Subscribe(EventAPIError, h))
	require.NoError(t, d.Subscribe(AllEvents, seen))

	require.NoError(t, d.Dispatch(ctx, Event{Name: EventAPIError}))
	assert.EqualValues(t, 1, h.calls.Load())
	assert.NoError(t, seen.err)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewDispatcher()
	after := &recordingHandler{}
	require.NoError(t, d.Subscribe(EventAuthLogin, &panickingHandler{}))
	require.NoError(t, d.Subscribe(AllEvents, after))

	var err error
	require.NotPanics(t, func() {
		err = d.Dispatch(context.Background(), Event{Name: EventAuthLogin})
	})
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.ErrorContains(t, err, "handler bug")
	assert.EqualValues(t, 1, after.calls.Load())
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	first := &recordingHandler{}
	second := &recordingHandler{}

	require.NoError(t, d.Subscribe(EventAuthLogin, first))
	require.NoError(t, d.Subscribe(EventAuthLogin, second))

	d.Unsubscribe(EventAuthLogin, first)
	assert.False(t, d.Has(EventAuthLogin, first))
	assert.True(t, d.Has(EventAuthLogin, second))

	d.Unsubscribe(EventAuthLogin, second)
	d.Unsubscribe(EventAuthLogin, second)
	d.Unsubscribe("never.subscribed", second)
	assert.Empty(t, d.handlers)
}

func TestDispatcherConcurrent(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher()
	h := &recordingHandler{}
	require.NoError(t, d.Subscribe(AllEvents, h))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = d.Dispatch(ctx, Event{Name: EventDatabaseQuery})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			extra := &recordingHandler{}
			_ = d.Subscribe(EventDatabaseQuery, extra)
			d.Unsubscribe(EventDatabaseQuery, extra)
		}
	}()
	wg.Wait()

	assert.EqualValues(t, 1000, h.calls.Load())
}
