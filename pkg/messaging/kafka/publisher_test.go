package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JailtonJunior94/lexlog/pkg/messaging"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []kafka.Message
	closed   int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig("localhost:9092")
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, testConfig())

	err := p.Publish(context.Background(), "lexlog.events", "api.error",
		map[string]string{"event": "api.error"},
		&messaging.Message{Body: []byte(`{}`), Headers: []messaging.Header{{Key: "x", Value: []byte("y")}}},
	)
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	msg := w.written[0]
	assert.Equal(t, "lexlog.events", msg.Topic)
	assert.Equal(t, []byte("api.error"), msg.Key)
	assert.Equal(t, []byte(`{}`), msg.Value)
	assert.ElementsMatch(t, []kafka.Header{
		{Key: "event", Value: []byte("api.error")},
		{Key: "x", Value: []byte("y")},
	}, msg.Headers)
}

func TestPublishRetries(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newPublisher(w, testConfig())

	require.NoError(t, p.Publish(context.Background(), "t", "k", nil, &messaging.Message{}))
	assert.Equal(t, 3, w.calls)
}

func TestPublishGivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newPublisher(w, testConfig())

	err := p.Publish(context.Background(), "t", "k", nil, &messaging.Message{})
	assert.ErrorContains(t, err, "leader not available")
	assert.Equal(t, 4, w.calls)
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, testConfig())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), "t", "k", nil, &messaging.Message{}), ErrPublisherClosed)
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(DefaultConfig())
	assert.ErrorIs(t, err, ErrNoBrokers)
}
