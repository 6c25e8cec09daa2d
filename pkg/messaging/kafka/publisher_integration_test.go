//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging/fake"
	"github.com/JailtonJunior94/lexlog/pkg/messaging"
)

func TestForwardToKafka(t *testing.T) {
	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("lexlog"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	publisher, err := NewPublisher(DefaultConfig(brokers...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	forwarder, err := messaging.NewForwarder(publisher, "lexlog.events")
	require.NoError(t, err)

	runCtx, stopRun := context.WithCancel(ctx)
	t.Cleanup(stopRun)
	go func() { _ = forwarder.Run(runCtx) }()

	dispatcher := events.NewDispatcher()
	require.NoError(t, dispatcher.Subscribe(events.AllEvents, forwarder))
	emitter := events.NewEmitter(fake.NewSink(), events.WithDispatcher(dispatcher))

	emitter.AuthFailed(ctx, "a@b.c", "10.0.0.1", "bad password")
	require.Zero(t, emitter.HandlerFailures())

	closeCtx, cancelClose := context.WithTimeout(ctx, 30*time.Second)
	defer cancelClose()
	require.NoError(t, forwarder.Close(closeCtx))
	require.Zero(t, forwarder.Failed())

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: "lexlog.events", Partition: 0})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)
	assert.Equal(t, "auth.failed", string(msg.Key))
	assert.Contains(t, string(msg.Value), `"reason":"bad password"`)
}
