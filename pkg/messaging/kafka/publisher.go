// Package kafka publishes forwarded events with segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/JailtonJunior94/lexlog/pkg/messaging"
)

var (
	ErrPublisherClosed = errors.New("kafka publisher is closed")
	ErrNoBrokers       = errors.New("at least one broker is required")
)

// writer is the subset of *kafka.Writer the publisher needs.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	MaxRetries   uint64
	RetryBackoff time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig(brokers ...string) Config {
	return Config{
		Brokers:      brokers,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

type Publisher struct {
	writer writer
	cfg    Config
	closed atomic.Bool
}

// NewPublisher builds a publisher over a kafka.Writer without a fixed
// topic; each Publish names its own.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg), nil
}

func newPublisher(w writer, cfg Config) *Publisher {
	return &Publisher{writer: w, cfg: cfg}
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, headers map[string]string, message *messaging.Message) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: message.Body,
		Time:  time.Now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	for _, h := range message.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: h.Key, Value: h.Value})
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(p.newBackoff(), p.cfg.MaxRetries),
		ctx,
	)

	if err := backoff.Retry(func() error {
		return p.writer.WriteMessages(ctx, msg)
	}, policy); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryBackoff
	b.MaxInterval = 10 * p.cfg.RetryBackoff
	b.MaxElapsedTime = 0
	return b
}

func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
