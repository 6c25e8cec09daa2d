// Package rabbitmq publishes forwarded events with amqp091-go.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/JailtonJunior94/lexlog/pkg/messaging"
)

var ErrPublisherClosed = errors.New("rabbitmq publisher is closed")

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	mu      sync.Mutex
	channel channel
	conn    *amqp.Connection
	closed  bool
}

// Dial connects to url, retrying with exponential backoff for up to
// maxElapsed, and declares a durable topic exchange.
func Dial(ctx context.Context, url, exchange string, maxElapsed time.Duration) (*Publisher, error) {
	var conn *amqp.Connection
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	err := backoff.Retry(func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	p := NewPublisher(ch)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an open channel. The routing key is the event name.
func NewPublisher(ch channel) *Publisher {
	return &Publisher{channel: ch}
}

func (p *Publisher) Publish(ctx context.Context, exchange, key string, headers map[string]string, message *messaging.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	msg := amqp.Publishing{
		Body:         message.Body,
		ContentType:  headers[messaging.HeaderContentType],
		MessageId:    headers[messaging.HeaderEventID],
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{},
	}
	for k, v := range headers {
		msg.Headers[k] = v
	}
	for _, h := range message.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}

	return p.channel.PublishWithContext(ctx, exchange, key, false, false, msg)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.channel.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
