// Package messaging forwards emitted events to a message broker.
package messaging

import "context"

type (
	// Publisher delivers one message to a topic (Kafka) or exchange (RabbitMQ).
	Publisher interface {
		Publish(ctx context.Context, topicOrExchange, key string, headers map[string]string, message *Message) error
		Close() error
	}

	Message struct {
		Body    []byte
		Headers []Header
	}

	Header struct {
		Key   string
		Value []byte
	}
)
