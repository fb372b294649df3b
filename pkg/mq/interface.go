package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClientInterface defines the message queue operations used by the
// ingest service. It exists so consumers can be tested with a fake
// client.
type ClientInterface interface {
	// Push publishes data onto the queue and waits for a broker
	// confirmation. The context is used for cancellation and timeout.
	Push(ctx context.Context, data []byte) error

	// Consume continuously delivers queue items on the returned
	// channel. Callers must Ack a delivery once it has been processed,
	// or Nack it on failure.
	Consume() (<-chan amqp.Delivery, error)

	// Close cleanly shuts down the channel and connection.
	Close() error
}

// Ensure Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)
