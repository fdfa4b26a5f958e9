package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish and Consume once a queue is closed and
// drained.
var ErrClosed = errors.New("messaging: queue closed")

// Queue carries lifecycle commands from submitters to dispatch workers.
type Queue[T any] interface {
	Publish(ctx context.Context, t *T) error
	// Consume blocks until a message is available, ctx is done or the queue
	// is closed and drained.
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a consumed payload awaiting acknowledgement.
type Message[T any] interface {
	T() *T
	Ack() error
	Nack(err error) error
}
