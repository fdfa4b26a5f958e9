package memory

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/procflux/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	DeadLetter bool
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		DeadLetter: true,
	}
}

// Ranker returns the priority of a payload; higher ranks are consumed first.
type Ranker[T any] func(t *T) int

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	rank       int
	seq        uint64
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// ID returns the message id.
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return nil
}

// Nack indicates a failure in processing the message; it is redelivered after
// RetryDelay until MaxRetries is exceeded.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.retryCount++

	if m.retryCount <= m.queue.config.MaxRetries {
		retry := &Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      m.queue,
			rank:       m.rank,
			retryCount: m.retryCount,
			createdAt:  time.Now(),
		}
		time.AfterFunc(m.queue.config.RetryDelay, func() { m.queue.push(retry) })
	} else if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an unbounded in-memory messaging.Queue. Without a ranker
// messages are delivered in publish order; with one, higher ranks first and
// publish order among equal ranks.
type Queue[T any] struct {
	mu      sync.Mutex
	pending messages[T]
	seq     uint64
	ranker  Ranker[T]
	ready   chan struct{}
	done    chan struct{}
	closed  bool
	dlq     []*Message[T]
	dlqMu   sync.Mutex
	config  Config
}

// NewQueue creates a new FIFO in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	return &Queue[T]{
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		dlq:    make([]*Message[T], 0),
		config: config,
	}
}

// NewPriorityQueue creates a queue ordered by ranker
func NewPriorityQueue[T any](config Config, ranker Ranker[T]) *Queue[T] {
	ret := NewQueue[T](config)
	ret.ranker = ranker
	return ret
}

// Publish adds a new item to the queue; it never blocks.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{
		id:        uuid.New().String(),
		payload:   *t,
		queue:     q,
		createdAt: time.Now(),
	}
	if q.ranker != nil {
		msg.rank = q.ranker(t)
	}
	if !q.push(msg) {
		return messaging.ErrClosed
	}
	return nil
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		q.mu.Lock()
		if q.pending.Len() > 0 {
			msg := heap.Pop(&q.pending).(*Message[T])
			if q.pending.Len() > 0 {
				q.notify()
			}
			q.mu.Unlock()
			return msg, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, messaging.ErrClosed
		}
		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops accepting messages; consumers drain what is left.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

func (q *Queue[T]) push(msg *Message[T]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.seq++
	msg.seq = q.seq
	heap.Push(&q.pending, msg)
	q.notify()
	return true
}

func (q *Queue[T]) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

type messages[T any] []*Message[T]

func (m messages[T]) Len() int { return len(m) }

func (m messages[T]) Less(i, j int) bool {
	if m[i].rank != m[j].rank {
		return m[i].rank > m[j].rank
	}
	return m[i].seq < m[j].seq
}

func (m messages[T]) Swap(i, j int) { m[i], m[j] = m[j], m[i] }

func (m *messages[T]) Push(x any) { *m = append(*m, x.(*Message[T])) }

func (m *messages[T]) Pop() any {
	old := *m
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*m = old[:n-1]
	return item
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
