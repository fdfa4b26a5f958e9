package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procflux/service/messaging"
)

type TestPayload struct {
	ID       string
	Priority int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Publish(ctx, &TestPayload{ID: fmt.Sprintf("m%d", i), Priority: i}))
	}
	assert.Equal(t, 3, queue.Size())

	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("m%d", i), message.T().ID)
		assert.NoError(t, message.Ack())
		assert.Error(t, message.Ack())
	}
	assert.Equal(t, 0, queue.Size())
}

func TestPriorityQueue(t *testing.T) {
	queue := NewPriorityQueue[TestPayload](DefaultConfig(), func(p *TestPayload) int { return p.Priority })
	ctx := context.Background()
	input := []TestPayload{{ID: "low", Priority: 1}, {ID: "normal-1", Priority: 5}, {ID: "critical", Priority: 15}, {ID: "normal-2", Priority: 5}}
	for i := range input {
		require.NoError(t, queue.Publish(ctx, &input[i]))
	}
	var actual []string
	for range input {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		actual = append(actual, message.T().ID)
	}
	assert.Equal(t, []string{"critical", "normal-1", "normal-2", "low"}, actual)
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 1
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[TestPayload](config)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "retry"}))
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, message.Nack(nil))

	message, err = queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "retry", message.T().ID)
	require.NoError(t, message.Nack(nil))
	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, 0, queue.Size())
}

func TestQueueConsumeBlocks(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	received := make(chan string, 1)
	go func() {
		message, err := queue.Consume(context.Background())
		if err == nil {
			received <- message.T().ID
		}
	}()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, queue.Publish(context.Background(), &TestPayload{ID: "late"}))
	select {
	case id := <-received:
		assert.Equal(t, "late", id)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken up")
	}
}

func TestQueueClose(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "last"}))
	queue.Close()
	assert.ErrorIs(t, queue.Publish(ctx, &TestPayload{ID: "rejected"}), messaging.ErrClosed)

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", message.T().ID)
	_, err = queue.Consume(ctx)
	assert.ErrorIs(t, err, messaging.ErrClosed)
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	concurrency := 10
	messagesPerProducer := 10

	var wg sync.WaitGroup
	var consumedMu sync.Mutex
	consumed := map[string]bool{}
	for i := 0; i < concurrency; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, message.Ack())
				consumedMu.Lock()
				consumed[message.T().ID] = true
				consumedMu.Unlock()
			}
		}()
		go func(producerID int) {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &TestPayload{ID: fmt.Sprintf("p%d-m%d", producerID, j)}))
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, consumed, concurrency*messagesPerProducer)
}
