package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/viant/procflux/service/messaging"
)

// Listener consumes events of one type on a single goroutine and fans them out
// to every subscribed handler in subscription order.
type Listener[T any] struct {
	publisher *Publisher[T]
	logger    *slog.Logger
	mux       sync.RWMutex
	handlers  []func(*Event[T])
	started   bool
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T])) *Listener[T] {
	ret := &Listener[T]{publisher: publisher, logger: slog.Default()}
	if handler != nil {
		ret.handlers = append(ret.handlers, handler)
	}
	return ret
}

// Subscribe adds a handler.
func (l *Listener[T]) Subscribe(handler func(*Event[T])) {
	l.mux.Lock()
	l.handlers = append(l.handlers, handler)
	l.mux.Unlock()
}

// Start consumes until ctx is done or the queue is closed and drained.
func (l *Listener[T]) Start(ctx context.Context, wg *sync.WaitGroup) {
	l.mux.Lock()
	if l.started {
		l.mux.Unlock()
		return
	}
	l.started = true
	l.mux.Unlock()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			event, err := l.publisher.Consume(ctx)
			if err != nil {
				if errors.Is(err, messaging.ErrClosed) || ctx.Err() != nil {
					return
				}
				l.logger.Warn("failed to consume event", "error", err)
				continue
			}
			l.dispatch(event)
		}
	}()
}

func (l *Listener[T]) dispatch(event *Event[T]) {
	l.mux.RLock()
	handlers := l.handlers
	l.mux.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}
}
