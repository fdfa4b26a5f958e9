package event

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/viant/procflux/service/messaging/memory"
)

// Service owns one unbounded queue, publisher and listener per event payload
// type. Publishing never blocks; Stop drains what was published before it.
type Service struct {
	typedPublishers map[reflect.Type]any
	typedListener   map[reflect.Type]any
	closers         []func()
	mux             *sync.RWMutex
	queueConfig     func(name string) memory.Config
	logger          *slog.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
}

func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers: make(map[reflect.Type]any),
		typedListener:   make(map[reflect.Type]any),
		mux:             &sync.RWMutex{},
		logger:          slog.Default(),
		queueConfig:     defaultQueueConfig,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Start launches listeners; listeners subscribed later start immediately.
func (s *Service) Start(ctx context.Context) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, starter := range s.typedListener {
		starter.(interface {
			Start(ctx context.Context, wg *sync.WaitGroup)
		}).Start(s.ctx, &s.wg)
	}
}

// Stop closes every queue and waits until listeners drained them.
func (s *Service) Stop() {
	s.mux.Lock()
	closers := s.closers
	s.closers = nil
	s.mux.Unlock()
	for _, closeFn := range closers {
		closeFn()
	}
	s.wg.Wait()
	s.mux.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mux.Unlock()
}

func defaultQueueConfig(string) memory.Config {
	return memory.DefaultConfig()
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// Subscribe registers handler for events carrying T.
func Subscribe[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	publisher := PublisherOf[T](s)
	s.mux.Lock()
	defer s.mux.Unlock()
	if existing, ok := s.typedListener[key]; ok {
		existing.(*Listener[T]).Subscribe(handler)
		return
	}
	listener := NewListener[T](publisher, handler)
	listener.logger = s.logger
	s.typedListener[key] = listener
	if s.ctx != nil {
		listener.Start(s.ctx, &s.wg)
	}
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T])
	}
	queue := memory.NewQueue[Event[T]](s.queueConfig(key.String()))
	publisher := NewPublisher[T](queue)
	s.typedPublishers[key] = publisher
	s.closers = append(s.closers, publisher.Close)
	return publisher
}
