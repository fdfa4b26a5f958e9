package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/runtime/execution"
)

// DueFunc is invoked when a completion timer fires.
type DueFunc func(processID string, generation uint64)

// CompletionHandler runs the game effect of a process right before it is
// marked completed. Returning an error fails the process instead.
type CompletionHandler func(ctx context.Context, process *execution.Process) error

// Option is used to customise the executor instance.
type Option func(*Service)

// WithClock sets the clock used to arm timers.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithEstimator overrides the duration estimator.
func WithEstimator(e *Estimator) Option {
	return func(s *Service) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithHandler registers a completion handler for a process type.
func WithHandler(processType execution.Type, handler CompletionHandler) Option {
	return func(s *Service) {
		s.handlers[processType] = handler
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type timer struct {
	generation uint64
	handle     clock.Timer
}

// Service owns completion timers, one per running process.
type Service struct {
	mux       sync.Mutex
	clock     clock.Clock
	estimator *Estimator
	timers    map[string]*timer
	due       DueFunc
	handlers  map[execution.Type]CompletionHandler
	logger    *slog.Logger
	closed    bool
}

// Estimate returns the simulated run time for a process type.
func (s *Service) Estimate(processType execution.Type, resources execution.Resources) time.Duration {
	return s.estimator.Estimate(processType, resources)
}

// Estimator returns the estimator in use.
func (s *Service) Estimator() *Estimator {
	return s.estimator
}

// OnDue installs the timer callback.
func (s *Service) OnDue(fn DueFunc) {
	s.mux.Lock()
	s.due = fn
	s.mux.Unlock()
}

// Handle registers a completion handler for a process type.
func (s *Service) Handle(processType execution.Type, handler CompletionHandler) {
	s.mux.Lock()
	s.handlers[processType] = handler
	s.mux.Unlock()
}

// Schedule arms a completion timer for processID, replacing any existing one.
func (s *Service) Schedule(processID string, generation uint64, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTimeout, d)
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.closed {
		return ErrShutdown
	}
	if existing, ok := s.timers[processID]; ok {
		existing.handle.Stop()
	}
	entry := &timer{generation: generation}
	entry.handle = s.clock.AfterFunc(d, func() { s.fire(processID, generation) })
	s.timers[processID] = entry
	s.logger.Debug("completion timer armed", "process", processID, "generation", generation, "duration", d)
	return nil
}

// Cancel stops the timer of processID and reports whether one was armed.
func (s *Service) Cancel(processID string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	existing, ok := s.timers[processID]
	if !ok {
		return false
	}
	existing.handle.Stop()
	delete(s.timers, processID)
	return true
}

// Pending returns the number of armed timers.
func (s *Service) Pending() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.timers)
}

// Complete runs the completion handler registered for the process type.
func (s *Service) Complete(ctx context.Context, process *execution.Process) error {
	s.mux.Lock()
	handler := s.handlers[process.Type]
	s.mux.Unlock()
	if handler == nil {
		return nil
	}
	return handler(ctx, process)
}

// Shutdown stops every timer; subsequent Schedule calls fail.
func (s *Service) Shutdown() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id, entry := range s.timers {
		entry.handle.Stop()
		delete(s.timers, id)
	}
	s.closed = true
}

func (s *Service) fire(processID string, generation uint64) {
	s.mux.Lock()
	if entry, ok := s.timers[processID]; ok && entry.generation == generation {
		delete(s.timers, processID)
	}
	due := s.due
	closed := s.closed
	s.mux.Unlock()
	if due == nil || closed {
		return
	}
	due(processID, generation)
}

// New creates an executor service.
func New(opts ...Option) *Service {
	s := &Service{
		clock:     clock.Real(),
		estimator: DefaultEstimator(),
		timers:    map[string]*timer{},
		handlers:  map[execution.Type]CompletionHandler{},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
