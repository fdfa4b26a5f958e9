package processor

import (
	"log/slog"

	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/policy"
	"github.com/viant/procflux/progress"
	"github.com/viant/procflux/runtime/hierarchy"
	"github.com/viant/procflux/service/allocator"
	"github.com/viant/procflux/service/capacity"
	"github.com/viant/procflux/service/dao/process/memory"
	"github.com/viant/procflux/service/event"
	"github.com/viant/procflux/service/executor"
)

// Option customises the lifecycle manager.
type Option func(*Service)

// WithRegistry sets the process registry
func WithRegistry(registry *memory.Service) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithLedger sets the resource ledger
func WithLedger(ledger *allocator.Service) Option {
	return func(s *Service) {
		s.ledger = ledger
	}
}

// WithHierarchy sets the parent/child index
func WithHierarchy(h *hierarchy.Store) Option {
	return func(s *Service) {
		s.hierarchy = h
	}
}

// WithExecutor sets the execution scheduler
func WithExecutor(e *executor.Service) Option {
	return func(s *Service) {
		s.executor = e
	}
}

// WithCapacity sets the host capacity provider used by admission control
func WithCapacity(provider capacity.Provider) Option {
	return func(s *Service) {
		s.capacity = provider
	}
}

// WithEvents sets the event service state changes are published to
func WithEvents(events *event.Service) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithPolicy sets the engine admission policy
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithProgress sets the lifecycle counters
func WithProgress(p *progress.Progress) Option {
	return func(s *Service) {
		s.progress = p
	}
}

// WithClock sets the clock used for timestamps and, unless an executor is
// supplied, for completion timers
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator sets the process id generator
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithWorkers sets the number of async dispatch workers
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Workers = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
