package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/internal/idgen"
	"github.com/viant/procflux/policy"
	"github.com/viant/procflux/progress"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/runtime/hierarchy"
	"github.com/viant/procflux/service/allocator"
	"github.com/viant/procflux/service/capacity"
	"github.com/viant/procflux/service/dao/process/memory"
	"github.com/viant/procflux/service/dao/store"
	"github.com/viant/procflux/service/event"
	"github.com/viant/procflux/service/executor"
	msgmemory "github.com/viant/procflux/service/messaging/memory"
	"github.com/viant/procflux/tracing"
)

// Config represents lifecycle manager configuration
type Config struct {
	// Workers is the number of async dispatch workers, each with its own queue
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// LockStripes is the number of per-process mutex stripes
	LockStripes int `json:"lockStripes" yaml:"lockStripes" mapstructure:"lockStripes"`

	// Shards is the number of registry shards, used when no registry is supplied
	Shards int `json:"shards" yaml:"shards" mapstructure:"shards"`

	// PriorityAware orders worker queues by process priority instead of arrival
	PriorityAware bool `json:"priorityAware" yaml:"priorityAware" mapstructure:"priorityAware"`

	// DefaultResources is allocated on start when the ledger has no entry
	DefaultResources execution.Resources `json:"defaultResources" yaml:"defaultResources" mapstructure:"defaultResources"`
}

// DefaultConfig returns the default lifecycle manager configuration
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		LockStripes: 64,
		Shards:      memory.DefaultShards,
	}
}

// Service is the process lifecycle manager. Every operation is serialised per
// process id; operations on different ids proceed concurrently.
type Service struct {
	config    Config
	registry  *memory.Service
	contexts  *store.MemoryStore[string, execution.Context]
	ledger    *allocator.Service
	hierarchy *hierarchy.Store
	executor  *executor.Service
	capacity  capacity.Provider
	events    *event.Service
	publisher *event.Publisher[*event.StateChange]
	policy    *policy.Policy
	progress  *progress.Progress
	clock     clock.Clock
	logger    *slog.Logger
	newID     func() string
	locks     []sync.Mutex

	mux      sync.RWMutex
	ctx      context.Context
	queues   []*msgmemory.Queue[task]
	pending  sync.Map
	workerWg sync.WaitGroup
	closed   bool
}

// Registry returns the process registry
func (s *Service) Registry() *memory.Service {
	return s.registry
}

// Ledger returns the resource ledger
func (s *Service) Ledger() *allocator.Service {
	return s.ledger
}

// Executor returns the execution scheduler
func (s *Service) Executor() *executor.Service {
	return s.executor
}

// Progress returns the lifecycle counters
func (s *Service) Progress() *progress.Progress {
	return s.progress
}

// Dispatch executes a single command synchronously.
func (s *Service) Dispatch(ctx context.Context, cmd *Command) (ret *Result, err error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: command was nil", ErrValidation)
	}
	ctx, span := tracing.StartSpan(ctx, "processor."+string(cmd.Kind), tracing.KindInternal)
	span.WithAttributes(map[string]string{"process.id": cmd.targetID()})
	defer func() { tracing.EndSpan(span, err) }()

	ret, err = s.dispatch(ctx, cmd)
	if err != nil {
		s.logger.Debug("command rejected", "kind", cmd.Kind, "process", cmd.targetID(), "error", err)
		return nil, err
	}
	return ret, nil
}

func (s *Service) dispatch(ctx context.Context, cmd *Command) (*Result, error) {
	switch cmd.Kind {
	case KindCreate:
		p, err := s.create(ctx, cmd.Create)
		return processResult(p, err)
	case KindGet:
		p, err := s.registry.Load(ctx, cmd.ProcessID)
		return processResult(p, err)
	case KindUpdate:
		p, err := s.update(ctx, cmd.ProcessID, cmd.Update)
		return processResult(p, err)
	case KindStart:
		p, err := s.start(ctx, cmd.ProcessID)
		return processResult(p, err)
	case KindPause:
		p, err := s.pause(ctx, cmd.ProcessID)
		return processResult(p, err)
	case KindResume:
		p, err := s.resume(ctx, cmd.ProcessID)
		return processResult(p, err)
	case KindKill:
		p, err := s.kill(ctx, cmd.ProcessID, cmd.Reason)
		return processResult(p, err)
	case KindDelete:
		p, err := s.delete(ctx, cmd.ProcessID)
		return processResult(p, err)
	case KindFail:
		p, err := s.fail(ctx, cmd.ProcessID, cmd.Reason)
		return processResult(p, err)
	case KindComplete:
		p, err := s.complete(ctx, cmd.ProcessID, 0, true)
		return processResult(p, err)
	case kindCompleteTimer:
		p, err := s.complete(ctx, cmd.ProcessID, cmd.generation, false)
		return processResult(p, err)
	case KindCheckpoint:
		p, err := s.checkpoint(ctx, cmd.ProcessID)
		return processResult(p, err)
	case KindSignal:
		p, err := s.signal(ctx, cmd.ProcessID, cmd.Signal)
		return processResult(p, err)
	case KindListByServer:
		processes, err := s.registry.ListByServer(ctx, cmd.Server)
		if err != nil {
			return nil, err
		}
		return &Result{Processes: processes}, nil
	case KindListByType:
		processes, err := s.registry.ListByType(ctx, cmd.Type)
		if err != nil {
			return nil, err
		}
		return &Result{Processes: processes}, nil
	case KindAllocate:
		return s.allocate(ctx, cmd.ProcessID, cmd.Resources)
	case KindDeallocate:
		return s.deallocate(ctx, cmd.ProcessID)
	case KindChildren:
		processes, err := s.children(ctx, cmd.ProcessID)
		if err != nil {
			return nil, err
		}
		return &Result{ProcessID: cmd.ProcessID, Processes: processes}, nil
	}
	return nil, fmt.Errorf("%w: unsupported command %q", ErrValidation, cmd.Kind)
}

func processResult(p *execution.Process, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &Result{}, nil
	}
	return &Result{Process: p, ProcessID: p.ID}, nil
}

// onDue is the completion timer callback.
func (s *Service) onDue(processID string, generation uint64) {
	cmd := &Command{Kind: kindCompleteTimer, ProcessID: processID, generation: generation}
	if _, err := s.Dispatch(s.baseContext(), cmd); err != nil {
		s.logger.Error("failed to complete process", "process", processID, "error", err)
	}
}

func (s *Service) baseContext() context.Context {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// lock acquires the stripe guarding processID and returns its unlock func.
func (s *Service) lock(processID string) func() {
	m := &s.locks[xxhash.Sum64String(processID)%uint64(len(s.locks))]
	m.Lock()
	return m.Unlock
}

func (s *Service) publish(ctx context.Context, eventType string, change *event.StateChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.NewStateChange(eventType, change)); err != nil {
		s.logger.Debug("state change not published", "process", change.ProcessID, "event", eventType, "error", err)
	}
}

func (s *Service) track(ctx context.Context, from, to execution.State) {
	delta := progress.Transition(from, to)
	s.progress.Update(delta)
	progress.UpdateCtx(ctx, delta)
}

// New creates a lifecycle manager. Components that are not supplied by
// options are created with defaults.
func New(opts ...Option) *Service {
	s := &Service{
		config:   DefaultConfig(),
		clock:    clock.Real(),
		logger:   slog.Default(),
		newID:    idgen.New,
		progress: progress.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.Workers <= 0 {
		s.config.Workers = 1
	}
	if s.config.LockStripes <= 0 {
		s.config.LockStripes = DefaultConfig().LockStripes
	}
	if s.registry == nil {
		s.registry = memory.New(s.config.Shards)
	}
	if s.ledger == nil {
		s.ledger = allocator.New()
	}
	if s.hierarchy == nil {
		s.hierarchy = hierarchy.NewStore()
	}
	if s.executor == nil {
		s.executor = executor.New(executor.WithClock(s.clock), executor.WithLogger(s.logger))
	}
	if s.events != nil {
		s.publisher = event.PublisherOf[*event.StateChange](s.events)
	}
	s.contexts = store.NewMemoryStore[string, execution.Context](func(c *execution.Context) string { return c.ProcessID })
	s.locks = make([]sync.Mutex, s.config.LockStripes)
	s.executor.OnDue(s.onDue)
	s.queues = make([]*msgmemory.Queue[task], s.config.Workers)
	for i := range s.queues {
		if s.config.PriorityAware {
			s.queues[i] = msgmemory.NewPriorityQueue[task](msgmemory.DefaultConfig(), rankTask)
			continue
		}
		s.queues[i] = msgmemory.NewQueue[task](msgmemory.DefaultConfig())
	}
	return s
}
