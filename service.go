package procflux

import (
	"errors"
	"log/slog"

	"github.com/viant/afs"
	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/internal/logging"
	"github.com/viant/procflux/policy"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/capacity"
	"github.com/viant/procflux/service/dao/process/fs"
	"github.com/viant/procflux/service/event"
	"github.com/viant/procflux/service/executor"
	"github.com/viant/procflux/service/metrics"
	"github.com/viant/procflux/service/processor"
	"github.com/viant/procflux/service/rest"
	"github.com/viant/procflux/tracing"
)

// Service wires the lifecycle manager with its notification, persistence,
// metrics and HTTP layers.
type Service struct {
	config     *Config
	logger     *slog.Logger
	clock      clock.Clock
	capacity   capacity.Provider
	handlers   map[execution.Type]executor.CompletionHandler
	storeURL   string
	storeFS    afs.Service
	initErrors []error
	runtime    *Runtime
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	s.ensureBaseSetup()

	estimator := s.config.Estimator
	if estimator == nil {
		estimator = executor.DefaultEstimator()
	}
	executorOptions := []executor.Option{
		executor.WithClock(s.clock),
		executor.WithEstimator(estimator),
		executor.WithLogger(s.logger),
	}
	for processType, handler := range s.handlers {
		executorOptions = append(executorOptions, executor.WithHandler(processType, handler))
	}

	events := event.New(event.WithLogger(s.logger))
	collector := metrics.NewCollector()
	event.Subscribe[*event.StateChange](events, collector.Observe)

	s.runtime = &Runtime{events: events, metrics: collector, logger: s.logger, addr: s.config.HTTP.Addr}
	event.Subscribe[*event.StateChange](events, s.runtime.logChange)
	if storeURL := s.storeURLOf(); storeURL != "" {
		storeOptions := []fs.Option{fs.WithLogger(s.logger)}
		if s.storeFS != nil {
			storeOptions = append(storeOptions, fs.WithFS(s.storeFS))
		}
		mirror, err := fs.New(storeURL, storeOptions...)
		if err != nil {
			return err
		}
		s.runtime.mirror = mirror
		event.Subscribe[*event.StateChange](events, s.runtime.mirrorChange)
	}

	s.runtime.processor = processor.New(
		processor.WithConfig(s.config.Processor),
		processor.WithClock(s.clock),
		processor.WithLogger(s.logger),
		processor.WithExecutor(executor.New(executorOptions...)),
		processor.WithCapacity(s.capacity),
		processor.WithEvents(events),
		processor.WithPolicy(policy.FromConfig(s.config.Policy)))
	s.runtime.server = rest.New(s.runtime.processor, rest.WithMetrics(collector), rest.WithLogger(s.logger))
	return errors.Join(s.initErrors...)
}

func (s *Service) ensureBaseSetup() {
	if s.logger == nil {
		s.logger = logging.NewLogger(s.config.Logging.Format, s.config.Logging.Level)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.capacity == nil {
		var provider capacity.Provider = capacity.NewStatic(s.config.Capacity.Hosts, s.config.Capacity.Default)
		if s.config.Capacity.LocalHost != "" {
			provider = capacity.NewHost(s.config.Capacity.LocalHost, provider)
		}
		s.capacity = provider
	}
	if t := s.config.Tracing; t.ServiceName != "" {
		if err := tracing.Init(t.ServiceName, t.ServiceVersion, t.OutputFile); err != nil {
			s.initErrors = append(s.initErrors, err)
		}
	}
}

func (s *Service) storeURLOf() string {
	if s.storeURL != "" {
		return s.storeURL
	}
	return s.config.Store.URL
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Runtime returns the engine runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates an engine service
func New(options ...Option) (*Service, error) {
	ret := &Service{handlers: map[execution.Type]executor.CompletionHandler{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
