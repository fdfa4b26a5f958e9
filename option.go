package procflux

import (
	"log/slog"

	"github.com/viant/afs"
	"github.com/viant/procflux/internal/clock"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/capacity"
	"github.com/viant/procflux/service/executor"
	"github.com/viant/procflux/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the engine.
type Option func(s *Service)

// WithConfig sets the engine configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the logger shared by every component
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the clock driving timestamps and completion timers
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithCapacityProvider overrides the configured host capacity
func WithCapacityProvider(provider capacity.Provider) Option {
	return func(s *Service) {
		s.capacity = provider
	}
}

// WithCompletionHandler registers a handler run before a process of the given
// type is marked completed
func WithCompletionHandler(processType execution.Type, handler executor.CompletionHandler) Option {
	return func(s *Service) {
		s.handlers[processType] = handler
	}
}

// WithStoreURL mirrors process snapshots under url
func WithStoreURL(url string) Option {
	return func(s *Service) {
		s.storeURL = url
	}
}

// WithStoreFS sets the file system used by the process mirror
func WithStoreFS(fs afs.Service) Option {
	return func(s *Service) {
		s.storeFS = fs
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.initErrors = append(s.initErrors, err)
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.initErrors = append(s.initErrors, err)
		}
	}
}
