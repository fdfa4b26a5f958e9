package event

import (
	"log/slog"

	"github.com/viant/procflux/service/messaging/memory"
)

type Option func(s *Service)

// WithQueueConfig sets the config of the per-event-type queues
func WithQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.queueConfig = newConfig
	}
}

// WithLogger sets the logger used by listeners.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
