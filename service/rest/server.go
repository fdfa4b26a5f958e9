package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viant/procflux/service/metrics"
	"github.com/viant/procflux/service/processor"
)

// Option customises the HTTP server.
type Option func(*Server)

// WithMetrics exposes collector under /metrics.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = collector
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// Server exposes the lifecycle manager over HTTP.
type Server struct {
	processor       *processor.Service
	metrics         *metrics.Collector
	logger          *slog.Logger
	router          *gin.Engine
	handlers        *Handlers
	shutdownTimeout time.Duration
}

// New creates a server instance
func New(service *processor.Service, opts ...Option) *Server {
	s := &Server{
		processor:       service,
		logger:          slog.Default(),
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = gin.New()
	s.handlers = NewHandlers(service)
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(TracingMiddleware())
	s.router.Use(LoggerMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/v1")
	{
		api.GET("/stats", s.handlers.Stats)
		api.GET("/servers/:id/processes", s.handlers.ListServerProcesses)

		api.GET("/processes", s.handlers.ListProcesses)
		api.POST("/processes", s.handlers.CreateProcess)
		api.GET("/processes/:id", s.handlers.GetProcess)
		api.PATCH("/processes/:id", s.handlers.UpdateProcess)
		api.DELETE("/processes/:id", s.handlers.DeleteProcess)
		api.POST("/processes/:id/start", s.handlers.StartProcess)
		api.POST("/processes/:id/pause", s.handlers.PauseProcess)
		api.POST("/processes/:id/resume", s.handlers.ResumeProcess)
		api.POST("/processes/:id/kill", s.handlers.KillProcess)
		api.POST("/processes/:id/fail", s.handlers.FailProcess)
		api.POST("/processes/:id/complete", s.handlers.CompleteProcess)
		api.POST("/processes/:id/checkpoint", s.handlers.CheckpointProcess)
		api.POST("/processes/:id/signal", s.handlers.SignalProcess)
		api.PUT("/processes/:id/resources", s.handlers.AllocateResources)
		api.DELETE("/processes/:id/resources", s.handlers.DeallocateResources)
		api.GET("/processes/:id/children", s.handlers.ListChildren)
	}
}

// Router returns the gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// ListenAndServe serves addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
