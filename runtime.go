package procflux

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
	"github.com/viant/procflux/service/dao/process/fs"
	"github.com/viant/procflux/service/event"
	"github.com/viant/procflux/service/metrics"
	"github.com/viant/procflux/service/processor"
	"github.com/viant/procflux/service/rest"
	"github.com/viant/procflux/tracing"
)

// Runtime represents a running engine
type Runtime struct {
	processor *processor.Service
	events    *event.Service
	metrics   *metrics.Collector
	mirror    *fs.Service
	server    *rest.Server
	logger    *slog.Logger
	addr      string
}

// Start launches event listeners and dispatch workers
func (r *Runtime) Start(ctx context.Context) error {
	r.events.Start(ctx)
	return r.processor.StartWorkers(ctx)
}

// Serve exposes the HTTP API until ctx is done
func (r *Runtime) Serve(ctx context.Context) error {
	return r.server.ListenAndServe(ctx, r.addr)
}

// Shutdown stops workers and timers, drains pending events and flushes traces
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.processor.Shutdown()
	r.events.Stop()
	return tracing.Shutdown(ctx)
}

// Processor returns the lifecycle manager
func (r *Runtime) Processor() *processor.Service {
	return r.processor
}

// Metrics returns the metrics collector
func (r *Runtime) Metrics() *metrics.Collector {
	return r.metrics
}

// Handler returns the HTTP handler
func (r *Runtime) Handler() http.Handler {
	return r.server.Router()
}

// Process returns a process
func (r *Runtime) Process(ctx context.Context, id string) (*execution.Process, error) {
	return r.processor.Get(ctx, id)
}

// Processes returns a list of processes
func (r *Runtime) Processes(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	return r.processor.List(ctx, parameters...)
}

// StoredProcesses returns the mirrored process snapshots; it returns nil when
// no store is configured.
func (r *Runtime) StoredProcesses(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	if r.mirror == nil {
		return nil, nil
	}
	return r.mirror.List(ctx, parameters...)
}

func (r *Runtime) mirrorChange(e *event.Event[*event.StateChange]) {
	ctx := context.Background()
	change := e.Data
	if e.Context.EventType == event.TypeDeleted {
		if err := r.mirror.Delete(ctx, change.ProcessID); err != nil && !errors.Is(err, dao.ErrNotFound) {
			r.logger.Error("failed to delete mirrored process", "process", change.ProcessID, "error", err)
		}
		return
	}
	if change.Process == nil {
		return
	}
	if err := r.mirror.Save(ctx, change.Process); err != nil {
		r.logger.Error("failed to mirror process", "process", change.ProcessID, "error", err)
	}
}

func (r *Runtime) logChange(e *event.Event[*event.StateChange]) {
	change := e.Data
	r.logger.Debug("process state changed",
		"process", change.ProcessID,
		"event", e.Context.EventType,
		"from", change.From,
		"to", change.To,
		"reason", change.Reason)
}
