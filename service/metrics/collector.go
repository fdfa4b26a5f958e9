// Package metrics exposes Prometheus collectors fed by process state-change
// events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viant/procflux/service/event"
)

// Collector owns the engine collectors and the registry they live in.
type Collector struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	processes   *prometheus.GaugeVec
	completion  *prometheus.HistogramVec
}

// NewCollector creates collectors registered in a new registry.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.NewRegistry())
}

// NewCollectorWithRegistry creates collectors registered in registry.
func NewCollectorWithRegistry(registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procflux_transitions_total",
				Help: "Process lifecycle events by process type and event",
			},
			[]string{"type", "event"},
		),
		processes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "procflux_processes",
				Help: "Registered processes by state",
			},
			[]string{"state"},
		),
		completion: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "procflux_completion_seconds",
				Help:    "Simulated run time of processes that reached a terminal state from running",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
			},
			[]string{"type", "state"},
		),
	}
	registry.MustRegister(c.transitions, c.processes, c.completion)
	return c
}

// Observe updates collectors with a state change; it is meant to be
// subscribed to the event service.
func (c *Collector) Observe(e *event.Event[*event.StateChange]) {
	if e == nil || e.Data == nil || e.Context == nil {
		return
	}
	change := e.Data
	c.transitions.WithLabelValues(string(e.Context.ProcessType), e.Context.EventType).Inc()
	if change.From != change.To {
		if change.From != "" {
			c.processes.WithLabelValues(string(change.From)).Dec()
		}
		if change.To != "" {
			c.processes.WithLabelValues(string(change.To)).Inc()
		}
	}
	if change.Duration > 0 && change.To.IsTerminal() {
		c.completion.WithLabelValues(string(e.Context.ProcessType), string(change.To)).Observe(change.Duration.Seconds())
	}
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics handler for the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
