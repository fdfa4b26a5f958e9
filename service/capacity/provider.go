// Package capacity supplies read-only hardware capacity of game servers.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viant/procflux/runtime/execution"
)

// ErrUnknownHost is returned when a provider has no capacity for a host.
var ErrUnknownHost = errors.New("capacity: unknown host")

// Provider returns the total capacity of a host.
type Provider interface {
	Capacity(ctx context.Context, host string) (execution.Resources, error)
}

// Static serves capacity from a fixed table with an optional fallback.
type Static struct {
	mux      sync.RWMutex
	hosts    map[string]execution.Resources
	fallback *execution.Resources
}

// NewStatic creates a table provider; fallback applies to unlisted hosts when
// not nil.
func NewStatic(hosts map[string]execution.Resources, fallback *execution.Resources) *Static {
	ret := &Static{hosts: map[string]execution.Resources{}}
	for host, resources := range hosts {
		ret.hosts[host] = resources
	}
	if fallback != nil {
		value := *fallback
		ret.fallback = &value
	}
	return ret
}

// Set replaces the capacity of host.
func (s *Static) Set(host string, resources execution.Resources) {
	s.mux.Lock()
	s.hosts[host] = resources
	s.mux.Unlock()
}

// Capacity returns host capacity.
func (s *Static) Capacity(_ context.Context, host string) (execution.Resources, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if resources, ok := s.hosts[host]; ok {
		return resources, nil
	}
	if s.fallback != nil {
		return *s.fallback, nil
	}
	return execution.Resources{}, fmt.Errorf("%w: %s", ErrUnknownHost, host)
}
