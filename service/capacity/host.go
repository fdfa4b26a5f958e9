package capacity

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/viant/procflux/runtime/execution"
)

const megabyte = 1024 * 1024

// Host reports the machine the engine runs on as the capacity of a named
// host; other hosts are delegated to next.
type Host struct {
	name string
	next Provider
}

// NewHost creates a provider for the local machine registered under name.
func NewHost(name string, next Provider) *Host {
	return &Host{name: name, next: next}
}

// Capacity returns logical CPU count and total memory in megabytes.
func (h *Host) Capacity(ctx context.Context, host string) (execution.Resources, error) {
	if host != h.name {
		if h.next == nil {
			return execution.Resources{}, fmt.Errorf("%w: %s", ErrUnknownHost, host)
		}
		return h.next.Capacity(ctx, host)
	}
	return Local(ctx)
}

// Local probes the local machine.
func Local(ctx context.Context) (execution.Resources, error) {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return execution.Resources{}, fmt.Errorf("failed to get cpu count: %w", err)
	}
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return execution.Resources{}, fmt.Errorf("failed to get virtual memory: %w", err)
	}
	return execution.Resources{CPU: float64(cores), RAM: float64(vmem.Total) / megabyte}, nil
}
