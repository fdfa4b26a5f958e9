package allocator

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
)

// ErrInsufficient is returned by Admit when a request does not fit into the
// remaining host capacity.
var ErrInsufficient = errors.New("allocator: insufficient capacity")

// Allocation is a ledger entry.
type Allocation struct {
	ProcessID string              `json:"processId"`
	Host      string              `json:"host"`
	Resources execution.Resources `json:"resources"`
}

// Service is a thread-safe resource ledger keyed by process id.
type Service struct {
	mux       sync.RWMutex
	entries   map[string]*Allocation
	committed map[string]execution.Resources
}

// New creates an empty ledger.
func New() *Service {
	return &Service{
		entries:   map[string]*Allocation{},
		committed: map[string]execution.Resources{},
	}
}

// Allocate inserts or replaces the allocation of processID and returns the
// previous amount, if any.
func (s *Service) Allocate(processID, host string, resources execution.Resources) (*execution.Resources, error) {
	if processID == "" {
		return nil, dao.ErrInvalidID
	}
	if err := resources.Validate(); err != nil {
		return nil, err
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	var previous *execution.Resources
	if existing, ok := s.entries[processID]; ok {
		prev := existing.Resources
		previous = &prev
		s.release(existing)
	}
	entry := &Allocation{ProcessID: processID, Host: host, Resources: resources}
	s.entries[processID] = entry
	s.committed[host] = s.committed[host].Add(resources)
	return previous, nil
}

// Deallocate removes the allocation and returns the freed amount.
func (s *Service) Deallocate(processID string) (*execution.Resources, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	existing, ok := s.entries[processID]
	if !ok {
		return nil, fmt.Errorf("allocation %s: %w", processID, dao.ErrNotFound)
	}
	s.release(existing)
	delete(s.entries, processID)
	freed := existing.Resources
	return &freed, nil
}

// Lookup returns the allocation of processID.
func (s *Service) Lookup(processID string) (*Allocation, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	existing, ok := s.entries[processID]
	if !ok {
		return nil, false
	}
	clone := *existing
	return &clone, true
}

// Committed returns the sum of allocations charged to host.
func (s *Service) Committed(host string) execution.Resources {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.committed[host]
}

// Hosts returns hosts with at least one allocation.
func (s *Service) Hosts() []string {
	s.mux.RLock()
	out := make([]string, 0, len(s.committed))
	for host := range s.committed {
		out = append(out, host)
	}
	s.mux.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of ledger entries.
func (s *Service) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.entries)
}

// Admit checks whether request fits into capacity on host once the current
// allocation of exclude (if any) is discounted.
func (s *Service) Admit(host string, request, capacity execution.Resources, exclude string) error {
	s.mux.RLock()
	defer s.mux.RUnlock()
	committed := s.committed[host]
	if own, ok := s.entries[exclude]; ok && own.Host == host {
		committed = committed.Sub(own.Resources)
	}
	total := committed.Add(request)
	if !total.Fits(capacity) {
		return fmt.Errorf("%w: host %s requested %v on top of %v, capacity %v", ErrInsufficient, host, request, committed, capacity)
	}
	return nil
}

func (s *Service) release(entry *Allocation) {
	remaining := s.committed[entry.Host].Sub(entry.Resources)
	if remaining.IsZero() {
		delete(s.committed, entry.Host)
		return
	}
	s.committed[entry.Host] = remaining
}
