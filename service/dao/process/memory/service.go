package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/viant/procflux/runtime/execution"
	"github.com/viant/procflux/service/dao"
	"github.com/viant/procflux/service/dao/criteria"
)

// DefaultShards is the number of primary map shards used by New.
const DefaultShards = 16

// Service implements an in-memory, thread-safe process registry. The primary
// map is sharded by id hash; secondary server and type indices share their own
// lock. All API methods work with copies to eliminate data races between
// goroutines.
//
// Insert writes the indices before the primary map and Remove deletes from the
// primary map before the indices, while index lookups skip ids that are not in
// the primary map. Readers therefore never see a live process missing from its
// indices nor a removed process in a listing.
type Service struct {
	shards   []*shard
	indexMux sync.RWMutex
	byServer map[string]map[string]struct{}
	byType   map[execution.Type]map[string]struct{}
}

type shard struct {
	mux     sync.RWMutex
	records map[string]*record
}

type record struct {
	process  *execution.Process
	detached bool
}

var _ dao.Service[string, execution.Process] = (*Service)(nil)

// Insert adds a new process; it never overwrites an existing one.
func (s *Service) Insert(_ context.Context, p *execution.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}
	sh := s.shard(p.ID)
	sh.mux.Lock()
	defer sh.mux.Unlock()
	if _, ok := sh.records[p.ID]; ok {
		return fmt.Errorf("process %s: %w", p.ID, dao.ErrExists)
	}
	clone := p.Clone()
	s.index(clone)
	sh.records[p.ID] = &record{process: clone}
	return nil
}

// Save inserts or replaces a process. A replacement with different servers
// or type is re-indexed.
func (s *Service) Save(_ context.Context, p *execution.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}
	sh := s.shard(p.ID)
	sh.mux.Lock()
	defer sh.mux.Unlock()
	clone := p.Clone()
	if r, ok := sh.records[p.ID]; ok {
		s.replace(r, clone)
		return nil
	}
	s.index(clone)
	sh.records[p.ID] = &record{process: clone}
	return nil
}

// Load returns a snapshot of the process.
func (s *Service) Load(_ context.Context, id string) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	sh := s.shard(id)
	sh.mux.RLock()
	r, ok := sh.records[id]
	var ret *execution.Process
	if ok {
		ret = r.process.Clone()
	}
	sh.mux.RUnlock()
	if !ok {
		return nil, fmt.Errorf("process %s: %w", id, dao.ErrNotFound)
	}
	return ret, nil
}

// Update applies mutator to a copy of the process under the shard's exclusive
// lock and stores the result unless mutator returns an error.
func (s *Service) Update(_ context.Context, id string, mutator func(p *execution.Process) error) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	sh := s.shard(id)
	sh.mux.Lock()
	defer sh.mux.Unlock()
	r, ok := sh.records[id]
	if !ok {
		return nil, fmt.Errorf("process %s: %w", id, dao.ErrNotFound)
	}
	candidate := r.process.Clone()
	if err := mutator(candidate); err != nil {
		return nil, err
	}
	candidate.ID = id
	s.replace(r, candidate)
	return candidate.Clone(), nil
}

// Delete removes the process.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.Remove(ctx, id)
	return err
}

// Remove removes the process and returns its final snapshot.
func (s *Service) Remove(_ context.Context, id string) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	sh := s.shard(id)
	sh.mux.Lock()
	defer sh.mux.Unlock()
	r, ok := sh.records[id]
	if !ok {
		return nil, fmt.Errorf("process %s: %w", id, dao.ErrNotFound)
	}
	delete(sh.records, id)
	s.unindex(r.process, !r.detached)
	return r.process, nil
}

// Detach drops the process from the server index only; it stays loadable and
// listed by type.
func (s *Service) Detach(_ context.Context, id string) error {
	sh := s.shard(id)
	sh.mux.Lock()
	defer sh.mux.Unlock()
	r, ok := sh.records[id]
	if !ok {
		return fmt.Errorf("process %s: %w", id, dao.ErrNotFound)
	}
	if r.detached {
		return nil
	}
	r.detached = true
	s.indexMux.Lock()
	for _, server := range r.process.Servers() {
		removeFrom(s.byServer, server, id)
	}
	s.indexMux.Unlock()
	return nil
}

// ListByServer returns snapshots of processes indexed under serverID.
func (s *Service) ListByServer(_ context.Context, serverID string) ([]*execution.Process, error) {
	s.indexMux.RLock()
	ids := keys(s.byServer[serverID])
	s.indexMux.RUnlock()
	return s.collect(ids), nil
}

// ListByType returns snapshots of processes of the given type.
func (s *Service) ListByType(_ context.Context, processType execution.Type) ([]*execution.Process, error) {
	s.indexMux.RLock()
	ids := keys(s.byType[processType])
	s.indexMux.RUnlock()
	return s.collect(ids), nil
}

// List returns snapshots of processes matching parameters. Detached processes
// never match a Server parameter.
func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	byServer := hasParameter(parameters, dao.ParameterServer)
	var out []*execution.Process
	for _, sh := range s.shards {
		sh.mux.RLock()
		for _, r := range sh.records {
			if r.detached && byServer {
				continue
			}
			if !criteria.Match(r.process, parameters) {
				continue
			}
			out = append(out, r.process.Clone())
		}
		sh.mux.RUnlock()
	}
	sortProcesses(out)
	return out, nil
}

// Len returns the number of registered processes.
func (s *Service) Len() int {
	ret := 0
	for _, sh := range s.shards {
		sh.mux.RLock()
		ret += len(sh.records)
		sh.mux.RUnlock()
	}
	return ret
}

func (s *Service) collect(ids []string) []*execution.Process {
	out := make([]*execution.Process, 0, len(ids))
	for _, id := range ids {
		sh := s.shard(id)
		sh.mux.RLock()
		if r, ok := sh.records[id]; ok {
			out = append(out, r.process.Clone())
		}
		sh.mux.RUnlock()
	}
	sortProcesses(out)
	return out
}

func (s *Service) index(p *execution.Process) {
	s.indexMux.Lock()
	defer s.indexMux.Unlock()
	for _, server := range p.Servers() {
		addTo(s.byServer, server, p.ID)
	}
	addTo(s.byType, p.Type, p.ID)
}

func (s *Service) unindex(p *execution.Process, servers bool) {
	s.indexMux.Lock()
	defer s.indexMux.Unlock()
	if servers {
		for _, server := range p.Servers() {
			removeFrom(s.byServer, server, p.ID)
		}
	}
	removeFrom(s.byType, p.Type, p.ID)
}

// replace swaps the record's process and moves its index entries when the
// servers or the type changed. Callers hold the record's shard lock.
func (s *Service) replace(r *record, candidate *execution.Process) {
	previous := r.process
	r.process = candidate
	previousServers, servers := previous.Servers(), candidate.Servers()
	if previous.Type == candidate.Type && equalStrings(previousServers, servers) {
		return
	}
	s.indexMux.Lock()
	defer s.indexMux.Unlock()
	if !r.detached {
		for _, server := range servers {
			addTo(s.byServer, server, candidate.ID)
		}
		for _, server := range previousServers {
			if !containsString(servers, server) {
				removeFrom(s.byServer, server, candidate.ID)
			}
		}
	}
	if previous.Type != candidate.Type {
		addTo(s.byType, candidate.Type, candidate.ID)
		removeFrom(s.byType, previous.Type, candidate.ID)
	}
}

func (s *Service) shard(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// New creates a registry with the given number of shards.
func New(shards int) *Service {
	if shards <= 0 {
		shards = DefaultShards
	}
	ret := &Service{
		shards:   make([]*shard, shards),
		byServer: map[string]map[string]struct{}{},
		byType:   map[execution.Type]map[string]struct{}{},
	}
	for i := range ret.shards {
		ret.shards[i] = &shard{records: map[string]*record{}}
	}
	return ret
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func addTo[K comparable](index map[K]map[string]struct{}, key K, id string) {
	set, ok := index[key]
	if !ok {
		set = map[string]struct{}{}
		index[key] = set
	}
	set[id] = struct{}{}
}

func removeFrom[K comparable](index map[K]map[string]struct{}, key K, id string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func hasParameter(parameters []*dao.Parameter, name string) bool {
	for _, parameter := range parameters {
		if parameter != nil && parameter.Name == name {
			return true
		}
	}
	return false
}

func sortProcesses(processes []*execution.Process) {
	sort.Slice(processes, func(i, j int) bool {
		if !processes[i].CreatedAt.Equal(processes[j].CreatedAt) {
			return processes[i].CreatedAt.Before(processes[j].CreatedAt)
		}
		return processes[i].ID < processes[j].ID
	})
}
