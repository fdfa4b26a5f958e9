package hierarchy

import (
	"sort"
	"sync"
)

// Store is an in-memory parent to children index for spawned processes.
type Store struct {
	mu       sync.RWMutex
	children map[string]map[string]struct{}
	parents  map[string]string
}

func NewStore() *Store {
	return &Store{
		children: make(map[string]map[string]struct{}),
		parents:  make(map[string]string),
	}
}

// Link records child as spawned by parent. Linking a child again moves it.
func (s *Store) Link(parentID, childID string) {
	if parentID == "" || childID == "" || parentID == childID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.parents[childID]; ok {
		s.unlink(previous, childID)
	}
	set, ok := s.children[parentID]
	if !ok {
		set = make(map[string]struct{})
		s.children[parentID] = set
	}
	set[childID] = struct{}{}
	s.parents[childID] = parentID
}

// Children returns the sorted ids spawned by parentID.
func (s *Store) Children(parentID string) []string {
	s.mu.RLock()
	set := s.children[parentID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Parent returns the parent id of childID.
func (s *Store) Parent(childID string) (string, bool) {
	s.mu.RLock()
	parentID, ok := s.parents[childID]
	s.mu.RUnlock()
	return parentID, ok
}

// Remove drops id both as a parent and as a child. Orphaned children keep
// their own records as parents.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if parentID, ok := s.parents[id]; ok {
		s.unlink(parentID, id)
	}
	for childID := range s.children[id] {
		delete(s.parents, childID)
	}
	delete(s.children, id)
}

// Len returns the number of parents with at least one child.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

func (s *Store) unlink(parentID, childID string) {
	delete(s.parents, childID)
	set := s.children[parentID]
	delete(set, childID)
	if len(set) == 0 {
		delete(s.children, parentID)
	}
}
