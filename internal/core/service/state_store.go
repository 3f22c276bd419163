package service

import (
	"sync"

	"heatpump2mqtt/internal/core/domain"
)

// StateStore keeps the last published snapshot for readers outside the loop.
type StateStore struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
	ok       bool
}

func NewStateStore() *StateStore {
	return &StateStore{}
}

func (s *StateStore) PublishState(snapshot domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.ok = true
}

// State returns the last snapshot. ok is false until the first publish.
func (s *StateStore) State() (domain.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.ok
}
