package testutil

import (
	"errors"
	"sync"

	"plantly/internal/model"
	"plantly/internal/plantly"
)

// ErrInjected is the default error returned by a failing MemorySnapshotStore.
var ErrInjected = errors.New("injected save failure")

// MemorySnapshotStore keeps the last saved collection in memory and can be
// told to fail upcoming saves. Safe for concurrent use.
type MemorySnapshotStore struct {
	mu       sync.Mutex
	plants   []*model.Plant
	saves    int
	attempts int
	failures int
	failErr  error
	loadErr  error
}

var _ plantly.SnapshotStore = (*MemorySnapshotStore)(nil)

// NewMemorySnapshotStore creates a store preloaded with plants.
func NewMemorySnapshotStore(plants ...*model.Plant) *MemorySnapshotStore {
	s := &MemorySnapshotStore{}
	s.plants = clonePlants(plants)
	return s
}

// FailSaves makes the next n calls to Save return err (ErrInjected if nil).
func (s *MemorySnapshotStore) FailSaves(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	s.failures = n
	s.failErr = err
}

// FailLoad makes every call to Load return err.
func (s *MemorySnapshotStore) FailLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *MemorySnapshotStore) Save(plants []*model.Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return s.failErr
	}
	s.plants = clonePlants(plants)
	s.saves++
	return nil
}

func (s *MemorySnapshotStore) Load() ([]*model.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return clonePlants(s.plants), nil
}

// Saved returns a copy of the last successfully saved collection.
func (s *MemorySnapshotStore) Saved() []*model.Plant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePlants(s.plants)
}

// Saves returns how many saves succeeded.
func (s *MemorySnapshotStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Attempts returns how many times Save was called, including failures.
func (s *MemorySnapshotStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func clonePlants(plants []*model.Plant) []*model.Plant {
	out := make([]*model.Plant, 0, len(plants))
	for _, p := range plants {
		out = append(out, p.Clone())
	}
	return out
}
