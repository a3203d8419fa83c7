package plantly

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"plantly/internal/model"
)

// EventKind identifies the mutation that produced an Event.
type EventKind int

const (
	PlantAdded EventKind = iota
	PlantWatered
	PlantRemoved
)

func (k EventKind) String() string {
	switch k {
	case PlantAdded:
		return "added"
	case PlantWatered:
		return "watered"
	case PlantRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners after a mutation has been applied in
// memory and persisted.
type Event struct {
	Kind    EventKind
	PlantID string
}

// Listener receives store events. Listeners re-query the store for the data
// they need; they run outside the store's lock.
//
// Events from one goroutine arrive in the order its mutations completed.
// Across concurrent mutations the delivery order is not guaranteed to match
// the order in which the mutations were applied.
type Listener func(Event)

// PlantStore owns the plant collection. It is the only component allowed to
// mutate it.
//
// Every mutation applies to memory and writes the full snapshot inside one
// critical section, so at most one mutation is in flight. Reads may run
// concurrently with each other and never observe a half-applied mutation.
type PlantStore struct {
	mu     sync.RWMutex
	plants map[string]*model.Plant

	persist   SnapshotStore
	scheduler Scheduler
	clock     Clock
	idgen     IDGenerator
	logger    Logger

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// NewPlantStore creates an empty PlantStore with the provided dependencies.
// Use Open to start from the persisted collection.
func NewPlantStore(persist SnapshotStore, scheduler Scheduler, clock Clock, idgen IDGenerator, logger Logger) *PlantStore {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &PlantStore{
		plants:    make(map[string]*model.Plant),
		persist:   persist,
		scheduler: scheduler,
		clock:     clock,
		idgen:     idgen,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Open creates a PlantStore and fills it from the persisted snapshot.
func Open(persist SnapshotStore, scheduler Scheduler, clock Clock, idgen IDGenerator, logger Logger) (*PlantStore, error) {
	s := NewPlantStore(persist, scheduler, clock, idgen, logger)

	plants, err := persist.Load()
	if err != nil {
		return nil, fmt.Errorf("loading plants: %w", err)
	}

	for _, p := range plants {
		if err := p.Validate(); err != nil {
			s.logger.Warn("skipping invalid plant", "id", p.ID, "error", err)
			continue
		}
		if _, dup := s.plants[p.ID]; dup {
			s.logger.Warn("skipping duplicate plant id", "id", p.ID)
			continue
		}
		s.plants[p.ID] = p.Clone()
	}

	s.logger.Debug("plants loaded", "count", len(s.plants))
	return s, nil
}

// AddPlant creates a plant watered now and persists the collection.
// If only the persistence write fails, the new plant is returned together
// with a *PersistenceError.
func (s *PlantStore) AddPlant(name string, wateringFrequencyDays int, imageURI string) (*model.Plant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Reason: ReasonEmptyName}
	}
	if !validFrequency(wateringFrequencyDays) {
		return nil, &ValidationError{Reason: ReasonInvalidFrequency}
	}

	s.mu.Lock()
	id := s.idgen.New()
	if _, exists := s.plants[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("generated plant id already in use: %s", id)
	}
	p := &model.Plant{
		ID:                    id,
		Name:                  name,
		WateringFrequencyDays: wateringFrequencyDays,
		LastWateredAt:         s.clock.Now(),
		ImageURI:              strings.TrimSpace(imageURI),
	}
	s.plants[id] = p
	out := p.Clone()
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return out, err
	}

	s.logger.Info("plant added", "id", id, "name", name, "every_days", wateringFrequencyDays)
	s.notify(Event{Kind: PlantAdded, PlantID: id})
	return out, nil
}

// WaterPlant marks the plant as watered now and persists the collection.
// If only the persistence write fails, the updated plant is returned
// together with a *PersistenceError.
func (s *PlantStore) WaterPlant(id string) (*model.Plant, error) {
	s.mu.Lock()
	p, ok := s.plants[id]
	if !ok {
		s.mu.Unlock()
		return nil, &NotFoundError{ID: id}
	}
	p.LastWateredAt = s.clock.Now()
	out := p.Clone()
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return out, err
	}

	s.logger.Info("plant watered", "id", id)
	s.notify(Event{Kind: PlantWatered, PlantID: id})
	return out, nil
}

// RemovePlant deletes the plant and persists the collection.
func (s *PlantStore) RemovePlant(id string) error {
	s.mu.Lock()
	if _, ok := s.plants[id]; !ok {
		s.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	delete(s.plants, id)
	err := s.persistLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.logger.Info("plant removed", "id", id)
	s.notify(Event{Kind: PlantRemoved, PlantID: id})
	return nil
}

// Flush writes the current collection without changing it. Listeners are
// not notified.
func (s *PlantStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// GetPlant returns a copy of the plant with the given id.
func (s *PlantStore) GetPlant(id string) (*model.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plants[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return p.Clone(), nil
}

// GetPlantView returns the plant with its schedule evaluated at now.
func (s *PlantStore) GetPlantView(id string, now time.Time) (model.PlantView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plants[id]
	if !ok {
		return model.PlantView{}, &NotFoundError{ID: id}
	}
	return s.scheduler.View(p, now), nil
}

// ListPlants returns every plant with its schedule evaluated at now, most
// overdue first. Ties are broken by id.
func (s *PlantStore) ListPlants(now time.Time) []model.PlantView {
	s.mu.RLock()
	views := make([]model.PlantView, 0, len(s.plants))
	for _, p := range s.plants {
		views = append(views, s.scheduler.View(p, now))
	}
	s.mu.RUnlock()

	slices.SortFunc(views, func(a, b model.PlantView) int {
		if c := cmp.Compare(a.DaysUntilDue, b.DaysUntilDue); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return views
}

// Len returns the number of plants in the collection.
func (s *PlantStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plants)
}

// Subscribe registers fn for events. The returned function removes it.
func (s *PlantStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *PlantStore) notify(ev Event) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// persistLocked writes the current collection, retrying once.
// The caller must hold s.mu for writing.
func (s *PlantStore) persistLocked() error {
	snapshot := make([]*model.Plant, 0, len(s.plants))
	for _, p := range s.plants {
		snapshot = append(snapshot, p.Clone())
	}
	slices.SortFunc(snapshot, func(a, b *model.Plant) int {
		return strings.Compare(a.ID, b.ID)
	})

	err := s.persist.Save(snapshot)
	if err == nil {
		return nil
	}

	s.logger.Warn("snapshot write failed, retrying", "error", err)
	if err = s.persist.Save(snapshot); err != nil {
		s.logger.Error("snapshot write failed", "error", err)
		return &PersistenceError{Cause: err}
	}
	return nil
}
