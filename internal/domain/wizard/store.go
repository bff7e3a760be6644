package wizard

import (
	"fmt"
	"sync"
)

// Store holds the cumulative draft of one wizard session. Drafts only
// grow or get overwritten field by field; nothing is ever deleted.
type Store struct {
	mu       sync.RWMutex
	defaults map[StepID]func() StepData
	data     map[StepID]StepData
}

// NewStore creates a store seeded with each step's default.
func NewStore(defs []Definition) *Store {
	s := &Store{
		defaults: make(map[StepID]func() StepData, len(defs)),
		data:     make(map[StepID]StepData, len(defs)),
	}
	for _, d := range defs {
		s.defaults[d.ID] = d.Default
		s.data[d.ID] = d.Default()
	}
	return s
}

// Get returns the stored data for a step.
func (s *Store) Get(id StepID) (StepData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return data, nil
}

// Merge applies a partial update to one step. Other fields of the step and
// all other steps are left untouched. On error nothing changes.
func (s *Store) Merge(id StepID, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	if len(p) == 0 {
		return nil
	}

	updated, err := current.With(p)
	if err != nil {
		return err
	}
	if updated.Step() != id {
		return fmt.Errorf("%w: patch for %s produced data for %s", ErrUnknownStep, id, updated.Step())
	}
	s.data[id] = updated
	return nil
}

// Draft returns a point-in-time view of all steps.
func (s *Store) Draft() Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := make(map[StepID]StepData, len(s.data))
	for id, d := range s.data {
		steps[id] = d
	}
	return Draft{steps: steps}
}

// replace overwrites a step wholesale; used when restoring a snapshot.
func (s *Store) replace(id StepID, data StepData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = data
}
