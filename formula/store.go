package formula

import (
	"fmt"
	"sync"
	"time"
)

// Store manages formula persistence and retrieval.
type Store interface {
	// Add a new formula
	Add(f *Formula) error

	// Get a formula by ID
	Get(id string) (*Formula, error)

	// List all formulas
	List() ([]*Formula, error)

	// ListActive returns all active formulas in insertion order
	ListActive() ([]*Formula, error)

	// Update an existing formula
	Update(f *Formula) error

	// Delete a formula
	Delete(id string) error
}

// InMemoryStore implements Store using an in-memory map.
// Thread-safe with RWMutex. Insertion order is preserved so evaluation
// output stays deterministic across calls.
type InMemoryStore struct {
	formulas map[string]*Formula
	order    []string
	mu       sync.RWMutex
}

// NewInMemoryStore creates a new in-memory formula store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		formulas: make(map[string]*Formula),
	}
}

// Add adds a new formula to the store, enforcing unique IDs and setting
// CreatedAt and UpdatedAt timestamps.
func (s *InMemoryStore) Add(f *Formula) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.formulas[f.ID]; exists {
		return fmt.Errorf("formula with ID %s already exists", f.ID)
	}

	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	s.formulas[f.ID] = f
	s.order = append(s.order, f.ID)
	return nil
}

// Get retrieves a formula by ID.
func (s *InMemoryStore) Get(id string) (*Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.formulas[id]
	if !exists {
		return nil, fmt.Errorf("formula with ID %s not found", id)
	}
	return f, nil
}

// List returns all formulas in insertion order.
func (s *InMemoryStore) List() ([]*Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Formula, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.formulas[id])
	}
	return all, nil
}

// ListActive returns all active formulas in insertion order.
func (s *InMemoryStore) ListActive() ([]*Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*Formula
	for _, id := range s.order {
		if f := s.formulas[id]; f.Active {
			active = append(active, f)
		}
	}
	return active, nil
}

// Update updates an existing formula, preserving CreatedAt.
func (s *InMemoryStore) Update(f *Formula) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.formulas[f.ID]
	if !exists {
		return fmt.Errorf("formula with ID %s not found", f.ID)
	}

	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now()
	s.formulas[f.ID] = f
	return nil
}

// Delete removes a formula from the store.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.formulas[id]; !exists {
		return fmt.Errorf("formula with ID %s not found", id)
	}

	delete(s.formulas, id)
	for i, fid := range s.order {
		if fid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
