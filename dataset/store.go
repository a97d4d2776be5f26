package dataset

import (
	"fmt"
	"sync"
	"time"
)

// Store manages table persistence and retrieval.
type Store interface {
	// Add a new table
	Add(t *Table) error

	// Get a table by ID
	Get(id string) (*Table, error)

	// List all tables
	List() ([]*Table, error)

	// Update an existing table
	Update(t *Table) error

	// Delete a table
	Delete(id string) error
}

// InMemoryStore implements Store using an in-memory map.
// Thread-safe with RWMutex.
type InMemoryStore struct {
	tables map[string]*Table
	order  []string
	mu     sync.RWMutex
}

// NewInMemoryStore creates a new in-memory table store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tables: make(map[string]*Table),
	}
}

// Add adds a new table to the store, enforcing unique IDs.
func (s *InMemoryStore) Add(t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[t.ID]; exists {
		return fmt.Errorf("table with ID %s already exists", t.ID)
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tables[t.ID] = t
	s.order = append(s.order, t.ID)
	return nil
}

// Get retrieves a table by ID.
func (s *InMemoryStore) Get(id string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tables[id]
	if !exists {
		return nil, fmt.Errorf("table with ID %s not found", id)
	}
	return t, nil
}

// List returns all tables in insertion order.
func (s *InMemoryStore) List() ([]*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Table, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.tables[id])
	}
	return all, nil
}

// Update updates an existing table, preserving CreatedAt.
func (s *InMemoryStore) Update(t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.tables[t.ID]
	if !exists {
		return fmt.Errorf("table with ID %s not found", t.ID)
	}

	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()
	s.tables[t.ID] = t
	return nil
}

// Delete removes a table from the store.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tables[id]; !exists {
		return fmt.Errorf("table with ID %s not found", id)
	}

	delete(s.tables, id)
	for i, tid := range s.order {
		if tid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
