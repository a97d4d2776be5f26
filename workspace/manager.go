// Package workspace keeps one formula engine per workspace, loaded from the
// database at startup and kept in sync as formulas change.
package workspace

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/okvist/labsheet/engine"
	"github.com/okvist/labsheet/formula"
)

// Workspace groups a lab's tables and formulas.
type Workspace struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Manager manages engines for all workspaces.
type Manager struct {
	engines map[string]*engine.Engine
	db      *sql.DB
	mu      sync.RWMutex
}

// NewManager creates a new manager instance.
func NewManager(db *sql.DB) *Manager {
	return &Manager{
		engines: make(map[string]*engine.Engine),
		db:      db,
	}
}

// LoadAll loads all workspaces from the database and initializes their
// engines. A workspace with unparsable formulas still loads; the engine
// skips those formulas on its own.
func (m *Manager) LoadAll() error {
	rows, err := m.db.Query(`SELECT id FROM workspaces ORDER BY created_at ASC`)
	if err != nil {
		return fmt.Errorf("failed to fetch workspaces: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan workspace row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating workspace rows: %w", err)
	}

	for _, id := range ids {
		if err := m.Register(id); err != nil {
			return fmt.Errorf("failed to initialize workspace %s: %w", id, err)
		}
	}

	return nil
}

// Register creates an engine for the workspace, backed by its formula store.
func (m *Manager) Register(workspaceID string) error {
	store := formula.NewPostgresStore(m.db, workspaceID)
	en, err := engine.NewEngine(store)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.engines[workspaceID] = en
	m.mu.Unlock()

	return nil
}

// Get returns the engine for a workspace.
func (m *Manager) Get(workspaceID string) (*engine.Engine, error) {
	m.mu.RLock()
	en, exists := m.engines[workspaceID]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("workspace %s not found", workspaceID)
	}
	return en, nil
}

// List returns the IDs of all loaded workspaces.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	return ids
}
