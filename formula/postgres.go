package formula

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL, scoped to one workspace.
type PostgresStore struct {
	db          *sql.DB
	workspaceID string
}

// NewPostgresStore creates a PostgreSQL-backed Store for a specific workspace.
func NewPostgresStore(db *sql.DB, workspaceID string) *PostgresStore {
	return &PostgresStore{
		db:          db,
		workspaceID: workspaceID,
	}
}

// Add inserts a new formula into the database.
func (s *PostgresStore) Add(f *Formula) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM formulas WHERE id = $1 AND workspace_id = $2)
	`, f.ID, s.workspaceID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check formula existence: %w", err)
	}
	if exists {
		return fmt.Errorf("formula with ID %s already exists", f.ID)
	}

	_, err = s.db.Exec(`
		INSERT INTO formulas (id, workspace_id, name, expression, kind, color, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, f.ID, s.workspaceID, f.Name, f.Expression, string(f.Kind), f.Color, f.Active,
		f.CreatedAt, f.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert formula: %w", err)
	}

	return nil
}

// Get retrieves a formula by ID.
func (s *PostgresStore) Get(id string) (*Formula, error) {
	var f Formula
	var kind string
	err := s.db.QueryRow(`
		SELECT id, workspace_id, name, expression, kind, color, active, created_at, updated_at
		FROM formulas
		WHERE id = $1 AND workspace_id = $2
	`, id, s.workspaceID).Scan(
		&f.ID,
		&f.WorkspaceID,
		&f.Name,
		&f.Expression,
		&kind,
		&f.Color,
		&f.Active,
		&f.CreatedAt,
		&f.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("formula %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get formula: %w", err)
	}

	f.Kind = Kind(kind)
	return &f, nil
}

// List returns all formulas for the workspace, oldest first.
func (s *PostgresStore) List() ([]*Formula, error) {
	return s.list(false)
}

// ListActive returns all active formulas for the workspace, oldest first.
// The ordering is stable so repeated evaluations produce identical output.
func (s *PostgresStore) ListActive() ([]*Formula, error) {
	return s.list(true)
}

func (s *PostgresStore) list(activeOnly bool) ([]*Formula, error) {
	query := `
		SELECT id, workspace_id, name, expression, kind, color, active, created_at, updated_at
		FROM formulas
		WHERE workspace_id = $1`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.Query(query, s.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list formulas: %w", err)
	}
	defer rows.Close()

	var list []*Formula
	for rows.Next() {
		var f Formula
		var kind string
		if err := rows.Scan(&f.ID, &f.WorkspaceID, &f.Name, &f.Expression, &kind,
			&f.Color, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan formula: %w", err)
		}
		f.Kind = Kind(kind)
		list = append(list, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating formulas: %w", err)
	}

	return list, nil
}

// Update modifies an existing formula.
func (s *PostgresStore) Update(f *Formula) error {
	if _, err := s.Get(f.ID); err != nil {
		return err
	}

	f.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE formulas
		SET name = $1, expression = $2, kind = $3, color = $4, active = $5, updated_at = $6
		WHERE id = $7 AND workspace_id = $8
	`, f.Name, f.Expression, string(f.Kind), f.Color, f.Active, f.UpdatedAt, f.ID, s.workspaceID)

	if err != nil {
		return fmt.Errorf("failed to update formula: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("formula %s not found", f.ID)
	}

	return nil
}

// Delete removes a formula from the database.
func (s *PostgresStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM formulas
		WHERE id = $1 AND workspace_id = $2
	`, id, s.workspaceID)

	if err != nil {
		return fmt.Errorf("failed to delete formula: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("formula %s not found", id)
	}

	return nil
}
