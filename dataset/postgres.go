package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL, scoped to one
// workspace. Columns and rows are persisted as jsonb so the dynamically
// typed cell contents round-trip unchanged.
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

// Add inserts a new table into the database.
func (s *PostgresStore) Add(t *Table) error {
	columns, rows, err := marshalLayout(t)
	if err != nil {
		return err
	}

	var exists bool
	err = s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM tables WHERE id = $1 AND workspace_id = $2)
	`, t.ID, s.workspaceID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if exists {
		return fmt.Errorf("table with ID %s already exists", t.ID)
	}

	_, err = s.db.Exec(`
		INSERT INTO tables (id, workspace_id, name, columns, rows, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, s.workspaceID, t.Name, columns, rows, t.CreatedAt, t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}

	return nil
}

// Get retrieves a table by ID.
func (s *PostgresStore) Get(id string) (*Table, error) {
	var t Table
	var columnsJSON, rowsJSON []byte
	err := s.db.QueryRow(`
		SELECT id, workspace_id, name, columns, rows, created_at, updated_at
		FROM tables
		WHERE id = $1 AND workspace_id = $2
	`, id, s.workspaceID).Scan(
		&t.ID,
		&t.WorkspaceID,
		&t.Name,
		&columnsJSON,
		&rowsJSON,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}

	if err := unmarshalLayout(&t, columnsJSON, rowsJSON); err != nil {
		return nil, err
	}

	return &t, nil
}

// List returns all tables for the workspace, oldest first.
func (s *PostgresStore) List() ([]*Table, error) {
	rows, err := s.db.Query(`
		SELECT id, workspace_id, name, columns, rows, created_at, updated_at
		FROM tables
		WHERE workspace_id = $1
		ORDER BY created_at ASC, id ASC
	`, s.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var list []*Table
	for rows.Next() {
		var t Table
		var columnsJSON, rowsJSON []byte
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.Name, &columnsJSON, &rowsJSON,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if err := unmarshalLayout(&t, columnsJSON, rowsJSON); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return list, nil
}

// Update modifies an existing table.
func (s *PostgresStore) Update(t *Table) error {
	columns, rows, err := marshalLayout(t)
	if err != nil {
		return err
	}

	t.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE tables
		SET name = $1, columns = $2, rows = $3, updated_at = $4
		WHERE id = $5 AND workspace_id = $6
	`, t.Name, columns, rows, t.UpdatedAt, t.ID, s.workspaceID)

	if err != nil {
		return fmt.Errorf("failed to update table: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("table %s not found", t.ID)
	}

	return nil
}

// Delete removes a table from the database.
func (s *PostgresStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM tables
		WHERE id = $1 AND workspace_id = $2
	`, id, s.workspaceID)

	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("table %s not found", id)
	}

	return nil
}

func marshalLayout(t *Table) (columns, rows []byte, err error) {
	columns, err = json.Marshal(t.Columns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal columns: %w", err)
	}
	rows, err = json.Marshal(t.Rows)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal rows: %w", err)
	}
	return columns, rows, nil
}

func unmarshalLayout(t *Table, columnsJSON, rowsJSON []byte) error {
	if err := json.Unmarshal(columnsJSON, &t.Columns); err != nil {
		return fmt.Errorf("invalid columns for table %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(rowsJSON, &t.Rows); err != nil {
		return fmt.Errorf("invalid rows for table %s: %w", t.ID, err)
	}
	return nil
}
