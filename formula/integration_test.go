//go:build integration
// +build integration

package formula_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okvist/labsheet/formula"

	_ "github.com/lib/pq"
)

// setupTestDB creates a PostgreSQL container and returns a connection
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "labsheet_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(60 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=labsheet_test sslmode=disable", host, port.Port())

	var db *sql.DB
	for i := 0; i < 30; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_initial_schema.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgresContainer.Terminate(ctx)
	}

	return db, cleanup
}

// createWorkspace helper function to create a workspace in the database
func createWorkspace(t *testing.T, db *sql.DB, name string) string {
	workspaceID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO workspaces (id, name) VALUES ($1, $2)
	`, workspaceID, name)
	if err != nil {
		t.Fatalf("Failed to create workspace: %v", err)
	}
	return workspaceID
}

func TestPostgresStore_BasicCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	workspaceID := createWorkspace(t, db, "test-workspace")
	store := formula.NewPostgresStore(db, workspaceID)

	// Test Add
	formulaID := uuid.NewString()
	f := &formula.Formula{
		ID:          formulaID,
		WorkspaceID: workspaceID,
		Name:        "High conductivity",
		Expression:  "[Conductivity] > 300",
		Kind:        formula.KindCellValidation,
		Color:       "#ff0000",
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := store.Add(f); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	// Test Get
	retrieved, err := store.Get(formulaID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if retrieved.Expression != f.Expression {
		t.Errorf("Expression = %s, want %s", retrieved.Expression, f.Expression)
	}
	if retrieved.Kind != formula.KindCellValidation {
		t.Errorf("Kind = %s, want %s", retrieved.Kind, formula.KindCellValidation)
	}

	// Test Update
	retrieved.Expression = "[Conductivity] > 250"
	retrieved.Active = false
	if err := store.Update(retrieved); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	updated, err := store.Get(formulaID)
	if err != nil {
		t.Fatalf("Get() after update failed: %v", err)
	}
	if updated.Expression != "[Conductivity] > 250" {
		t.Errorf("Expression after update = %s", updated.Expression)
	}
	if updated.Active {
		t.Error("Active should be false after update")
	}

	// Test Delete
	if err := store.Delete(formulaID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(formulaID); err == nil {
		t.Error("Get() after Delete() should fail")
	}
}

func TestPostgresStore_ListActiveOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	workspaceID := createWorkspace(t, db, "order-workspace")
	store := formula.NewPostgresStore(db, workspaceID)

	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.NewString()
		f := &formula.Formula{
			ID:          ids[i],
			WorkspaceID: workspaceID,
			Name:        fmt.Sprintf("Formula %d", i),
			Expression:  "[Conductivity] > 300",
			Kind:        formula.KindCellValidation,
			Active:      i != 1, // middle one inactive
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Millisecond),
			UpdatedAt:   time.Now(),
		}
		if err := store.Add(f); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active formulas = %d, want 2", len(active))
	}
	if active[0].ID != ids[0] || active[1].ID != ids[2] {
		t.Errorf("ListActive() order wrong, got [%s, %s]", active[0].ID, active[1].ID)
	}
}

func TestPostgresStore_WorkspaceIsolation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	wsA := createWorkspace(t, db, "workspace-a")
	wsB := createWorkspace(t, db, "workspace-b")

	storeA := formula.NewPostgresStore(db, wsA)
	storeB := formula.NewPostgresStore(db, wsB)

	f := &formula.Formula{
		ID:          uuid.NewString(),
		WorkspaceID: wsA,
		Name:        "Only in A",
		Expression:  "[pH] < 6",
		Kind:        formula.KindCellValidation,
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := storeA.Add(f); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	if _, err := storeB.Get(f.ID); err == nil {
		t.Error("workspace B should not see workspace A's formula")
	}

	listB, err := storeB.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(listB) != 0 {
		t.Errorf("workspace B list = %d formulas, want 0", len(listB))
	}

	if err := storeB.Delete(f.ID); err == nil {
		t.Error("workspace B should not be able to delete workspace A's formula")
	}

	if _, err := storeA.Get(f.ID); err != nil {
		t.Errorf("workspace A formula should survive: %v", err)
	}
}
