package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/okvist/labsheet/dataset"
	"github.com/okvist/labsheet/formula"
	"github.com/okvist/labsheet/internal/logger"
	"github.com/okvist/labsheet/workspace"
)

type Server struct {
	db      *sql.DB
	manager *workspace.Manager
	router  *chi.Mux
}

func NewServer(databaseURL string) (*Server, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewServerWithDB(db)
}

func NewServerWithDB(db *sql.DB) (*Server, error) {
	manager := workspace.NewManager(db)

	logger.Info("loading workspaces from database")
	if err := manager.LoadAll(); err != nil {
		return nil, fmt.Errorf("failed to load workspaces: %w", err)
	}
	logger.Info("workspaces loaded", "count", len(manager.List()))

	s := &Server{
		db:      db,
		manager: manager,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/api/v1/health", s.handleHealth)

	r.Route("/api/v1/workspaces", func(r chi.Router) {
		r.Get("/", s.handleListWorkspaces)
		r.Post("/", s.handleCreateWorkspace)

		r.Route("/{workspaceId}", func(r chi.Router) {
			// Formula management
			r.Post("/formulas", s.handleCreateFormula)
			r.Get("/formulas", s.handleListFormulas)
			r.Get("/formulas/{formulaId}", s.handleGetFormula)
			r.Put("/formulas/{formulaId}", s.handleUpdateFormula)
			r.Delete("/formulas/{formulaId}", s.handleDeleteFormula)

			// Table management
			r.Post("/tables", s.handleCreateTable)
			r.Get("/tables", s.handleListTables)
			r.Post("/tables/import", s.handleImportTable)
			r.Get("/tables/{tableId}", s.handleGetTable)
			r.Delete("/tables/{tableId}", s.handleDeleteTable)

			// Evaluation
			r.Post("/tables/{tableId}/highlights", s.handleEvaluateTable)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"workspacesLoaded": len(s.manager.List()),
	})
}

// List workspaces handler
func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query("SELECT id, name, created_at, updated_at FROM workspaces ORDER BY created_at DESC")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list workspaces", err)
		return
	}
	defer rows.Close()

	workspaces := []WorkspaceResponse{}
	for rows.Next() {
		var ws WorkspaceResponse
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to scan workspace", err)
			return
		}
		workspaces = append(workspaces, ws)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"workspaces": workspaces,
	})
}

// Create workspace handler
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	workspaceID := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO workspaces (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
	`, workspaceID, req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create workspace", err)
		return
	}

	if err := s.manager.Register(workspaceID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to initialize workspace", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":   workspaceID,
		"name": req.Name,
	})
}

// Create formula handler
func (s *Server) handleCreateFormula(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")

	var req CreateFormulaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Name == "" || req.Expression == "" {
		respondError(w, http.StatusBadRequest, "name and expression are required", nil)
		return
	}

	kind := formula.Kind(req.Kind)
	if req.Kind == "" {
		kind = formula.KindCellValidation
	}
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "kind must be cell_validation or relational", nil)
		return
	}

	en, err := s.manager.Get(workspaceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "workspace not found", err)
		return
	}

	f := &formula.Formula{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Expression:  req.Expression,
		Kind:        kind,
		Color:       req.Color,
		Active:      req.Active,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// AddFormula rejects text that does not match the grammar
	if err := en.AddFormula(f); err != nil {
		respondError(w, http.StatusBadRequest, "failed to add formula", err)
		return
	}

	respondJSON(w, http.StatusCreated, toFormulaResponse(f))
}

// List formulas handler
func (s *Server) handleListFormulas(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")

	store := formula.NewPostgresStore(s.db, workspaceID)
	formulas, err := store.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list formulas", err)
		return
	}

	list := make([]FormulaResponse, 0, len(formulas))
	for _, f := range formulas {
		list = append(list, toFormulaResponse(f))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"formulas": list,
	})
}

// Get formula handler
func (s *Server) handleGetFormula(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")
	formulaID := chi.URLParam(r, "formulaId")

	store := formula.NewPostgresStore(s.db, workspaceID)
	f, err := store.Get(formulaID)
	if err != nil {
		respondError(w, http.StatusNotFound, "formula not found", err)
		return
	}

	respondJSON(w, http.StatusOK, toFormulaResponse(f))
}

// Update formula handler
func (s *Server) handleUpdateFormula(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")
	formulaID := chi.URLParam(r, "formulaId")

	var req UpdateFormulaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	en, err := s.manager.Get(workspaceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "workspace not found", err)
		return
	}

	kind := formula.Kind(req.Kind)
	if req.Kind == "" {
		kind = formula.KindCellValidation
	}
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "kind must be cell_validation or relational", nil)
		return
	}

	f := &formula.Formula{
		ID:          formulaID,
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Expression:  req.Expression,
		Kind:        kind,
		Color:       req.Color,
		Active:      req.Active,
		UpdatedAt:   time.Now(),
	}

	if err := en.UpdateFormula(f); err != nil {
		respondError(w, http.StatusBadRequest, "failed to update formula", err)
		return
	}

	respondJSON(w, http.StatusOK, toFormulaResponse(f))
}

// Delete formula handler
func (s *Server) handleDeleteFormula(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")
	formulaID := chi.URLParam(r, "formulaId")

	en, err := s.manager.Get(workspaceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "workspace not found", err)
		return
	}

	if err := en.DeleteFormula(formulaID); err != nil {
		respondError(w, http.StatusNotFound, "formula not found", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Create table handler (JSON body)
func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")

	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Name == "" || len(req.Columns) == 0 {
		respondError(w, http.StatusBadRequest, "name and columns are required", nil)
		return
	}

	tbl := &dataset.Table{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Columns:     req.Columns,
		Rows:        req.Rows,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	store := dataset.NewPostgresStore(s.db, workspaceID)
	if err := store.Add(tbl); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create table", err)
		return
	}

	respondJSON(w, http.StatusCreated, toTableResponse(tbl))
}

// Import table handler (multipart .csv or .xlsx upload)
func (s *Server) handleImportTable(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required", err)
		return
	}
	defer file.Close()

	var tbl *dataset.Table
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		tbl, err = dataset.FromCSV(file)
	case ".xlsx":
		tbl, err = dataset.FromXLSX(file)
	default:
		respondError(w, http.StatusBadRequest, "unsupported file type (use .csv or .xlsx)", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to import file", err)
		return
	}

	tbl.ID = uuid.NewString()
	tbl.WorkspaceID = workspaceID
	tbl.Name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	tbl.CreatedAt = time.Now()
	tbl.UpdatedAt = time.Now()

	store := dataset.NewPostgresStore(s.db, workspaceID)
	if err := store.Add(tbl); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store table", err)
		return
	}

	respondJSON(w, http.StatusCreated, toTableResponse(tbl))
}

// List tables handler
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")

	store := dataset.NewPostgresStore(s.db, workspaceID)
	tables, err := store.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tables", err)
		return
	}

	list := make([]TableResponse, 0, len(tables))
	for _, tbl := range tables {
		list = append(list, toTableResponse(tbl))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tables": list,
	})
}

// Get table handler
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")
	tableID := chi.URLParam(r, "tableId")

	store := dataset.NewPostgresStore(s.db, workspaceID)
	tbl, err := store.Get(tableID)
	if err != nil {
		respondError(w, http.StatusNotFound, "table not found", err)
		return
	}

	respondJSON(w, http.StatusOK, toTableResponse(tbl))
}

// Delete table handler
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")
	tableID := chi.URLParam(r, "tableId")

	store := dataset.NewPostgresStore(s.db, workspaceID)
	if err := store.Delete(tableID); err != nil {
		respondError(w, http.StatusNotFound, "table not found", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Evaluate table handler
func (s *Server) handleEvaluateTable(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceId")
	tableID := chi.URLParam(r, "tableId")

	en, err := s.manager.Get(workspaceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "workspace not found", err)
		return
	}

	store := dataset.NewPostgresStore(s.db, workspaceID)
	tbl, err := store.Get(tableID)
	if err != nil {
		respondError(w, http.StatusNotFound, "table not found", err)
		return
	}

	startTime := time.Now()
	highlights, err := en.EvaluateTable(tbl)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "evaluation failed", err)
		return
	}
	evaluationTime := time.Since(startTime)

	respondJSON(w, http.StatusOK, map[string]any{
		"highlights":     highlights,
		"evaluationTime": evaluationTime.String(),
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
	}

	server, err := NewServer(databaseURL)
	if err != nil {
		logger.Fatal("failed to create server", "error", err.Error())
	}
	defer server.db.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err.Error())
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}

	logger.Info("server stopped")
}
