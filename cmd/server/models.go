package main

import (
	"time"

	"github.com/okvist/labsheet/dataset"
	"github.com/okvist/labsheet/formula"
)

// API request and response models

// CreateWorkspaceRequest represents the request body for creating a workspace
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

// WorkspaceResponse represents a workspace in API responses
type WorkspaceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateFormulaRequest represents the request body for creating a formula
type CreateFormulaRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Kind       string `json:"kind"`
	Color      string `json:"color"`
	Active     bool   `json:"active"`
}

// UpdateFormulaRequest represents the request body for updating a formula
type UpdateFormulaRequest struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Kind       string `json:"kind"`
	Color      string `json:"color"`
	Active     bool   `json:"active"`
}

// FormulaResponse represents a formula in API responses
type FormulaResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Kind       string    `json:"kind"`
	Color      string    `json:"color"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toFormulaResponse(f *formula.Formula) FormulaResponse {
	return FormulaResponse{
		ID:         f.ID,
		Name:       f.Name,
		Expression: f.Expression,
		Kind:       string(f.Kind),
		Color:      f.Color,
		Active:     f.Active,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// CreateTableRequest represents the request body for creating a table from JSON
type CreateTableRequest struct {
	Name    string        `json:"name"`
	Columns []string      `json:"columns"`
	Rows    []dataset.Row `json:"rows"`
}

// TableResponse represents a table in API responses
type TableResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Columns     []string      `json:"columns"`
	Rows        []dataset.Row `json:"rows"`
	DateColumns []string      `json:"dateColumns"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func toTableResponse(t *dataset.Table) TableResponse {
	return TableResponse{
		ID:          t.ID,
		Name:        t.Name,
		Columns:     t.Columns,
		Rows:        t.Rows,
		DateColumns: t.DateColumns(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
