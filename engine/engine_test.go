package engine

import (
	"strings"
	"testing"

	"github.com/okvist/labsheet/dataset"
	"github.com/okvist/labsheet/formula"
)

// TestNewEngine verifies engine construction over an empty store.
func TestNewEngine(t *testing.T) {
	store := formula.NewInMemoryStore()

	en, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	if en == nil {
		t.Fatal("NewEngine() should return non-nil engine")
	}
}

// TestNewEngineParsesExistingFormulas verifies that formulas already in the
// store are usable immediately after construction.
func TestNewEngineParsesExistingFormulas(t *testing.T) {
	store := formula.NewInMemoryStore()

	formulas := []*formula.Formula{
		{ID: "f-1", Name: "Limit", Expression: "[Conductivity] > 300",
			Kind: formula.KindCellValidation, Color: "#ff0000", Active: true},
		{ID: "f-2", Name: "Disabled", Expression: "[Conductivity] > 0",
			Kind: formula.KindCellValidation, Active: false},
	}
	for _, f := range formulas {
		if err := store.Add(f); err != nil {
			t.Fatalf("failed to add formula: %v", err)
		}
	}

	en, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	tbl := &dataset.Table{
		Columns: []string{dataset.VariableColumn, "D1"},
		Rows: []dataset.Row{
			{dataset.VariableColumn: "Conductivity", "D1": 310.0},
		},
	}

	cells, err := en.EvaluateTable(tbl)
	if err != nil {
		t.Fatalf("EvaluateTable() failed: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("cells = %d, want 1", len(cells))
	}
	if len(cells[0].Formulas) != 1 || cells[0].Formulas[0].FormulaID != "f-1" {
		t.Errorf("contributors = %+v, want only the active f-1", cells[0].Formulas)
	}
}

// TestNewEngineSkipsMalformedStoredFormula verifies that a stored formula
// that no longer parses does not fail construction and does not block other
// formulas from evaluating.
func TestNewEngineSkipsMalformedStoredFormula(t *testing.T) {
	store := formula.NewInMemoryStore()

	bad := &formula.Formula{ID: "f-bad", Name: "Broken", Expression: "[A] + [B]",
		Kind: formula.KindCellValidation, Active: true}
	good := &formula.Formula{ID: "f-good", Name: "Limit", Expression: "[A] > 10",
		Kind: formula.KindCellValidation, Color: "#ff0000", Active: true}

	for _, f := range []*formula.Formula{bad, good} {
		if err := store.Add(f); err != nil {
			t.Fatalf("failed to add formula: %v", err)
		}
	}

	en, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() should tolerate a malformed stored formula, got: %v", err)
	}

	tbl := &dataset.Table{
		Columns: []string{dataset.VariableColumn, "D1"},
		Rows: []dataset.Row{
			{dataset.VariableColumn: "A", "D1": 50.0},
		},
	}

	cells, err := en.EvaluateTable(tbl)
	if err != nil {
		t.Fatalf("EvaluateTable() failed: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("cells = %d, want 1", len(cells))
	}
	if cells[0].Formulas[0].FormulaID != "f-good" {
		t.Errorf("contributor = %s, want f-good", cells[0].Formulas[0].FormulaID)
	}
}

// TestAddFormulaValidates verifies that AddFormula rejects text outside the
// grammar and leaves the store untouched.
func TestAddFormulaValidates(t *testing.T) {
	store := formula.NewInMemoryStore()
	en, _ := NewEngine(store)

	err := en.AddFormula(&formula.Formula{
		ID: "f-bad", Name: "Broken", Expression: "[A] + [B]",
		Kind: formula.KindCellValidation, Active: true,
	})
	if err == nil {
		t.Fatal("AddFormula() with malformed expression should fail")
	}
	if !strings.Contains(err.Error(), "comparison operator") {
		t.Errorf("error %q should mention the missing comparison operator", err)
	}

	if _, err := store.Get("f-bad"); err == nil {
		t.Error("malformed formula should not have been stored")
	}
}

// TestAddFormulaDuplicate verifies ID uniqueness at the engine level.
func TestAddFormulaDuplicate(t *testing.T) {
	store := formula.NewInMemoryStore()
	en, _ := NewEngine(store)

	f := &formula.Formula{ID: "f-1", Name: "Limit", Expression: "[A] > 1",
		Kind: formula.KindCellValidation, Active: true}
	if err := en.AddFormula(f); err != nil {
		t.Fatalf("AddFormula() failed: %v", err)
	}

	dup := &formula.Formula{ID: "f-1", Name: "Other", Expression: "[A] > 2",
		Kind: formula.KindCellValidation, Active: true}
	if err := en.AddFormula(dup); err == nil {
		t.Fatal("AddFormula() with duplicate ID should fail")
	}
}

// TestUpdateFormulaRevalidates verifies that updates are parsed before the
// store is touched.
func TestUpdateFormulaRevalidates(t *testing.T) {
	store := formula.NewInMemoryStore()
	en, _ := NewEngine(store)

	f := &formula.Formula{ID: "f-1", Name: "Limit", Expression: "[A] > 1",
		Kind: formula.KindCellValidation, Active: true}
	if err := en.AddFormula(f); err != nil {
		t.Fatalf("AddFormula() failed: %v", err)
	}

	broken := &formula.Formula{ID: "f-1", Name: "Limit", Expression: "[A] >",
		Kind: formula.KindCellValidation, Active: true}
	if err := en.UpdateFormula(broken); err == nil {
		t.Fatal("UpdateFormula() with malformed expression should fail")
	}

	stored, err := store.Get("f-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if stored.Expression != "[A] > 1" {
		t.Errorf("stored expression = %q, want original untouched", stored.Expression)
	}
}

// TestDeleteFormulaRemovesHits verifies that deleting a formula removes its
// highlights on the next evaluation.
func TestDeleteFormulaRemovesHits(t *testing.T) {
	store := formula.NewInMemoryStore()
	en, _ := NewEngine(store)

	f := &formula.Formula{ID: "f-1", Name: "Limit", Expression: "[A] > 1",
		Kind: formula.KindCellValidation, Color: "#ff0000", Active: true}
	if err := en.AddFormula(f); err != nil {
		t.Fatalf("AddFormula() failed: %v", err)
	}

	tbl := &dataset.Table{
		Columns: []string{dataset.VariableColumn, "D1"},
		Rows: []dataset.Row{
			{dataset.VariableColumn: "A", "D1": 50.0},
		},
	}

	cells, err := en.EvaluateTable(tbl)
	if err != nil {
		t.Fatalf("EvaluateTable() failed: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("cells before delete = %d, want 1", len(cells))
	}

	if err := en.DeleteFormula("f-1"); err != nil {
		t.Fatalf("DeleteFormula() failed: %v", err)
	}

	cells, err = en.EvaluateTable(tbl)
	if err != nil {
		t.Fatalf("EvaluateTable() failed after delete: %v", err)
	}
	if len(cells) != 0 {
		t.Errorf("cells after delete = %d, want 0", len(cells))
	}
}
