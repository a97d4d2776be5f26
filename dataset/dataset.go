// Package dataset models a measurement table: variable rows against
// chronologically ordered date columns, plus a fixed set of metadata columns.
package dataset

import (
	"fmt"
	"time"
)

// VariableColumn is the designated column identifying each row's variable.
const VariableColumn = "Variable"

// metadataColumns are excluded from the date-column set. Every other column
// belongs to the chronological axis.
var metadataColumns = map[string]bool{
	VariableColumn: true,
	"Source":       true,
	"Method":       true,
	"Unit":         true,
	"LOQ":          true,
}

// IsMetadataColumn reports whether name is one of the fixed metadata columns.
func IsMetadataColumn(name string) bool {
	return metadataColumns[name]
}

// Row maps column names to cell contents. Cells are dynamically typed: a cell
// may be absent (nil), numeric (float64 after JSON decoding) or textual.
type Row map[string]any

// Table is an immutable snapshot of one measurement table. The engine never
// mutates a Table; callers hand a fresh snapshot to each evaluation.
type Table struct {
	ID          string
	WorkspaceID string
	Name        string
	Columns     []string
	Rows        []Row
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DateColumns returns the chronological columns in table order, i.e. every
// column outside the metadata set.
func (t *Table) DateColumns() []string {
	var cols []string
	for _, c := range t.Columns {
		if !IsMetadataColumn(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// VariableName returns the string form of the Variable cell for the given
// row, or "" when the cell is absent.
func (t *Table) VariableName(row int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	v, ok := t.Rows[row][VariableColumn]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
