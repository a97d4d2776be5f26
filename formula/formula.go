package formula

import "time"

// Kind distinguishes how a formula is evaluated against a table.
type Kind string

const (
	// KindCellValidation checks a single variable's readings column by column.
	KindCellValidation Kind = "cell_validation"

	// KindRelational compares two variables' readings at the same date column.
	KindRelational Kind = "relational"
)

// Valid reports whether k is a known formula kind.
func (k Kind) Valid() bool {
	return k == KindCellValidation || k == KindRelational
}

// Formula is a validation rule authored against a workspace's tables.
// Expression holds the raw formula text; it is parsed by the engine, never
// here. Expression is expected to be non-empty and to contain at least one
// comparison operator, but a formula violating that only fails to parse —
// it never breaks evaluation of other formulas.
type Formula struct {
	ID          string
	WorkspaceID string
	Name        string
	Expression  string
	Kind        Kind
	Color       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
