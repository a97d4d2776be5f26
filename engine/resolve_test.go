package engine

import (
	"testing"

	"github.com/okvist/labsheet/dataset"
)

func tableWithVariables(names ...string) *dataset.Table {
	tbl := &dataset.Table{
		Columns: []string{dataset.VariableColumn, "2024-01-05"},
	}
	for _, n := range names {
		tbl.Rows = append(tbl.Rows, dataset.Row{dataset.VariableColumn: n})
	}
	return tbl
}

// TestResolveExactMatch verifies the first matching tier: exact equality
// after trimming trailing punctuation from the row's Variable value.
func TestResolveExactMatch(t *testing.T) {
	tbl := tableWithVariables("Conductivity", "pH", "Ortho Phosphate,")

	testCases := []struct {
		name     string
		variable string
		wantRow  int
	}{
		{"Plain name", "Conductivity", 0},
		{"Short name", "pH", 1},
		{"Trailing comma in row value", "Ortho Phosphate", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row, ok := ResolveVariable(tc.variable, tbl)
			if !ok {
				t.Fatalf("ResolveVariable(%q) did not match", tc.variable)
			}
			if row != tc.wantRow {
				t.Errorf("ResolveVariable(%q) = row %d, want %d", tc.variable, row, tc.wantRow)
			}
		})
	}
}

// TestResolveCaseInsensitive verifies the second matching tier.
func TestResolveCaseInsensitive(t *testing.T) {
	tbl := tableWithVariables("Conductivity", "Nitrate")

	row, ok := ResolveVariable("conductivity", tbl)
	if !ok {
		t.Fatal("ResolveVariable(\"conductivity\") did not match")
	}
	if row != 0 {
		t.Errorf("ResolveVariable(\"conductivity\") = row %d, want 0", row)
	}
}

// TestResolveSubstring verifies the third matching tier: containment in
// either direction.
func TestResolveSubstring(t *testing.T) {
	tbl := tableWithVariables("Total Nitrogen (as N)", "pH")

	testCases := []struct {
		name     string
		variable string
		wantRow  int
	}{
		{"Requested name inside row value", "Total Nitrogen", 0},
		{"Row value inside requested name", "Total Nitrogen (as N) filtered", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row, ok := ResolveVariable(tc.variable, tbl)
			if !ok {
				t.Fatalf("ResolveVariable(%q) did not match", tc.variable)
			}
			if row != tc.wantRow {
				t.Errorf("ResolveVariable(%q) = row %d, want %d", tc.variable, row, tc.wantRow)
			}
		})
	}
}

// TestResolvePrecedence verifies that an exact match beats a substring match
// even when the substring row comes first in dataset order.
func TestResolvePrecedence(t *testing.T) {
	tbl := tableWithVariables("Nitrate + Nitrite", "Nitrate")

	row, ok := ResolveVariable("Nitrate", tbl)
	if !ok {
		t.Fatal("ResolveVariable(\"Nitrate\") did not match")
	}
	if row != 1 {
		t.Errorf("ResolveVariable(\"Nitrate\") = row %d, want exact match at 1", row)
	}
}

// TestResolveFirstMatchInDatasetOrder verifies that an ambiguous substring
// match takes the first row in dataset order.
func TestResolveFirstMatchInDatasetOrder(t *testing.T) {
	tbl := tableWithVariables("Iron (dissolved)", "Iron (total)")

	row, ok := ResolveVariable("Iron", tbl)
	if !ok {
		t.Fatal("ResolveVariable(\"Iron\") did not match")
	}
	if row != 0 {
		t.Errorf("ResolveVariable(\"Iron\") = row %d, want first match at 0", row)
	}
}

// TestResolveNoMatch verifies that an unknown name returns no match rather
// than an error.
func TestResolveNoMatch(t *testing.T) {
	tbl := tableWithVariables("Conductivity")

	if _, ok := ResolveVariable("Turbidity", tbl); ok {
		t.Error("ResolveVariable(\"Turbidity\") matched, want no match")
	}
	if _, ok := ResolveVariable("", tbl); ok {
		t.Error("ResolveVariable(\"\") matched, want no match")
	}
}
