package engine

import (
	"strings"

	"github.com/okvist/labsheet/dataset"
)

// ResolveVariable maps a variable name referenced in a formula to the index
// of the matching table row. Matching runs in three passes over the rows in
// dataset order, first match wins:
//
//  1. exact equality, after trimming surrounding space and trailing
//     punctuation (stray commas and the like) from the row's Variable value
//  2. case-insensitive equality
//  3. substring containment in either direction, case-insensitive
//
// No match returns (0, false); the caller treats this as indeterminate,
// never as an error.
func ResolveVariable(name string, tbl *dataset.Table) (int, bool) {
	want := normalizeVariable(name)
	if want == "" {
		return 0, false
	}

	for i := range tbl.Rows {
		if normalizeVariable(tbl.VariableName(i)) == want {
			return i, true
		}
	}

	wantLower := strings.ToLower(want)
	for i := range tbl.Rows {
		if strings.ToLower(normalizeVariable(tbl.VariableName(i))) == wantLower {
			return i, true
		}
	}

	for i := range tbl.Rows {
		have := strings.ToLower(normalizeVariable(tbl.VariableName(i)))
		if have == "" {
			continue
		}
		if strings.Contains(have, wantLower) || strings.Contains(wantLower, have) {
			return i, true
		}
	}

	return 0, false
}

func normalizeVariable(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimRight(s, ",;.: ")
}
