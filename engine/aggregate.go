package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okvist/labsheet/formula"
)

// Aggregate merges raw hits across all formulas into one HighlightedCell per
// distinct (row, column) cell. Contributing formulas keep the order in which
// formulas were supplied; the cell color comes from the first contributor.
// Output is ordered by table row then date column, so identical inputs
// always aggregate to byte-identical output. Aggregation never fails: an
// empty hit list yields an empty highlight list.
func Aggregate(hits []Hit, formulas []*formula.Formula) []HighlightedCell {
	if len(hits) == 0 {
		return []HighlightedCell{}
	}

	formulaOrder := make(map[string]int, len(formulas))
	formulaByID := make(map[string]*formula.Formula, len(formulas))
	for i, f := range formulas {
		formulaOrder[f.ID] = i
		formulaByID[f.ID] = f
	}

	type cellKey struct {
		row, col int
	}
	groups := make(map[cellKey][]Hit)
	var keys []cellKey
	for _, h := range hits {
		if !h.Passed {
			continue
		}
		key := cellKey{row: h.RowIndex, col: h.ColumnIndex}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], h)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].row != keys[j].row {
			return keys[i].row < keys[j].row
		}
		return keys[i].col < keys[j].col
	})

	cells := make([]HighlightedCell, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return formulaOrder[group[i].FormulaID] < formulaOrder[group[j].FormulaID]
		})

		contributors := make([]ContributingFormula, 0, len(group))
		for _, h := range group {
			f, ok := formulaByID[h.FormulaID]
			if !ok {
				continue
			}
			contributors = append(contributors, ContributingFormula{
				FormulaID:  f.ID,
				Name:       f.Name,
				Color:      f.Color,
				LeftValue:  h.LeftValue,
				RightValue: h.RightValue,
			})
		}
		if len(contributors) == 0 {
			continue
		}

		cells = append(cells, HighlightedCell{
			Row:      group[0].Row,
			Column:   group[0].Column,
			Color:    contributors[0].Color,
			Message:  buildMessage(group[0].Row, group[0].Column, contributors),
			Formulas: contributors,
		})
	}

	return cells
}

func buildMessage(row, col string, contributors []ContributingFormula) string {
	parts := make([]string, 0, len(contributors))
	for _, c := range contributors {
		parts = append(parts, fmt.Sprintf("%q (%s vs %s)",
			c.Name, formatValue(c.LeftValue), formatValue(c.RightValue)))
	}
	return fmt.Sprintf("%s at %s flagged by %s", row, col, strings.Join(parts, ", "))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
