package engine

import (
	"github.com/okvist/labsheet/dataset"

	"github.com/okvist/labsheet/formula"
)

// rowBinding maps a variable name to the table row it reads from during one
// formula evaluation.
type rowBinding func(name string) (int, bool)

// EvaluateFormula evaluates one parsed formula against every date column of
// the table and returns a hit for each column where the condition chain is
// fully determinable and true. Inactive formulas evaluate to no hits.
//
// Cell-validation formulas require every variable reference to resolve to
// the same row; relational formulas resolve each reference independently and
// record hits against the row of the formula's first variable reference.
// A column where any operand is unreadable, any reference unresolved, or a
// division hits zero contributes nothing: the engine never guesses a
// missing operand.
func EvaluateFormula(f *formula.Formula, parsed *ParsedFormula, tbl *dataset.Table) []Hit {
	if f == nil || parsed == nil || !f.Active {
		return nil
	}

	names := parsed.Variables()
	if len(names) == 0 {
		// Nothing anchors the formula to a row, so there is no cell to
		// highlight regardless of the constants' truth value.
		return nil
	}

	bind, anchor, ok := bindVariables(f.Kind, names, tbl)
	if !ok {
		return nil
	}

	var hits []Hit
	for colIdx, col := range tbl.DateColumns() {
		passed, left, right, ok := evaluateChain(parsed, bind, tbl, col)
		if !ok || !passed {
			continue
		}
		hits = append(hits, Hit{
			FormulaID:   f.ID,
			Row:         normalizeVariable(tbl.VariableName(anchor)),
			RowIndex:    anchor,
			Column:      col,
			ColumnIndex: colIdx,
			Passed:      true,
			LeftValue:   left,
			RightValue:  right,
		})
	}

	return hits
}

// bindVariables resolves every referenced name once up front and returns the
// binding plus the row hits are recorded against.
func bindVariables(kind formula.Kind, names []string, tbl *dataset.Table) (rowBinding, int, bool) {
	resolved := make(map[string]int, len(names))
	for _, name := range names {
		idx, ok := ResolveVariable(name, tbl)
		if !ok {
			return nil, 0, false
		}
		resolved[name] = idx
	}

	anchor := resolved[names[0]]

	if kind != formula.KindRelational {
		// Every reference must land on the one row under validation.
		for _, idx := range resolved {
			if idx != anchor {
				return nil, 0, false
			}
		}
	}

	bind := func(name string) (int, bool) {
		idx, ok := resolved[name]
		return idx, ok
	}
	return bind, anchor, true
}

// evaluateChain folds the condition chain left-to-right with AND/OR. Every
// condition is evaluated even when an earlier one already determines the
// outcome, so each condition's compared values stay available for
// diagnostics. An indeterminate condition anywhere makes the whole column
// indeterminate. The returned left/right values are the first condition's.
func evaluateChain(parsed *ParsedFormula, bind rowBinding, tbl *dataset.Table, col string) (passed bool, left, right float64, ok bool) {
	type outcome struct {
		passed      bool
		left, right float64
	}

	outcomes := make([]outcome, 0, len(parsed.Conditions))
	determinable := true
	for _, cond := range parsed.Conditions {
		p, l, r, condOK := evaluateCondition(cond, bind, tbl, col)
		if !condOK {
			determinable = false
			continue
		}
		outcomes = append(outcomes, outcome{passed: p, left: l, right: r})
	}
	if !determinable {
		return false, 0, 0, false
	}

	result := outcomes[0].passed
	for i, op := range parsed.Operators {
		if op == LogicalAnd {
			result = result && outcomes[i+1].passed
		} else {
			result = result || outcomes[i+1].passed
		}
	}

	return result, outcomes[0].left, outcomes[0].right, true
}

// evaluateCondition evaluates one condition at one date column. The boolean
// outcome and both compared values are returned; ok is false when either
// side is unreadable.
func evaluateCondition(cond Condition, bind rowBinding, tbl *dataset.Table, col string) (passed bool, left, right float64, ok bool) {
	lr := evaluateExpression(cond.Left, bind, tbl, col)
	rr := evaluateExpression(cond.Right, bind, tbl, col)
	if !lr.Readable() || !rr.Readable() {
		return false, 0, 0, false
	}

	l, r := lr.Value, rr.Value
	switch cond.Op {
	case CompareGT:
		passed = l > r
	case CompareLT:
		passed = l < r
	case CompareGTE:
		passed = l >= r
	case CompareLTE:
		passed = l <= r
	case CompareEQ:
		passed = l == r
	case CompareNEQ:
		passed = l != r
	default:
		return false, 0, 0, false
	}

	return passed, l, r, true
}

// evaluateExpression coerces the expression's operands at the given column
// and applies the arithmetic operator if present. Division by zero yields an
// unreadable result rather than a panic.
func evaluateExpression(expr Expression, bind rowBinding, tbl *dataset.Table, col string) Reading {
	left := evaluateOperand(expr.Left, bind, tbl, col)
	if expr.Op == ArithNone {
		return left
	}

	right := evaluateOperand(expr.Right, bind, tbl, col)
	if !left.Readable() || !right.Readable() {
		return Reading{State: ReadingUnreadable}
	}

	var value float64
	switch expr.Op {
	case ArithAdd:
		value = left.Value + right.Value
	case ArithSub:
		value = left.Value - right.Value
	case ArithMul:
		value = left.Value * right.Value
	case ArithDiv:
		if right.Value == 0 {
			return Reading{State: ReadingUnreadable}
		}
		value = left.Value / right.Value
	default:
		return Reading{State: ReadingUnreadable}
	}

	return Reading{Value: value, State: ReadingExact}
}

func evaluateOperand(op Operand, bind rowBinding, tbl *dataset.Table, col string) Reading {
	if op.IsConst {
		return Reading{Value: op.Constant, State: ReadingExact}
	}
	idx, ok := bind(op.Variable)
	if !ok {
		return Reading{State: ReadingUnreadable}
	}
	return Coerce(tbl.Rows[idx][col])
}
