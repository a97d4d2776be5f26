// Package engine parses validation formulas and evaluates them against a
// table snapshot, producing the set of highlighted cells with the formulas
// that triggered each one. Evaluation is a pure function of its inputs: the
// engine holds no table state and never mutates a snapshot.
package engine

// ReadingState classifies a coerced cell value.
type ReadingState int

const (
	// ReadingExact is a plain numeric reading.
	ReadingExact ReadingState = iota

	// ReadingQualified is a numeric reading censored by a qualifier,
	// e.g. "<5" for a value below the limit of quantification.
	ReadingQualified

	// ReadingUnreadable marks a cell that carries no usable number.
	ReadingUnreadable
)

// Qualifier is the censoring marker stripped from a qualified reading.
type Qualifier int

const (
	QualifierNone Qualifier = iota
	QualifierLessThan
	QualifierGreaterThan
	QualifierLessOrEqual
	QualifierGreaterOrEqual
)

// Reading is the coerced numeric value of one cell.
type Reading struct {
	Value     float64
	Qualifier Qualifier
	State     ReadingState
}

// Readable reports whether the reading carries a usable numeric value.
func (r Reading) Readable() bool {
	return r.State != ReadingUnreadable
}

// CompareOp is a comparison operator between two expressions.
type CompareOp string

const (
	CompareGT  CompareOp = ">"
	CompareLT  CompareOp = "<"
	CompareGTE CompareOp = ">="
	CompareLTE CompareOp = "<="
	CompareEQ  CompareOp = "=="
	CompareNEQ CompareOp = "!="
)

// ArithOp is an arithmetic operator inside an expression.
type ArithOp string

const (
	ArithNone ArithOp = ""
	ArithAdd  ArithOp = "+"
	ArithSub  ArithOp = "-"
	ArithMul  ArithOp = "*"
	ArithDiv  ArithOp = "/"
)

// LogicalOp joins two conditions in a chain.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

// Operand is either a bracketed variable reference or a numeric constant.
type Operand struct {
	Variable string
	Constant float64
	IsConst  bool
}

// Expression is one or two operands joined by an arithmetic operator.
// Op is ArithNone when the expression is a single operand.
type Expression struct {
	Left  Operand
	Op    ArithOp
	Right Operand
}

// Condition compares two expressions.
type Condition struct {
	Left  Expression
	Op    CompareOp
	Right Expression
}

// ParsedFormula is a chain of conditions joined left-to-right by logical
// operators. Operators always has length len(Conditions)-1; there is no
// operator precedence and no grouping.
type ParsedFormula struct {
	Conditions []Condition
	Operators  []LogicalOp
}

// Variables returns every variable name referenced by the formula, in order
// of appearance, without duplicates.
func (p *ParsedFormula) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(op Operand) {
		if op.IsConst || seen[op.Variable] {
			return
		}
		seen[op.Variable] = true
		names = append(names, op.Variable)
	}
	for _, c := range p.Conditions {
		for _, expr := range []Expression{c.Left, c.Right} {
			add(expr.Left)
			if expr.Op != ArithNone {
				add(expr.Right)
			}
		}
	}
	return names
}

// Hit records one formula triggering at one date column. Row carries the
// matched row's variable name; RowIndex and ColumnIndex preserve table order
// for deterministic aggregation.
type Hit struct {
	FormulaID   string
	Row         string
	RowIndex    int
	Column      string
	ColumnIndex int
	Passed      bool
	LeftValue   float64
	RightValue  float64
}

// ContributingFormula identifies one formula that triggered on a cell,
// with the operand values it compared there.
type ContributingFormula struct {
	FormulaID  string  `json:"formulaId"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	LeftValue  float64 `json:"leftValue"`
	RightValue float64 `json:"rightValue"`
}

// HighlightedCell is the aggregated record for one (row, column) cell.
// Color is the first contributing formula's color; Formulas preserves the
// order in which formulas were supplied to the evaluation.
type HighlightedCell struct {
	Row      string                `json:"row"`
	Column   string                `json:"column"`
	Color    string                `json:"color"`
	Message  string                `json:"message"`
	Formulas []ContributingFormula `json:"contributingFormulas"`
}
