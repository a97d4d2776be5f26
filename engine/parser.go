package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseError describes why formula text does not match the grammar. It is
// returned, never panicked, and is the only failure that escapes the engine.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokenVariable tokenKind = iota
	tokenNumber
	tokenCompareOp
	tokenArithOp
	tokenLogicalOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// Parse tokenizes formula text and builds the condition chain:
//
//	formula     := condition (logicalOp condition)*
//	condition   := expression comparisonOp expression
//	expression  := operand (arithOp operand)?
//	operand     := "[" variableName "]" | number
//
// Conditions chain strictly left-to-right; there is no operator precedence
// and no grouping.
func Parse(text string) (*ParsedFormula, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, end: len(text)}

	parsed := &ParsedFormula{}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	parsed.Conditions = append(parsed.Conditions, cond)

	for !p.done() {
		tok := p.peek()
		if tok.kind != tokenLogicalOp {
			return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("expected AND or OR, got %q", tok.text)}
		}
		p.next()
		parsed.Operators = append(parsed.Operators, LogicalOp(strings.ToUpper(tok.text)))

		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		parsed.Conditions = append(parsed.Conditions, cond)
	}

	return parsed, nil
}

type parser struct {
	tokens []token
	pos    int
	end    int
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *parser) parseCondition() (Condition, error) {
	left, err := p.parseExpression()
	if err != nil {
		return Condition{}, err
	}

	if p.done() {
		return Condition{}, &ParseError{Pos: p.end, Msg: "expected comparison operator"}
	}
	tok := p.next()
	if tok.kind != tokenCompareOp {
		return Condition{}, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("expected comparison operator, got %q", tok.text)}
	}

	right, err := p.parseExpression()
	if err != nil {
		return Condition{}, err
	}

	return Condition{Left: left, Op: CompareOp(tok.text), Right: right}, nil
}

func (p *parser) parseExpression() (Expression, error) {
	left, err := p.parseOperand()
	if err != nil {
		return Expression{}, err
	}

	expr := Expression{Left: left}
	if !p.done() && p.peek().kind == tokenArithOp {
		tok := p.next()
		right, err := p.parseOperand()
		if err != nil {
			return Expression{}, err
		}
		expr.Op = ArithOp(tok.text)
		expr.Right = right
	}

	return expr, nil
}

func (p *parser) parseOperand() (Operand, error) {
	if p.done() {
		return Operand{}, &ParseError{Pos: p.end, Msg: "expected operand"}
	}
	tok := p.next()

	switch tok.kind {
	case tokenVariable:
		return Operand{Variable: tok.text}, nil
	case tokenNumber:
		return Operand{Constant: tok.num, IsConst: true}, nil
	case tokenArithOp:
		// Unary minus ahead of a number literal
		if tok.text == "-" && !p.done() && p.peek().kind == tokenNumber {
			num := p.next()
			return Operand{Constant: -num.num, IsConst: true}, nil
		}
	}

	return Operand{}, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("operand must be a bracketed variable or a number, got %q", tok.text)}
}

func tokenize(text string) ([]token, error) {
	var tokens []token
	runes := []rune(text)
	i := 0

	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '[':
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == ']' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, &ParseError{Pos: i, Msg: "unterminated variable reference, missing ]"}
			}
			name := strings.TrimSpace(string(runes[i+1 : end]))
			if name == "" {
				return nil, &ParseError{Pos: i, Msg: "empty variable reference"}
			}
			tokens = append(tokens, token{kind: tokenVariable, text: name, pos: i})
			i = end + 1

		case r == '>' || r == '<':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			tokens = append(tokens, token{kind: tokenCompareOp, text: op, pos: i})
			i++

		case r == '=' || r == '!':
			if i+1 >= len(runes) || runes[i+1] != '=' {
				return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", string(r))}
			}
			tokens = append(tokens, token{kind: tokenCompareOp, text: string(r) + "=", pos: i})
			i += 2

		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{kind: tokenArithOp, text: string(r), pos: i})
			i++

		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == ',') {
				i++
			}
			raw := strings.ReplaceAll(string(runes[start:i]), ",", ".")
			num, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("invalid number %q", string(runes[start:i]))}
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(runes[start:i]), num: num, pos: start})

		case unicode.IsLetter(r):
			start := i
			for i < len(runes) && unicode.IsLetter(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			switch strings.ToUpper(word) {
			case "AND", "OR":
				tokens = append(tokens, token{kind: tokenLogicalOp, text: word, pos: start})
			default:
				return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("operand must be a bracketed variable or a number, got %q", word)}
			}

		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", string(r))}
		}
	}

	if len(tokens) == 0 {
		return nil, &ParseError{Pos: 0, Msg: "formula is empty"}
	}

	return tokens, nil
}
