package engine

import (
	"strconv"
	"strings"
)

// qualifierPrefixes in match order: two-character qualifiers must be tried
// before their one-character prefixes.
var qualifierPrefixes = []struct {
	token     string
	qualifier Qualifier
}{
	{"<=", QualifierLessOrEqual},
	{">=", QualifierGreaterOrEqual},
	{"<", QualifierLessThan},
	{">", QualifierGreaterThan},
}

// Coerce converts a raw table cell into a numeric reading. It recognizes
// qualifier-prefixed text ("<5") and comma decimal separators ("12,5").
// Coercion always returns a Reading and never panics: anything that cannot
// be read as a number comes back Unreadable.
func Coerce(cell any) Reading {
	switch v := cell.(type) {
	case nil:
		return Reading{State: ReadingUnreadable}
	case float64:
		return Reading{Value: v, State: ReadingExact}
	case float32:
		return Reading{Value: float64(v), State: ReadingExact}
	case int:
		return Reading{Value: float64(v), State: ReadingExact}
	case int64:
		return Reading{Value: float64(v), State: ReadingExact}
	case string:
		return coerceText(v)
	default:
		return Reading{State: ReadingUnreadable}
	}
}

func coerceText(s string) Reading {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reading{State: ReadingUnreadable}
	}

	qualifier := QualifierNone
	for _, p := range qualifierPrefixes {
		if strings.HasPrefix(s, p.token) {
			qualifier = p.qualifier
			s = strings.TrimSpace(s[len(p.token):])
			break
		}
	}

	// Lab exports from locales using a decimal comma
	s = strings.ReplaceAll(s, ",", ".")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Reading{State: ReadingUnreadable}
	}

	if qualifier != QualifierNone {
		return Reading{Value: value, Qualifier: qualifier, State: ReadingQualified}
	}
	return Reading{Value: value, State: ReadingExact}
}
