package persistence

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// compileSQL renders a predicate as a WHERE fragment with positional arguments
// starting at $offset+1. Field names are checked against the kind's columns.
func compileSQL(kind domain.Kind, p domain.Predicate, offset int) (string, []any, error) {
	if err := p.Validate(kind); err != nil {
		return "", nil, err
	}
	var args []any
	sql := renderSQL(p, offset, &args)
	return sql, args, nil
}

func renderSQL(p domain.Predicate, offset int, args *[]any) string {
	placeholder := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", offset+len(*args))
	}

	switch p.Op {
	case domain.OpAll:
		return "TRUE"
	case domain.OpNone:
		return "FALSE"
	case domain.OpEq:
		col := pgx.Identifier{p.Field}.Sanitize()
		if p.Values[0] == nil {
			return col + " IS NULL"
		}
		return col + " = " + placeholder(p.Values[0])
	case domain.OpIn:
		if len(p.Values) == 0 {
			return "FALSE"
		}
		col := pgx.Identifier{p.Field}.Sanitize()
		parts := make([]string, len(p.Values))
		for i, v := range p.Values {
			parts[i] = placeholder(v)
		}
		return col + " IN (" + strings.Join(parts, ", ") + ")"
	case domain.OpAnd, domain.OpOr:
		sep := " AND "
		if p.Op == domain.OpOr {
			sep = " OR "
		}
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = "(" + renderSQL(c, offset, args) + ")"
		}
		return strings.Join(parts, sep)
	default:
		return "FALSE"
	}
}
