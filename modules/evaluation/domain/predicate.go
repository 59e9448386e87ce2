package domain

import (
	"fmt"
	"reflect"
	"strings"
)

// Op is a predicate node type.
type Op int

const (
	OpAll Op = iota
	OpNone
	OpEq
	OpIn
	OpAnd
	OpOr
)

// Predicate is a storage-neutral filter over Record columns. Adapters compile it to
// their native query language; the in-memory adapter evaluates it with Match.
type Predicate struct {
	Op       Op
	Field    string
	Values   []any
	Children []Predicate
}

func All() Predicate  { return Predicate{Op: OpAll} }
func None() Predicate { return Predicate{Op: OpNone} }

func Eq(field string, value any) Predicate {
	return Predicate{Op: OpEq, Field: field, Values: []any{canonical(value)}}
}

// In matches rows whose field equals any of values. An empty list matches nothing.
func In[T any](field string, values []T) Predicate {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = canonical(v)
	}
	return Predicate{Op: OpIn, Field: field, Values: out}
}

// And folds trivially true and false operands away.
func And(ps ...Predicate) Predicate {
	children := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		switch p.Op {
		case OpAll:
			continue
		case OpNone:
			return None()
		}
		children = append(children, p)
	}
	switch len(children) {
	case 0:
		return All()
	case 1:
		return children[0]
	}
	return Predicate{Op: OpAnd, Children: children}
}

// Or folds trivially true and false operands away.
func Or(ps ...Predicate) Predicate {
	children := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		switch p.Op {
		case OpAll:
			return All()
		case OpNone:
			continue
		}
		children = append(children, p)
	}
	switch len(children) {
	case 0:
		return None()
	case 1:
		return children[0]
	}
	return Predicate{Op: OpOr, Children: children}
}

// Match evaluates the predicate against a record.
func (p Predicate) Match(r Record) bool {
	switch p.Op {
	case OpAll:
		return true
	case OpNone:
		return false
	case OpEq, OpIn:
		got := canonical(r[p.Field])
		for _, want := range p.Values {
			if got == want {
				return true
			}
		}
		return false
	case OpAnd:
		for _, c := range p.Children {
			if !c.Match(r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if c.Match(r) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Fields returns every column referenced by the predicate.
func (p Predicate) Fields() []string {
	var out []string
	switch p.Op {
	case OpEq, OpIn:
		out = append(out, p.Field)
	case OpAnd, OpOr:
		for _, c := range p.Children {
			out = append(out, c.Fields()...)
		}
	}
	return out
}

// Validate checks that every referenced field is a column of kind.
func (p Predicate) Validate(kind Kind) error {
	for _, f := range p.Fields() {
		if _, ok := kind.Column(f); !ok {
			return fmt.Errorf("predicate: %s has no column %q", kind, f)
		}
	}
	return nil
}

func (p Predicate) String() string {
	switch p.Op {
	case OpAll:
		return "TRUE"
	case OpNone:
		return "FALSE"
	case OpEq:
		return fmt.Sprintf("%s = %v", p.Field, p.Values[0])
	case OpIn:
		return fmt.Sprintf("%s IN %v", p.Field, p.Values)
	case OpAnd, OpOr:
		sep := " AND "
		if p.Op == OpOr {
			sep = " OR "
		}
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = "(" + c.String() + ")"
		}
		return strings.Join(parts, sep)
	default:
		return "?"
	}
}

// canonical maps integers to int64 and string-kinded values to string so that values
// coming from drivers and from typed constants compare equal.
func canonical(v any) any {
	if v == nil {
		return nil
	}
	if n, ok := toInt64(v); ok {
		if _, isFloat := v.(float64); !isFloat {
			return n
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}
