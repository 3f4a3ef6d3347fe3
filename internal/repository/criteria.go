package repository

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Operator names accepted in criteria conditions
type Operator string

const (
	OpEq         Operator = "eq"
	OpNeq        Operator = "neq"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpContains   Operator = "contains" // case-insensitive
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
)

// Reserved criteria keys
const (
	KeyOr     = "OR"
	KeyAnd    = "AND"
	KeySearch = "search"
)

// Condition pairs an operator with its operand
type Condition struct {
	Op    Operator
	Value any
}

// Criteria maps a column to a literal (equality), a Condition, or — under the
// reserved OR/AND keys — a []Criteria combinator. The "search" key holds a
// free-text term expanded over the repository's search fields.
type Criteria map[string]any

// Condition helpers

func Eq(v any) Condition            { return Condition{OpEq, v} }
func Neq(v any) Condition           { return Condition{OpNeq, v} }
func Gt(v any) Condition            { return Condition{OpGt, v} }
func Gte(v any) Condition           { return Condition{OpGte, v} }
func Lt(v any) Condition            { return Condition{OpLt, v} }
func Lte(v any) Condition           { return Condition{OpLte, v} }
func Contains(v string) Condition   { return Condition{OpContains, v} }
func StartsWith(v string) Condition { return Condition{OpStartsWith, v} }
func EndsWith(v string) Condition   { return Condition{OpEndsWith, v} }
func In(v any) Condition            { return Condition{OpIn, v} }
func NotIn(v any) Condition         { return Condition{OpNotIn, v} }

// clause is a compiled SQL fragment plus its bind arguments
type clause struct {
	expr string
	args []any
}

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_.]*$`)

// compileCriteria translates criteria into WHERE fragments. Fields are
// processed in sorted order so compilation is deterministic. Column names are
// restricted to snake_case identifiers; anything else is rejected rather than
// interpolated.
func compileCriteria(c Criteria, searchFields []string) ([]clause, error) {
	if len(c) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]clause, 0, len(keys))
	for _, key := range keys {
		value := c[key]
		switch key {
		case KeySearch:
			term, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("search term must be a string")
			}
			if term == "" || len(searchFields) == 0 {
				continue
			}
			cl, err := compileSearch(term, searchFields)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, cl)
		case KeyOr, KeyAnd:
			subs, ok := value.([]Criteria)
			if !ok {
				return nil, fmt.Errorf("%s must hold []Criteria", key)
			}
			cl, err := compileCombinator(key, subs, searchFields)
			if err != nil {
				return nil, err
			}
			if cl.expr != "" {
				clauses = append(clauses, cl)
			}
		default:
			cl, err := compileField(key, value)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, cl)
		}
	}
	return clauses, nil
}

func compileField(column string, value any) (clause, error) {
	if !columnPattern.MatchString(column) {
		return clause{}, fmt.Errorf("invalid criteria field %q", column)
	}

	cond, ok := value.(Condition)
	if !ok {
		// Bare literal means equality
		cond = Condition{OpEq, value}
	}

	switch cond.Op {
	case OpEq:
		return clause{column + " = ?", []any{cond.Value}}, nil
	case OpNeq:
		return clause{column + " <> ?", []any{cond.Value}}, nil
	case OpGt:
		return clause{column + " > ?", []any{cond.Value}}, nil
	case OpGte:
		return clause{column + " >= ?", []any{cond.Value}}, nil
	case OpLt:
		return clause{column + " < ?", []any{cond.Value}}, nil
	case OpLte:
		return clause{column + " <= ?", []any{cond.Value}}, nil
	case OpContains:
		return clause{column + " ILIKE ?", []any{"%" + fmt.Sprint(cond.Value) + "%"}}, nil
	case OpStartsWith:
		return clause{column + " ILIKE ?", []any{fmt.Sprint(cond.Value) + "%"}}, nil
	case OpEndsWith:
		return clause{column + " ILIKE ?", []any{"%" + fmt.Sprint(cond.Value)}}, nil
	case OpIn:
		return clause{column + " IN ?", []any{cond.Value}}, nil
	case OpNotIn:
		return clause{column + " NOT IN ?", []any{cond.Value}}, nil
	default:
		return clause{}, fmt.Errorf("unknown criteria operator %q", cond.Op)
	}
}

// compileSearch expands a free-text term into an OR of ILIKE over the
// repository's text fields.
func compileSearch(term string, searchFields []string) (clause, error) {
	exprs := make([]string, 0, len(searchFields))
	args := make([]any, 0, len(searchFields))
	for _, field := range searchFields {
		if !columnPattern.MatchString(field) {
			return clause{}, fmt.Errorf("invalid search field %q", field)
		}
		exprs = append(exprs, field+" ILIKE ?")
		args = append(args, "%"+term+"%")
	}
	return clause{"(" + strings.Join(exprs, " OR ") + ")", args}, nil
}

func compileCombinator(key string, subs []Criteria, searchFields []string) (clause, error) {
	parts := make([]string, 0, len(subs))
	args := make([]any, 0, len(subs))
	for _, sub := range subs {
		subClauses, err := compileCriteria(sub, searchFields)
		if err != nil {
			return clause{}, err
		}
		if len(subClauses) == 0 {
			continue
		}
		exprs := make([]string, 0, len(subClauses))
		for _, sc := range subClauses {
			exprs = append(exprs, sc.expr)
			args = append(args, sc.args...)
		}
		parts = append(parts, "("+strings.Join(exprs, " AND ")+")")
	}
	if len(parts) == 0 {
		return clause{}, nil
	}

	joiner := " AND "
	if key == KeyOr {
		joiner = " OR "
	}
	return clause{"(" + strings.Join(parts, joiner) + ")", args}, nil
}
