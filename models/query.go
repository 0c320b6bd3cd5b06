package models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operator is a comparison understood by the repositories.
type Operator string

const (
	OpEq         Operator = "eq"
	OpContainsCI Operator = "contains_ci" // case-insensitive substring (ILIKE %v%)
)

// Predicate is a single {field, operator, value} condition.
type Predicate struct {
	Field string
	Op    Operator
	Value string
}

// Order sorts results by a field.
type Order struct {
	Field string
	Desc  bool
}

// TermRank orders rows by how many distinct terms occur in the
// space-joined values of Fields. It sorts ahead of Order and before Limit.
type TermRank struct {
	Terms  []string
	Fields []string
}

// Filter is a structured query: every AllOf predicate must hold and, when
// AnyOf is non-empty, at least one of its predicates must hold.
type Filter struct {
	AllOf []Predicate
	AnyOf []Predicate
	Rank  *TermRank
	Order []Order
	Limit int
}

// ErrUnknownField is returned when a filter names a column the repository does not expose.
var ErrUnknownField = errors.New("unknown filter field")

// ContainsAnyTerm expands terms × fields into OR-combined case-insensitive
// substring predicates.
func ContainsAnyTerm(terms []string, fields ...string) []Predicate {
	preds := make([]Predicate, 0, len(terms)*len(fields))
	for _, term := range terms {
		for _, field := range fields {
			preds = append(preds, Predicate{Field: field, Op: OpContainsCI, Value: term})
		}
	}
	return preds
}

func (f Filter) apply(db *gorm.DB, allowed map[string]bool) (*gorm.DB, error) {
	for _, p := range f.AllOf {
		expr, err := p.expression(allowed)
		if err != nil {
			return nil, err
		}
		db = db.Where(expr)
	}

	if len(f.AnyOf) > 0 {
		exprs := make([]clause.Expression, 0, len(f.AnyOf))
		for _, p := range f.AnyOf {
			expr, err := p.expression(allowed)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
		db = db.Where(clause.Or(exprs...))
	}

	if f.Rank != nil && len(f.Rank.Terms) > 0 {
		// A single ORDER BY expression: gorm drops an expression when column orders are merged into it.
		expr, err := f.rankedOrder(allowed)
		if err != nil {
			return nil, err
		}
		db = db.Order(clause.OrderBy{Expression: expr})
	} else {
		for _, o := range f.Order {
			if !allowed[o.Field] {
				return nil, fmt.Errorf("%w: %s", ErrUnknownField, o.Field)
			}
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
		}
	}

	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	return db, nil
}

// rankedOrder renders
//
//	(CASE WHEN concat_ws(' ', f1, f2) ILIKE '%t1%' THEN 1 ELSE 0 END + ...) DESC, o1 DESC, ...
func (f Filter) rankedOrder(allowed map[string]bool) (clause.Expression, error) {
	if len(f.Rank.Fields) == 0 {
		return nil, fmt.Errorf("%w: rank needs at least one field", ErrUnknownField)
	}
	cols := make([]interface{}, 0, len(f.Rank.Fields))
	for _, field := range f.Rank.Fields {
		if !allowed[field] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		cols = append(cols, clause.Column{Name: field})
	}
	haystack := "concat_ws(' '" + strings.Repeat(", ?", len(cols)) + ")"

	var (
		sql  strings.Builder
		vars []interface{}
	)
	sql.WriteString("(")
	for i, term := range f.Rank.Terms {
		if i > 0 {
			sql.WriteString(" + ")
		}
		sql.WriteString("CASE WHEN " + haystack + " ILIKE ? THEN 1 ELSE 0 END")
		vars = append(vars, cols...)
		vars = append(vars, "%"+escapeLike(strings.ToLower(term))+"%")
	}
	sql.WriteString(") DESC")

	for _, o := range f.Order {
		if !allowed[o.Field] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, o.Field)
		}
		sql.WriteString(", ?")
		if o.Desc {
			sql.WriteString(" DESC")
		}
		vars = append(vars, clause.Column{Name: o.Field})
	}
	return clause.Expr{SQL: sql.String(), Vars: vars}, nil
}

// Score counts the distinct terms found in the row's joined Fields, the same
// way the SQL rendering does. A nil rank scores 0.
func (r *TermRank) Score(values map[string]string) int {
	if r == nil {
		return 0
	}
	parts := make([]string, 0, len(r.Fields))
	for _, field := range r.Fields {
		parts = append(parts, values[field])
	}
	haystack := strings.ToLower(strings.Join(parts, " "))

	score := 0
	seen := make(map[string]bool, len(r.Terms))
	for _, term := range r.Terms {
		term = strings.ToLower(term)
		if seen[term] {
			continue
		}
		seen[term] = true
		if strings.Contains(haystack, term) {
			score++
		}
	}
	return score
}

func (p Predicate) expression(allowed map[string]bool) (clause.Expression, error) {
	if !allowed[p.Field] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, p.Field)
	}
	col := clause.Column{Name: p.Field}
	switch p.Op {
	case OpEq:
		return clause.Eq{Column: col, Value: p.Value}, nil
	case OpContainsCI:
		return clause.Expr{SQL: "? ILIKE ?", Vars: []interface{}{col, "%" + escapeLike(p.Value) + "%"}}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", p.Op)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Matches evaluates the predicate against a row's field values. In-memory
// repositories use it so they filter exactly like the SQL rendering.
func (p Predicate) Matches(values map[string]string) bool {
	v, ok := values[p.Field]
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return v == p.Value
	case OpContainsCI:
		return strings.Contains(strings.ToLower(v), strings.ToLower(p.Value))
	}
	return false
}

// Matches reports whether a row satisfies the filter's predicates.
func (f Filter) Matches(values map[string]string) bool {
	for _, p := range f.AllOf {
		if !p.Matches(values) {
			return false
		}
	}
	if len(f.AnyOf) == 0 {
		return true
	}
	for _, p := range f.AnyOf {
		if p.Matches(values) {
			return true
		}
	}
	return false
}
