// Package querysql compiles queryir queries to parameterized SQL for the
// dialects the record store supports.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tvdias/poc-study-designer-sub003/internal/queryir"
)

// Dialect identifies the SQL flavor a statement is rendered for.
type Dialect int

const (
	// SQLite uses "?" placeholders and COLLATE BINARY.
	SQLite Dialect = iota
	// Postgres uses "$n" placeholders and COLLATE "C".
	Postgres
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// binaryCollation returns the collation giving byte-wise text ordering.
func (d Dialect) binaryCollation() string {
	if d == Postgres {
		return `COLLATE "C"`
	}
	return "COLLATE BINARY"
}

// SQLCompiler compiles QueryIR to parameterized SQL.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	var sel queryir.Select
	switch query := q.(type) {
	case queryir.Select:
		sel = query
	case *queryir.Select:
		sel = *query
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}

	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(sel.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(sel.From)

	if sel.Filter != nil {
		where, whereParams, err := c.compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	// MANDATORY: Always add ORDER BY with a stable tiebreaker
	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderBy(sel))

	return Rebind(c.Dialect, b.String()), params, nil
}

// orderBy renders the ordering keys followed by the tiebreaker.
func (c *SQLCompiler) orderBy(sel queryir.Select) string {
	tie := sel.TieBreak
	if tie == "" {
		tie = "id"
	}

	parts := make([]string, 0, len(sel.OrderBy)+1)
	for _, col := range sel.OrderBy {
		if col == tie {
			continue
		}
		parts = append(parts, col+" ASC")
	}
	parts = append(parts, fmt.Sprintf("%s ASC %s", tie, c.Dialect.binaryCollation()))
	return strings.Join(parts, ", ")
}

// compilePredicate compiles a predicate to a WHERE clause fragment using
// "?" placeholders. Rebind runs once over the whole statement.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return pred.Field + " = ?", []any{toParam(pred.Value)}, nil
	case queryir.In:
		if len(pred.Values) == 0 {
			return "1 = 0", nil, nil // Empty set matches nothing
		}
		marks := make([]string, len(pred.Values))
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			marks[i] = "?"
			params[i] = toParam(v)
		}
		return fmt.Sprintf("%s IN (%s)", pred.Field, strings.Join(marks, ", ")), params, nil
	case queryir.IsNull:
		return pred.Field + " IS NULL", nil, nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil // Always true (vacuous truth)
		}
		var parts []string
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			if _, nested := sub.(queryir.And); nested {
				sql = "(" + sql + ")"
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// toParam converts a literal to the driver parameter stored in the schema.
// Bools become 0/1 because flags are INTEGER columns on every backend.
func toParam(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case int:
		return int64(val)
	default:
		return val
	}
}

// Rebind rewrites "?" placeholders for the dialect. Question marks inside
// single-quoted string literals are left untouched.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
