package queryir

import (
	"fmt"
	"regexp"
)

// identPattern matches identifiers safe to splice into SQL text.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidationError describes why a query cannot be compiled.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid query: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid query: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// Validate checks that a query only uses safe identifiers and supported
// literal types. Returns nil for a valid query.
//
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) ident(kind, name string) {
	if !identPattern.MatchString(name) {
		v.addProblem("%s %q is not a valid identifier", kind, name)
	}
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.ident("table", sel.From)
	if len(sel.Columns) == 0 {
		v.addProblem("select from %q has no columns", sel.From)
	}
	for _, c := range sel.Columns {
		v.ident("column", c)
	}
	for _, c := range sel.OrderBy {
		v.ident("order column", c)
	}
	if sel.TieBreak != "" {
		v.ident("tie-break column", sel.TieBreak)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.ident("field", pred.Field)
		v.literal(pred.Field, pred.Value)
	case In:
		v.ident("field", pred.Field)
		for _, val := range pred.Values {
			v.literal(pred.Field, val)
		}
	case IsNull:
		v.ident("field", pred.Field)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case nil:
		// nil predicates are valid (no filter)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) literal(field string, val any) {
	switch val.(type) {
	case string, int, int64, bool:
	default:
		v.addProblem("field %q compared to unsupported literal %T", field, val)
	}
}
